package generate

import (
	"strings"
	"testing"

	"github.com/noorchat/noor/internal/i18n"
)

func TestSplitArabic(t *testing.T) {
	text := "قل هو الله أحد\nSay: He is Allah, the One [Source 1].\nالله الصمد\nAllah, the Eternal Refuge."

	arabic, translation := splitArabic(text)

	if !strings.Contains(arabic, "قل هو الله أحد") || !strings.Contains(arabic, "الله الصمد") {
		t.Errorf("arabic = %q, missing quoted verses", arabic)
	}
	if strings.ContainsAny(arabic, "SAE") {
		t.Errorf("arabic = %q, contains Latin text", arabic)
	}
	if !strings.Contains(translation, "the Eternal Refuge") {
		t.Errorf("translation = %q, missing rendering", translation)
	}
}

func TestSplitArabicMonolingual(t *testing.T) {
	for _, text := range []string{
		"Prayer is the second pillar of Islam [Source 1].",
		"الصلاة هي الركن الثاني من أركان الإسلام",
		"",
	} {
		arabic, translation := splitArabic(text)
		if arabic != "" || translation != "" {
			t.Errorf("splitArabic(%q) = (%q, %q), want empty pair", text, arabic, translation)
		}
	}
}

func TestBuildPromptLanguage(t *testing.T) {
	en := buildPrompt("What is zakat?", "[Source 1] (fiqh) Zakat basics", i18n.LangEN)
	if !strings.Contains(en, "Answer in English.") {
		t.Errorf("English prompt missing language instruction:\n%s", en)
	}
	if !strings.Contains(en, "[Source 1]") {
		t.Errorf("prompt missing context block:\n%s", en)
	}
	if !strings.Contains(en, "Question: What is zakat?") {
		t.Errorf("prompt missing question:\n%s", en)
	}

	ar := buildPrompt("ما هي الزكاة؟", "", i18n.LangAR)
	if !strings.Contains(ar, "Answer in Arabic.") {
		t.Errorf("Arabic prompt missing language instruction:\n%s", ar)
	}
}
