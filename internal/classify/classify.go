// Package classify categorizes questions by subject area using an ordered
// rule table of regular expressions. Pure and deterministic: no external
// calls, constant time in the pattern count.
//
// Rule order is behavior, not style. Trigger terms overlap across
// categories ("tafsir of surah al-baqarah" mentions both tafsir and quran
// terms), so more specific categories are checked first and the first
// match wins. The order is pinned by tests; change it deliberately.
package classify

import (
	"regexp"
	"strings"

	"github.com/noorchat/noor/internal/rag"
)

// rule pairs a category with its trigger pattern.
type rule struct {
	category rag.Category
	pattern  *regexp.Regexp
}

// rules is the ordered classification table, most specific first.
var rules = []rule{
	{rag.CategoryTafsir, regexp.MustCompile(`(?i)\b(tafsir|tafseer|exegesis)\b|meaning of (surah|ayah|verse)|interpretation of .{0,20}(quran|surah|verse)|تفسير`)},
	{rag.CategoryQuran, regexp.MustCompile(`(?i)\b(quran|qur'an|koran|surah|ayah|ayat|juz|verse|recit\w*)\b|قرآن|سورة|آية`)},
	{rag.CategoryHadith, regexp.MustCompile(`(?i)\b(hadith|hadeeth|sunnah|narrat\w*|bukhari|tirmidhi|abu dawud|ibn majah|nasa'?i|sahih muslim|musnad)\b|حديث|روى|البخاري`)},
	{rag.CategoryAqeedah, regexp.MustCompile(`(?i)\b(aqeedah|aqidah|creed|tawhid|tawheed|shirk|iman|belief|attributes of allah)\b|عقيدة|توحيد`)},
	{rag.CategoryFiqh, regexp.MustCompile(`(?i)\b(fiqh|halal|haram|permissible|forbidden|ruling|wudu|ghusl|salah|zakat|sawm|fasting|ramadan|hajj|umrah|nikah|divorce|inheritance)\b|فقه|حلال|حرام|حكم`)},
	{rag.CategorySeerah, regexp.MustCompile(`(?i)\b(seerah|sirah|biography|companions?|sahaba|battle of \w+)\b|life of the prophet|سيرة|غزوة`)},
}

// Classify returns the category of a question: the first rule whose
// pattern matches, or general.
func Classify(query string) rag.Category {
	q := strings.TrimSpace(query)
	if q == "" {
		return rag.CategoryGeneral
	}
	for _, r := range rules {
		if r.pattern.MatchString(q) {
			return r.category
		}
	}
	return rag.CategoryGeneral
}

// hadithKeywords detects questions that name hadith collections or
// narration chains explicitly. Used by the orchestrator's keyword-search
// fallback when vector retrieval comes back empty.
var hadithKeywords = regexp.MustCompile(`(?i)\b(hadith|hadeeth|narrated|bukhari|tirmidhi|abu dawud|ibn majah|sahih muslim)\b|حديث|روى`)

// IsHadithQuery reports whether query explicitly references hadith
// material by keyword.
func IsHadithQuery(query string) bool {
	return hadithKeywords.MatchString(query)
}
