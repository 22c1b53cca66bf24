package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/noorchat/noor/internal/generate"
	"github.com/noorchat/noor/internal/i18n"
	"github.com/noorchat/noor/internal/log"
	"github.com/noorchat/noor/internal/rag"
	"github.com/noorchat/noor/internal/semcache"
	"github.com/noorchat/noor/internal/validate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeEmbedder struct {
	vec   []float32
	calls atomic.Int64
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) []float32 {
	f.calls.Add(1)
	return f.vec
}

type cacheWrite struct {
	question string
	answer   string
	language string
	ttlDays  int
}

type fakeCache struct {
	hit       *semcache.Hit
	lookupErr error

	mu      sync.Mutex
	lookups int
	writes  []cacheWrite
	written chan struct{}
}

func newFakeCache() *fakeCache {
	return &fakeCache{written: make(chan struct{}, 8)}
}

func (f *fakeCache) Lookup(ctx context.Context, embedding []float32, language string) (*semcache.Hit, error) {
	f.mu.Lock()
	f.lookups++
	f.mu.Unlock()
	return f.hit, f.lookupErr
}

func (f *fakeCache) Write(ctx context.Context, embedding []float32, question, answer string, sourceBadges []rag.SourceBadge, language string, ttlDays int) error {
	f.mu.Lock()
	f.writes = append(f.writes, cacheWrite{question: question, answer: answer, language: language, ttlDays: ttlDays})
	f.mu.Unlock()
	f.written <- struct{}{}
	return nil
}

func (f *fakeCache) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

type fakeSearcher struct {
	docs        []rag.Document
	keywordDocs []rag.Document

	searchCalls  atomic.Int64
	keywordCalls atomic.Int64
}

func (f *fakeSearcher) Search(ctx context.Context, embedding []float32, category rag.Category, queryText string) []rag.Document {
	f.searchCalls.Add(1)
	return f.docs
}

func (f *fakeSearcher) KeywordSearch(ctx context.Context, queryText string) []rag.Document {
	f.keywordCalls.Add(1)
	return f.keywordDocs
}

type fakeGenerator struct {
	reply *generate.Reply
	err   error

	mu       sync.Mutex
	contexts []string
}

func (f *fakeGenerator) Stream(ctx context.Context, query, contextBlock, language string, onDelta func(string)) (*generate.Reply, error) {
	f.mu.Lock()
	f.contexts = append(f.contexts, contextBlock)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if onDelta != nil {
		onDelta(f.reply.Text)
	}
	return f.reply, nil
}

func (f *fakeGenerator) lastContext() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.contexts) == 0 {
		return ""
	}
	return f.contexts[len(f.contexts)-1]
}

func strongDocs(n int) []rag.Document {
	docs := make([]rag.Document, n)
	for i := range docs {
		docs[i] = rag.Document{
			Type:       rag.CategoryHadith,
			Title:      "Sahih al-Bukhari",
			Grade:      "Sahih",
			Content:    "On the authority of Umar...",
			Similarity: 0.9,
		}
	}
	return docs
}

func newTestPipeline(t *testing.T, e Embedder, c Cache, s Searcher, g Generator) *Pipeline {
	t.Helper()
	p, err := New(e, c, s, g, log.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// A question paraphrasing one already answered is served verbatim from
// the semantic cache, without searching or generating.
func TestAnswerCacheHit(t *testing.T) {
	cache := newFakeCache()
	cache.hit = &semcache.Hit{
		Answer:     "Prayer is obligatory five times a day [Source 1].",
		Sources:    []rag.SourceBadge{{Type: "fiqh", Label: "Prayer times"}},
		Language:   i18n.LangEN,
		Similarity: 0.97,
	}
	searcher := &fakeSearcher{}
	gen := &fakeGenerator{reply: &generate.Reply{Text: "should not be used"}}
	p := newTestPipeline(t, &fakeEmbedder{vec: []float32{0.1, 0.2}}, cache, searcher, gen)

	var streamed strings.Builder
	ans, err := p.Answer(context.Background(), "How many times must I pray?", i18n.LangEN, func(d string) {
		streamed.WriteString(d)
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if !ans.FromCache {
		t.Error("FromCache = false, want true")
	}
	if ans.Text != cache.hit.Answer {
		t.Errorf("Text = %q, want cached answer", ans.Text)
	}
	if streamed.String() != cache.hit.Answer {
		t.Errorf("streamed %q, want cached answer in one delta", streamed.String())
	}
	if searcher.searchCalls.Load() != 0 {
		t.Error("source search ran despite cache hit")
	}
	if got := gen.lastContext(); got != "" {
		t.Errorf("generator ran despite cache hit (context %q)", got)
	}
	if cache.writeCount() != 0 {
		t.Error("cache hit triggered a write-back")
	}
}

// A cache miss retrieves sources, numbers them into the grounding
// context, generates, validates and writes the answer back.
func TestAnswerCacheMissFullPath(t *testing.T) {
	cache := newFakeCache()
	searcher := &fakeSearcher{docs: strongDocs(2)}
	gen := &fakeGenerator{reply: &generate.Reply{Text: "Grounded answer [Source 1]."}}
	p := newTestPipeline(t, &fakeEmbedder{vec: []float32{0.1, 0.2}}, cache, searcher, gen)

	ans, err := p.Answer(context.Background(), "What did the Prophet say about intentions?", i18n.LangEN, nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	ctxBlock := gen.lastContext()
	if !strings.Contains(ctxBlock, "[Source 1]") || !strings.Contains(ctxBlock, "[Source 2]") {
		t.Errorf("grounding context missing numbered sources:\n%s", ctxBlock)
	}
	if len(ans.Sources) != 2 {
		t.Errorf("got %d source badges, want 2", len(ans.Sources))
	}
	// Two sources at 0.9 similarity grade medium.
	if ans.Confidence != validate.ConfidenceMedium {
		t.Errorf("Confidence = %v, want medium", ans.Confidence)
	}

	select {
	case <-cache.written:
	case <-time.After(2 * time.Second):
		t.Fatal("write-back never happened")
	}
	cache.mu.Lock()
	w := cache.writes[0]
	cache.mu.Unlock()
	if w.ttlDays != semcache.BaseTTLDays {
		t.Errorf("ttlDays = %d, want %d (2 sources is below the long-TTL bar)", w.ttlDays, semcache.BaseTTLDays)
	}
}

func TestAnswerStrongGroundingGetsLongTTL(t *testing.T) {
	cache := newFakeCache()
	searcher := &fakeSearcher{docs: strongDocs(3)}
	gen := &fakeGenerator{reply: &generate.Reply{Text: "Well-grounded [Source 1]."}}
	p := newTestPipeline(t, &fakeEmbedder{vec: []float32{0.3}}, cache, searcher, gen)

	ans, err := p.Answer(context.Background(), "What is the reward of patience?", i18n.LangEN, nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Confidence != validate.ConfidenceHigh {
		t.Fatalf("Confidence = %v, want high", ans.Confidence)
	}

	select {
	case <-cache.written:
	case <-time.After(2 * time.Second):
		t.Fatal("write-back never happened")
	}
	cache.mu.Lock()
	w := cache.writes[0]
	cache.mu.Unlock()
	if w.ttlDays != semcache.HighTTLDays {
		t.Errorf("ttlDays = %d, want %d", w.ttlDays, semcache.HighTTLDays)
	}
}

// Low-confidence answers carry a disclaimer and are never cached.
func TestAnswerLowConfidenceNotCached(t *testing.T) {
	cache := newFakeCache()
	searcher := &fakeSearcher{} // nothing retrieved
	gen := &fakeGenerator{reply: &generate.Reply{Text: "An ungrounded guess."}}
	p := newTestPipeline(t, &fakeEmbedder{vec: []float32{0.1}}, cache, searcher, gen)

	ans, err := p.Answer(context.Background(), "An obscure question", i18n.LangEN, nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Confidence != validate.ConfidenceLow {
		t.Fatalf("Confidence = %v, want low", ans.Confidence)
	}
	if !strings.Contains(ans.Text, i18n.Msg(i18n.LangEN, "answer.disclaimer")) {
		t.Errorf("low-confidence answer missing disclaimer:\n%s", ans.Text)
	}

	select {
	case <-cache.written:
		t.Fatal("low-confidence answer was written to the cache")
	case <-time.After(100 * time.Millisecond):
	}
}

// Streaming consumers assemble the answer purely from deltas, so the
// disclaimer appended after validation must arrive as a trailing delta.
func TestAnswerStreamsAppendedDisclaimer(t *testing.T) {
	cache := newFakeCache()
	searcher := &fakeSearcher{} // nothing retrieved
	gen := &fakeGenerator{reply: &generate.Reply{Text: "An ungrounded guess."}}
	p := newTestPipeline(t, &fakeEmbedder{vec: []float32{0.1}}, cache, searcher, gen)

	var streamed strings.Builder
	ans, err := p.Answer(context.Background(), "An obscure question", i18n.LangEN, func(delta string) {
		streamed.WriteString(delta)
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Confidence != validate.ConfidenceLow {
		t.Fatalf("Confidence = %v, want low", ans.Confidence)
	}
	if streamed.String() != ans.Text {
		t.Errorf("streamed deltas diverge from final text:\ndeltas: %q\nfinal:  %q", streamed.String(), ans.Text)
	}
}

// A dead embedder produces an empty retrieval result, not an error.
func TestProcessQueryNilEmbedding(t *testing.T) {
	cache := newFakeCache()
	searcher := &fakeSearcher{keywordDocs: strongDocs(1)}
	gen := &fakeGenerator{reply: &generate.Reply{Text: "x"}}
	p := newTestPipeline(t, &fakeEmbedder{vec: nil}, cache, searcher, gen)

	result, err := p.ProcessQuery(context.Background(), "Why is the sky blue?", i18n.LangEN)
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if result.Context != "" || len(result.Sources) != 0 || result.CacheHit {
		t.Errorf("expected empty result, got %+v", result)
	}
	cache.mu.Lock()
	lookups := cache.lookups
	cache.mu.Unlock()
	if lookups != 0 {
		t.Error("cache lookup attempted without an embedding")
	}
	if searcher.keywordCalls.Load() != 0 {
		t.Error("keyword fallback ran for a non-hadith question")
	}
}

func TestProcessQueryNilEmbeddingHadithFallback(t *testing.T) {
	cache := newFakeCache()
	searcher := &fakeSearcher{keywordDocs: strongDocs(1)}
	gen := &fakeGenerator{reply: &generate.Reply{Text: "x"}}
	p := newTestPipeline(t, &fakeEmbedder{vec: nil}, cache, searcher, gen)

	result, err := p.ProcessQuery(context.Background(), "Is this hadith narrated by Bukhari authentic?", i18n.LangEN)
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if searcher.keywordCalls.Load() != 1 {
		t.Fatalf("keyword searches = %d, want 1", searcher.keywordCalls.Load())
	}
	if len(result.Sources) != 1 || result.Context == "" {
		t.Errorf("keyword fallback result not populated: %+v", result)
	}
}

// An empty vector search falls back to keyword retrieval for
// hadith-style questions.
func TestProcessQueryKeywordFallbackAfterEmptySearch(t *testing.T) {
	cache := newFakeCache()
	searcher := &fakeSearcher{docs: nil, keywordDocs: strongDocs(2)}
	gen := &fakeGenerator{reply: &generate.Reply{Text: "x"}}
	p := newTestPipeline(t, &fakeEmbedder{vec: []float32{0.5}}, cache, searcher, gen)

	result, err := p.ProcessQuery(context.Background(), "Which hadith speaks about anger?", i18n.LangEN)
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if searcher.keywordCalls.Load() != 1 {
		t.Errorf("keyword searches = %d, want 1", searcher.keywordCalls.Load())
	}
	if len(result.Sources) != 2 {
		t.Errorf("got %d sources from keyword fallback, want 2", len(result.Sources))
	}
}

func TestProcessQueryCacheErrorIsMiss(t *testing.T) {
	cache := newFakeCache()
	cache.lookupErr = errors.New("connection refused")
	searcher := &fakeSearcher{docs: strongDocs(1)}
	gen := &fakeGenerator{reply: &generate.Reply{Text: "x"}}
	p := newTestPipeline(t, &fakeEmbedder{vec: []float32{0.5}}, cache, searcher, gen)

	result, err := p.ProcessQuery(context.Background(), "What breaks the fast?", i18n.LangEN)
	if err != nil {
		t.Fatalf("ProcessQuery: %v (cache errors must degrade, not fail)", err)
	}
	if result.CacheHit {
		t.Error("CacheHit = true after lookup error")
	}
	if searcher.searchCalls.Load() != 1 {
		t.Error("search skipped after cache error")
	}
}

func TestProcessQueryEmptyQuery(t *testing.T) {
	p := newTestPipeline(t, &fakeEmbedder{}, newFakeCache(), &fakeSearcher{}, &fakeGenerator{reply: &generate.Reply{}})
	if _, err := p.ProcessQuery(context.Background(), "   \t\n", i18n.LangEN); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestAnswerGenerationFailureFallsBack(t *testing.T) {
	cache := newFakeCache()
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	p := newTestPipeline(t, &fakeEmbedder{vec: []float32{0.5}}, cache, &fakeSearcher{}, gen)

	ans, err := p.Answer(context.Background(), "What is sadaqah?", i18n.LangEN, nil)
	if err != nil {
		t.Fatalf("Answer: %v (generation failure must degrade, not fail)", err)
	}
	if ans.Text != i18n.Msg(i18n.LangEN, "answer.offline") {
		t.Errorf("Text = %q, want localized fallback", ans.Text)
	}
	if ans.Confidence != validate.ConfidenceLow {
		t.Errorf("Confidence = %v, want low", ans.Confidence)
	}
}

func TestAnswerCancellation(t *testing.T) {
	cache := newFakeCache()
	gen := &fakeGenerator{err: context.Canceled}
	p := newTestPipeline(t, &fakeEmbedder{vec: []float32{0.5}}, cache, &fakeSearcher{}, gen)

	_, err := p.Answer(context.Background(), "What is sadaqah?", i18n.LangEN, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// Concurrent identical questions share one retrieval execution.
func TestProcessQueryDeduplicates(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{0.5}}
	cache := newFakeCache()
	searcher := &fakeSearcher{docs: strongDocs(1)}
	gen := &fakeGenerator{reply: &generate.Reply{Text: "x"}}
	p := newTestPipeline(t, embedder, cache, searcher, gen)

	// Prime an in-flight execution by making the embedder slow.
	release := make(chan struct{})
	slow := &blockingEmbedder{vec: []float32{0.5}, release: release}
	p.embedder = slow

	const n = 5
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Variants normalize to the same key.
			_, _ = p.ProcessQuery(context.Background(), "  What IS  Zakat? ", i18n.LangEN)
		}()
	}

	// Let the goroutines pile onto the in-flight call, then release.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := slow.calls.Load(); got != 1 {
		t.Errorf("embedder called %d times for %d concurrent identical queries, want 1", got, n)
	}
}

type blockingEmbedder struct {
	vec     []float32
	release chan struct{}
	calls   atomic.Int64
}

func (b *blockingEmbedder) Embed(ctx context.Context, text string) []float32 {
	b.calls.Add(1)
	<-b.release
	return b.vec
}
