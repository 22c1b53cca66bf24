// Package dedup collapses concurrent identical queries into a single
// in-flight execution. Double-tap submissions of the same question share
// one embedding call, one cache lookup, and one search instead of racing
// duplicates through the pipeline.
package dedup

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/noorchat/noor/internal/rag"
)

// Group deduplicates calls by normalized query text. The zero value is
// ready to use and safe for concurrent access.
type Group struct {
	sf singleflight.Group
}

// Do executes fn for the normalized key, or joins an execution already in
// flight for the same key. All callers receive the same result and error.
// The in-flight entry is dropped once fn settles, success or failure, so a
// later identical query runs fresh.
//
// No queuing: the first caller's fn wins, later concurrent callers only
// piggyback.
func (g *Group) Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	v, err, _ := g.sf.Do(rag.NormalizeQuery(key), func() (any, error) {
		return fn(ctx)
	})
	return v, err
}

// Forget removes any in-flight entry for key, forcing the next Do to run
// fn. Used by tests and by callers that know the shared result is stale.
func (g *Group) Forget(key string) {
	g.sf.Forget(rag.NormalizeQuery(key))
}
