package semcache

// TTL day constants. A well-grounded answer ages slowly; a thinly
// grounded one is re-generated sooner so corpus growth can improve it.
const (
	BaseTTLDays = 7
	HighTTLDays = 30
)

// TTLDays returns the cache lifetime for an answer given its grounding.
// Monotonic in confidence: more sources with higher average similarity
// never yields a shorter TTL.
func TTLDays(sourceCount int, avgSimilarity float32) int {
	if sourceCount >= 3 && avgSimilarity > 0.8 {
		return HighTTLDays
	}
	return BaseTTLDays
}
