package domain

// RetrievalHit is the raw passage returned by a Retriever before curation.
// Score is engine-specific and only comparable within a single ranking.
type RetrievalHit struct {
	ID    string
	Score *float64
	Text  string
	Meta  map[string]any
}

// Citation is a normalized, attributed passage eligible for prompt inclusion.
// A Citation is never mutated after curation; truncation produces a new value.
type Citation struct {
	ID    string
	Score *float64
	Text  string
	Meta  map[string]any
}
