package usecase

import "rag-gateway/internal/domain"

// Search modes accepted on an ask request.
const (
	SearchModeKNN    = "knn"
	SearchModeHybrid = "hybrid"
)

// AskInput carries one question through the answer pipeline.
type AskInput struct {
	Question string
	// TopK is the number of passages requested from retrieval; <= 0 uses the
	// default.
	TopK int
	// AnswerMaxTokens caps the generated answer. When nil, the legacy
	// MaxTokens field is consulted, then the default applies. The effective
	// value is clamped to a safe range either way.
	AnswerMaxTokens *int
	// MaxTokens is the legacy alias of AnswerMaxTokens, kept for older
	// clients. Ignored when AnswerMaxTokens is set.
	MaxTokens *int
	// Style selects the prompt scaffold; unknown tags fall back to base.
	Style string
	// SearchMode is "knn" or "hybrid". Hybrid silently degrades to knn when
	// the retriever cannot serve a lexical ranking.
	SearchMode string
	// MaxContextChars overrides the configured context character cap for this
	// request when set to a positive value.
	MaxContextChars *int
}

// AskOutput is the answered question with the citations that grounded it.
type AskOutput struct {
	Answer    string
	Citations []domain.Citation
}
