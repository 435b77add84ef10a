package usecase

// PipelineSettings is the process-wide answering policy. It is assembled once
// at startup from configuration and treated as read-only afterwards; every
// request works on a copy of the relevant knobs.
type PipelineSettings struct {
	SystemPromptBase   string
	SystemPromptStrict string

	// MinCitationsToAnswer is the smallest curated-and-budgeted citation count
	// that still warrants calling the generator.
	MinCitationsToAnswer int
	// MinScore, when set, drops citations scoring below it. Unscored citations
	// are dropped too, since they cannot prove they pass.
	MinScore *float64
	Dedupe   bool
	// ShortCircuitOnEmpty returns FallbackAnswer without generating when fewer
	// than MinCitationsToAnswer citations survive budgeting.
	ShortCircuitOnEmpty bool
	FallbackAnswer      string
	// EnsureCitationsInOutput appends an advisory line when the generated
	// answer carries no [n] markers despite citations being present.
	EnsureCitationsInOutput bool

	// CtxSize is the generator's total context window in tokens.
	CtxSize int
	// ReserveTokens is the scaffold allowance (system prompt, headers) taken
	// off the context window before packing citations.
	ReserveTokens int
	// CharsPerToken is the estimation ratio used for token budgeting.
	CharsPerToken float64

	// MaxContextChars caps the aggregate character length of citation texts
	// after token packing. Zero disables the cap.
	MaxContextChars int

	// RRFK is the reciprocal rank fusion constant for hybrid search.
	RRFK float64
}

// DefaultPipelineSettings returns the settings used when configuration does
// not override them.
func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		SystemPromptBase: "You are an assistant that answers in detail, grounded in the indexed knowledge base.\n" +
			"If the answer is not in the excerpts, state clearly that you could not find it in the context.\n",
		SystemPromptStrict: "You are an assistant that answers STRICTLY from the provided excerpts.\n" +
			"If the information is not clear in the excerpts, say you could NOT find it in the context.\n" +
			"Include markers [1], [2], ... referencing the excerpts you used where applicable.\n",
		MinCitationsToAnswer:    1,
		Dedupe:                  true,
		ShortCircuitOnEmpty:     true,
		FallbackAnswer:          "I could not find enough information in the retrieved excerpts to answer confidently.",
		EnsureCitationsInOutput: false,
		CtxSize:                 4096,
		ReserveTokens:           64,
		CharsPerToken:           4.0,
		MaxContextChars:         16000,
		RRFK:                    60.0,
	}
}
