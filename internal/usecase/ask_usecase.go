package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"rag-gateway/internal/domain"
	"rag-gateway/internal/usecase/retrieval"
)

const (
	defaultTopK            = 3
	defaultAnswerMaxTokens = 400
	minAnswerTokens        = 64
	maxAnswerTokens        = 2000
	// minHybridFetch widens the per-branch fetch so fusion has material to
	// reorder even for small topK requests.
	minHybridFetch = 5
)

// citationTagRe matches an [n] marker, tolerating inner whitespace.
var citationTagRe = regexp.MustCompile(`\[\s*\d+\s*\]`)

// ErrEmptyQuestion rejects requests whose question is blank.
var ErrEmptyQuestion = errors.New("question is required")

// AskUsecase answers a question from the indexed corpus.
type AskUsecase interface {
	Execute(ctx context.Context, in AskInput) (*AskOutput, error)
}

type askUsecase struct {
	retriever domain.Retriever
	// lexical is non-nil only when the retriever proved the hybrid capability
	// at construction time; it is never re-checked per request.
	lexical    domain.HybridRetriever
	generator  domain.Generator
	settings   PipelineSettings
	genTimeout time.Duration
	logger     *slog.Logger
	cache      *expirable.LRU[string, *AskOutput]
}

// AskOption tweaks optional pipeline behavior.
type AskOption func(*askUsecase)

// WithAnswerCache enables an in-memory TTL cache keyed by the full request
// shape. Identical questions within the TTL reuse the previous answer.
func WithAnswerCache(size int, ttl time.Duration) AskOption {
	return func(u *askUsecase) {
		u.cache = expirable.NewLRU[string, *AskOutput](size, nil, ttl)
	}
}

// NewAskUsecase wires the answer pipeline. The hybrid capability of the
// retriever is resolved here, once per instance.
func NewAskUsecase(
	retriever domain.Retriever,
	generator domain.Generator,
	settings PipelineSettings,
	genTimeout time.Duration,
	logger *slog.Logger,
	opts ...AskOption,
) AskUsecase {
	u := &askUsecase{
		retriever:  retriever,
		generator:  generator,
		settings:   settings,
		genTimeout: genTimeout,
		logger:     logger,
	}
	if hybrid, ok := retriever.(domain.HybridRetriever); ok {
		u.lexical = hybrid
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *askUsecase) Execute(ctx context.Context, in AskInput) (*AskOutput, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	askID := uuid.NewString()
	topK := in.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	style := ParseStyle(in.Style)
	mode := strings.ToLower(strings.TrimSpace(in.SearchMode))
	answerMax := clampAnswerTokens(in)
	charCap := u.settings.MaxContextChars
	if in.MaxContextChars != nil && *in.MaxContextChars > 0 {
		charCap = *in.MaxContextChars
	}

	cacheKey := fmt.Sprintf("%s|%d|%d|%s|%s|%d", question, topK, answerMax, style, mode, charCap)
	if u.cache != nil {
		if out, ok := u.cache.Get(cacheKey); ok {
			u.logger.InfoContext(ctx, "ask_cache_hit", slog.String("ask_id", askID))
			return out, nil
		}
	}

	started := time.Now()
	hits, err := u.search(ctx, question, topK, mode)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	citations := CurateCitations(hits, u.settings.Dedupe, u.settings.MinScore)

	available := AvailableContextTokens(
		u.settings.CtxSize, answerMax, u.settings.ReserveTokens, question, u.settings.CharsPerToken)
	citations = PackByTokenBudget(citations, available, u.settings.CharsPerToken)
	citations = TruncateByCharBudget(citations, charCap)

	if u.settings.ShortCircuitOnEmpty && len(citations) < u.settings.MinCitationsToAnswer {
		u.logger.InfoContext(ctx, "ask_short_circuit",
			slog.String("ask_id", askID),
			slog.Int("hit_count", len(hits)),
			slog.Int("citation_count", len(citations)))
		return u.finish(cacheKey, &AskOutput{Answer: u.settings.FallbackAnswer, Citations: citations}), nil
	}

	prompt := ComposePrompt(question, citations, u.settings, style)
	answer := u.generate(ctx, askID, prompt, answerMax)
	answer = u.guard(answer, citations)

	u.logger.InfoContext(ctx, "ask_answered",
		slog.String("ask_id", askID),
		slog.String("style", string(style)),
		slog.String("search_mode", mode),
		slog.Int("citation_count", len(citations)),
		slog.Duration("elapsed", time.Since(started)))

	return u.finish(cacheKey, &AskOutput{Answer: answer, Citations: citations}), nil
}

func (u *askUsecase) finish(cacheKey string, out *AskOutput) *AskOutput {
	if u.cache != nil {
		u.cache.Add(cacheKey, out)
	}
	return out
}

// search runs the requested retrieval mode. Hybrid mode requires the lexical
// capability; without it the request degrades to plain top-k.
func (u *askUsecase) search(ctx context.Context, question string, topK int, mode string) ([]domain.RetrievalHit, error) {
	if mode != SearchModeHybrid || u.lexical == nil {
		return u.retriever.SearchTopK(ctx, question, topK)
	}

	fetch := topK
	if fetch < minHybridFetch {
		fetch = minHybridFetch
	}

	var dense, lexical []domain.RetrievalHit
	var denseErr, lexErr error
	// Deliberately not errgroup.WithContext: one failing branch must not
	// cancel the other, since fusion can proceed on a single ranking.
	var g errgroup.Group
	g.Go(func() error {
		dense, denseErr = u.retriever.SearchTopK(ctx, question, fetch)
		return nil
	})
	g.Go(func() error {
		lexical, lexErr = u.lexical.SearchLexical(ctx, question, fetch)
		return nil
	})
	_ = g.Wait()

	if denseErr != nil && lexErr != nil {
		return nil, fmt.Errorf("both hybrid branches failed: %w", denseErr)
	}
	if denseErr != nil {
		u.logger.WarnContext(ctx, "hybrid_dense_branch_failed", slog.String("error", denseErr.Error()))
	}
	if lexErr != nil {
		u.logger.WarnContext(ctx, "hybrid_lexical_branch_failed", slog.String("error", lexErr.Error()))
	}

	fused := retrieval.Fuse(dense, lexical, u.settings.RRFK)
	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}

// generate calls the generator under the configured timeout. A failed or
// timed-out generation never fails the request; the fallback answer is
// returned with the error detail embedded so clients can see what happened.
func (u *askUsecase) generate(ctx context.Context, askID, prompt string, maxTokens int) string {
	gctx := ctx
	if u.genTimeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, u.genTimeout)
		defer cancel()
	}

	answer, err := u.generator.Generate(gctx, prompt, maxTokens)
	if err != nil {
		label := "generator error"
		if errors.Is(err, domain.ErrGenerateTimeout) || errors.Is(gctx.Err(), context.DeadlineExceeded) {
			label = "generator timeout"
		}
		u.logger.WarnContext(ctx, "generation_failed",
			slog.String("ask_id", askID),
			slog.String("generator", u.generator.Version()),
			slog.String("error", err.Error()))
		return fmt.Sprintf("%s (%s: %v)", u.settings.FallbackAnswer, label, err)
	}
	return answer
}

// guard applies the output guardrails: blank answers become the fallback, and
// answers missing [n] markers optionally get an advisory line appended.
func (u *askUsecase) guard(answer string, citations []domain.Citation) string {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return u.settings.FallbackAnswer
	}
	if u.settings.EnsureCitationsInOutput && len(citations) > 0 && !citationTagRe.MatchString(answer) {
		answer += "\n\nNote: no [n] excerpt markers were found in this answer; verify claims against the returned citations."
	}
	return answer
}

func clampAnswerTokens(in AskInput) int {
	v := defaultAnswerMaxTokens
	switch {
	case in.AnswerMaxTokens != nil:
		v = *in.AnswerMaxTokens
	case in.MaxTokens != nil:
		v = *in.MaxTokens
	}
	if v < minAnswerTokens {
		return minAnswerTokens
	}
	if v > maxAnswerTokens {
		return maxAnswerTokens
	}
	return v
}
