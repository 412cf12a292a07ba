// Package pipeline runs the draft and review workflows:
// embed the input, retrieve similar history, build the prompt and generate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/domain/chunk"
	"github.com/kailas-cloud/docsage/internal/domain/filter"
	"github.com/kailas-cloud/docsage/internal/domain/prompt"
	"github.com/kailas-cloud/docsage/internal/domain/retrieval"
	"github.com/kailas-cloud/docsage/internal/logger"
	"github.com/kailas-cloud/docsage/internal/metrics"
)

// Default retrieval depths.
const (
	DefaultDraftK  = 2
	DefaultReviewK = 5
)

// Timeouts bound each external call. Zero disables the bound.
type Timeouts struct {
	Embed    time.Duration
	Query    time.Duration
	Generate time.Duration
}

// Config tunes both workflows.
type Config struct {
	ModelID            string
	DraftK             int
	ReviewK            int
	DraftInstructions  string
	ReviewInstructions string
	Timeouts           Timeouts
	Exclude            filter.Expression // applied to both workflows, see ExcludeTickets
}

type workflow struct {
	name         string
	k            int
	filter       filter.Expression
	instructions string
	project      func([]chunk.Hit) []any
}

// Service orchestrates the draft and review workflows. It holds no per-run state.
type Service struct {
	embedder  domain.Embedder
	index     domain.VectorIndex
	generator domain.Generator
	cfg       Config
	logger    *zap.Logger
}

// New creates a pipeline service. Non-positive k values fall back to the defaults.
func New(
	embedder domain.Embedder, index domain.VectorIndex, generator domain.Generator,
	cfg Config, logger *zap.Logger,
) *Service {
	if cfg.DraftK <= 0 {
		cfg.DraftK = DefaultDraftK
	}
	if cfg.ReviewK <= 0 {
		cfg.ReviewK = DefaultReviewK
	}
	return &Service{
		embedder:  embedder,
		index:     index,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}
}

// ExcludeTickets builds a filter that keeps the given tickets out of retrieval.
func ExcludeTickets(ids []string) (filter.Expression, error) {
	conds := make([]filter.Condition, 0, len(ids))
	for _, id := range ids {
		c, err := filter.NewMatch(chunk.FieldTicketID, id)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("%w: exclude tickets: %w", domain.ErrInvalidArgument, err)
		}
		conds = append(conds, c)
	}
	e, err := filter.NewExpression(nil, nil, conds)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("%w: exclude tickets: %w", domain.ErrInvalidArgument, err)
	}
	return e, nil
}

func (s *Service) draftWorkflow() workflow {
	return workflow{
		name:         "draft",
		k:            s.cfg.DraftK,
		filter:       s.cfg.Exclude,
		instructions: s.cfg.DraftInstructions,
		project:      retrieval.DraftContexts,
	}
}

func (s *Service) reviewWorkflow() workflow {
	return workflow{
		name:         "review",
		k:            s.cfg.ReviewK,
		filter:       s.cfg.Exclude.And(chunk.FieldContentType, string(chunk.ContentReviewComment)),
		instructions: s.cfg.ReviewInstructions,
		project:      retrieval.ReviewContexts,
	}
}

// Draft writes a release note for a design document.
// Failures are *StageError wrapping the domain sentinel.
func (s *Service) Draft(ctx context.Context, designDocument string) (string, error) {
	return s.run(ctx, s.draftWorkflow(), designDocument)
}

// Review critiques an edited release note against past review comments.
func (s *Service) Review(ctx context.Context, releaseNote string) (string, error) {
	return s.run(ctx, s.reviewWorkflow(), releaseNote)
}

// GenerateDraft is Draft for terminal callers: failures come back as an ErrorMarker line.
func (s *Service) GenerateDraft(ctx context.Context, designDocument string) string {
	text, err := s.Draft(ctx, designDocument)
	if err != nil {
		return Marked(err)
	}
	return text
}

// ReviewNote is Review for terminal callers: failures come back as an ErrorMarker line.
func (s *Service) ReviewNote(ctx context.Context, releaseNote string) string {
	text, err := s.Review(ctx, releaseNote)
	if err != nil {
		return Marked(err)
	}
	return text
}

// run drives Init → Embedding → Retrieving → PromptBuilding → Generating → Done|Failed.
func (s *Service) run(ctx context.Context, wf workflow, input string) (text string, err error) {
	r := &runner{
		workflow: wf.name,
		log:      logger.FromContext(ctx, s.logger).With(zap.String("workflow", wf.name)),
		stage:    StageInit,
	}
	defer func() {
		if err != nil {
			r.transition(StageFailed)
			metrics.PipelineRunsTotal.WithLabelValues(wf.name, "failed").Inc()
			r.log.Warn("Pipeline failed", zap.Error(err))
			return
		}
		r.transition(StageDone)
		metrics.PipelineRunsTotal.WithLabelValues(wf.name, "done").Inc()
	}()

	if strings.TrimSpace(input) == "" {
		return "", r.fail(fmt.Errorf("%w: input text is empty", domain.ErrInvalidArgument))
	}

	r.transition(StageEmbedding)
	var emb domain.EmbeddingResult
	err = r.timed(func() error {
		callCtx, cancel := withTimeout(ctx, s.cfg.Timeouts.Embed)
		defer cancel()
		var embedErr error
		emb, embedErr = s.embedder.Embed(callCtx, input)
		return embedErr
	})
	if err != nil {
		return "", r.fail(fmt.Errorf("embed input: %w", err))
	}
	domain.UsageFromContext(ctx).AddTokens(emb.TotalTokens)

	r.transition(StageRetrieving)
	var hits []chunk.Hit
	err = r.timed(func() error {
		callCtx, cancel := withTimeout(ctx, s.cfg.Timeouts.Query)
		defer cancel()
		var queryErr error
		hits, queryErr = s.index.Query(callCtx, emb.Embedding, wf.k, wf.filter)
		return queryErr
	})
	if err != nil {
		return "", r.fail(fmt.Errorf("query index: %w", err))
	}
	r.log.Debug("Retrieved context", zap.Int("hits", len(hits)), zap.Int("k", wf.k))

	r.transition(StagePromptBuilding)
	env := prompt.Build(wf.instructions, input, prompt.TypeMarkdown, wf.project(hits))

	r.transition(StageGenerating)
	err = r.timed(func() error {
		callCtx, cancel := withTimeout(ctx, s.cfg.Timeouts.Generate)
		defer cancel()
		var genErr error
		text, genErr = s.generator.Generate(callCtx, env, s.cfg.ModelID)
		return genErr
	})
	if err != nil {
		return "", r.fail(fmt.Errorf("generate: %w", err))
	}
	return text, nil
}

// runner tracks the current stage of a single run.
type runner struct {
	workflow string
	log      *zap.Logger
	stage    Stage
}

func (r *runner) transition(to Stage) {
	r.log.Debug("Pipeline transition", zap.String("from", string(r.stage)), zap.String("to", string(to)))
	r.stage = to
}

func (r *runner) timed(fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.PipelineStageDuration.WithLabelValues(r.workflow, string(r.stage)).Observe(time.Since(start).Seconds())
	return err
}

func (r *runner) fail(err error) error {
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: r.stage, Err: err}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
