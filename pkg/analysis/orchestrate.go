package analysis

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chogerlate/NovelVizAI/internal/util"
	"github.com/chogerlate/NovelVizAI/pkg/ai"
	"github.com/chogerlate/NovelVizAI/pkg/common"
	"github.com/chogerlate/NovelVizAI/pkg/logger"
)

// Mode selects how much of a chapter's analysis is recomputed.
type Mode string

const (
	// ModeFull recomputes every facet.
	ModeFull Mode = "full"
	// ModeIncremental recomputes only facets that are absent, failed,
	// or stale.
	ModeIncremental Mode = "incremental"
)

// Store is the slice of the persistence gateway the orchestrator needs.
type Store interface {
	GetChapterAnalysis(ctx context.Context, chapterID string) (*common.ChapterAnalysis, error)
	SaveChapterAnalysis(ctx context.Context, analysis *common.ChapterAnalysis) error
}

// GraphApplier folds a chapter's character mapping into the novel-wide
// character graph.
type GraphApplier interface {
	ApplyChapterMapping(ctx context.Context, novelID string, chapterOrdinal int, mapping *common.CharacterMapping) (*common.GraphDelta, error)
}

// Client orchestrates the per-chapter analysis pipeline: it fans facet
// requests out to the completion client, validates each response, merges
// the results into one ChapterAnalysis, persists it, and forwards the
// character mapping to the graph builder.
type Client struct {
	ai    ai.CompletionClient
	store Store
	graph GraphApplier

	facetConcurrency   int
	maxAttempts        int
	baseDelay          time.Duration
	maxDelay           time.Duration
	requestTimeout     time.Duration
	stalenessThreshold int
}

// NewClientParams configures a new analysis Client. Zero values fall
// back to defaults.
type NewClientParams struct {
	AI    ai.CompletionClient
	Store Store
	Graph GraphApplier

	// FacetConcurrency bounds concurrent facet requests per chapter.
	FacetConcurrency int
	// MaxAttempts caps retries of transient completion failures.
	MaxAttempts int
	// BaseDelay and MaxDelay shape the retry backoff.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// RequestTimeout is the per-call completion timeout.
	RequestTimeout time.Duration
	// StalenessThreshold is how many new roster entries since the prior
	// analysis make it stale on incremental runs.
	StalenessThreshold int
}

// NewClient creates an analysis Client.
func NewClient(params NewClientParams) *Client {
	if params.FacetConcurrency <= 0 {
		params.FacetConcurrency = 3
	}
	if params.MaxAttempts <= 0 {
		params.MaxAttempts = 3
	}
	if params.BaseDelay <= 0 {
		params.BaseDelay = 500 * time.Millisecond
	}
	if params.MaxDelay <= 0 {
		params.MaxDelay = 8 * time.Second
	}
	if params.RequestTimeout <= 0 {
		params.RequestTimeout = 2 * time.Minute
	}
	if params.StalenessThreshold <= 0 {
		params.StalenessThreshold = 5
	}

	return &Client{
		ai:    params.AI,
		store: params.Store,
		graph: params.Graph,

		facetConcurrency:   params.FacetConcurrency,
		maxAttempts:        params.MaxAttempts,
		baseDelay:          params.BaseDelay,
		maxDelay:           params.MaxDelay,
		requestTimeout:     params.RequestTimeout,
		stalenessThreshold: params.StalenessThreshold,
	}
}

type facetOutcome struct {
	facet  common.FacetName
	result FacetResult
	issues []common.ValidationIssue
	err    error
}

// AnalyzeChapter runs the analysis pipeline for one chapter and returns
// the persisted ChapterAnalysis.
//
// Facets are requested concurrently, bounded by the configured limit. A
// facet that fails after retries is marked failed without aborting the
// chapter; the chapter is considered processed as long as at least one
// facet is ok. Re-analysis replaces facets wholesale and bumps
// analysis_version. A successful character_mapping facet is folded into
// the novel's character graph after the analysis is saved; a graph
// failure is returned alongside the saved analysis.
func (c *Client) AnalyzeChapter(ctx context.Context, chapter common.Chapter, novelCtx common.NovelContext, mode Mode) (*common.ChapterAnalysis, error) {
	prior, err := c.store.GetChapterAnalysis(ctx, chapter.ID)
	if err != nil {
		return nil, fmt.Errorf("load prior analysis: %w", err)
	}

	targets := c.selectFacets(prior, novelCtx, mode)

	next := &common.ChapterAnalysis{
		ChapterID:       chapter.ID,
		NovelID:         chapter.NovelID,
		ChapterOrdinal:  chapter.Ordinal,
		AnalysisVersion: 1,
		RosterSize:      len(novelCtx.KnownCharacters),
		FacetStatus:     map[common.FacetName]common.FacetStatus{},
	}
	for _, facet := range common.AllFacets() {
		next.FacetStatus[facet] = common.FacetStatusUnavailable
	}
	if prior != nil {
		next.AnalysisVersion = prior.AnalysisVersion + 1
		c.carryForward(next, prior, targets)
	}

	logger.Info("[Analysis] analyzing chapter",
		"novel", chapter.NovelID,
		"chapter", chapter.Ordinal,
		"mode", mode,
		"facets", len(targets),
		"version", next.AnalysisVersion,
	)

	outcomes := make([]facetOutcome, len(targets))
	group := errgroup.Group{}
	group.SetLimit(c.facetConcurrency)
	for i, facet := range targets {
		group.Go(func() error {
			outcomes[i] = c.computeFacet(ctx, facet, chapter, novelCtx)
			return nil
		})
	}
	// workers never return errors, failures live in outcomes
	_ = group.Wait()

	for _, outcome := range outcomes {
		if outcome.err != nil {
			next.FacetStatus[outcome.facet] = common.FacetStatusFailed
			logger.Warn("[Analysis] facet failed",
				"novel", chapter.NovelID,
				"chapter", chapter.Ordinal,
				"facet", outcome.facet,
				"err", outcome.err,
			)
			continue
		}
		mergeFacet(next, outcome.result)
		next.FacetStatus[outcome.facet] = common.FacetStatusOK
		next.Issues = append(next.Issues, outcome.issues...)
	}

	anyOK := false
	for _, status := range next.FacetStatus {
		if status == common.FacetStatusOK {
			anyOK = true
			break
		}
	}
	next.ProcessingFailed = !anyOK
	next.ProcessedAt = time.Now().UTC()

	if err := c.store.SaveChapterAnalysis(ctx, next); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}

	if next.ProcessingFailed {
		logger.Error("[Analysis] chapter processing failed, all facets failed",
			"novel", chapter.NovelID,
			"chapter", chapter.Ordinal,
		)
		return next, nil
	}

	if facetComputed(targets, common.FacetCharacterMapping) &&
		next.FacetStatus[common.FacetCharacterMapping] == common.FacetStatusOK &&
		c.graph != nil {
		if _, err := c.graph.ApplyChapterMapping(ctx, chapter.NovelID, chapter.Ordinal, next.CharacterMapping); err != nil {
			return next, fmt.Errorf("apply character mapping: %w", err)
		}
	}

	return next, nil
}

// selectFacets decides which facets this run recomputes. Full mode takes
// everything. Incremental mode takes facets that are absent or failed,
// plus every facet when the roster has grown past the staleness
// threshold since the prior analysis ran.
func (c *Client) selectFacets(prior *common.ChapterAnalysis, novelCtx common.NovelContext, mode Mode) []common.FacetName {
	if mode == ModeFull || prior == nil {
		return common.AllFacets()
	}

	stale := len(novelCtx.KnownCharacters)-prior.RosterSize > c.stalenessThreshold
	if stale {
		return common.AllFacets()
	}

	targets := []common.FacetName{}
	for _, facet := range common.AllFacets() {
		if prior.FacetStatus[facet] != common.FacetStatusOK {
			targets = append(targets, facet)
		}
	}
	return targets
}

// carryForward copies prior facet payloads, statuses, and issues for
// facets this run does not recompute.
func (c *Client) carryForward(next, prior *common.ChapterAnalysis, targets []common.FacetName) {
	for _, facet := range common.AllFacets() {
		if facetComputed(targets, facet) {
			continue
		}
		next.FacetStatus[facet] = prior.FacetStatus[facet]
		switch facet {
		case common.FacetSummary:
			next.Summary = prior.Summary
		case common.FacetSentiment:
			next.Sentiment = prior.Sentiment
		case common.FacetThemes:
			next.Themes = prior.Themes
		case common.FacetLiteraryElements:
			next.LiteraryElements = prior.LiteraryElements
		case common.FacetCharacterMapping:
			next.CharacterMapping = prior.CharacterMapping
		case common.FacetReadingAnalytics:
			next.ReadingAnalytics = prior.ReadingAnalytics
		}
		for _, issue := range prior.Issues {
			if issue.Facet == facet {
				next.Issues = append(next.Issues, issue)
			}
		}
	}
}

func (c *Client) computeFacet(ctx context.Context, facet common.FacetName, chapter common.Chapter, novelCtx common.NovelContext) facetOutcome {
	spec := BuildPrompt(facet, chapter.Content, novelCtx)

	raw, err := util.RetryWithBackoff(ctx, c.maxAttempts, c.baseDelay, c.maxDelay, ai.IsTransient,
		func(ctx context.Context) (map[string]any, error) {
			callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
			defer cancel()
			return c.ai.GenerateStructured(
				callCtx,
				spec.Name,
				spec.Description,
				spec.User,
				spec.Schema,
				ai.WithSystemPrompts(spec.System),
			)
		})
	if err != nil {
		return facetOutcome{facet: facet, err: err}
	}

	result, issues := ValidateFacet(facet, raw)
	return facetOutcome{facet: facet, result: result, issues: issues}
}

func mergeFacet(next *common.ChapterAnalysis, result FacetResult) {
	switch result.Facet {
	case common.FacetSummary:
		next.Summary = result.Summary
	case common.FacetSentiment:
		next.Sentiment = result.Sentiment
	case common.FacetThemes:
		next.Themes = result.Themes
	case common.FacetLiteraryElements:
		next.LiteraryElements = result.LiteraryElements
	case common.FacetCharacterMapping:
		next.CharacterMapping = result.CharacterMapping
	case common.FacetReadingAnalytics:
		next.ReadingAnalytics = result.ReadingAnalytics
	}
}

func facetComputed(targets []common.FacetName, facet common.FacetName) bool {
	for _, t := range targets {
		if t == facet {
			return true
		}
	}
	return false
}
