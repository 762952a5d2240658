// Package pipeline implements the multi-phase OSINT research run: query
// planning, search collection, enrichment, target selection, budgeted
// scraping, insight extraction, aggregation and summarization.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/diligence-cli/internal/cache"
	"github.com/sells-group/diligence-cli/internal/config"
	"github.com/sells-group/diligence-cli/internal/cost"
	"github.com/sells-group/diligence-cli/internal/model"
	"github.com/sells-group/diligence-cli/pkg/anthropic"
	"github.com/sells-group/diligence-cli/pkg/firecrawl"
	"github.com/sells-group/diligence-cli/pkg/proxycurl"
	"github.com/sells-group/diligence-cli/pkg/serper"
)

// Pipeline orchestrates one research run end to end. It holds only
// dependencies; all mutable run state lives in a per-run runState, so a
// Pipeline is safe to reuse across runs.
type Pipeline struct {
	cfg    *config.Config
	search serper.Client
	scrape firecrawl.Client
	enrich proxycurl.Client
	llm    anthropic.Client
	cache  *cache.Cache
	calc   *cost.Calculator
}

// New creates a Pipeline. enrichClient and scrapeCache may be nil
// (enrichment disabled / caching disabled).
func New(
	cfg *config.Config,
	searchClient serper.Client,
	scrapeClient firecrawl.Client,
	enrichClient proxycurl.Client,
	llmClient anthropic.Client,
	scrapeCache *cache.Cache,
) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		search: searchClient,
		scrape: scrapeClient,
		enrich: enrichClient,
		llm:    llmClient,
		cache:  scrapeCache,
		calc:   cost.NewCalculator(cfg.Pricing),
	}
}

// runState carries everything mutable about one run. Created at Run entry,
// discarded at return; nothing survives across runs.
type runState struct {
	id             string
	identity       model.Identity
	start          time.Time
	deadline       time.Time
	searchDeadline time.Time

	hits        []model.Hit
	seen        map[string]bool // canonical URL -> kept
	keptSnippet []map[string]struct{}
	hostQueries map[string]int
	blacklist   map[string]bool // registrable host -> permanently unscrapable

	files []model.FileForReview
	stats model.Stats
}

// target is one selected scrape target with its pre-assigned citation.
type target struct {
	hit      model.Hit
	citation model.Citation
	isFile   bool
}

// Run executes the full pipeline for one research input. The caller
// receives either a *model.ValidationError (before any external call) or a
// fully shaped Payload; budget exhaustion yields a partial but well-formed
// Payload, never an error.
func (p *Pipeline) Run(ctx context.Context, in model.ResearchInput) (*model.Payload, error) {
	identity, err := model.NewIdentity(in)
	if err != nil {
		return nil, err
	}

	st := &runState{
		id:          uuid.NewString(),
		identity:    identity,
		start:       time.Now(),
		seen:        make(map[string]bool),
		hostQueries: make(map[string]int),
		blacklist:   make(map[string]bool),
	}
	runBudget := time.Duration(p.cfg.Pipeline.RunBudgetSecs) * time.Second
	st.deadline = st.start.Add(runBudget)
	st.searchDeadline = st.start.Add(time.Duration(float64(runBudget) * p.cfg.Pipeline.SearchBudgetFraction))

	ctx, cancel := context.WithDeadline(ctx, st.deadline)
	defer cancel()

	log := zap.L().With(
		zap.String("run_id", st.id),
		zap.String("company", identity.RawName),
		zap.String("domain", identity.Domain),
	)
	log.Info("pipeline: starting research run")

	dorks := PlanDorks(identity)
	log.Info("pipeline: queries planned", zap.Int("dorks", len(dorks)))

	p.trackPhase(st, "search_frontier", func() {
		p.runFrontier(ctx, st, dorks)
	})

	p.trackPhase(st, "enrichment", func() {
		p.runEnrichment(ctx, st)
	})

	var targets []target
	p.trackPhase(st, "target_selection", func() {
		targets = selectTargets(st.hits, p.cfg.Pipeline, st.identity)
	})

	var outcomes map[int]model.ScrapeOutcome
	p.trackPhase(st, "scrape", func() {
		outcomes = p.runScrape(ctx, st, targets)
	})

	var findings []model.Finding
	p.trackPhase(st, "extract", func() {
		findings = p.runExtract(ctx, st, targets, outcomes)
	})

	agg := newAggregator(p.cfg.Pipeline, st.identity)
	p.trackPhase(st, "aggregate", func() {
		citationByURL := make(map[string]model.Citation, len(targets))
		for _, t := range targets {
			citationByURL[t.hit.URL] = t.citation
		}
		for _, f := range findings {
			if c, ok := citationByURL[f.SourceURL]; ok {
				agg.Add(f, c)
			}
		}
	})

	sections := agg.Sections()
	var summary string
	p.trackPhase(st, "summarize", func() {
		summary = p.runSummaries(ctx, st, sections, agg)
	})

	st.stats.WallTimeSeconds = time.Since(st.start).Seconds()

	citations := make([]model.Citation, 0, len(targets))
	for _, t := range targets {
		citations = append(citations, t.citation)
	}
	files := st.files
	if files == nil {
		files = []model.FileForReview{}
	}

	payload := &model.Payload{
		Company:              identity.RawName,
		Domain:               identity.Domain,
		Generated:            time.Now().UTC(),
		Summary:              summary,
		Sections:             sections,
		Citations:            citations,
		FilesForManualReview: files,
		Cost:                 p.calc.Total(p.cfg.Anthropic.Model, st.stats),
		Stats:                st.stats,
	}

	log.Info("pipeline: run complete",
		zap.Int("queries", st.stats.QueryCount),
		zap.Int("results", st.stats.ResultsCollected),
		zap.Int("scrape_attempts", st.stats.ScrapeAttempts),
		zap.Int("citations", len(citations)),
		zap.Float64("cost_usd", payload.Cost.Total),
		zap.Float64("wall_secs", st.stats.WallTimeSeconds),
	)

	return payload, nil
}

// trackPhase logs phase boundaries with durations. Phases never fail the
// run; errors inside them degrade to partial results and Warn logs.
func (p *Pipeline) trackPhase(st *runState, name string, fn func()) {
	start := time.Now()
	fn()
	zap.L().Info("pipeline: phase complete",
		zap.String("run_id", st.id),
		zap.String("phase", name),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
}

// complete issues one LLM call and accounts its tokens against the run.
func (p *Pipeline) complete(ctx context.Context, st *runState, system, user string, maxTokens int64) (string, error) {
	resp, err := p.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.cfg.Anthropic.Model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", err
	}
	st.stats.InputTokens += int(resp.Usage.InputTokens)
	st.stats.OutputTokens += int(resp.Usage.OutputTokens)
	return resp.Text(), nil
}
