package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/diligence-cli/internal/model"
	"github.com/sells-group/diligence-cli/pkg/serper"
)

// runFrontier drains the dork queue against the search API. It stops when
// the query budget or the search time slice is exhausted. Queries are
// issued in bounded concurrent batches; result processing and queue
// expansion happen single-threaded after each batch resolves.
func (p *Pipeline) runFrontier(ctx context.Context, st *runState, dorks []model.Dork) {
	log := zap.L().With(zap.String("run_id", st.id))

	queue := append([]model.Dork(nil), dorks...)
	limiter := rate.NewLimiter(rate.Limit(p.cfg.Serper.QPS), 1)
	conc := p.cfg.Pipeline.SearchConcurrency
	if conc < 1 {
		conc = 1
	}

	for len(queue) > 0 {
		if st.stats.QueryCount >= p.cfg.Pipeline.MaxQueries {
			log.Info("frontier: query budget exhausted", zap.Int("issued", st.stats.QueryCount))
			return
		}
		if time.Now().After(st.searchDeadline) {
			log.Info("frontier: search time budget exhausted")
			return
		}
		if ctx.Err() != nil {
			return
		}

		n := conc
		if remaining := p.cfg.Pipeline.MaxQueries - st.stats.QueryCount; n > remaining {
			n = remaining
		}
		if n > len(queue) {
			n = len(queue)
		}
		batch := queue[:n]
		queue = queue[n:]

		responses := make([]*serper.SearchResponse, len(batch))
		dispatched := 0
		g, gctx := errgroup.WithContext(ctx)
		for i, d := range batch {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
			dispatched++
			g.Go(func() error {
				resp, err := p.search.Search(gctx, d.Query, p.cfg.Serper.PageSize)
				if err != nil {
					// A failed query is not fatal; the queue continues.
					log.Warn("frontier: search failed",
						zap.String("query", d.Query),
						zap.Error(err),
					)
					return nil
				}
				responses[i] = resp
				return nil
			})
		}
		_ = g.Wait()
		st.stats.QueryCount += dispatched

		for i, d := range batch {
			if responses[i] == nil {
				continue
			}
			for _, r := range responses[i].Organic {
				p.considerResult(st, d, r, &queue)
			}
		}
	}
}

// considerResult applies the dedup, relevance and near-duplicate gates to
// one search result, scores it on keep, and expands the queue with a
// host-scoped dork for newly observed hosts.
func (p *Pipeline) considerResult(st *runState, d model.Dork, r serper.Result, queue *[]model.Dork) {
	canonical := model.CanonicalURL(r.Link)
	if canonical == "" || st.seen[canonical] {
		return
	}
	text := r.Title + " " + r.Snippet
	if !st.identity.Relevant(text) {
		return
	}

	tokens := textTokens(text)
	for _, kept := range st.keptSnippet {
		if jaccard(tokens, kept) >= p.cfg.Pipeline.SnippetSimilarityThreshold {
			return
		}
	}

	st.seen[canonical] = true
	st.keptSnippet = append(st.keptSnippet, tokens)
	st.hits = append(st.hits, model.Hit{
		Title:    r.Title,
		URL:      r.Link,
		Snippet:  r.Snippet,
		Category: d.Category,
		Priority: d.Priority,
		Score:    compositeScore(st.identity, d, r),
		Order:    len(st.hits),
	})
	st.stats.ResultsCollected++

	host := model.RegistrableHost(r.Link)
	if host == "" || host == model.RegistrableHost("https://"+st.identity.Domain) {
		return
	}
	if st.hostQueries[host] < p.cfg.Pipeline.HostRequeryCap {
		st.hostQueries[host]++
		*queue = append(*queue, hostExpansionDork(host, st.identity, d.Category))
	}
}

// compositeScore is the search-time heuristic rank of one result.
func compositeScore(id model.Identity, d model.Dork, r serper.Result) float64 {
	text := r.Title + " " + r.Snippet
	host := model.RegistrableHost(r.Link)

	var score float64
	if containsFold(r.Link, id.Domain) || containsFold(text, id.Domain) {
		score += 2
	}
	if ContainsRiskTerm(text) {
		score += 2
	}
	if isAuthoritativeHost(host) {
		score += 3
	}
	if model.IsFileURL(r.Link) {
		score += 1.5
	}
	if isNewsHost(host) {
		score += 1
	}
	if matchesCategoryKeyword(d.Category, text) {
		score += 1
	}
	return score
}
