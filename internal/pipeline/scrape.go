package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/diligence-cli/internal/model"
	"github.com/sells-group/diligence-cli/pkg/firecrawl"
)

// staticBlacklist holds hosts known to reject scraping; targets there are
// short-circuited to Unsupported without consuming a call.
var staticBlacklist = map[string]bool{
	"linkedin.com":  true,
	"facebook.com":  true,
	"instagram.com": true,
	"twitter.com":   true,
	"x.com":         true,
	"glassdoor.com": true,
}

// unsupportedSignatures in a scrape error body mark a host as permanently
// unscrapable for the rest of the run.
var unsupportedSignatures = []string{
	"no longer supported",
	"not supported",
	"unsupported",
	"blocked by",
	"robots.txt",
}

// challengeSignatures are anti-bot interstitials; a short page consisting
// of one of these is a block, not content.
var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"attention required",
}

type scrapeResult struct {
	outcome   model.ScrapeOutcome
	attempts  int
	fromCache bool
}

// runScrape fetches page text for every non-file target in bounded
// concurrent batches. The phase has its own time sub-budget nested inside
// the run budget; when either expires, remaining targets are abandoned and
// survive as citations only. Blacklist growth, stats and cache writes all
// happen in the single-threaded continuation after each batch resolves.
func (p *Pipeline) runScrape(ctx context.Context, st *runState, targets []target) map[int]model.ScrapeOutcome {
	log := zap.L().With(zap.String("run_id", st.id))
	outcomes := make(map[int]model.ScrapeOutcome, len(targets))

	scrapeDeadline := time.Now().Add(time.Duration(p.cfg.Pipeline.ScrapeBudgetSecs) * time.Second)
	if scrapeDeadline.After(st.deadline) {
		scrapeDeadline = st.deadline
	}

	var work []target
	for _, t := range targets {
		if !t.isFile {
			work = append(work, t)
		}
	}

	conc := p.cfg.Pipeline.ScrapeConcurrency
	if conc < 1 {
		conc = 1
	}

	for start := 0; start < len(work); start += conc {
		if time.Now().After(scrapeDeadline) || ctx.Err() != nil {
			log.Info("scrape: budget exhausted, abandoning remaining targets",
				zap.Int("abandoned", len(work)-start))
			break
		}

		end := start + conc
		if end > len(work) {
			end = len(work)
		}
		batch := work[start:end]

		results := make([]scrapeResult, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for i, t := range batch {
			host := model.RegistrableHost(t.hit.URL)
			if staticBlacklist[host] || st.blacklist[host] {
				results[i] = scrapeResult{outcome: model.ScrapeOutcome{Status: model.ScrapeUnsupported}}
				continue
			}
			g.Go(func() error {
				results[i] = p.scrapeOne(gctx, t.hit.URL)
				return nil
			})
		}
		_ = g.Wait()

		for i, t := range batch {
			r := results[i]
			st.stats.ScrapeAttempts += r.attempts

			switch r.outcome.Status {
			case model.ScrapeSuccess:
				st.stats.ScrapeSuccesses++
				if !r.fromCache && p.cache != nil {
					if err := p.cache.Put(ctx, model.CanonicalURL(t.hit.URL), t.hit.Title, r.outcome.Text); err != nil {
						log.Warn("scrape: cache write failed", zap.Error(err))
					}
				}
			case model.ScrapeUnsupported:
				if r.attempts > 0 {
					host := model.RegistrableHost(t.hit.URL)
					if host != "" && !st.blacklist[host] {
						st.blacklist[host] = true
						log.Info("scrape: host blacklisted for run",
							zap.String("host", host),
							zap.String("url", t.hit.URL),
						)
					}
				}
			case model.ScrapeTransientFailure, model.ScrapeEmpty:
				log.Warn("scrape: target failed",
					zap.String("url", t.hit.URL),
					zap.String("status", string(r.outcome.Status)),
				)
			}
			outcomes[t.citation.Marker] = r.outcome
		}
	}

	return outcomes
}

// scrapeOne runs the timeout ladder for a single URL: cache probe, short
// attempt, then one retry with a longer timeout on transient failure.
func (p *Pipeline) scrapeOne(ctx context.Context, rawURL string) scrapeResult {
	canonical := model.CanonicalURL(rawURL)
	if p.cache != nil {
		if _, text, ok, err := p.cache.Get(ctx, canonical); err == nil && ok {
			return scrapeResult{
				outcome:   model.ScrapeOutcome{Status: model.ScrapeSuccess, Text: text},
				fromCache: true,
			}
		}
	}

	short := time.Duration(p.cfg.Pipeline.ScrapeTimeoutSecs) * time.Second
	outcome := p.scrapeAttempt(ctx, rawURL, short)
	attempts := 1
	if outcome.Status == model.ScrapeTransientFailure {
		long := time.Duration(p.cfg.Pipeline.ScrapeRetryTimeoutSecs) * time.Second
		outcome = p.scrapeAttempt(ctx, rawURL, long)
		attempts = 2
	}
	return scrapeResult{outcome: outcome, attempts: attempts}
}

func (p *Pipeline) scrapeAttempt(ctx context.Context, rawURL string, timeout time.Duration) model.ScrapeOutcome {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.scrape.Scrape(cctx, firecrawl.ScrapeRequest{
		URL:     rawURL,
		Formats: []string{"markdown"},
		Timeout: int(timeout / time.Millisecond),
	})
	if err != nil {
		var apiErr *firecrawl.APIError
		if errors.As(err, &apiErr) && isPermanentScrapeError(apiErr.StatusCode, apiErr.Body) {
			return model.ScrapeOutcome{Status: model.ScrapeUnsupported}
		}
		return model.ScrapeOutcome{Status: model.ScrapeTransientFailure}
	}

	if !resp.Success {
		if matchesAnySignature(resp.Error, unsupportedSignatures) {
			return model.ScrapeOutcome{Status: model.ScrapeUnsupported}
		}
		return model.ScrapeOutcome{Status: model.ScrapeTransientFailure}
	}

	text := strings.TrimSpace(resp.Data.Markdown)
	if text == "" {
		return model.ScrapeOutcome{Status: model.ScrapeEmpty}
	}
	// A short page consisting of a bot-challenge interstitial is a block.
	if len(text) < 1000 && matchesAnySignature(text, challengeSignatures) {
		return model.ScrapeOutcome{Status: model.ScrapeUnsupported}
	}
	return model.ScrapeOutcome{Status: model.ScrapeSuccess, Text: text}
}

// isPermanentScrapeError classifies an HTTP error from the scrape API.
// Auth/payment/forbidden/not-found statuses and explicit unsupported-site
// messages never succeed on retry.
func isPermanentScrapeError(status int, body string) bool {
	switch status {
	case 400, 401, 402, 403, 404, 422:
		return true
	}
	return matchesAnySignature(body, unsupportedSignatures)
}

func matchesAnySignature(text string, signatures []string) bool {
	lower := strings.ToLower(text)
	for _, sig := range signatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
