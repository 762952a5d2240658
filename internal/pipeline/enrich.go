package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/diligence-cli/internal/model"
	"github.com/sells-group/diligence-cli/pkg/proxycurl"
)

// runEnrichment augments the best company-profile hit and up to a few
// owner-profile hits with structured data from the enrichment API. The
// whole phase is best-effort: every failure is swallowed with a Warn log
// and the run continues untouched.
func (p *Pipeline) runEnrichment(ctx context.Context, st *runState) {
	if p.enrich == nil || !p.cfg.Enrichment.Enabled || p.cfg.Enrichment.MaxCalls <= 0 {
		return
	}
	log := zap.L().With(zap.String("run_id", st.id))
	remaining := p.cfg.Enrichment.MaxCalls

	idx := p.locateProfileHit(ctx, st, "linkedin.com/company/",
		fmt.Sprintf(`"%s" site:linkedin.com/company`, st.identity.CanonicalName),
		func(h model.Hit) bool { return st.identity.Relevant(h.Title + " " + h.Snippet) },
	)
	if idx >= 0 {
		remaining--
		st.stats.EnrichmentCalls++
		profile, err := p.enrich.EnrichCompany(ctx, st.hits[idx].URL)
		if err != nil {
			log.Warn("enrich: company lookup failed", zap.String("url", st.hits[idx].URL), zap.Error(err))
		} else {
			st.applyProfile(idx, companyProfileText(profile))
		}
	}

	for _, owner := range st.identity.Owners {
		if remaining <= 0 {
			break
		}
		idx := p.locateProfileHit(ctx, st, "linkedin.com/in/",
			fmt.Sprintf(`"%s" "%s" site:linkedin.com/in`, owner, st.identity.CanonicalName),
			func(h model.Hit) bool { return containsFold(h.Title, owner) },
		)
		if idx < 0 {
			continue
		}
		remaining--
		st.stats.EnrichmentCalls++
		profile, err := p.enrich.EnrichPerson(ctx, st.hits[idx].URL)
		if err != nil {
			log.Warn("enrich: person lookup failed",
				zap.String("owner", owner),
				zap.String("url", st.hits[idx].URL),
				zap.Error(err),
			)
			continue
		}
		st.applyProfile(idx, personProfileText(profile))
	}
}

// locateProfileHit returns the index of the best already-collected hit
// whose URL contains marker and passes match. When none exists and the
// query budget allows, it issues one extra profile search and retries.
func (p *Pipeline) locateProfileHit(ctx context.Context, st *runState, marker, query string, match func(model.Hit) bool) int {
	if idx := bestHitIndex(st.hits, marker, match); idx >= 0 {
		return idx
	}

	if st.stats.QueryCount >= p.cfg.Pipeline.MaxQueries || time.Now().After(st.deadline) {
		return -1
	}
	resp, err := p.search.Search(ctx, query, p.cfg.Serper.PageSize)
	st.stats.QueryCount++
	if err != nil {
		zap.L().Warn("enrich: profile search failed",
			zap.String("run_id", st.id),
			zap.String("query", query),
			zap.Error(err),
		)
		return -1
	}

	// Profile pages rarely quote the company name, so only the URL filter
	// applies here; the hits still go through the normal dedup path.
	for _, r := range resp.Organic {
		if !containsFold(r.Link, marker) {
			continue
		}
		canonical := model.CanonicalURL(r.Link)
		if canonical == "" || st.seen[canonical] {
			continue
		}
		st.seen[canonical] = true
		st.hits = append(st.hits, model.Hit{
			Title:    r.Title,
			URL:      r.Link,
			Snippet:  r.Snippet,
			Category: model.SectionLeadership,
			Priority: priorityLeadership,
			Score:    1,
			Order:    len(st.hits),
		})
		st.stats.ResultsCollected++
	}
	return bestHitIndex(st.hits, marker, match)
}

func bestHitIndex(hits []model.Hit, marker string, match func(model.Hit) bool) int {
	best := -1
	for i, h := range hits {
		if !containsFold(h.URL, marker) || !match(h) {
			continue
		}
		if best < 0 || h.Score > hits[best].Score {
			best = i
		}
	}
	return best
}

// applyProfile prepends structured profile text to a hit's snippet and
// boosts its selection score.
func (st *runState) applyProfile(idx int, profileText string) {
	if profileText == "" {
		return
	}
	st.hits[idx].Snippet = strings.TrimSpace(profileText + " " + st.hits[idx].Snippet)
	st.hits[idx].Score += 2
}

func companyProfileText(p *proxycurl.CompanyProfile) string {
	var parts []string
	if p.Industry != "" {
		parts = append(parts, "Industry: "+p.Industry+".")
	}
	if p.FoundedYear > 0 {
		parts = append(parts, fmt.Sprintf("Founded: %d.", p.FoundedYear))
	}
	if p.Description != "" {
		parts = append(parts, p.Description)
	}
	return strings.Join(parts, " ")
}

func personProfileText(p *proxycurl.PersonProfile) string {
	var parts []string
	if p.Headline != "" {
		parts = append(parts, p.Headline+".")
	}
	if p.Summary != "" {
		parts = append(parts, p.Summary)
	}
	return strings.Join(parts, " ")
}
