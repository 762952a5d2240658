package pipeline

import (
	"sort"
	"strings"

	"github.com/sells-group/diligence-cli/internal/config"
	"github.com/sells-group/diligence-cli/internal/model"
)

// Per-dimension selection weights, layered on top of the search-time
// composite score.
const (
	weightCategory      = 1.0 // multiplied by the dork priority
	weightRiskTerm      = 2.0
	weightAuthoritative = 3.0
	weightFile          = 1.5
	weightNews          = 1.0
	ownSitePenalty      = 2.0
)

// selectTargets is a pure function from the collected hit set to the
// ranked scrape targets. It recomputes a scraping-priority score, sorts
// descending with discovery order breaking ties, deduplicates by canonical
// URL keeping the highest score, caps at MaxScrapeTargets, and assigns
// citation markers 1..N in ranked order. Markers are final from here on:
// scrape and extraction outcomes never reorder or retract them.
func selectTargets(hits []model.Hit, cfg config.PipelineConfig, id model.Identity) []target {
	scored := make([]model.Hit, len(hits))
	copy(scored, hits)
	for i := range scored {
		scored[i].Score += selectionBoost(scored[i], id)
	}

	sort.SliceStable(scored, func(a, b int) bool {
		if scored[a].Score != scored[b].Score {
			return scored[a].Score > scored[b].Score
		}
		return scored[a].Order < scored[b].Order
	})

	seen := make(map[string]bool, len(scored))
	targets := make([]target, 0, cfg.MaxScrapeTargets)
	for _, h := range scored {
		if len(targets) >= cfg.MaxScrapeTargets {
			break
		}
		canonical := model.CanonicalURL(h.URL)
		if canonical == "" || seen[canonical] {
			continue
		}
		seen[canonical] = true
		targets = append(targets, target{
			hit:    h,
			isFile: model.IsFileURL(h.URL),
			citation: model.Citation{
				Marker:  len(targets) + 1,
				URL:     h.URL,
				Title:   h.Title,
				Snippet: h.Snippet,
			},
		})
	}
	return targets
}

// selectionBoost layers the originating dork's priority, risk and domain
// bonuses, and the own-site penalty onto a hit's search-time score.
func selectionBoost(h model.Hit, id model.Identity) float64 {
	text := h.Title + " " + h.Snippet
	host := model.RegistrableHost(h.URL)

	score := weightCategory * float64(h.Priority)
	if ContainsRiskTerm(text) {
		score += weightRiskTerm
	}
	if isAuthoritativeHost(host) {
		score += weightAuthoritative
	}
	if model.IsFileURL(h.URL) {
		score += weightFile
	}
	if isNewsHost(host) {
		score += weightNews
	}

	// The subject's own site rarely reports on itself; marketing pages
	// rank down unless the path looks editorial.
	if host != "" && host == model.RegistrableHost("https://"+id.Domain) &&
		!editorialPathPattern.MatchString(strings.ToLower(h.URL)) {
		score -= ownSitePenalty
	}
	return score
}
