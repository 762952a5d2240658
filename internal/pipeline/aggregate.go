package pipeline

import (
	"sort"

	"github.com/sells-group/diligence-cli/internal/config"
	"github.com/sells-group/diligence-cli/internal/model"
)

// aggregator collects accepted findings into sections while enforcing the
// relevance re-gate, per-section bullet caps, per-host caps and the
// near-duplicate statement filter. It is single-threaded.
type aggregator struct {
	cfg config.PipelineConfig
	id  model.Identity

	bySection  map[model.SectionCategory][]model.Bullet
	hostCounts map[string]int
	accepted   []map[string]struct{}
}

func newAggregator(cfg config.PipelineConfig, id model.Identity) *aggregator {
	return &aggregator{
		cfg:        cfg,
		id:         id,
		bySection:  make(map[model.SectionCategory][]model.Bullet),
		hostCounts: make(map[string]int),
	}
}

// Add applies the acceptance gates to one finding and, on pass, binds it to
// its citation as a section bullet. Returns whether the finding was kept.
func (a *aggregator) Add(f model.Finding, c model.Citation) bool {
	section := f.Category

	// Findings must mention the subject somewhere in their own text or in
	// the cited source metadata; extraction drift gets dropped here.
	gateText := f.Statement + " " + f.Quote + " " + c.Title + " " + c.Snippet
	if !a.id.Relevant(gateText) {
		return false
	}

	if len(a.bySection[section]) >= a.cfg.BulletCap {
		return false
	}

	host := model.RegistrableHost(f.SourceURL)
	if host != "" && a.hostCounts[host] >= a.cfg.HostCap {
		return false
	}

	tokens := textTokens(f.Statement)
	for _, prev := range a.accepted {
		if jaccard(tokens, prev) >= a.cfg.SimilarityThreshold {
			return false
		}
	}

	a.bySection[section] = append(a.bySection[section], model.Bullet{
		Text:           f.Statement,
		Quote:          f.Quote,
		SourceURL:      f.SourceURL,
		CitationMarker: c.Marker,
		Severity:       f.Severity,
		Origin:         f.Origin,
		Category:       section,
	})
	if host != "" {
		a.hostCounts[host]++
	}
	a.accepted = append(a.accepted, tokens)
	return true
}

// Sections returns all seven sections in fixed order, empty ones included.
// Bullets sort by severity descending, citation marker ascending.
func (a *aggregator) Sections() []model.Section {
	sections := make([]model.Section, 0, len(model.SectionOrder))
	for _, name := range model.SectionOrder {
		bullets := append([]model.Bullet(nil), a.bySection[name]...)
		sort.SliceStable(bullets, func(i, j int) bool {
			if bullets[i].Severity.Rank() != bullets[j].Severity.Rank() {
				return bullets[i].Severity.Rank() > bullets[j].Severity.Rank()
			}
			return bullets[i].CitationMarker < bullets[j].CitationMarker
		})
		if bullets == nil {
			bullets = []model.Bullet{}
		}
		sections = append(sections, model.Section{Name: name, Bullets: bullets})
	}
	return sections
}

// TopFindings returns the accepted CRITICAL and HIGH bullets across all
// sections, ranked by severity, then section order, then citation marker.
func (a *aggregator) TopFindings() []model.Bullet {
	var top []model.Bullet
	for _, name := range model.SectionOrder {
		for _, b := range a.bySection[name] {
			if b.Severity.Rank() >= model.SeverityHigh.Rank() {
				top = append(top, b)
			}
		}
	}
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].Severity.Rank() != top[j].Severity.Rank() {
			return top[i].Severity.Rank() > top[j].Severity.Rank()
		}
		if top[i].Category != top[j].Category {
			return top[i].Category.Index() < top[j].Category.Index()
		}
		return top[i].CitationMarker < top[j].CitationMarker
	})
	return top
}

// Empty reports whether no finding survived aggregation.
func (a *aggregator) Empty() bool {
	return len(a.accepted) == 0
}
