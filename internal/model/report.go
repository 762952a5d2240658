package model

import (
	"strings"
	"time"
)

// SectionCategory identifies one of the fixed report sections. The order of
// SectionOrder is significant: it breaks ties when ranking findings.
type SectionCategory string

const (
	SectionCorporate  SectionCategory = "Corporate"
	SectionLegal      SectionCategory = "Legal"
	SectionCyber      SectionCategory = "Cyber"
	SectionReputation SectionCategory = "Reputation"
	SectionLeadership SectionCategory = "Leadership"
	SectionFinancials SectionCategory = "Financials"
	SectionMisc       SectionCategory = "Misc"
)

// SectionOrder lists every section in fixed report order.
var SectionOrder = []SectionCategory{
	SectionCorporate,
	SectionLegal,
	SectionCyber,
	SectionReputation,
	SectionLeadership,
	SectionFinancials,
	SectionMisc,
}

var sectionIndex = func() map[SectionCategory]int {
	m := make(map[SectionCategory]int, len(SectionOrder))
	for i, s := range SectionOrder {
		m[s] = i
	}
	return m
}()

// Index returns the section's position in the fixed order, or the Misc
// position for unknown values.
func (c SectionCategory) Index() int {
	if i, ok := sectionIndex[c]; ok {
		return i
	}
	return sectionIndex[SectionMisc]
}

// ParseSection coerces an arbitrary string to a known section category.
// Unknown values map to Misc.
func ParseSection(s string) SectionCategory {
	for _, c := range SectionOrder {
		if strings.EqualFold(s, string(c)) {
			return c
		}
	}
	return SectionMisc
}

// Severity ranks a finding. The set is closed and totally ordered.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

var severityRank = map[Severity]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
	SeverityInfo:     0,
}

// Rank returns the severity's ordinal; higher is more severe. Unknown
// severities rank as INFO.
func (s Severity) Rank() int {
	return severityRank[s]
}

// ParseSeverity coerces an arbitrary string to a known severity. Unknown
// values map to INFO.
func ParseSeverity(s string) Severity {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := severityRank[sev]; ok {
		return sev
	}
	return SeverityInfo
}

// FindingOrigin distinguishes model-extracted findings from heuristic ones
// built from search snippets when a page could not be scraped.
type FindingOrigin string

const (
	OriginLLM     FindingOrigin = "llm"
	OriginSnippet FindingOrigin = "serp"
)

// Finding is a single extracted due-diligence fact.
type Finding struct {
	Statement string          `json:"statement"`
	Quote     string          `json:"quote,omitempty"`
	Category  SectionCategory `json:"category"`
	Severity  Severity        `json:"severity"`
	SourceURL string          `json:"sourceUrl"`
	Origin    FindingOrigin   `json:"origin"`
}

// Citation links report content back to a source page. Markers are
// 1-indexed, assigned in target-selection order, and never reused.
type Citation struct {
	Marker  int    `json:"marker"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Bullet is a Finding bound to its citation, as placed into a section.
type Bullet struct {
	Text           string          `json:"text"`
	Quote          string          `json:"quote,omitempty"`
	SourceURL      string          `json:"sourceUrl"`
	CitationMarker int             `json:"citationMarker"`
	Severity       Severity        `json:"severity"`
	Origin         FindingOrigin   `json:"origin"`
	Category       SectionCategory `json:"category,omitempty"`
}

// Section is one thematic slice of the report.
type Section struct {
	Name    SectionCategory `json:"name"`
	Summary string          `json:"summary"`
	Bullets []Bullet        `json:"bullets"`
}

// FileForReview is a document target (PDF and friends) that is never
// scraped; it is surfaced for a human with a model-predicted interest note.
type FileForReview struct {
	URL               string `json:"url"`
	Title             string `json:"title"`
	SERPSnippet       string `json:"serpSnippet"`
	PredictedInterest string `json:"predictedInterest"`
	CitationMarker    int    `json:"citationMarker"`
}

// Cost is the per-service dollar estimate for one run.
type Cost struct {
	Search     float64 `json:"search"`
	Scrape     float64 `json:"scrape"`
	Enrichment float64 `json:"enrichment"`
	LLM        float64 `json:"llm"`
	Total      float64 `json:"total"`
}

// Stats is the observability counter block for one run.
type Stats struct {
	QueryCount          int     `json:"queryCount"`
	ResultsCollected    int     `json:"resultsCollected"`
	ScrapeAttempts      int     `json:"scrapeAttempts"`
	ScrapeSuccesses     int     `json:"scrapeSuccesses"`
	PagesAnalyzed       int     `json:"pagesAnalyzed"`
	ExtractionCalls     int     `json:"extractionCalls"`
	SummarizationCalls  int     `json:"summarizationCalls"`
	FilePredictionCalls int     `json:"filePredictionCalls"`
	InputTokens         int     `json:"inputTokens"`
	OutputTokens        int     `json:"outputTokens"`
	EnrichmentCalls     int     `json:"enrichmentCalls"`
	WallTimeSeconds     float64 `json:"wallTimeSeconds"`
}

// Payload is the final report artifact. It is fully shaped even when phases
// exit early; the caller never sees a partial structure.
type Payload struct {
	Company              string          `json:"company"`
	Domain               string          `json:"domain"`
	Generated            time.Time       `json:"generated"`
	Summary              string          `json:"summary"`
	Sections             []Section       `json:"sections"`
	Citations            []Citation      `json:"citations"`
	FilesForManualReview []FileForReview `json:"filesForManualReview"`
	Cost                 Cost            `json:"cost"`
	Stats                Stats           `json:"stats"`
}
