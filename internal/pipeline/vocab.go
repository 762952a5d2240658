package pipeline

import (
	"regexp"
	"strings"

	"github.com/sells-group/diligence-cli/internal/model"
)

// riskVocabulary are terms whose presence in a title or snippet raises a
// result's priority (and the severity of heuristic findings).
var riskVocabulary = []string{
	"lawsuit", "litigation", "settlement", "fraud", "scam", "fine",
	"penalty", "investigation", "indicted", "indictment", "convicted",
	"breach", "ransomware", "hacked", "leaked", "leak", "exposed",
	"bankruptcy", "insolvency", "layoffs", "violation", "sanction",
	"recall", "complaint", "negligence", "misconduct", "arrested",
}

// authoritativeDomains are government, court and registry hosts whose
// results outrank commercial pages.
var authoritativeDomains = []string{
	"sec.gov", "justice.gov", "ftc.gov", "courtlistener.com",
	"pacermonitor.com", "opencorporates.com", "companieshouse.gov.uk",
	"sam.gov", "oag.ca.gov", "bbb.org",
}

// newsDomains get a modest bonus: editorial coverage beats SEO pages.
var newsDomains = []string{
	"reuters.com", "bloomberg.com", "wsj.com", "ft.com", "apnews.com",
	"nytimes.com", "theguardian.com", "techcrunch.com", "krebsonsecurity.com",
	"bleepingcomputer.com",
}

// editorialPathPattern marks same-domain paths that still carry signal
// (press releases, newsroom pages) and so escape the own-site penalty.
var editorialPathPattern = regexp.MustCompile(`/(news|press|blog|media|newsroom)(/|$)`)

// containsFold is a case-insensitive substring check.
func containsFold(haystack, needle string) bool {
	return needle != "" && strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// ContainsRiskTerm reports whether text mentions any risk-vocabulary term.
func ContainsRiskTerm(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range riskVocabulary {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func isAuthoritativeHost(host string) bool {
	for _, d := range authoritativeDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".mil") ||
		strings.Contains(host, ".gov.")
}

func isNewsHost(host string) bool {
	for _, d := range newsDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// categoryKeywords drive the targeted-keyword score bonus: a result whose
// title or snippet mentions its dork's category vocabulary is more likely
// to actually be about that theme.
var categoryKeywords = map[model.SectionCategory][]string{
	model.SectionLegal:      {"lawsuit", "court", "settlement", "regulator", "sec", "ftc"},
	model.SectionCyber:      {"breach", "ransomware", "hacked", "leak", "vulnerability"},
	model.SectionReputation: {"scam", "fraud", "complaint", "review"},
	model.SectionCorporate:  {"acquisition", "merger", "subsidiary", "incorporated"},
	model.SectionFinancials: {"funding", "revenue", "layoffs", "bankruptcy", "debt"},
	model.SectionLeadership: {"ceo", "founder", "executive", "director", "resigned"},
}

func matchesCategoryKeyword(category model.SectionCategory, text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range categoryKeywords[category] {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// textTokens lowercases text and returns its alphanumeric tokens of three
// or more characters, as a set.
func textTokens(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if len(tok) >= 3 {
			out[tok] = struct{}{}
		}
	}
	return out
}

// jaccard computes token-set overlap in [0,1]. Two empty sets are treated
// as identical.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
