package model

import (
	"net/url"
	"path"
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// Dork is a planned search query. Immutable once generated.
type Dork struct {
	Query    string
	Category SectionCategory
	Priority int
}

// Hit is a kept search result. Priority carries the originating dork's
// priority into target selection. Order records discovery order and breaks
// score ties so target selection is reproducible.
type Hit struct {
	Title    string
	URL      string
	Snippet  string
	Category SectionCategory
	Priority int
	Score    float64
	Order    int
}

// fileExtensions are document types that the scrape API cannot usefully
// read; matching URLs are routed to manual review instead.
var fileExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true,
	".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
}

// CanonicalURL normalizes a URL for deduplication: lowercased scheme and
// host, query string and fragment stripped, trailing slash removed.
// Returns "" for unparsable or non-http URLs.
func CanonicalURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}
	host := strings.ToLower(u.Host)
	p := strings.TrimSuffix(u.EscapedPath(), "/")
	return scheme + "://" + host + p
}

// RegistrableHost collapses a URL's host to its registrable domain
// (news.example.co.uk -> example.co.uk). Used as the key for the dynamic
// blacklist, the host re-query cap and the per-host bullet cap. Falls back
// to the raw lowercased host when the public suffix list has no answer.
func RegistrableHost(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		// Bare hosts like "example.com" parse with an empty Host.
		host = strings.ToLower(strings.TrimSpace(raw))
	}
	if host == "" {
		return ""
	}
	if reg, err := publicsuffix.Domain(host); err == nil && reg != "" {
		return reg
	}
	return host
}

// IsFileURL reports whether the URL points at a document by extension.
func IsFileURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return fileExtensions[strings.ToLower(path.Ext(u.Path))]
}

// ScrapeStatus tags the outcome of one scrape attempt.
type ScrapeStatus string

const (
	// ScrapeSuccess means usable text was returned.
	ScrapeSuccess ScrapeStatus = "success"
	// ScrapeUnsupported means the page type or host permanently rejects
	// scraping; the host joins the dynamic blacklist.
	ScrapeUnsupported ScrapeStatus = "unsupported"
	// ScrapeEmpty means the call succeeded but returned no usable content.
	ScrapeEmpty ScrapeStatus = "empty"
	// ScrapeTransientFailure means a timeout or 5xx; a single retry with a
	// longer timeout is allowed.
	ScrapeTransientFailure ScrapeStatus = "transient_failure"
)

// ScrapeOutcome is the tagged result of scraping one target.
type ScrapeOutcome struct {
	Status ScrapeStatus
	Text   string
}
