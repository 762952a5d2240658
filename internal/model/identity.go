// Package model holds the domain types shared across the research pipeline.
package model

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// suffixPattern matches common business entity suffixes so "Acme Corp." and
// "Acme" canonicalize to the same name.
var suffixPattern = regexp.MustCompile(`(?i),?\s*(inc\.?|llc\.?|ltd\.?|co\.?|corp\.?|corporation|company|gmbh|s\.?a\.?|plc|llp|lp|pllc|pc|p\.?c\.?)$`)

// punctPattern strips punctuation left over after suffix removal.
var punctPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

var foldCaser = cases.Fold()

// ValidationError reports a malformed research input. It is returned before
// any external call is made.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("model: invalid input: %s: %s", e.Field, e.Reason)
}

// ResearchInput is the caller-supplied request for a single research run.
type ResearchInput struct {
	CompanyName string   `json:"company_name"`
	Domain      string   `json:"domain"`
	OwnerNames  []string `json:"owner_names,omitempty"`
}

// Identity is the canonical form of a research subject. CanonicalName is
// derived exactly once, at run entry, and used for every relevance check in
// the run.
type Identity struct {
	RawName       string
	CanonicalName string
	Domain        string
	Owners        []string
}

// NewIdentity validates the raw input and derives the canonical identity.
func NewIdentity(in ResearchInput) (Identity, error) {
	name := strings.TrimSpace(in.CompanyName)
	if name == "" {
		return Identity{}, &ValidationError{Field: "company_name", Reason: "must not be empty"}
	}

	domain := strings.ToLower(strings.TrimSpace(in.Domain))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimPrefix(domain, "www.")
	domain = strings.TrimSuffix(domain, "/")
	if !strings.Contains(domain, ".") {
		return Identity{}, &ValidationError{Field: "domain", Reason: "must contain a dot"}
	}

	owners := make([]string, 0, len(in.OwnerNames))
	for i, o := range in.OwnerNames {
		o = strings.TrimSpace(o)
		if o == "" {
			return Identity{}, &ValidationError{
				Field:  fmt.Sprintf("owner_names[%d]", i),
				Reason: "must not be empty",
			}
		}
		owners = append(owners, o)
	}

	return Identity{
		RawName:       name,
		CanonicalName: CanonicalizeName(name),
		Domain:        domain,
		Owners:        owners,
	}, nil
}

// CanonicalizeName lowercases a company name, strips legal suffixes and
// punctuation, and collapses whitespace. The function is idempotent:
// CanonicalizeName(CanonicalizeName(s)) == CanonicalizeName(s).
func CanonicalizeName(name string) string {
	s := norm.NFKC.String(strings.TrimSpace(name))
	s = foldCaser.String(s)
	s = strings.TrimSpace(suffixPattern.ReplaceAllString(s, ""))
	s = punctPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Relevant reports whether text mentions the subject, by canonical name or
// by domain, case-insensitively. This is the single relevance gate used
// both when filtering search results and when inserting report bullets.
func (id Identity) Relevant(text string) bool {
	if text == "" {
		return false
	}
	lower := foldCaser.String(text)
	if id.CanonicalName != "" && strings.Contains(lower, id.CanonicalName) {
		return true
	}
	return id.Domain != "" && strings.Contains(lower, id.Domain)
}
