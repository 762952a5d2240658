package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/diligence-cli/internal/model"
)

func TestContainsRiskTerm(t *testing.T) {
	assert.True(t, ContainsRiskTerm("Company hit with RANSOMWARE attack"))
	assert.True(t, ContainsRiskTerm("settlement reached in court"))
	assert.False(t, ContainsRiskTerm("company launches new product line"))
	assert.False(t, ContainsRiskTerm(""))
}

func TestAuthoritativeHosts(t *testing.T) {
	assert.True(t, isAuthoritativeHost("sec.gov"))
	assert.True(t, isAuthoritativeHost("courts.state.ny.gov"))
	assert.True(t, isAuthoritativeHost("companieshouse.gov.uk"))
	assert.False(t, isAuthoritativeHost("example.com"))
	assert.False(t, isAuthoritativeHost("secgov.example.com"))
}

func TestNewsHosts(t *testing.T) {
	assert.True(t, isNewsHost("reuters.com"))
	assert.False(t, isNewsHost("reuters.com.evil.example"))
	assert.False(t, isNewsHost("blog.example.com"))
}

func TestMatchesCategoryKeyword(t *testing.T) {
	assert.True(t, matchesCategoryKeyword(model.SectionCyber, "major data breach disclosed"))
	assert.False(t, matchesCategoryKeyword(model.SectionCyber, "quarterly earnings call"))
	assert.False(t, matchesCategoryKeyword(model.SectionMisc, "anything at all"))
}

func TestJaccard(t *testing.T) {
	a := textTokens("acme fined two million dollars")
	b := textTokens("acme fined two million dollars")
	c := textTokens("completely different words here")

	assert.Equal(t, 1.0, jaccard(a, b))
	assert.Equal(t, 0.0, jaccard(a, c))
	assert.Equal(t, 1.0, jaccard(nil, nil), "two empty token sets compare identical")
	assert.Equal(t, 0.0, jaccard(a, nil))
}

func TestTextTokensDropsShortTokens(t *testing.T) {
	tokens := textTokens("An Acme Co is at 42 Main St")
	assert.Contains(t, tokens, "acme")
	assert.Contains(t, tokens, "main")
	assert.NotContains(t, tokens, "an")
	assert.NotContains(t, tokens, "42")
}