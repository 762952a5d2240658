package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSection(t *testing.T) {
	assert.Equal(t, SectionLegal, ParseSection("Legal"))
	assert.Equal(t, SectionLegal, ParseSection("legal"))
	assert.Equal(t, SectionCyber, ParseSection("CYBER"))
	assert.Equal(t, SectionMisc, ParseSection("Gossip"))
	assert.Equal(t, SectionMisc, ParseSection(""))
}

func TestSectionIndexFollowsFixedOrder(t *testing.T) {
	assert.Equal(t, 0, SectionCorporate.Index())
	assert.Equal(t, 1, SectionLegal.Index())
	assert.Equal(t, len(SectionOrder)-1, SectionMisc.Index())
	assert.Equal(t, SectionMisc.Index(), SectionCategory("unknown").Index())
}

func TestParseSeverity(t *testing.T) {
	assert.Equal(t, SeverityCritical, ParseSeverity("critical"))
	assert.Equal(t, SeverityHigh, ParseSeverity(" HIGH "))
	assert.Equal(t, SeverityInfo, ParseSeverity("EXTREME"))
	assert.Equal(t, SeverityInfo, ParseSeverity(""))
}

func TestSeverityRankOrdering(t *testing.T) {
	order := []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, order[i-1].Rank(), order[i].Rank())
	}
	assert.Equal(t, SeverityInfo.Rank(), Severity("bogus").Rank())
}
