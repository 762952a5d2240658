// Package cost estimates per-service spend for a research run. The ledger
// is observability only; it never gates pipeline behavior.
package cost

import (
	"github.com/sells-group/diligence-cli/internal/config"
	"github.com/sells-group/diligence-cli/internal/model"
)

// Calculator computes dollar estimates from usage counts.
type Calculator struct {
	rates config.PricingConfig
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates config.PricingConfig) *Calculator {
	return &Calculator{rates: rates}
}

// Search returns the cost of n search queries.
func (c *Calculator) Search(n int) float64 {
	return float64(n) * c.rates.SearchPerQuery
}

// Scrape returns the cost of n scrape attempts.
func (c *Calculator) Scrape(n int) float64 {
	return float64(n) * c.rates.ScrapePerPage
}

// Enrich returns the cost of n enrichment calls.
func (c *Calculator) Enrich(n int) float64 {
	return float64(n) * c.rates.EnrichPerCall
}

// LLM returns the token cost for a model. Unknown models cost 0.
func (c *Calculator) LLM(modelID string, inputTokens, outputTokens int) float64 {
	rate, ok := c.rates.Anthropic[modelID]
	if !ok {
		return 0
	}
	return (float64(inputTokens)/1e6)*rate.Input + (float64(outputTokens)/1e6)*rate.Output
}

// Total builds the full per-service cost block from run stats. Total is
// always the sum of the four components.
func (c *Calculator) Total(modelID string, stats model.Stats) model.Cost {
	out := model.Cost{
		Search:     c.Search(stats.QueryCount),
		Scrape:     c.Scrape(stats.ScrapeAttempts),
		Enrichment: c.Enrich(stats.EnrichmentCalls),
		LLM:        c.LLM(modelID, stats.InputTokens, stats.OutputTokens),
	}
	out.Total = out.Search + out.Scrape + out.Enrichment + out.LLM
	return out
}
