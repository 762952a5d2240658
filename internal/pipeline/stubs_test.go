package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/diligence-cli/internal/config"
	"github.com/sells-group/diligence-cli/internal/model"
	"github.com/sells-group/diligence-cli/pkg/anthropic"
	"github.com/sells-group/diligence-cli/pkg/firecrawl"
	"github.com/sells-group/diligence-cli/pkg/proxycurl"
	"github.com/sells-group/diligence-cli/pkg/serper"
)

// stubSearch records queries and answers from a canned response function.
type stubSearch struct {
	mu      sync.Mutex
	queries []string
	respond func(query string) (*serper.SearchResponse, error)
}

func (s *stubSearch) Search(ctx context.Context, query string, pageSize int) (*serper.SearchResponse, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.respond == nil {
		return &serper.SearchResponse{}, nil
	}
	return s.respond(query)
}

func (s *stubSearch) queryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

type stubScrape struct {
	mu      sync.Mutex
	urls    []string
	respond func(url string) (*firecrawl.ScrapeResponse, error)
}

func (s *stubScrape) Scrape(ctx context.Context, req firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error) {
	s.mu.Lock()
	s.urls = append(s.urls, req.URL)
	s.mu.Unlock()
	if s.respond == nil {
		return &firecrawl.ScrapeResponse{Success: true, Data: firecrawl.PageData{Markdown: ""}}, nil
	}
	return s.respond(req.URL)
}

func (s *stubScrape) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}

type stubEnrich struct {
	company func(url string) (*proxycurl.CompanyProfile, error)
	person  func(url string) (*proxycurl.PersonProfile, error)
}

func (s *stubEnrich) EnrichCompany(ctx context.Context, url string) (*proxycurl.CompanyProfile, error) {
	if s.company == nil {
		return &proxycurl.CompanyProfile{}, nil
	}
	return s.company(url)
}

func (s *stubEnrich) EnrichPerson(ctx context.Context, url string) (*proxycurl.PersonProfile, error) {
	if s.person == nil {
		return &proxycurl.PersonProfile{}, nil
	}
	return s.person(url)
}

type stubLLM struct {
	mu      sync.Mutex
	calls   []anthropic.MessageRequest
	respond func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error)
}

func (s *stubLLM) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	if s.respond == nil {
		return textResponse("[]"), nil
	}
	return s.respond(req)
}

func (s *stubLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Serper:    config.SerperConfig{PageSize: 10, QPS: 1000},
		Anthropic: config.AnthropicConfig{Model: "claude-haiku-4-5-20251001"},
		Enrichment: config.EnrichmentConfig{
			Enabled:  false,
			MaxCalls: 3,
		},
		Pipeline: config.PipelineConfig{
			MaxQueries:                 24,
			SearchConcurrency:          2,
			SearchBudgetFraction:       0.35,
			HostRequeryCap:             2,
			SnippetSimilarityThreshold: 0.8,
			MaxScrapeTargets:           12,
			ScrapeConcurrency:          2,
			RunBudgetSecs:              60,
			ScrapeBudgetSecs:           30,
			ScrapeTimeoutSecs:          5,
			ScrapeRetryTimeoutSecs:     5,
			MaxFindingsPerPage:         6,
			MinPageText:                40,
			MinSnippetLen:              20,
			BulletCap:                  8,
			HostCap:                    3,
			SimilarityThreshold:        0.6,
			SectionSummaryMaxTokens:    300,
			ExecSummaryMaxTokens:       500,
		},
		Pricing: config.PricingConfig{
			SearchPerQuery: 0.001,
			ScrapePerPage:  0.002,
			EnrichPerCall:  0.01,
			Anthropic: map[string]config.ModelPricing{
				"claude-haiku-4-5-20251001": {Input: 1.0, Output: 5.0},
			},
		},
	}
}

func testIdentity(t interface{ Fatalf(string, ...any) }) model.Identity {
	id, err := model.NewIdentity(model.ResearchInput{
		CompanyName: "Acme Corp",
		Domain:      "acme.com",
		OwnerNames:  []string{"Jane Doe"},
	})
	if err != nil {
		t.Fatalf("test identity: %v", err)
	}
	return id
}

func newTestState(id model.Identity) *runState {
	now := time.Now()
	return &runState{
		id:             "test-run",
		identity:       id,
		start:          now,
		deadline:       now.Add(time.Minute),
		searchDeadline: now.Add(time.Minute),
		seen:           make(map[string]bool),
		hostQueries:    make(map[string]int),
		blacklist:      make(map[string]bool),
	}
}
