package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/diligence-cli/internal/model"
	"github.com/sells-group/diligence-cli/pkg/anthropic"
)

func TestParseFindingsPlainArray(t *testing.T) {
	raw := `[{"statement": "Acme was fined $2M by the FTC", "quote": "fined $2 million", "category": "Legal", "severity": "HIGH"}]`

	findings, err := parseFindings(raw, "https://example.com/a", 6)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, model.SectionLegal, findings[0].Category)
	assert.Equal(t, model.SeverityHigh, findings[0].Severity)
	assert.Equal(t, "https://example.com/a", findings[0].SourceURL)
	assert.Equal(t, model.OriginLLM, findings[0].Origin)
}

func TestParseFindingsCodeFence(t *testing.T) {
	raw := "```json\n[{\"statement\": \"Acme breach exposed customer data\", \"category\": \"Cyber\", \"severity\": \"CRITICAL\"}]\n```"

	findings, err := parseFindings(raw, "https://example.com/a", 6)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, model.SectionCyber, findings[0].Category)
}

func TestParseFindingsSingleObject(t *testing.T) {
	raw := `{"statement": "Acme CEO resigned", "category": "Leadership", "severity": "MEDIUM"}`

	findings, err := parseFindings(raw, "https://example.com/a", 6)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, model.SectionLeadership, findings[0].Category)
}

func TestParseFindingsProseWrappedArray(t *testing.T) {
	raw := `Here are the findings: [{"statement": "Acme sued by supplier", "category": "Legal", "severity": "MEDIUM"}] Let me know if you need more.`

	findings, err := parseFindings(raw, "https://example.com/a", 6)
	require.NoError(t, err)
	require.Len(t, findings, 1)
}

func TestParseFindingsNoFindings(t *testing.T) {
	for _, raw := range []string{"[]", "", "No findings on this page.", "```json\n[]\n```"} {
		findings, err := parseFindings(raw, "https://example.com/a", 6)
		assert.NoError(t, err, "input %q", raw)
		assert.Empty(t, findings, "input %q", raw)
	}
}

func TestParseFindingsUnparseable(t *testing.T) {
	_, err := parseFindings("I cannot help with that.", "https://example.com/a", 6)
	assert.Error(t, err)
}

func TestParseFindingsCoercesUnknownValues(t *testing.T) {
	raw := `[{"statement": "Acme thing happened", "category": "Gossip", "severity": "EXTREME"}]`

	findings, err := parseFindings(raw, "https://example.com/a", 6)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, model.SectionMisc, findings[0].Category)
	assert.Equal(t, model.SeverityInfo, findings[0].Severity)
}

func TestParseFindingsCapsPerPage(t *testing.T) {
	raw := `[
		{"statement": "one", "category": "Misc", "severity": "LOW"},
		{"statement": "two", "category": "Misc", "severity": "LOW"},
		{"statement": "three", "category": "Misc", "severity": "LOW"}
	]`

	findings, err := parseFindings(raw, "https://example.com/a", 2)
	require.NoError(t, err)
	assert.Len(t, findings, 2)
}

func TestRunExtractSnippetFallback(t *testing.T) {
	cfg := testConfig()
	llm := &stubLLM{}
	p := New(cfg, &stubSearch{}, &stubScrape{}, nil, llm, nil)
	st := newTestState(testIdentity(t))

	tgt := target{
		hit: model.Hit{
			URL:     "https://blocked.example.com/a",
			Title:   "Acme lawsuit coverage",
			Snippet: "Acme Corp is facing a lawsuit over alleged billing fraud in three states.",
		},
		citation: model.Citation{Marker: 1, URL: "https://blocked.example.com/a"},
	}
	outcomes := map[int]model.ScrapeOutcome{1: {Status: model.ScrapeUnsupported}}

	findings := p.runExtract(context.Background(), st, []target{tgt}, outcomes)

	require.Len(t, findings, 1)
	assert.Equal(t, model.OriginSnippet, findings[0].Origin)
	assert.Equal(t, model.SectionMisc, findings[0].Category)
	assert.Equal(t, model.SeverityMedium, findings[0].Severity, "risk vocabulary upgrades the heuristic severity")
	assert.Zero(t, llm.callCount(), "no model call for snippet fallbacks")
}

func TestRunExtractShortSnippetDropped(t *testing.T) {
	cfg := testConfig()
	p := New(cfg, &stubSearch{}, &stubScrape{}, nil, &stubLLM{}, nil)
	st := newTestState(testIdentity(t))

	tgt := target{
		hit:      model.Hit{URL: "https://x.example.com/a", Snippet: "Acme."},
		citation: model.Citation{Marker: 1},
	}
	outcomes := map[int]model.ScrapeOutcome{1: {Status: model.ScrapeEmpty}}

	findings := p.runExtract(context.Background(), st, []target{tgt}, outcomes)
	assert.Empty(t, findings)
}

func TestRunExtractAbandonedTargetYieldsNothing(t *testing.T) {
	cfg := testConfig()
	llm := &stubLLM{}
	p := New(cfg, &stubSearch{}, &stubScrape{}, nil, llm, nil)
	st := newTestState(testIdentity(t))

	// No recorded outcome: the target was abandoned when the scrape budget
	// ran out. It keeps its citation but contributes no findings, not even
	// the snippet fallback.
	tgt := target{
		hit: model.Hit{
			URL:     "https://late.example.com/a",
			Title:   "Acme lawsuit coverage",
			Snippet: "Acme Corp is facing a lawsuit over alleged billing fraud in three states.",
		},
		citation: model.Citation{Marker: 1, URL: "https://late.example.com/a"},
	}

	findings := p.runExtract(context.Background(), st, []target{tgt}, map[int]model.ScrapeOutcome{})

	assert.Empty(t, findings)
	assert.Zero(t, llm.callCount())
}

func TestRunExtractPage(t *testing.T) {
	cfg := testConfig()
	llm := &stubLLM{respond: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return textResponse(`[{"statement": "Acme settled a lawsuit for $5M", "quote": "settled for $5 million", "category": "Legal", "severity": "HIGH"}]`), nil
	}}
	p := New(cfg, &stubSearch{}, &stubScrape{}, nil, llm, nil)
	st := newTestState(testIdentity(t))

	tgt := mkTarget("https://news.example.com/acme", 1)
	outcomes := map[int]model.ScrapeOutcome{1: {Status: model.ScrapeSuccess, Text: pageText(600)}}

	findings := p.runExtract(context.Background(), st, []target{tgt}, outcomes)

	require.Len(t, findings, 1)
	assert.Equal(t, "https://news.example.com/acme", findings[0].SourceURL)
	assert.Equal(t, 1, st.stats.ExtractionCalls)
	assert.Equal(t, 1, st.stats.PagesAnalyzed)
	assert.Equal(t, 100, st.stats.InputTokens)
	assert.Equal(t, 50, st.stats.OutputTokens)
}

func TestRunExtractModelFailureDegrades(t *testing.T) {
	cfg := testConfig()
	llm := &stubLLM{respond: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return nil, eris.New("anthropic: overloaded")
	}}
	p := New(cfg, &stubSearch{}, &stubScrape{}, nil, llm, nil)
	st := newTestState(testIdentity(t))

	tgt := mkTarget("https://news.example.com/acme", 1)
	outcomes := map[int]model.ScrapeOutcome{1: {Status: model.ScrapeSuccess, Text: pageText(600)}}

	findings := p.runExtract(context.Background(), st, []target{tgt}, outcomes)
	assert.Empty(t, findings)
	assert.Equal(t, 1, st.stats.ExtractionCalls, "the failed call is still counted")
}

func TestRunExtractFilePrediction(t *testing.T) {
	cfg := testConfig()
	llm := &stubLLM{respond: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return textResponse("Likely a court filing naming Acme as defendant."), nil
	}}
	p := New(cfg, &stubSearch{}, &stubScrape{}, nil, llm, nil)
	st := newTestState(testIdentity(t))

	tgt := mkTarget("https://docs.example.com/acme-filing.pdf", 1)

	findings := p.runExtract(context.Background(), st, []target{tgt}, map[int]model.ScrapeOutcome{})

	assert.Empty(t, findings)
	require.Len(t, st.files, 1)
	assert.Equal(t, "Likely a court filing naming Acme as defendant.", st.files[0].PredictedInterest)
	assert.Equal(t, 1, st.files[0].CitationMarker)
	assert.Equal(t, 1, st.stats.FilePredictionCalls)
}

func TestRunExtractFilePredictionFallback(t *testing.T) {
	cfg := testConfig()
	llm := &stubLLM{respond: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return nil, eris.New("anthropic: timeout")
	}}
	p := New(cfg, &stubSearch{}, &stubScrape{}, nil, llm, nil)
	st := newTestState(testIdentity(t))

	tgt := mkTarget("https://docs.example.com/acme-filing.pdf", 1)
	p.runExtract(context.Background(), st, []target{tgt}, map[int]model.ScrapeOutcome{})

	require.Len(t, st.files, 1)
	assert.NotEmpty(t, st.files[0].PredictedInterest, "files are surfaced even when prediction fails")
}
