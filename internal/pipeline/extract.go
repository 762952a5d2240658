package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/sells-group/diligence-cli/internal/model"
)

const extractionSystemPrompt = `You are a due-diligence analyst reviewing a web page about a company under evaluation. Extract concrete, verifiable findings relevant to assessing the company: legal actions, security incidents, reputation problems, leadership changes, financial events, and corporate structure facts.

Respond with a JSON array only. Each element:
{"statement": "<one-sentence finding>", "quote": "<short verbatim supporting quote>", "category": "<Corporate|Legal|Cyber|Reputation|Leadership|Financials|Misc>", "severity": "<CRITICAL|HIGH|MEDIUM|LOW|INFO>"}

Only include findings about the named company or its owners. If the page contains nothing relevant, respond with [].`

const filePredictionSystemPrompt = `You are a due-diligence analyst. Given a search result pointing at a document file, write one sentence predicting what the document likely contains and why it may matter for a due-diligence review. Respond with the sentence only.`

// rawFinding is the wire shape of one model-extracted finding before
// category and severity coercion.
type rawFinding struct {
	Statement string `json:"statement"`
	Quote     string `json:"quote"`
	Category  string `json:"category"`
	Severity  string `json:"severity"`
}

// runExtract turns scrape outcomes into findings, in target order. File
// targets get an interest prediction instead of extraction. Pages that
// yielded no usable text fall back to a single snippet-derived finding when
// the snippet is substantial. Extraction failures degrade per target.
func (p *Pipeline) runExtract(ctx context.Context, st *runState, targets []target, outcomes map[int]model.ScrapeOutcome) []model.Finding {
	log := zap.L().With(zap.String("run_id", st.id))
	var findings []model.Finding

	for _, t := range targets {
		if time.Now().After(st.deadline) || ctx.Err() != nil {
			log.Info("extract: run budget exhausted, skipping remaining targets")
			break
		}

		if t.isFile {
			st.files = append(st.files, p.predictFileInterest(ctx, st, t))
			continue
		}

		outcome, ok := outcomes[t.citation.Marker]
		if !ok {
			// Abandoned by the scrape budget: the citation stands on its own.
			continue
		}
		if outcome.Status == model.ScrapeSuccess && len(outcome.Text) >= p.cfg.Pipeline.MinPageText {
			findings = append(findings, p.extractFromPage(ctx, st, t, outcome.Text)...)
			continue
		}
		if f, ok := snippetFinding(t, p.cfg.Pipeline.MinSnippetLen); ok {
			findings = append(findings, f)
		}
	}

	return findings
}

// extractFromPage runs one extraction call for a scraped page and parses
// its output leniently.
func (p *Pipeline) extractFromPage(ctx context.Context, st *runState, t target, text string) []model.Finding {
	log := zap.L().With(zap.String("run_id", st.id), zap.String("url", t.hit.URL))

	user := fmt.Sprintf("Company: %s\nDomain: %s\nOwners: %s\nSource URL: %s\n\nPage content:\n%s",
		st.identity.CanonicalName,
		st.identity.Domain,
		strings.Join(st.identity.Owners, ", "),
		t.hit.URL,
		truncate(text, 24000),
	)

	st.stats.ExtractionCalls++
	st.stats.PagesAnalyzed++
	raw, err := p.complete(ctx, st, extractionSystemPrompt, user, 1024)
	if err != nil {
		log.Warn("extract: model call failed", zap.Error(err))
		return nil
	}

	found, err := parseFindings(raw, t.hit.URL, p.cfg.Pipeline.MaxFindingsPerPage)
	if err != nil {
		log.Warn("extract: unparseable model output", zap.Error(err))
		return nil
	}
	return found
}

// predictFileInterest asks the model why a document might matter. On any
// failure the file is still surfaced, with a fixed note.
func (p *Pipeline) predictFileInterest(ctx context.Context, st *runState, t target) model.FileForReview {
	file := model.FileForReview{
		URL:            t.hit.URL,
		Title:          t.hit.Title,
		SERPSnippet:    t.hit.Snippet,
		CitationMarker: t.citation.Marker,
	}

	user := fmt.Sprintf("Company: %s\nDocument URL: %s\nTitle: %s\nSearch snippet: %s",
		st.identity.CanonicalName, t.hit.URL, t.hit.Title, t.hit.Snippet)

	st.stats.FilePredictionCalls++
	prediction, err := p.complete(ctx, st, filePredictionSystemPrompt, user, 200)
	if err != nil || strings.TrimSpace(prediction) == "" {
		if err != nil {
			zap.L().Warn("extract: file prediction failed",
				zap.String("run_id", st.id),
				zap.String("url", t.hit.URL),
				zap.Error(err),
			)
		}
		file.PredictedInterest = "Document surfaced by a targeted search; review manually."
		return file
	}
	file.PredictedInterest = strings.TrimSpace(prediction)
	return file
}

// snippetFinding builds a heuristic finding from a search snippet for a
// target whose page yielded no usable text.
func snippetFinding(t target, minLen int) (model.Finding, bool) {
	snippet := strings.TrimSpace(t.hit.Snippet)
	if len(snippet) < minLen {
		return model.Finding{}, false
	}
	severity := model.SeverityLow
	if ContainsRiskTerm(t.hit.Title + " " + snippet) {
		severity = model.SeverityMedium
	}
	return model.Finding{
		Statement: snippet,
		Category:  model.SectionMisc,
		Severity:  severity,
		SourceURL: t.hit.URL,
		Origin:    model.OriginSnippet,
	}, true
}

// parseFindings parses model extraction output leniently: markdown code
// fences are stripped, a bare object is treated as a one-element array, and
// an explicit no-findings reply yields zero findings without error.
func parseFindings(raw, sourceURL string, maxN int) ([]model.Finding, error) {
	cleaned := stripCodeFence(raw)
	if cleaned == "" || strings.EqualFold(cleaned, "[]") ||
		containsFold(cleaned, "no findings") || containsFold(cleaned, "nothing relevant") {
		return nil, nil
	}

	parsed := gjson.Parse(cleaned)
	if !parsed.IsArray() && !parsed.IsObject() {
		// Some replies bury the array in prose; salvage the first bracketed run.
		if start := strings.Index(cleaned, "["); start >= 0 {
			if end := strings.LastIndex(cleaned, "]"); end > start {
				cleaned = cleaned[start : end+1]
				parsed = gjson.Parse(cleaned)
			}
		}
	}
	if parsed.IsObject() {
		cleaned = "[" + cleaned + "]"
		parsed = gjson.Parse(cleaned)
	}
	if !parsed.IsArray() {
		return nil, fmt.Errorf("output is neither a JSON array nor an object")
	}

	var raws []rawFinding
	if err := json.Unmarshal([]byte(cleaned), &raws); err != nil {
		return nil, err
	}

	findings := make([]model.Finding, 0, len(raws))
	for _, r := range raws {
		statement := strings.TrimSpace(r.Statement)
		if statement == "" {
			continue
		}
		findings = append(findings, model.Finding{
			Statement: statement,
			Quote:     strings.TrimSpace(r.Quote),
			Category:  model.ParseSection(r.Category),
			Severity:  model.ParseSeverity(r.Severity),
			SourceURL: sourceURL,
			Origin:    model.OriginLLM,
		})
		if len(findings) >= maxN {
			break
		}
	}
	return findings, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
