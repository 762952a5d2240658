package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/diligence-cli/internal/model"
)

const sectionSummarySystemPrompt = `You are a due-diligence analyst. Summarize the findings below into a short neutral paragraph for the named report section. Stick to what the findings say; do not speculate or editorialize. Respond with the paragraph only.`

const execSummarySystemPrompt = `You are a due-diligence analyst writing the executive summary of a research report. Using the section summaries and the highest-severity findings below, write a concise overview a reviewer can read in under a minute. Lead with the most material risks. Respond with the summary only.`

const emptySectionSummary = "No findings were collected for this section."

// runSummaries fills each non-empty section's summary with one model call
// and then composes the executive summary. Empty sections get a fixed
// summary without a call; a run with no findings at all produces a fixed
// executive summary and makes no calls.
func (p *Pipeline) runSummaries(ctx context.Context, st *runState, sections []model.Section, agg *aggregator) string {
	log := zap.L().With(zap.String("run_id", st.id))

	if agg.Empty() {
		for i := range sections {
			sections[i].Summary = emptySectionSummary
		}
		return fmt.Sprintf(
			"No substantive findings about %s were collected within the run's budget. Consider re-running with a larger budget or refined inputs.",
			st.identity.RawName,
		)
	}

	for i := range sections {
		if len(sections[i].Bullets) == 0 {
			sections[i].Summary = emptySectionSummary
			continue
		}
		sections[i].Summary = p.summarizeSection(ctx, st, sections[i])
	}

	user := execSummaryInput(st.identity, sections, agg.TopFindings())
	st.stats.SummarizationCalls++
	summary, err := p.complete(ctx, st, execSummarySystemPrompt, user, int64(p.cfg.Pipeline.ExecSummaryMaxTokens))
	if err != nil || strings.TrimSpace(summary) == "" {
		if err != nil {
			log.Warn("summarize: executive summary failed", zap.Error(err))
		}
		return fallbackExecSummary(st.identity, sections)
	}
	return strings.TrimSpace(summary)
}

func (p *Pipeline) summarizeSection(ctx context.Context, st *runState, s model.Section) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\nSection: %s\nFindings:\n", st.identity.CanonicalName, s.Name)
	for _, bullet := range s.Bullets {
		fmt.Fprintf(&b, "- [%s] %s\n", bullet.Severity, truncate(bullet.Text, 400))
	}

	st.stats.SummarizationCalls++
	summary, err := p.complete(ctx, st, sectionSummarySystemPrompt, b.String(), int64(p.cfg.Pipeline.SectionSummaryMaxTokens))
	if err != nil || strings.TrimSpace(summary) == "" {
		if err != nil {
			zap.L().Warn("summarize: section summary failed",
				zap.String("run_id", st.id),
				zap.String("section", string(s.Name)),
				zap.Error(err),
			)
		}
		return fmt.Sprintf("%d finding(s) collected; see bullets below.", len(s.Bullets))
	}
	return strings.TrimSpace(summary)
}

func execSummaryInput(id model.Identity, sections []model.Section, top []model.Bullet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s (%s)\n\nSection summaries:\n", id.RawName, id.Domain)
	for _, s := range sections {
		if len(s.Bullets) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", s.Name, s.Summary)
	}
	if len(top) > 0 {
		b.WriteString("\nHighest-severity findings:\n")
		for _, bullet := range top {
			fmt.Fprintf(&b, "- [%s/%s] %s\n", bullet.Severity, bullet.Category, truncate(bullet.Text, 400))
		}
	}
	return b.String()
}

// fallbackExecSummary is the deterministic overview used when the model
// call fails: section names with their finding counts.
func fallbackExecSummary(id model.Identity, sections []model.Section) string {
	var parts []string
	for _, s := range sections {
		if len(s.Bullets) > 0 {
			parts = append(parts, fmt.Sprintf("%s (%d)", s.Name, len(s.Bullets)))
		}
	}
	return fmt.Sprintf("Research on %s collected findings in: %s. See section details below.",
		id.RawName, strings.Join(parts, ", "))
}
