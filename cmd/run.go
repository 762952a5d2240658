package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/diligence-cli/internal/cache"
	"github.com/sells-group/diligence-cli/internal/model"
	"github.com/sells-group/diligence-cli/internal/pipeline"
	anthropicpkg "github.com/sells-group/diligence-cli/pkg/anthropic"
	"github.com/sells-group/diligence-cli/pkg/firecrawl"
	"github.com/sells-group/diligence-cli/pkg/proxycurl"
	"github.com/sells-group/diligence-cli/pkg/serper"
)

var (
	runCompany string
	runDomain  string
	runOwners  []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run due-diligence research for a single company",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline()
		if err != nil {
			return err
		}
		defer env.Close()

		payload, err := env.Pipeline.Run(ctx, model.ResearchInput{
			CompanyName: runCompany,
			Domain:      runDomain,
			OwnerNames:  runOwners,
		})
		if err != nil {
			var verr *model.ValidationError
			if errors.As(err, &verr) {
				return fmt.Errorf("invalid input: %s: %s", verr.Field, verr.Reason)
			}
			return eris.Wrap(err, "research run")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(payload); err != nil {
			return eris.Wrap(err, "encode payload")
		}
		return nil
	},
}

// pipelineEnv bundles the pipeline with the resources it borrows.
type pipelineEnv struct {
	Pipeline *pipeline.Pipeline
	cache    *cache.Cache
}

func (e *pipelineEnv) Close() {
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			zap.L().Warn("close scrape cache", zap.Error(err))
		}
	}
}

// initPipeline validates credentials and wires the external clients.
func initPipeline() (*pipelineEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	searchClient := serper.NewClient(cfg.Serper.Key, serper.WithBaseURL(cfg.Serper.BaseURL))
	scrapeClient := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
	llmClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	var enrichClient proxycurl.Client
	if cfg.Enrichment.Enabled {
		enrichClient = proxycurl.NewClient(cfg.Proxycurl.Key, proxycurl.WithBaseURL(cfg.Proxycurl.BaseURL))
	}

	var scrapeCache *cache.Cache
	if cfg.Cache.Path != "" {
		c, err := cache.Open(cfg.Cache.Path, time.Duration(cfg.Cache.TTLHours)*time.Hour)
		if err != nil {
			zap.L().Warn("scrape cache unavailable, continuing without it", zap.Error(err))
		} else {
			scrapeCache = c
		}
	}

	return &pipelineEnv{
		Pipeline: pipeline.New(cfg, searchClient, scrapeClient, enrichClient, llmClient, scrapeCache),
		cache:    scrapeCache,
	}, nil
}

func init() {
	runCmd.Flags().StringVar(&runCompany, "company", "", "legal or trading name of the company (required)")
	runCmd.Flags().StringVar(&runDomain, "domain", "", "primary web domain of the company (required)")
	runCmd.Flags().StringSliceVar(&runOwners, "owner", nil, "owner or executive full name (repeatable)")
	_ = runCmd.MarkFlagRequired("company")
	_ = runCmd.MarkFlagRequired("domain")
	rootCmd.AddCommand(runCmd)
}
