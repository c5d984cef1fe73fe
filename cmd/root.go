package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/data-qa/internal/config"
	"github.com/sells-group/data-qa/internal/fetcher"
	"github.com/sells-group/data-qa/internal/qa"
	"github.com/sells-group/data-qa/internal/registry"
	"github.com/sells-group/data-qa/internal/sniff"
	"github.com/sells-group/data-qa/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "data-qa",
	Short: "Openness scoring for catalog data resources",
	Long: "Sniffs the concrete file format of published data resources and rates each " +
		"resource on the five stars of openness, combining content inspection, " +
		"link health, and licensing facts.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore builds the configured store backend.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// buildRunner assembles the scoring pipeline from config.
func buildRunner(st store.Store) (*qa.Runner, error) {
	formats, err := registry.LoadFormats(cfg.Registry.FormatsPath)
	if err != nil {
		return nil, err
	}
	scores, err := registry.LoadScores(cfg.Registry.ScoresPath)
	if err != nil {
		return nil, err
	}

	var signature sniff.SignatureClassifier
	if cfg.Sniff.FileToolPath != "" {
		signature = sniff.ClassifierChain{
			sniff.ShapefileProbe{},
			&sniff.FileTool{Path: cfg.Sniff.FileToolPath, Formats: formats},
		}
	} else {
		signature = sniff.ClassifierChain{sniff.ShapefileProbe{}}
	}

	scorer := &qa.Scorer{
		Formats: formats,
		Scores:  scores,
		Sniffer: sniff.NewSniffer(formats, scores, signature),
		Fetcher: fetcher.NewClient(fetcher.HTTPOptions{
			UserAgent:        cfg.Fetcher.UserAgent,
			Timeout:          time.Duration(cfg.Fetcher.TimeoutSecs) * time.Second,
			MaxContentLength: cfg.Fetcher.MaxContentLength,
		}),
		Store: st,
	}

	if cfg.Policy.Path != "" {
		policy, err := qa.LoadRulePolicy(cfg.Policy.Path)
		if err != nil {
			return nil, err
		}
		scorer.Policy = policy
	}

	return &qa.Runner{
		Scorer:      scorer,
		Archivals:   st,
		Store:       st,
		Concurrency: cfg.Batch.Concurrency,
	}, nil
}
