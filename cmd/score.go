package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	scoreResourceID string
	scoreDatasetID  string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Calculate openness scores for resources",
	Long: `Scores resources on the five stars of openness and saves the
results. Scoring strategies are tried in order of trustworthiness:
archiver link health, sniffed content, URL extension, then the
publisher's declared format field.

Examples:
  # Score one resource
  data-qa score --resource 8f2a...

  # Score every resource of a dataset
  data-qa score --dataset road-traffic-counts`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if (scoreResourceID == "") == (scoreDatasetID == "") {
			return eris.New("exactly one of --resource or --dataset is required")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runner, err := buildRunner(st)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if scoreResourceID != "" {
			res, err := st.GetResource(ctx, scoreResourceID)
			if err != nil {
				return err
			}
			if res == nil {
				return eris.Errorf("resource %q not found", scoreResourceID)
			}
			result, err := runner.ScoreResource(ctx, res)
			if err != nil {
				return err
			}
			return enc.Encode(result)
		}

		ds, err := st.GetDataset(ctx, scoreDatasetID)
		if err != nil {
			return err
		}
		if ds == nil {
			return eris.Errorf("dataset %q not found", scoreDatasetID)
		}
		results, err := runner.ScoreDataset(ctx, ds)
		if err != nil {
			return err
		}
		zap.L().Info("scoring complete",
			zap.String("dataset", scoreDatasetID),
			zap.Int("resources", len(results)),
		)
		return enc.Encode(results)
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreResourceID, "resource", "", "resource id to score")
	scoreCmd.Flags().StringVar(&scoreDatasetID, "dataset", "", "dataset id to score")
	rootCmd.AddCommand(scoreCmd)
}
