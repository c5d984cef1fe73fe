package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/data-qa/internal/model"
	"github.com/sells-group/data-qa/internal/store"
)

var (
	statusScore  int
	statusFormat string
	statusLimit  int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored QA results",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		filter := store.QAFilter{Format: statusFormat, Limit: statusLimit}
		if cmd.Flags().Changed("score") {
			filter.Score = &statusScore
		}

		records, err := st.ListQA(ctx, filter)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("no QA records found")
			return nil
		}

		for _, record := range records {
			fmt.Printf("%s  score=%d  format=%-6s  %s\n",
				record.ResourceID, record.OpennessScore, record.Format,
				model.ScoreDescriptions[record.OpennessScore])
		}
		fmt.Printf("%d records\n", len(records))
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusScore, "score", 0, "filter by exact openness score")
	statusCmd.Flags().StringVar(&statusFormat, "format", "", "filter by canonical format")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 100, "maximum records to list")
	rootCmd.AddCommand(statusCmd)
}
