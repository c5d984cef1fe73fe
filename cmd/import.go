package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/data-qa/internal/db"
	"github.com/sells-group/data-qa/internal/model"
	"github.com/sells-group/data-qa/internal/store"
)

var importSnapshotPath string

// snapshot is the JSON document the catalog exports for scoring:
// datasets with their resources, plus the archiver's current facts.
type snapshot struct {
	Datasets  []model.Dataset  `json:"datasets"`
	Archivals []model.Archival `json:"archivals"`
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a catalog snapshot of datasets, resources, and archival facts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(importSnapshotPath)
		if err != nil {
			return eris.Wrapf(err, "read snapshot %s", importSnapshotPath)
		}
		var snap snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return eris.Wrapf(err, "parse snapshot %s", importSnapshotPath)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		resources := 0
		for i := range snap.Datasets {
			if err := st.UpsertDataset(ctx, &snap.Datasets[i]); err != nil {
				return err
			}
			resources += len(snap.Datasets[i].Resources)
		}

		if err := importArchivals(cmd, st, snap.Archivals); err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.Int("datasets", len(snap.Datasets)),
			zap.Int("resources", resources),
			zap.Int("archivals", len(snap.Archivals)),
			zap.String("snapshot", importSnapshotPath),
		)
		return nil
	},
}

func importArchivals(cmd *cobra.Command, st store.Store, archivals []model.Archival) error {
	ctx := cmd.Context()
	if len(archivals) == 0 {
		return nil
	}

	// Postgres snapshots can be large, so go through COPY there.
	if pg, ok := st.(*store.PostgresStore); ok {
		rows := make([][]any, 0, len(archivals))
		for _, a := range archivals {
			rows = append(rows, []any{
				a.ResourceID, a.IsBroken, a.CacheFilepath, a.CacheURL, string(a.Status),
				a.Reason, a.Updated, a.LastSuccess, a.FirstFailure, a.FailureCount,
			})
		}
		_, err := db.BulkUpsert(ctx, pg.Pool(), db.UpsertConfig{
			Table: "archivals",
			Columns: []string{"resource_id", "is_broken", "cache_filepath", "cache_url",
				"status", "reason", "updated", "last_success", "first_failure", "failure_count"},
			ConflictKeys: []string{"resource_id"},
		}, rows)
		return err
	}

	for i := range archivals {
		if err := st.UpsertArchival(ctx, &archivals[i]); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	importCmd.Flags().StringVar(&importSnapshotPath, "snapshot", "", "path to snapshot JSON (required)")
	_ = importCmd.MarkFlagRequired("snapshot")
	rootCmd.AddCommand(importCmd)
}
