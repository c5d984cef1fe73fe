package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/data-qa/internal/registry"
	"github.com/sells-group/data-qa/internal/sniff"
)

var sniffCmd = &cobra.Command{
	Use:   "sniff <file>...",
	Short: "Detect the concrete format of local data files",
	Long: `Runs the layered format sniffer over local files and prints the
detected canonical format, or "unknown" when no recognizer matches.

Examples:
  data-qa sniff downloads/stats.csv
  data-qa sniff /var/cache/archive/*.zip`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formats, err := registry.LoadFormats(cfg.Registry.FormatsPath)
		if err != nil {
			return err
		}
		scores, err := registry.LoadScores(cfg.Registry.ScoresPath)
		if err != nil {
			return err
		}

		signature := sniff.ClassifierChain{
			sniff.ShapefileProbe{},
			&sniff.FileTool{Path: cfg.Sniff.FileToolPath, Formats: formats},
		}
		sniffer := sniff.NewSniffer(formats, scores, signature)

		for _, path := range args {
			result, err := sniffer.Sniff(path)
			if err != nil {
				return err
			}
			switch {
			case result == nil:
				fmt.Printf("%s: unknown\n", path)
			case result.Container != "":
				fmt.Printf("%s: %s (in %s)\n", path, result.Format, result.Container)
			default:
				fmt.Printf("%s: %s\n", path, result.Format)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sniffCmd)
}
