package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/civicworks/projectwatch/internal/model"
	"github.com/civicworks/projectwatch/internal/scorer"
	"github.com/civicworks/projectwatch/internal/store"
)

var (
	statsLimit int
	statsClass string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize stored project analyses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		analyses, err := st.ListAnalyses(ctx, store.AnalysisFilter{
			Classification: model.Classification(statsClass),
			Limit:          statsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list analyses")
		}

		if len(analyses) == 0 {
			fmt.Fprintln(os.Stderr, "No analyses found.")
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(scorer.Statistics(analyses))
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsLimit, "limit", 100, "maximum analyses to aggregate")
	statsCmd.Flags().StringVar(&statsClass, "classification", "", "filter by classification")
	rootCmd.AddCommand(statsCmd)
}
