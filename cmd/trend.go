package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/civicworks/projectwatch/internal/model"
	"github.com/civicworks/projectwatch/internal/scorer"
)

var trendLimit int

var trendCmd = &cobra.Command{
	Use:   "trend <project-id>",
	Short: "Show the score trend for a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		projectID := args[0]

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		history, err := st.AnalysisHistory(ctx, projectID, trendLimit)
		if err != nil {
			return eris.Wrapf(err, "analysis history %s", projectID)
		}

		scores := make([]int, len(history))
		points := make([]trendPoint, len(history))
		for i, a := range history {
			scores[i] = a.StalledScore
			points[i] = trendPoint{
				AnalyzedAt:     a.AnalyzedAt.Format("2006-01-02T15:04:05Z07:00"),
				Score:          a.StalledScore,
				Classification: a.Classification,
			}
		}

		out := trendReport{
			ProjectID: projectID,
			Trend:     scorer.TrendFromScores(scores),
			History:   points,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

type trendPoint struct {
	AnalyzedAt     string               `json:"analyzed_at"`
	Score          int                  `json:"score"`
	Classification model.Classification `json:"classification"`
}

type trendReport struct {
	ProjectID string       `json:"project_id"`
	Trend     model.Trend  `json:"trend"`
	History   []trendPoint `json:"history"`
}

func init() {
	trendCmd.Flags().IntVar(&trendLimit, "limit", 10, "analyses to include, newest first")
	rootCmd.AddCommand(trendCmd)
}
