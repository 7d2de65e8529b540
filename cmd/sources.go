package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/civicworks/projectwatch/internal/model"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the configured data sources",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat, err := initCatalog()
		if err != nil {
			return err
		}
		formatSourcesList(os.Stdout, cat.All())
		return nil
	},
}

func formatSourcesList(w io.Writer, sources []model.SourceDefinition) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tTRUST\tSTRATEGY\tFREQUENCY\tSTATUS")
	for _, s := range sources {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			s.ID, s.Name, s.Category, s.TrustScore, s.Strategy, s.Frequency, s.Status)
	}
	tw.Flush()
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
