package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cx-engine/internal/model"
	"github.com/sells-group/cx-engine/internal/store"
)

var analysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "Inspect stored analyses",
	Long:  "Commands for listing and viewing stored customer experience analyses.",
}

// -- analyses list --

var analysesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored analyses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		priority, _ := cmd.Flags().GetString("priority")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.AnalysisFilter{
			Priority: model.ResolutionPriority(priority),
			Limit:    limit,
		}
		if cmd.Flags().Changed("degraded") {
			degraded, _ := cmd.Flags().GetBool("degraded")
			filter.Degraded = &degraded
		}

		outcomes, err := st.ListAnalyses(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "analyses list")
		}

		if len(outcomes) == 0 {
			fmt.Fprintln(os.Stderr, "No analyses found.")
			return nil
		}

		formatAnalysesList(os.Stdout, outcomes)
		return nil
	},
}

// -- analyses show --

var analysesShowCmd = &cobra.Command{
	Use:   "show <analysis-id>",
	Short: "Show full details of an analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		outcome, err := st.GetAnalysis(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "analyses show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	},
}

func init() {
	analysesListCmd.Flags().String("priority", "", "filter by resolution priority (P1, P2, P3, P4)")
	analysesListCmd.Flags().Bool("degraded", false, "filter by degraded flag")
	analysesListCmd.Flags().Int("limit", 50, "max number of analyses to display")

	analysesCmd.AddCommand(analysesListCmd)
	analysesCmd.AddCommand(analysesShowCmd)
	rootCmd.AddCommand(analysesCmd)
}

// formatAnalysesList writes a tabular list of analyses to w.
func formatAnalysesList(out io.Writer, outcomes []model.AnalysisOutcome) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tCSAT\tCHURN\tPRIORITY\tAT_RISK\tACTION\tDEGRADED")
	_, _ = fmt.Fprintln(w, "--\t-------\t----\t-----\t--------\t-------\t------\t--------")

	for _, o := range outcomes {
		intel := o.Intelligence
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%.2f\t%t\t%t\n",
			intel.AnalysisID,
			intel.Timestamp.Format("2006-01-02 15:04"),
			intel.SentimentAnalysis.CSATPrediction,
			intel.SentimentAnalysis.ChurnRisk,
			intel.BusinessImpact.ResolutionPriority,
			intel.BusinessImpact.RevenueImpact.ExpectedLoss,
			intel.ActionRequired,
			o.Degraded,
		)
	}
	_ = w.Flush()
}
