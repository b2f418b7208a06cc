package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cx-engine/internal/engine"
	anthropicpkg "github.com/sells-group/cx-engine/pkg/anthropic"
)

var (
	analyzeText    string
	analyzeContext string
	analyzeSave    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a single piece of customer feedback",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic API key is required (CX_ANTHROPIC_KEY)")
		}

		var customerContext map[string]any
		if analyzeContext != "" {
			if err := json.Unmarshal([]byte(analyzeContext), &customerContext); err != nil {
				return eris.Wrap(err, "parse customer context")
			}
		}

		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		eng, err := engine.New(client, cfg)
		if err != nil {
			return eris.Wrap(err, "init engine")
		}

		outcome := eng.AnalyzeFeedback(ctx, analyzeText, customerContext)

		zap.L().Info("analysis complete",
			zap.String("analysis_id", outcome.Intelligence.AnalysisID),
			zap.String("priority", string(outcome.Intelligence.BusinessImpact.ResolutionPriority)),
			zap.Bool("action_required", outcome.Intelligence.ActionRequired),
			zap.Bool("degraded", outcome.Degraded),
		)

		if analyzeSave {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.SaveAnalysis(ctx, outcome); err != nil {
				return eris.Wrap(err, "save analysis")
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeText, "text", "", "feedback text to analyze (required)")
	analyzeCmd.Flags().StringVar(&analyzeContext, "context", "", "customer context as a JSON object")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "persist the analysis to the store")
	_ = analyzeCmd.MarkFlagRequired("text")
	rootCmd.AddCommand(analyzeCmd)
}
