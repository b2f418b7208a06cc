package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cx-engine/internal/engine"
	"github.com/sells-group/cx-engine/internal/processor"
	anthropicpkg "github.com/sells-group/cx-engine/pkg/anthropic"
)

var (
	batchFile     string
	batchEncoding string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze a CSV file of customer feedback",
	Long:  "Reads feedback rows from a CSV file (columns: id, text, plus optional context columns), analyzes each through the engine, and persists the results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic API key is required (CX_ANTHROPIC_KEY)")
		}

		encoding := batchEncoding
		if encoding == "" {
			encoding = cfg.Batch.Encoding
		}

		items, err := processor.ReadFeedbackCSV(batchFile, encoding)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			zap.L().Warn("no feedback rows found", zap.String("file", batchFile))
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		eng, err := engine.New(client, cfg)
		if err != nil {
			return eris.Wrap(err, "init engine")
		}

		proc := processor.New(eng, st, cfg.Batch)
		summary := proc.ProcessBatch(ctx, items)

		zap.L().Info("batch complete",
			zap.Int("total", summary.Total),
			zap.Int("analyzed", summary.Analyzed),
			zap.Int("degraded", summary.Degraded),
			zap.Int("action_required", summary.ActionRequired),
			zap.Int("store_failures", summary.StoreFailures),
			zap.Duration("duration", summary.Duration),
		)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "path to feedback CSV file (required)")
	batchCmd.Flags().StringVar(&batchEncoding, "encoding", "", "file encoding: utf-8 or windows-1256 (default from config)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}
