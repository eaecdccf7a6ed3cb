package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/derivscope/derivscope/internal/history"
)

func newStatsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "stats <config_hash>",
		Short: "Print the aggregate stats for one parameter fingerprint",
		Long:  "Prints count, average confidence, and strength/direction breakdown for every signal emitted under the given config hash. The primitive for parameter-sweep evaluation.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfigs()
			if err != nil {
				return err
			}

			hist, err := history.Open(cfg.History.DSN, cfg.History.JSONDir, cfg.QueryTimeout())
			if err != nil {
				return err
			}
			defer hist.Close()

			hash := args[0]
			stats, err := hist.Stats(cmd.Context(), hash)
			if err != nil {
				return err
			}
			fmt.Printf("config %s\n", hash)
			fmt.Printf("  signals:         %d\n", stats.Count)
			fmt.Printf("  avg confidence:  %.4f\n", stats.AvgConfidence)
			fmt.Printf("  strong:          %d\n", stats.StrongCount)
			fmt.Printf("  bullish/bearish: %d/%d\n", stats.BullishCount, stats.BearishCount)

			if limit > 0 {
				recs, err := hist.ByConfig(cmd.Context(), hash, limit)
				if err != nil {
					return err
				}
				for _, r := range recs {
					fmt.Printf("  %s  %-4s %-7s %-8s conf %.3f\n",
						r.CreatedAt.UTC().Format("2006-01-02 15:04"),
						r.Asset, r.Direction, r.Strength, r.Confidence)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "recent", 0, "Also list the N most recent records")
	return cmd
}
