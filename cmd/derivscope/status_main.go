package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/derivscope/derivscope/internal/gate"
	"github.com/derivscope/derivscope/internal/history"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the latest dedup entries and history counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, acfg, err := loadConfigs()
			if err != nil {
				return err
			}

			g := gate.New(cfg.Dedup.Path, log.Logger, nil, gate.WithWindow(cfg.DedupWindow()))
			entries, err := g.Entries()
			if err != nil {
				return err
			}

			fmt.Printf("dedup map (%s): %d entries, window %s\n",
				cfg.Dedup.Path, len(entries), cfg.DedupWindow())
			keys := make([]string, 0, len(entries))
			for k := range entries {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool {
				return entries[keys[i]].After(entries[keys[j]])
			})
			for _, k := range keys {
				fmt.Printf("  %s  last emitted %s\n", k, entries[k].UTC().Format(time.RFC3339))
			}

			if cfg.History.DSN == "" {
				fmt.Println("history: no DSN configured")
				fmt.Printf("active config hash: %s\n", acfg.Hash())
				return nil
			}
			hist, err := history.Open(cfg.History.DSN, cfg.History.JSONDir, cfg.QueryTimeout())
			if err != nil {
				return err
			}
			defer hist.Close()

			total, err := hist.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("history: %d records\n", total)
			fmt.Printf("active config hash: %s\n", acfg.Hash())
			return nil
		},
	}
}
