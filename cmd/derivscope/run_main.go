package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/derivscope/derivscope/internal/config"
	"github.com/derivscope/derivscope/internal/domain"
	"github.com/derivscope/derivscope/internal/gate"
	"github.com/derivscope/derivscope/internal/history"
	"github.com/derivscope/derivscope/internal/integrator"
	"github.com/derivscope/derivscope/internal/metrics"
	"github.com/derivscope/derivscope/internal/pipeline"
	"github.com/derivscope/derivscope/internal/sink"
	"github.com/derivscope/derivscope/internal/store"
)

func newRunCmd() *cobra.Command {
	var (
		dryRun     bool
		onlyAssets []string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one analysis tick over all configured assets",
		Long:  "Integrates the latest indicator snapshots, scores each asset, and dispatches accepted signals. Invoked per tick by an external scheduler.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTick(cmd.Context(), dryRun, onlyAssets)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log signals instead of dispatching and persisting")
	cmd.Flags().StringSliceVar(&onlyAssets, "assets", nil, "Restrict the tick to these assets")
	return cmd
}

func runTick(parent context.Context, dryRun bool, onlyAssets []string) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, acfg, err := loadConfigs()
	if err != nil {
		return err
	}

	assets, err := cfg.AssetUniverse()
	if err != nil {
		return err
	}
	if len(onlyAssets) > 0 {
		assets = assets[:0]
		for _, s := range onlyAssets {
			a, err := domain.ParseAsset(s)
			if err != nil {
				return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
			}
			assets = append(assets, a)
		}
	}

	snapStore := buildSnapshotStore(cfg)
	in := integrator.New(snapStore, log.Logger,
		integrator.WithLookupTimeout(cfg.LookupTimeout()))

	var hist history.Store
	if dryRun {
		hist = history.NewMemoryStore("")
	} else {
		hist, err = history.Open(cfg.History.DSN, cfg.History.JSONDir, cfg.QueryTimeout())
		if err != nil {
			return err
		}
	}
	defer hist.Close()

	g := gate.New(cfg.Dedup.Path, log.Logger, buildSinks(cfg, dryRun),
		gate.WithWindow(cfg.DedupWindow()),
		gate.WithSinkTimeout(cfg.SinkTimeout()))

	runner := &pipeline.Runner{
		Assets:     assets,
		Integrator: in,
		Analyzer:   acfg,
		Gate:       g,
		History:    hist,
		Metrics:    metrics.New(prometheus.NewRegistry()),
		Log:        log.Logger,
	}

	report, err := runner.RunTick(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("tick %s: %d assets, %d emitted, %d suppressed (config %s)\n",
		report.TickID, report.Assets, report.Emitted, report.Suppressed, acfg.Hash())
	return nil
}

// buildSnapshotStore layers the optional redis hot cache and the per-kind
// circuit breakers over the collector file tree.
func buildSnapshotStore(cfg *config.Config) integrator.Store {
	var src store.DocSource = store.NewFileStore(cfg.DataDir)
	src = store.NewBreakerSource(src)
	if cfg.Cache.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Cache.Addr, DB: cfg.Cache.DB})
		src = store.NewCachedSource(src, rdb, cfg.CacheTTL(), log.Logger)
	}
	return store.NewTyped(src)
}

// buildSinks arms the configured notification channels. Dry runs and
// sink-less configs fall back to the logging sink.
func buildSinks(cfg *config.Config, dryRun bool) []sink.Sink {
	if dryRun {
		return []sink.Sink{sink.NewLogSink(log.Logger)}
	}

	var sinks []sink.Sink
	if tg := cfg.Sinks.Telegram; tg.Enabled && tg.BotToken != "" {
		sinks = append(sinks, sink.NewTelegramSink(tg.BotToken, channelMap(tg.ChatIDs)))
	}
	if dc := cfg.Sinks.Discord; dc.Enabled {
		sinks = append(sinks, sink.NewDiscordSink(channelMap(dc.Webhooks)))
	}
	if len(sinks) == 0 {
		sinks = append(sinks, sink.NewLogSink(log.Logger))
	}
	return sinks
}

func channelMap(raw map[string]string) map[sink.Channel]string {
	out := make(map[sink.Channel]string, len(raw))
	for k, v := range raw {
		switch k {
		case "vip":
			out[sink.ChannelVIP] = v
		case "free":
			out[sink.ChannelFree] = v
		case "admin":
			out[sink.ChannelAdmin] = v
		}
	}
	return out
}
