package main

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/derivscope/derivscope/internal/httpapi"
	"github.com/derivscope/derivscope/internal/metrics"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the monitoring HTTP server (/health, /metrics)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfigs()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Serve.Addr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			metrics.New(reg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return httpapi.New(addr, reg, log.Logger).ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to serve.addr from config)")
	return cmd
}
