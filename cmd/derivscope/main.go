package main

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/derivscope/derivscope/internal/config"
)

const (
	appName = "derivscope"
	version = "v1.2.0"
)

// Exit codes: 0 success, 1 configuration error, 2 store unreachable.
const (
	exitOK          = 0
	exitConfigError = 1
	exitStoreError  = 2
)

var (
	flagConfig   string
	flagAnalyzer string
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	// Optional .env for tokens and DSNs; absence is fine.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "Crypto-derivatives signal generation core",
		Long:          "derivscope integrates per-indicator snapshots, scores them against a parameterized rule set, and emits deduplicated trade-direction signals with a replayable history.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "config/derivscope.yaml", "App config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&flagAnalyzer, "analyzer-config", "config/analyzer.json", "Analyzer parameter file (JSON)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg(appName + " failed")
		if errors.Is(err, config.ErrInvalidConfig) {
			os.Exit(exitConfigError)
		}
		os.Exit(exitStoreError)
	}
	os.Exit(exitOK)
}

// loadConfigs reads both config layers; missing files fall back to defaults
// only when the flag still points at the shipped default path.
func loadConfigs() (*config.Config, *config.AnalyzerConfig, error) {
	appPath := flagConfig
	if _, err := os.Stat(appPath); os.IsNotExist(err) && appPath == "config/derivscope.yaml" {
		appPath = ""
	}
	cfg, err := config.Load(appPath)
	if err != nil {
		return nil, nil, err
	}

	analyzerPath := flagAnalyzer
	if p := os.Getenv("DERIVSCOPE_ANALYZER_CONFIG"); p != "" {
		analyzerPath = p
	}
	if _, err := os.Stat(analyzerPath); os.IsNotExist(err) && analyzerPath == "config/analyzer.json" {
		analyzerPath = ""
	}
	acfg, err := config.LoadAnalyzerConfig(analyzerPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, acfg, nil
}
