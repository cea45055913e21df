package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "venue",
		Short:        "Constant-product liquidity venue",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a scripted scenario against an in-memory venue",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("scenario", "", "scenario JSON path")
	simulateCmd.Flags().String("out", "./data/events.jsonl", "output events JSONL path")
	simulateCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for the event sink")
	simulateCmd.Flags().String("run-id", "local", "run identifier for the Postgres sink")
	simulateCmd.Flags().Uint64("chain-id", 1, "chain identifier bound into permit signatures")
	simulateCmd.Flags().Int("max-retries", 5, "maximum sink retry attempts")
	simulateCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial sink retry backoff")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
