package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger is replaced in main; tests keep the no-op one.
var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:          "amqpsub",
	Short:        "Consume messages from an AMQP queue one at a time",
	SilenceUsage: true,
}

func newLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if err != nil {
		level = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.LevelKey = "severity"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// stdout carries the messages.
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func main() {
	l, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "amqpsub: init logger: %v\n", err)
		os.Exit(1)
	}
	logger = l

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Error("amqpsub failed", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
