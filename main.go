package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yumyai/gbneighbours/cmd"
	"github.com/yumyai/gbneighbours/logger"
)

func main() {

	// Establish logger, the commands reinitialise it at the configured level
	if err := logger.InitLogger(zapcore.InfoLevel); err != nil {
		panic(err)
	}

	// Try load env
	dotenvErr := godotenv.Load()

	if dotenvErr != nil {
		logger.Debug("No .env found, using local environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := cmd.Execute(ctx)
	stop()
	if err != nil {
		logger.Error("gbneighbours failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync() // Make sure that the buffered is flushed.
}
