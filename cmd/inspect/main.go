package main

import (
	"fmt"
	"log/slog"
	"os"
	"standupbot/infrastructure/storage"
	"standupbot/services"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(openHistory).Execute(); err != nil {
		os.Exit(1)
	}
}

// openHistory opens both stores read-only and returns a closer for them.
func openHistory() (services.IHistoryService, func(), error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("config error: %w", err)
	}
	color.Enable = config.Colours
	logger := logs.GetLoggerFromLevel(slog.LevelWarn)

	// BypassLockGuard allows opening while the bot holds the lock
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLogger(nil))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	reader, err := bluge.OpenReader(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to open search index: %w", err)
	}

	service := services.NewHistoryService(logger,
		storage.NewSessionRepository(db, logger),
		storage.NewTranscriptRepository(db, logger),
		storage.NewReadOnlySearchIndex(logger, reader),
	)
	closer := func() {
		_ = reader.Close()
		_ = db.Close()
	}
	return service, closer, nil
}
