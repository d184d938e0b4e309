package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"standupbot/domain/event"
	"standupbot/domain/standup"
	"standupbot/infrastructure/slack"
	"standupbot/infrastructure/storage"
	"standupbot/internal"
	"standupbot/runtime"
	"standupbot/runtime/workers"
	"standupbot/sink"
	"strings"
	"syscall"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	slackapi "github.com/slack-go/slack"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Standup bot terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until the orchestrator stops.
// Returning instead of exiting lets the deferred closes run.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	config, problems, err := internal.FromEnviron()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if len(problems) > 0 {
		return exitConfig, fmt.Errorf("config error:\n  %s", strings.Join(problems, "\n  "))
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	questions, err := runtime.NewQuestionLoader().Load(config.QuestionsFile)
	if err != nil {
		return exitConfig, err
	}
	parser, err := standup.NewParser()
	if err != nil {
		return exitRuntime, fmt.Errorf("parser init failed: %w", err)
	}

	// 2. Slack validation, before anything is opened on disk
	client := slackapi.New(config.SlackAPIToken, slackapi.OptionDebug(logger.Enabled(ctx, slog.LevelDebug)))
	directory := slack.NewDirectory(logger, client)
	channels, problems := slack.NewValidator(client, directory).Validate(ctx, config.Channels(), config.BotName)
	if len(problems) > 0 {
		for _, p := range problems {
			logger.Error(p)
		}
		return exitConfig, fmt.Errorf("slack validation failed with %d problem(s)", len(problems))
	}

	// 3. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) && config.DebugPort > 0 {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		database.StartDebugServer(db, config.DebugPort, endpoint, StandupMapper)
	}

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 4. Runtime
	domainEvents := make(chan event.DomainEvent, config.BufferSize)
	outbox := runtime.NewOutbox(logger, config.BufferSize)
	admins := standup.NewAdminList(config.Admins()...)
	interpreter := runtime.NewInterpreter(logger, parser, directory, outbox, admins, questions, domainEvents, config.RecapURL)
	sessions := storage.NewSessionRepository(db, logger)

	orchestrator := runtime.NewOrchestrator(logger,
		runtime.Config{
			BufferSize:               config.BufferSize,
			SinkTimeout:              config.SinkTimeout,
			SendTimeout:              config.SendTimeout,
			RetryBackoff:             config.RetryBackoff,
			FarewellTimeout:          config.FarewellTimeout,
			DirectoryRefreshInterval: config.DirectoryRefreshInterval,
			MetricInterval:           config.MetricInterval,
		},
		workers.NewSupervisor(logger, config.RestartInterval),
		workers.NewSupervisor(logger, config.RestartInterval),
		runtime.NewRegistry(), outbox, interpreter, domainEvents,
		directory,
		slack.NewRealTimeSource(logger, client, config.BufferSize),
		slack.NewSender(client),
		sessions,
		len(questions),
	)
	orchestrator.Add(
		sink.NewTranscriptSink(logger, storage.NewTranscriptRepository(db, logger)),
		sink.NewSearchSink(logger, storage.NewSearchIndex(logger, blugeWriter)),
		sink.NewRecap(logger),
	)

	// 5. Context & Signals
	// NotifyContext cancels ctx on a termination signal, the orchestrator turns it into a farewell.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting standup bot", "channels", config.Channels(), "questions", len(questions))
	reason, err := orchestrator.Run(ctx, channels)
	if err != nil {
		return exitRuntime, fmt.Errorf("orchestrator error: %w", err)
	}
	logger.Info("Standup bot stopped", "reason", reason)
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}

	return options
}

// StandupMapper renders sessions and transcript entries in the debug inspector.
func StandupMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	switch {
	case strings.HasPrefix(key, "session:"):
		var snapshot standup.Snapshot
		if err := json.Unmarshal(val, &snapshot); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Type = "SESSION"
		row.Detail = fmt.Sprintf("%s current=%s question=%d members=%d",
			snapshot.Status, snapshot.Current, snapshot.QuestionIndex, len(snapshot.Members))
	case strings.HasPrefix(key, "transcript:"):
		var entry storage.Entry
		if err := json.Unmarshal(val, &entry); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Type = string(entry.Kind)
		row.Detail = fmt.Sprintf("%s: %s", entry.MemberName, entry.Answer)
		if entry.Kind == storage.EntryExcused {
			row.Detail = fmt.Sprintf("%s: %s", entry.Member, entry.Reason)
		}
	}
	return row
}
