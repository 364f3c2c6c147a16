package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/server"
)

// Exit codes to provide meaningful status to the operating system or
// service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// main is a thin wrapper: run() owns the lifecycle so every defer
	// (database close, index flush) executes before the process exits.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := internal.NewLogger(config.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	gateway := repositories.NewBadgerGateway(db, blugeWriter, logger)

	// 3. Moderation, enabled only when a word list is configured
	var moderator *moderation.Moderator
	if config.CensoredWordsFile != nil {
		words, err := moderation.LoadWords(*config.CensoredWordsFile)
		if err != nil {
			return exitConfig, fmt.Errorf("censored words: %w", err)
		}
		censoredChar, err := internal.CharacterRune(config.CharReplacement)
		if err != nil {
			return exitConfig, err
		}
		m, err := moderation.NewModerator(words, censoredChar)
		if err != nil {
			return exitConfig, fmt.Errorf("moderator init failed: %w", err)
		}
		moderator = &m
		logger.Info("moderation enabled", "patterns", len(words))
	}

	// 4. Core server + metrics reporter
	srv := server.New(server.Config{
		Addr:           config.Addr(),
		MaxSessions:    config.MaxSessions,
		OutboundBuffer: config.ConnectionBufferSize,
		HistoryLimit:   config.HistoryLimit,
		SearchLimit:    config.SearchLimit,
	}, gateway, moderator, logger)

	reporter := observability.NewReporter(logger, config.MetricInterval, srv.SessionCount)
	go func() {
		_ = reporter.Run(ctx)
	}()

	if err := srv.Listen(ctx); err != nil {
		return exitRuntime, err
	}
	logger.Info("shutdown complete")
	return exitOK, nil
}
