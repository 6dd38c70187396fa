// Package stack builds the shared runtime pieces (logger, entry store,
// memory driver and event publisher) from a resolved config.
package stack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/cmd/recall/sqlitepath"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/eventstream/kafka"
	"github.com/papercomputeco/recall/pkg/eventstream/nop"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory/dedup"
	"github.com/papercomputeco/recall/pkg/memory/local"
	"github.com/papercomputeco/recall/pkg/memory/retrieve"
	"github.com/papercomputeco/recall/pkg/memory/template"
	"github.com/papercomputeco/recall/pkg/retry"
	"github.com/papercomputeco/recall/pkg/storage"
	"github.com/papercomputeco/recall/pkg/storage/inmemory"
	"github.com/papercomputeco/recall/pkg/storage/postgres"
	"github.com/papercomputeco/recall/pkg/storage/sqlite"
)

// Stack holds the components shared by the proxy, the API and the CLI.
type Stack struct {
	Config    *config.Config
	Store     storage.Driver
	Templates *template.Registry
	Memory    *local.Driver
	Publisher eventstream.Publisher
	Logger    *slog.Logger
}

// NewLogger returns the CLI logger: colored when stdout is a terminal,
// plain text otherwise.
func NewLogger(debug bool) *slog.Logger {
	return logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(cliui.IsTerminal(os.Stdout)),
	)
}

// ForCommand loads config.toml for cmd's --config-dir and opens the stack.
// Logging stays silent unless --debug is set so command output is clean.
func ForCommand(cmd *cobra.Command) (*Stack, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log := logger.Nop()
	if debug {
		log = logger.New(logger.WithDebug(true), logger.WithWriter(os.Stderr))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return Open(ctx, cfg, configDir, log)
}

// Open builds every component. On error, anything already opened is closed.
func Open(ctx context.Context, cfg *config.Config, configDir string, log *slog.Logger) (*Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := OpenStore(ctx, cfg, configDir, log)
	if err != nil {
		return nil, err
	}

	s := &Stack{
		Config:    cfg,
		Store:     store,
		Templates: template.New(),
		Logger:    log,
	}

	s.Memory, err = NewMemory(cfg, store, s.Templates, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	s.Publisher, err = NewPublisher(cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the publisher and the store.
func (s *Stack) Close() error {
	var errs []error
	if s.Memory != nil {
		errs = append(errs, s.Memory.Close())
	}
	if s.Publisher != nil {
		errs = append(errs, s.Publisher.Close())
	}
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	return errors.Join(errs...)
}

// OpenStore opens the configured entry store. Postgres connections are
// retried with backoff so recall can start alongside its database.
func OpenStore(ctx context.Context, cfg *config.Config, configDir string, log *slog.Logger) (storage.Driver, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		log.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	case config.StoragePostgres:
		var driver *postgres.Driver
		rc := retry.NewDefaultConfig()
		rc.OnRetry = func(attempt int, err error, delay time.Duration) {
			log.Warn("postgres not ready, retrying",
				"attempt", attempt,
				"delay", delay,
				"error", err,
			)
		}
		err := retry.NewRetrier(rc).Do(ctx, func(ctx context.Context) error {
			var err error
			driver, err = postgres.NewDriver(ctx, cfg.Storage.PostgresDSN, log)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL store: %w", err)
		}
		log.Info("using PostgreSQL storage")
		return driver, nil

	default:
		path, err := sqlitepath.ResolveSQLitePath(cfg.Storage.SQLitePath, configDir)
		if err != nil {
			return nil, err
		}
		driver, err := sqlite.NewDriver(ctx, path, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite store: %w", err)
		}
		log.Info("using SQLite storage", "path", path)
		return driver, nil
	}
}

// NewMemory composes the memory driver from the retrieval and learning
// settings.
func NewMemory(cfg *config.Config, store storage.Driver, templates *template.Registry, log *slog.Logger) (*local.Driver, error) {
	packing, err := retrieve.ParsePacking(cfg.Retrieval.Packing)
	if err != nil {
		return nil, err
	}

	return local.NewDriver(local.Config{
		Store:        store,
		Deduplicator: dedup.New(cfg.Learning.DedupThreshold),
		Retriever: retrieve.New(retrieve.Config{
			Store:        store,
			Packing:      packing,
			MinRelevance: cfg.Retrieval.MinRelevance,
			Logger:       log,
		}),
		Formatter: templates,
		Reinforce: cfg.Learning.Reinforce,
		Logger:    log,
	})
}

// NewPublisher returns the configured learned-entry publisher.
func NewPublisher(cfg *config.Config, log *slog.Logger) (eventstream.Publisher, error) {
	if cfg.EventStream.Provider != config.EventStreamKafka {
		return nop.NewPublisher(), nil
	}

	pub, err := kafka.NewPublisher(kafka.Config{
		Brokers: cfg.EventStream.Brokers,
		Topic:   cfg.EventStream.Topic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}
	log.Info("publishing learned entries to kafka",
		"brokers", cfg.EventStream.Brokers,
		"topic", cfg.EventStream.Topic,
	)
	return pub, nil
}
