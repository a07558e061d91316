// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/nnotes/internal/apperr"
	"github.com/starford/nnotes/internal/index"
	"github.com/starford/nnotes/internal/mcpserver"
	"github.com/starford/nnotes/internal/notestore"
	"github.com/starford/nnotes/internal/noteservice"
	"github.com/starford/nnotes/internal/storage"
)

// Run performs req with the given options. Repository failures are
// reported on stderr and do not make Run fail; only startup problems
// (configuration, data directory) are returned.
func Run(ctx context.Context, req Request, opts ...Option) error {
	app := &application{
		version: "dev",
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	out := printer{out: app.stdout, errOut: app.stderr}

	logger := newLogger(cfg.App, app.stderr)
	slog.SetDefault(logger)

	logger.Debug("Configuration loaded",
		slog.String("mode", string(req.Mode)),
		slog.String("data_path", cfg.Data.Path),
		slog.String("index_backend", cfg.Index.Backend),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure data directory exists.
	if err := os.MkdirAll(cfg.Data.Path, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	blobs, err := storage.NewFS(cfg.Data.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	notes := notestore.New(blobs, filepath.ToSlash(cfg.Data.NotesFile))

	var idx index.Index
	if req.NeedsIndex() {
		idx, err = openIndex(cfg, blobs, logger)
		if errors.Is(err, apperr.ErrIndexCorrupt) && req.Mode == ModeRebuild {
			logger.Warn("index corrupt, recreating", slog.String("error", err.Error()))
			idx, err = resetIndex(cfg, blobs, logger)
		}
		if err != nil {
			out.failure(&apperr.StageError{Stage: apperr.StageIndex, Op: "open", Err: err})
			if errors.Is(err, apperr.ErrIndexCorrupt) {
				fmt.Fprintln(app.stderr, "Run 'nnotes --rebuild' to recreate the index from notes.")
			}
			return nil
		}
		defer idx.Close()
	}

	svc := noteservice.NewService(notes, idx,
		noteservice.WithLimit(cfg.Search.Limit),
		noteservice.WithLogger(logger))

	switch req.Mode {
	case ModeWatch:
		return watch(ctx, svc, cfg, logger, out)
	case ModeMCP:
		logger.Info("MCP server starting on stdio")
		if err := mcpserver.New(svc, app.version).ServeStdio(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	}

	dispatch(ctx, svc, req, out)
	return nil
}

// dispatch runs a single one-shot operation and prints its outcome.
func dispatch(ctx context.Context, svc *noteservice.Service, req Request, out printer) {
	switch req.Mode {
	case ModeCreate:
		n, err := svc.Create(ctx, req.Title, req.Content)
		if errors.Is(err, apperr.ErrPartialFailure) {
			out.saved(n)
		}
		if err != nil {
			out.failure(err)
			return
		}
		out.saved(n)

	case ModeList:
		notes, err := svc.List(ctx)
		if err != nil {
			out.failure(err)
			return
		}
		out.notes(notes)

	case ModeSearch:
		hits, err := svc.Search(ctx, req.Query)
		if err != nil {
			out.failure(err)
			return
		}
		out.hits(hits)

	case ModeDelete:
		err := svc.Delete(ctx, req.ID)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			out.notFound(req.ID)
		case err != nil:
			out.failure(err)
		default:
			out.deleted(req.ID)
		}

	case ModeRebuild:
		n, err := svc.Rebuild(ctx)
		if err != nil {
			out.failure(err)
			return
		}
		out.rebuilt(n)

	case ModeSync:
		report, err := svc.Sync(ctx)
		if err != nil {
			out.failure(err)
			return
		}
		out.synced(report)

	case ModeReindex:
		err := svc.Reindex(ctx, req.ID)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			out.notFound(req.ID)
		case err != nil:
			out.failure(err)
		default:
			out.reindexed(req.ID)
		}

	default:
		out.usage()
	}
}

// watch keeps the index in sync with the snapshot until a signal arrives
// or ctx is cancelled.
func watch(ctx context.Context, svc *noteservice.Service, cfg *Config, logger *slog.Logger, out printer) error {
	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, stop := context.WithCancel(gCtx)

	dir := filepath.Dir(filepath.Join(cfg.Data.Path, cfg.Data.NotesFile))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		stop()
		return fmt.Errorf("create notes dir: %w", err)
	}

	g.Go(func() error {
		return svc.Watch(watchCtx, cfg.Data.Path, cfg.Watch.Debounce, func(r noteservice.SyncReport) {
			out.synced(r)
		})
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, stopping watcher")
		}
		stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Watcher error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func openIndex(cfg *Config, blobs *storage.FS, logger *slog.Logger) (index.Index, error) {
	params := cfg.Search.Params()
	dir := filepath.Join(cfg.Data.Path, cfg.Index.Dir)

	switch cfg.Index.Backend {
	case BackendSQLite:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
		return index.OpenSQLite(filepath.Join(dir, "notes.db"), params)
	case BackendBleve:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
		return index.OpenBleve(filepath.Join(dir, "bleve"), params, logger)
	default:
		return index.OpenInverted(blobs, filepath.ToSlash(cfg.Index.Dir), params, logger)
	}
}

// resetIndex discards the index directory and opens a fresh index.
func resetIndex(cfg *Config, blobs *storage.FS, logger *slog.Logger) (index.Index, error) {
	if err := os.RemoveAll(filepath.Join(cfg.Data.Path, cfg.Index.Dir)); err != nil {
		return nil, fmt.Errorf("remove index dir: %w", err)
	}
	return openIndex(cfg, blobs, logger)
}

func newLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}
