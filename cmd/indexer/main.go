// Command indexer runs one synchronization action against the search index
// and prints the outcome as JSON. It is meant for deploy hooks and cron jobs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/glowcart/storefront-search/internal/app"
	"github.com/glowcart/storefront-search/internal/config"
	"github.com/glowcart/storefront-search/internal/domain"
	"github.com/glowcart/storefront-search/internal/indexsync"
	apperrors "github.com/glowcart/storefront-search/pkg/errors"
	"github.com/glowcart/storefront-search/pkg/logger"
)

const actionStatus = "status"

func main() {
	action := flag.String("action", domain.ActionIndexAll,
		"one of: create-index, index-all, reindex-all, status")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("search-indexer", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	core, err := app.NewCore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize indexer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	code := run(ctx, core.Controller, *action, os.Stdout, log)
	if err := core.Close(); err != nil {
		log.Error("close indexer", slog.String("error", err.Error()))
	}
	cancel()
	os.Exit(code)
}

// controller is the part of indexsync.Controller the indexer drives.
type controller interface {
	Execute(ctx context.Context, req indexsync.Request) (*domain.SyncResult, error)
	Status(ctx context.Context) (*domain.SyncStatus, error)
}

// run executes action, writes its JSON result to out and returns the exit
// code: 0 on success, 1 on failure, 2 on a partial bulk failure.
func run(ctx context.Context, c controller, action string, out io.Writer, log *slog.Logger) int {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if action == actionStatus {
		status, err := c.Status(ctx)
		if err != nil {
			log.Error("status failed", slog.String("error", err.Error()))
			return 1
		}
		_ = enc.Encode(status)
		return 0
	}

	switch action {
	case domain.ActionCreateIndex, domain.ActionIndexAll, domain.ActionReindexAll:
	default:
		log.Error("unsupported action", slog.String("action", action))
		_ = enc.Encode(domain.SyncResult{Message: fmt.Sprintf("unsupported action %q", action)})
		return 1
	}

	result, err := c.Execute(ctx, indexsync.Request{Action: action})
	switch {
	case err == nil:
		_ = enc.Encode(result)
		return 0
	case errors.Is(err, apperrors.ErrPartialBulk) && result != nil:
		log.Warn("sync partially failed", slog.String("action", action), slog.Int("failed", len(result.Failed)))
		_ = enc.Encode(result)
		return 2
	default:
		log.Error("sync failed", slog.String("action", action), slog.String("error", err.Error()))
		_ = enc.Encode(domain.SyncResult{Message: err.Error()})
		return 1
	}
}
