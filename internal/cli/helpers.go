// Package cli implements the interactive command-line session loop.
package cli

import (
	"log/slog"
	"time"

	"github.com/parleyhq/parley"
	"github.com/parleyhq/parley/internal/logging"
	"github.com/parleyhq/parley/pkg/adapters/memory"
	redisAdapter "github.com/parleyhq/parley/pkg/adapters/redis"
)

// RunOptions carries the flags of the run command.
type RunOptions struct {
	ConfigPath string
	SessionID  string
	RedisAddr  string
	Debug      bool
	NoBanner   bool
}

// createLogger builds the CLI logger. Debug mode lowers the level and keeps
// the text handler for readability.
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.New(slog.LevelWarn)
}

// buildOrchestrator wires the orchestrator with the store selected by the
// flags: in-memory by default, Redis when an address is given.
func buildOrchestrator(opts RunOptions, logger *slog.Logger) (*parley.Orchestrator, error) {
	orchOpts := []parley.Option{parley.WithLogger(logger)}

	if opts.RedisAddr != "" {
		store := redisAdapter.New(opts.RedisAddr, "", 0, redisAdapter.WithTTL(24*time.Hour))
		orchOpts = append(orchOpts,
			parley.WithStore(store),
			parley.WithLocker(redisAdapter.NewLocker(store.Client(), "parley:session:")),
		)
	} else {
		orchOpts = append(orchOpts, parley.WithStore(memory.NewStore()))
	}

	return parley.New(opts.ConfigPath, orchOpts...)
}
