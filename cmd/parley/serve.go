package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/parleyhq/parley"
	httpAdapter "github.com/parleyhq/parley/internal/adapters/http"
	"github.com/parleyhq/parley/internal/logging"
	redisAdapter "github.com/parleyhq/parley/pkg/adapters/redis"
	"github.com/parleyhq/parley/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the orchestrator in server mode, exposing the session API as JSON over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		port, _ := cmd.Flags().GetString("port")
		redisAddr, _ := cmd.Flags().GetString("redis")
		ttl, _ := cmd.Flags().GetDuration("session-ttl")

		logger := logging.NewJSON(slog.LevelInfo)
		metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

		opts := []parley.Option{
			parley.WithLogger(logger),
			parley.WithLifecycleHooks(metrics.Hooks(logger)),
		}
		if redisAddr != "" {
			store := redisAdapter.New(redisAddr, "", 0, redisAdapter.WithTTL(ttl))
			opts = append(opts,
				parley.WithStore(store),
				parley.WithLocker(redisAdapter.NewLocker(store.Client(), "parley:session:")),
			)
		}

		orch, err := parley.New(configPath, opts...)
		if err != nil {
			fmt.Printf("Error initializing parley: %v\n", err)
			os.Exit(1)
		}

		handler := httpAdapter.NewHandler(orch)

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Parley Server on %s\n", srv.Addr)
			fmt.Printf("Serving flow: %s\n", configPath)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			// Error when starting HTTP server.
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Parley Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().Duration("session-ttl", 24*time.Hour, "Session expiry when using Redis persistence")
}
