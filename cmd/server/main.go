/*
main.go - Application entry point

PURPOSE:
  Starts the attendance engine HTTP server and hosts the operator
  subcommands. Handles configuration, dependency injection, and graceful
  shutdown.

COMMANDS:
  serve (default)     Run the HTTP API
  report --date=D     Print one day's attendance as a table
  dates               List days with saved attendance

STARTUP SEQUENCE (serve):
  1. Load configuration (defaults, attendance.toml, .env, ATTENDANCE_* env)
  2. Initialize the logger
  3. Open the roster backend (memory or sqlite)
  4. Open the attendance directory (created if missing, fatal if not creatable)
  5. Optionally seed the sample roster
  6. Configure HTTP router and start the server

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the roster database
  4. Exit

EXAMPLES:
  ./server --config=./attendance.toml
  ATTENDANCE_ROSTER_BACKEND=sqlite ./server serve
  ./server report --date=2025-01-05

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys
*/
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/attendance/store"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/logger"
	"github.com/warp/attendance-engine/store/dailyfile"
	"github.com/warp/attendance-engine/store/sqlite"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Student attendance engine",
	Long: `Student attendance engine.

Keeps a roster of students and one attendance file per calendar day,
and serves both over a JSON HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if err := logger.Initialize(cfg.Log.JSON, cfg.Log.Level); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./attendance.toml if present)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(datesCmd)
}

func main() {
	defer logger.Sync()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// =============================================================================
// WIRING
// =============================================================================

// openReconciler builds the roster and record file from cfg. The sample
// roster is only seeded when seed is set and seed.sample_students is on.
// The returned closer releases the roster backend.
func openReconciler(ctx context.Context, cfg *config.Config, seed bool) (*attendance.Reconciler, io.Closer, error) {
	var (
		roster attendance.RosterStore
		closer io.Closer = nopCloser{}
	)
	switch cfg.Roster.Backend {
	case config.BackendSQLite:
		db, err := sqlite.New(cfg.Roster.DBPath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to initialize roster database")
		}
		roster, closer = db, db
	default:
		roster = store.NewMemory()
	}

	files, err := dailyfile.Open(cfg.Storage.Dir)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}

	rec := attendance.NewReconciler(roster, files)

	if seed && cfg.Seed.SampleStudents {
		n, err := attendance.SeedSampleStudents(ctx, roster, rec.Today())
		if err != nil {
			closer.Close()
			return nil, nil, err
		}
		if n > 0 {
			logger.Infow("Seeded sample roster", logger.FieldCount, n)
		}
	}
	return rec, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// =============================================================================
// SERVE
// =============================================================================

func runServe(ctx context.Context) error {
	rec, closer, err := openReconciler(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer closer.Close()

	var limiter *rate.Limiter
	if cfg.Server.WriteRatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Server.WriteRatePerSecond), cfg.Server.WriteBurst)
	}

	router := api.NewRouter(api.NewHandler(rec), api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		WriteLimiter:   limiter,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("Server starting",
			"port", cfg.Server.Port,
			"storage_dir", cfg.Storage.Dir,
			"roster_backend", cfg.Roster.Backend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "server failed")
		}
		return nil
	case <-quit:
	}

	logger.Infow("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}

	logger.Infow("Server stopped")
	return nil
}
