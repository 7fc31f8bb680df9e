package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mchmarny/top1m/pkg/data"
	"github.com/mchmarny/top1m/pkg/metrics"
	"github.com/urfave/cli/v2"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
	serverPortDefault         = 8080
)

var (
	portFlag = &cli.IntFlag{
		Name:     "port",
		Usage:    "Port on which the server will listen",
		Value:    serverPortDefault,
		Required: false,
	}

	serverCmd = &cli.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start local HTTP server exposing stored rankings and metrics",
		Action:  cmdStartServer,
		Flags: []cli.Flag{
			portFlag,
			debugFlag,
		},
	}
)

func cmdStartServer(c *cli.Context) error {
	applyFlags(c)
	cfg := getConfig(c)
	port := c.Int(portFlag.Name)
	address := fmt.Sprintf("127.0.0.1:%d", port)

	rec := metrics.NewRecorder(true)
	seedMetrics(cfg.DB, rec)

	s := &http.Server{
		Addr:           address,
		Handler:        makeRouter(cfg.DB, rec),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("error starting server", "error", err)
		}
	}()

	slog.Info("server started", "address", fmt.Sprintf("http://%s", address))

	<-done

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	return nil
}

// seedMetrics sets the ranking gauges from the latest stored run.
func seedMetrics(db *sql.DB, rec *metrics.Recorder) {
	id, err := data.GetLatestRunID(db)
	if err != nil {
		slog.Debug("no stored run to seed metrics", "error", err)
		return
	}

	run, err := data.GetRun(db, id)
	if err != nil {
		slog.Error("failed to get latest run", "error", err)
		return
	}

	at, err := time.Parse(time.RFC3339, run.CreatedAt)
	if err != nil {
		slog.Error("invalid run timestamp", "run", id, "value", run.CreatedAt, "error", err)
		return
	}

	rec.SetLastRun(run.Domains, run.Entries, at)
}

func makeRouter(db *sql.DB, rec *metrics.Recorder) *http.ServeMux {
	mux := http.NewServeMux()

	handle := func(pattern, name string, h http.HandlerFunc) {
		mux.Handle(pattern, rec.Instrument(name, h))
	}

	// Data API
	handle("GET /data/runs", "runs", runsAPIHandler(db))
	handle("GET /data/ranking", "ranking", rankingAPIHandler(db))
	handle("GET /data/sources", "sources", runSourcesAPIHandler(db))
	handle("GET /data/domain", "domain", domainAPIHandler(db))
	handle("GET /data/state", "state", stateAPIHandler(db))

	mux.Handle("GET /metrics", rec.Handler())

	return mux
}
