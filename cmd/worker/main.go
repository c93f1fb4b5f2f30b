// Package main provides the entry point for the worker service.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/resonancehq/resonance/internal/config"
	"github.com/resonancehq/resonance/internal/worker"
	"github.com/resonancehq/resonance/pkg/models"
)

var Version = "dev"

func main() {
	planRun := flag.String("plan-run", "", "trigger a one-shot plan run (daily|weekly) against a running worker and exit")
	planOwner := flag.String("owner", "", "restrict the one-shot plan run to a single owner")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// One-shot mode for cron: no service of our own, just the trigger
	// endpoint of whichever worker is already listening.
	if *planRun != "" {
		cfg := config.Get()
		baseURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.HTTPPort)
		if err := triggerPlanRun(baseURL, cfg.SchedulerSecret, *planRun, *planOwner); err != nil {
			log.Fatal().Err(err).Msg("Plan run failed")
		}
		log.Info().Str("kind", *planRun).Msg("Plan run complete")
		return
	}

	log.Info().
		Str("version", Version).
		Msg("Starting resonance worker")

	// Create service with version
	svc, err := worker.NewService(Version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create service")
	}

	// Start service
	if err := svc.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start service")
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Received shutdown signal")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := svc.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}

	log.Info().Msg("Worker shutdown complete")
}

// triggerPlanRun posts to a running worker's plan-run endpoint and
// reports non-2xx responses as errors.
func triggerPlanRun(baseURL, secret, kind, owner string) error {
	body, err := json.Marshal(worker.RunPlansRequest{
		Kind:  models.PlanKind(kind),
		Owner: owner,
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/plans/run", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(worker.SchedulerSecretHeader, secret)
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("trigger plan run: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("worker returned %s", resp.Status)
	}
	return nil
}
