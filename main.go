package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vrsandeep/techmail/internal/api"
	"github.com/vrsandeep/techmail/internal/core"
	"github.com/vrsandeep/techmail/internal/jobs"
)

func main() {
	// Initialize the core application components
	app, err := core.New()
	if err != nil {
		logrus.Fatalf("Fatal error during application setup: %v", err)
	}
	defer app.Close()
	log := app.Logger()

	// Keep the config file in step with the stored address on every start.
	if err := app.JobManager().RunJob(jobs.ConfigSyncJob); err != nil {
		log.WithError(err).Warn("Could not start config sync")
	}

	// Start scheduled update checks in the background
	if scheduler := jobs.StartJobs(app, app.JobManager()); scheduler != nil {
		defer scheduler.Stop()
	}

	// Setup the API server
	server := api.NewServer(app)
	addr := fmt.Sprintf(":%d", app.Config().Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		log.Infof("Starting web server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %v", err)
		}
	}()

	// Wait for an interrupt signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Create a context with a timeout to allow existing connections to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Attempt a graceful shutdown.
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exiting.")
}
