// Package app wires the gateway together: configuration, logging, the
// envelope store, the vendor client, and the HTTP surface.
package app

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"esign-gateway/internal/common/logging"
	"esign-gateway/internal/config"
	"esign-gateway/internal/docusign"
	"esign-gateway/internal/events"
	"esign-gateway/internal/handlers"
	"esign-gateway/internal/middleware"
	"esign-gateway/internal/server"
	"esign-gateway/internal/signature"
	"esign-gateway/internal/store"
)

// connectSignatureHeader carries the provider's HMAC digest of the raw
// webhook body.
const connectSignatureHeader = "x-docusign-signature-1"

// Run is the main entry point for the application
func Run() error {
	// Load environment variables
	_ = godotenv.Load()

	var initStore bool
	flag.BoolVar(&initStore, "init-store", false, "Create an empty envelope store file and exit")
	flag.Parse()

	// Initialize logging
	logging.InitGlobalLogger()
	defer logging.MustSync()

	// Load and validate configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logging.Error("Configuration validation failed", err)
		return err
	}

	logger := logging.GetGlobalLogger()

	if initStore {
		if err := store.Init(cfg.StorePath); err != nil {
			logging.Error("Failed to initialize store", err)
			return err
		}
		logging.Info("Empty envelope store created",
			logging.String("path", cfg.StorePath),
		)
		return nil
	}

	// A missing or corrupt store is fatal: serving with silently empty
	// state would orphan every envelope already in flight.
	st, err := store.Load(cfg.StorePath, logger)
	if err != nil {
		logging.Error("Failed to load envelope store", err)
		return err
	}

	client := docusign.NewClient(cfg, logger)
	verifier := signature.NewVerifier(connectSignatureHeader, cfg.ConnectHMACKey, logger)
	reconciler := events.NewReconciler(st, logger)
	h := handlers.New(st, client, verifier, reconciler, logger)

	srv := server.New(newRouter(h), cfg.Port)
	serveErr := srv.Start()

	logging.Info("Server started",
		logging.String("port", cfg.Port),
	)

	// Wait for interrupt signal or a serve failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		logging.Error("Server failed", err)
		return err
	case <-quit:
	}

	logging.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", err)
		return err
	}

	logging.Info("Server exited")
	return nil
}

// newRouter builds the HTTP route table.
func newRouter(h *handlers.Handlers) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)

	router.HandleFunc("/", h.Root).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	router.HandleFunc("/send-envelope", h.SendEnvelope).Methods("POST")
	router.HandleFunc("/sent-envelopes", h.ListEnvelopes).Methods("GET")
	router.HandleFunc("/sent-envelopes/{envelopeId}", h.GetEnvelope).Methods("GET")
	router.HandleFunc("/sent-envelopes/{envelopeId}/download-document", h.DownloadDocument).Methods("GET")

	router.HandleFunc("/webhook/docusign", h.DocuSignWebhook).Methods("POST")

	return router
}
