package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghga-de/dcs-go/internal/httpapi"
	"github.com/ghga-de/dcs-go/internal/tokenauth"
)

// NewServeCmd runs the DRS-facing HTTP surface (§6.1): GET /health and the
// two bearer-authenticated /objects routes.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the DRS HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	application, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	validator, err := tokenauth.NewValidator([]byte(application.cfg.TokenAuth.SigningPubKeyPEM))
	if err != nil {
		return err
	}

	handlers := httpapi.NewHandlers(application.repo)
	router := httpapi.NewRouter(handlers, validator, application.cfg.Server.GinMode, application.cfg.GetCORSOrigins())

	server := &http.Server{
		Addr:         ":" + application.cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("[Server] listening on port %s", application.cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Server] failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Server] shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] HTTP shutdown error: %v", err)
	}

	log.Println("[Server] shutdown complete")
	return nil
}
