package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"coachai/internal/gateway/app"
)

const defaultShutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New()
	if err != nil {
		log.Fatalf("gateway: init failed: %v", err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- a.Start() }()

	select {
	case <-ctx.Done():
		log.Printf("gateway: signal received, shutting down")
	case err := <-serveErr:
		if err != nil {
			log.Printf("gateway: server stopped: %v", err)
		}
	}

	timeout := a.Config().HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("gateway: forced shutdown: %v", err)
	}
	log.Printf("gateway: exited")
}
