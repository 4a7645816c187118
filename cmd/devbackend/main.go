// Command devbackend serves the marketplace API from memory for local
// development. Set EFRESCO_DEV_ASLEEP=true to start it asleep and exercise
// the client's wake-up path.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sudo-init-do/efresco/internal/config"
	"github.com/sudo-init-do/efresco/internal/devserver"
	"github.com/sudo-init-do/efresco/internal/gateway"
	"github.com/sudo-init-do/efresco/internal/logger"
)

func main() {
	gateway.UseNumericMoney()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Must(cfg.Log)
	defer func() { _ = log.Sync() }()

	srv, err := devserver.New(cfg.Dev, log)
	if err != nil {
		log.Fatal("dev backend setup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start(":" + cfg.Dev.Port) }()

	select {
	case err := <-errc:
		if err != nil {
			log.Fatal("server error", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}
}
