package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopherai-notebook/internal/bootstrap"
	"gopherai-notebook/internal/logger"
	httptransport "gopherai-notebook/internal/transport/http"
)

const gatewayModule = "gateway"

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "close resources failed: %v\n", err)
		}
	}()

	router := httptransport.NewRouter(app)
	server := &http.Server{
		Addr:              app.Config.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		app.Logger.Info(gatewayModule, "server starting", map[string]interface{}{
			"addr": server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Error(gatewayModule, "server failed", map[string]interface{}{
				"error": err,
			})
			os.Exit(1)
		}
	}()

	waitForShutdown(server, app.Logger)
}

func waitForShutdown(server *http.Server, log logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(gatewayModule, "server shutdown failed", map[string]interface{}{
			"error": err,
		})
	}
}
