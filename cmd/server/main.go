package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/Prince10z/vibb/internal/logging"
	"github.com/Prince10z/vibb/internal/relay"
	"github.com/Prince10z/vibb/internal/server"
)

func main() {
	logging.Init()

	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()
	if env := os.Getenv("PORT"); env != "" && *addr == ":8080" {
		*addr = ":" + env
	}

	hub := relay.NewHub(relay.NewRegistry())

	srv := &http.Server{
		Addr:    *addr,
		Handler: server.Handler(hub),
	}

	go func() {
		slog.Info("starting signaling server", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	<-interrupt

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("shutdown", "err", err)
	}
}
