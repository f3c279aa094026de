package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/wavetotxt/wavetotxt/internal/app"
	"github.com/wavetotxt/wavetotxt/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	core, err := app.NewCore(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer core.Close()

	server := app.NewServer(core)
	go server.Start()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
