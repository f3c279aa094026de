package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/wavetotxt/wavetotxt/internal/app"
	"github.com/wavetotxt/wavetotxt/internal/config"
	"github.com/wavetotxt/wavetotxt/internal/queue"
	"github.com/wavetotxt/wavetotxt/internal/worker"
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

	redisOpt, err := queue.RedisOpt(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
	})
	processor := worker.NewProcessor(core.Dispatcher, core.Summarizer, core.Indexer)
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	log.Printf("worker running with concurrency %d", cfg.WorkerConcurrency)
	if err := server.Run(mux); err != nil {
		log.Printf("worker stopped: %v", err)
		os.Exit(1)
	}
}
