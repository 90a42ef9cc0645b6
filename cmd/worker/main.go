package main

import (
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/dmarkov/saasadmin/internal/config"
	"github.com/dmarkov/saasadmin/internal/mail"
	"github.com/dmarkov/saasadmin/internal/queue"
	"github.com/dmarkov/saasadmin/internal/queue/workers"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	// Register workers
	emailWorker := workers.NewEmailWorker(mail.NewSMTPSender(cfg.SMTP))

	registry.Register(queue.TypeWelcomeEmail, asynq.HandlerFunc(emailWorker.ProcessWelcome))
	registry.Register(queue.TypePasswordChanged, asynq.HandlerFunc(emailWorker.ProcessPasswordChanged))
	registry.Register(queue.TypeAdhocEmail, asynq.HandlerFunc(emailWorker.ProcessAdhoc))

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
