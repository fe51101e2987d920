package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"student-registry/internal/config"
	"student-registry/internal/logger"
	"student-registry/internal/messaging"
	"student-registry/internal/metrics"
	"student-registry/internal/registry"

	"github.com/joho/godotenv"
)

// audit follows the registry event stream on NATS and writes one log line per event.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	slogLogger := logger.NewWithServiceContext("student-registry-audit", "dev", logger.Options{
		Format: cfg.Log.Format,
		Level:  cfg.Log.Level,
	})
	slog.SetDefault(slogLogger)

	consumer, err := messaging.NewConsumer(cfg.NATS.URL, cfg.NATS.SubjectPrefix, auditEvent(slogLogger), slogLogger, metrics.NewMock())
	if err != nil {
		slogLogger.Error("failed to connect to NATS", "error", err, "url", cfg.NATS.URL)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slogLogger.Error("consumer stopped", "error", err)
		os.Exit(1)
	}

	slogLogger.Info("audit consumer exited gracefully")
}

func auditEvent(logger *slog.Logger) messaging.EventHandler {
	return func(ctx context.Context, event registry.Event) error {
		attrs := []any{
			"event_id", event.ID,
			"event_type", event.Type,
			"occurred_at", event.OccurredAt,
		}
		if event.StudentID != 0 {
			attrs = append(attrs, "student_id", event.StudentID)
		}
		if event.CourseID != 0 {
			attrs = append(attrs, "course_id", event.CourseID)
		}
		if event.Faculty != "" {
			attrs = append(attrs, "faculty", event.Faculty)
		}
		if event.Grade != nil {
			attrs = append(attrs, "grade", int(*event.Grade))
		}
		if event.Status != "" {
			attrs = append(attrs, "status", event.Status)
		}
		logger.InfoContext(ctx, "registry event", attrs...)
		return nil
	}
}
