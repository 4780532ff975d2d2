// Command server runs the HTTP Surface of spec.md §4.5: POST /v1/trigger,
// GET /v1/lesson-status/{summary_id}, GET /v1/exercises, and the /health and
// /ready probes. Wiring follows the teacher's cmd/main.go shape.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/lesson-pipeline/internal/analyticalstore"
	"github.com/yungbote/lesson-pipeline/internal/config"
	"github.com/yungbote/lesson-pipeline/internal/dispatch"
	"github.com/yungbote/lesson-pipeline/internal/httpapi"
	"github.com/yungbote/lesson-pipeline/internal/idempotency"
	"github.com/yungbote/lesson-pipeline/internal/lifecycle"
	"github.com/yungbote/lesson-pipeline/internal/logger"
	"github.com/yungbote/lesson-pipeline/internal/opstore"
	"github.com/yungbote/lesson-pipeline/internal/telemetry"
)

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}

	ctx, stop := lifecycle.NotifyContext(context.Background())
	defer stop()

	shutdownTelemetry := telemetry.Init(ctx, log, telemetry.Config{ServiceName: "lesson-pipeline-server", Environment: logMode})
	defer shutdownTelemetry(context.Background())

	ops, err := opstore.Open(cfg.StoreOperationalDSN, log)
	if err != nil {
		log.Fatal("failed to open operational store", "error", err)
	}
	if err := ops.AutoMigrate(); err != nil {
		log.Fatal("failed to migrate operational store", "error", err)
	}

	an, err := analyticalstore.Open(ctx, cfg.StoreAnalyticalURL, log)
	if err != nil {
		log.Fatal("failed to open analytical store", "error", err)
	}
	if err := an.Migrate(ctx); err != nil {
		log.Fatal("failed to migrate analytical store", "error", err)
	}
	defer an.Close()

	idem, err := idempotency.New(log, cfg.RedisURL, cfg.IdempotencyWindow)
	if err != nil {
		log.Fatal("failed to init idempotency cache", "error", err)
	}

	transcripts := analyticalstore.NewTranscriptRepo(an)
	exerciseSets := analyticalstore.NewExerciseSetRepo(an)
	dispatcher := dispatch.New(log, cfg.WebhookURL, cfg.WebhookTimeout)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		TriggerHandler:   httpapi.NewTriggerHandler(log, transcripts, dispatcher, idem),
		StatusHandler:    httpapi.NewStatusHandler(log, transcripts, exerciseSets),
		ExercisesHandler: httpapi.NewExercisesHandler(log, exerciseSets),
		HealthHandler:    httpapi.NewHealthHandler(ops, an, idem),
		AllowedOrigins:   []string{"*"},
	})

	supervisor := lifecycle.NewSupervisor(log, cfg.ShutdownGrace)
	err = supervisor.Run(ctx, func(runCtx context.Context) error {
		srv := &httpServer{router: router, addr: ":" + cfg.HTTPPort, log: log}
		return srv.run(runCtx)
	})
	if err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
