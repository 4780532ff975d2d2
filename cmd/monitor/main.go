// Command monitor runs the Class Monitor loop of spec.md §4.1 as a
// standalone process, so it can be scaled and deployed independently of the
// HTTP surface and the transcript worker.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/lesson-pipeline/internal/config"
	"github.com/yungbote/lesson-pipeline/internal/dispatch"
	"github.com/yungbote/lesson-pipeline/internal/lifecycle"
	"github.com/yungbote/lesson-pipeline/internal/logger"
	"github.com/yungbote/lesson-pipeline/internal/monitor"
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

	shutdownTelemetry := telemetry.Init(ctx, log, telemetry.Config{ServiceName: "lesson-pipeline-monitor", Environment: logMode})
	defer shutdownTelemetry(context.Background())

	ops, err := opstore.Open(cfg.StoreOperationalDSN, log)
	if err != nil {
		log.Fatal("failed to open operational store", "error", err)
	}
	if err := ops.AutoMigrate(); err != nil {
		log.Fatal("failed to migrate operational store", "error", err)
	}

	classes := opstore.NewClassRepo(ops)
	users := opstore.NewUserRepo(ops)
	dispatcher := dispatch.New(log, cfg.WebhookURL, cfg.WebhookTimeout)

	m := monitor.New(log, classes, users, dispatcher, cfg.MonitorPollInterval, cfg.MonitorBatchSize)

	supervisor := lifecycle.NewSupervisor(log, cfg.ShutdownGrace)
	if err := supervisor.Run(ctx, m.Run); err != nil {
		log.Error("monitor exited with error", "error", err)
		os.Exit(1)
	}
}
