// Command worker runs the Transcript Worker loop of spec.md §4.3 as a
// standalone process.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/lesson-pipeline/internal/analyticalstore"
	"github.com/yungbote/lesson-pipeline/internal/config"
	"github.com/yungbote/lesson-pipeline/internal/engine"
	"github.com/yungbote/lesson-pipeline/internal/lifecycle"
	"github.com/yungbote/lesson-pipeline/internal/llm"
	"github.com/yungbote/lesson-pipeline/internal/logger"
	"github.com/yungbote/lesson-pipeline/internal/telemetry"
	"github.com/yungbote/lesson-pipeline/internal/transcript"
	"github.com/yungbote/lesson-pipeline/internal/translate"
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

	shutdownTelemetry := telemetry.Init(ctx, log, telemetry.Config{ServiceName: "lesson-pipeline-worker", Environment: logMode})
	defer shutdownTelemetry(context.Background())

	an, err := analyticalstore.Open(ctx, cfg.StoreAnalyticalURL, log)
	if err != nil {
		log.Fatal("failed to open analytical store", "error", err)
	}
	if err := an.Migrate(ctx); err != nil {
		log.Fatal("failed to migrate analytical store", "error", err)
	}
	defer an.Close()

	transcripts := analyticalstore.NewTranscriptRepo(an)
	exerciseSets := analyticalstore.NewExerciseSetRepo(an)

	llmClient := llm.New(log, cfg.LLMAPIKey, cfg.LLMModel, "", cfg.WebhookTimeout)
	translator := translate.New(log, cfg.TranslationTargetLanguage, cfg.WebhookTimeout)

	engineCfg := engine.DefaultConfig()
	engineCfg.QualityMin = cfg.QualityMin
	eng := engine.New(log, llmClient, translator, engineCfg)

	w := transcript.New(log, transcripts, exerciseSets, eng, cfg.WorkerPollInterval, cfg.WorkerBatchSize, cfg.WorkerLeaseSeconds, cfg.WorkerMaxRetries)

	supervisor := lifecycle.NewSupervisor(log, cfg.ShutdownGrace)
	if err := supervisor.Run(ctx, w.Run); err != nil {
		log.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
}
