package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RouterConfig wires the HTTP Surface module's handlers (spec.md §4.5),
// grounded on the teacher's internal/server/router.go grouping shape.
type RouterConfig struct {
	TriggerHandler   *TriggerHandler
	StatusHandler    *StatusHandler
	ExercisesHandler *ExercisesHandler
	HealthHandler    *HealthHandler
	AllowedOrigins   []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("lesson-pipeline"))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
	}))

	router.GET("/health", cfg.HealthHandler.Health)
	router.GET("/ready", cfg.HealthHandler.Ready)

	v1 := router.Group("/v1")
	{
		v1.POST("/trigger", cfg.TriggerHandler.Trigger)
		v1.GET("/lesson-status/:summary_id", cfg.StatusHandler.LessonStatus)
		v1.GET("/exercises", cfg.ExercisesHandler.GetExercises)
		v1.GET("/exercises/:summary_id", func(c *gin.Context) {
			summaryID, err := strconv.ParseInt(c.Param("summary_id"), 10, 64)
			if err != nil {
				RespondError(c, http.StatusBadRequest, "invalid_argument", err)
				return
			}
			cfg.ExercisesHandler.GetExerciseBySummary(c, summaryID)
		})
	}

	return router
}
