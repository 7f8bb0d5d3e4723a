package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tranquocan24/online-exam-system/internal/config"
	"github.com/tranquocan24/online-exam-system/internal/handler"
	"github.com/tranquocan24/online-exam-system/internal/middleware"
	"github.com/tranquocan24/online-exam-system/internal/response"
	"github.com/tranquocan24/online-exam-system/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth   *handler.AuthHandler
	Portal *handler.PortalHandler
	Exam   *handler.ExamHandler
	WS     *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── Public (No Auth) ──────────────────────────────────────────────
	auth := router.Group("/api/auth")
	{
		auth.POST("/login", handlers.Auth.Login)
	}

	// ─── Authenticated ─────────────────────────────────────────────────
	api := router.Group("/api")
	api.Use(middleware.RequireJWT(authService))
	{
		api.GET("/auth/me", handlers.Auth.Me)

		// Exam taking.
		api.GET("/exam/:exam_id", handlers.Portal.GetExam)
		api.GET("/exam/:exam_id/progress", handlers.Portal.GetProgress)
		api.POST("/exam/save-progress", handlers.Portal.SaveProgress)
		api.POST("/exam/submit", handlers.Portal.Submit)

		// Result review.
		api.GET("/result/:result_id", handlers.Portal.GetResult)
		api.GET("/results", handlers.Portal.ListResults)
	}

	// ─── Teacher Authoring ─────────────────────────────────────────────
	teacher := router.Group("/api/teacher")
	teacher.Use(middleware.RequireJWT(authService), middleware.RequireTeacher())
	{
		teacher.POST("/exams", handlers.Exam.Create)
		teacher.GET("/exams", handlers.Exam.List)
		teacher.GET("/exams/:exam_id", handlers.Exam.Get)
		teacher.PUT("/exams/:exam_id", handlers.Exam.Update)
		teacher.DELETE("/exams/:exam_id", handlers.Exam.Delete)
		teacher.POST("/exams/:exam_id/publish", handlers.Exam.Publish)
		teacher.POST("/exams/:exam_id/archive", handlers.Exam.Archive)
		teacher.GET("/exams/:exam_id/results", handlers.Exam.Results)
	}

	// ─── WebSocket ─────────────────────────────────────────────────────
	wsGroup := router.Group("/ws")
	wsGroup.Use(middleware.RequireJWT(authService))
	{
		wsGroup.GET("/exam/:exam_id/stream", handlers.WS.ExamStream)
	}

	return router
}
