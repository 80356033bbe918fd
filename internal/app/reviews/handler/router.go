package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campusrate/pkg/logger"
	"campusrate/pkg/metrics"
)

func SetupRoutes(reviewHandler *ReviewHandler, moderationHandler *ModerationHandler, authMiddleware *AuthMiddleware) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())

	// JSON logging middleware для HTTP-запросов (ELK Stack)
	router.Use(logger.GinLoggerMiddleware())

	// Prometheus metrics middleware
	router.Use(metrics.GinPrometheusMiddleware("campusrate"))

	// CORS настройки
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposeHeaders:    []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300 * time.Second,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "campusrate",
		})
	})

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Публичные эндпоинты чтения (без аутентификации)
	router.GET("/reviews/:review_id", reviewHandler.GetReview)
	router.GET("/targets/:target_kind/:target_id/reviews", reviewHandler.GetTargetReviews)

	// Эндпоинты, требующие user JWT
	authenticated := router.Group("/reviews")
	authenticated.Use(authMiddleware.Authenticate())
	{
		authenticated.POST("/", reviewHandler.SubmitReview)
		authenticated.POST("/:review_id/flags", reviewHandler.FlagReview)
		authenticated.POST("/:review_id/votes", reviewHandler.CastVote)
		authenticated.POST("/:review_id/appeal", reviewHandler.AppealReview)
	}

	// Административная поверхность: только moderator/admin
	moderation := router.Group("/moderation")
	moderation.Use(authMiddleware.Authenticate(), authMiddleware.RequireModerator())
	{
		moderation.GET("/queue", moderationHandler.GetQueue)
		moderation.POST("/reviews/:review_id/actions", moderationHandler.ApplyAction)
		moderation.GET("/reviews/:review_id/audit", moderationHandler.GetAuditTrail)
	}

	// Author lookup доступен только по сервисному токену,
	// обычный moderator JWT сюда не проходит
	internal := router.Group("/internal")
	internal.Use(authMiddleware.AuthenticateService())
	{
		internal.GET("/reviews/:review_id/author", moderationHandler.GetAuthor)
	}

	return router
}
