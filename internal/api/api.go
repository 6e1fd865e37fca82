package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/revdeploy/internal/api/handlers"
	"github.com/andresuchdata/revdeploy/internal/api/middleware"
	"github.com/andresuchdata/revdeploy/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(deploy *service.DeployService, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	if len(allowedOrigins) > 0 {
		corsConfig := cors.Config{
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else {
			corsConfig.AllowOrigins = normalizedOrigins
		}
		if allowAll || len(normalizedOrigins) > 0 {
			router.Use(cors.New(corsConfig))
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if deploy != nil {
		revisionHandler := handlers.NewRevisionHandler(deploy)
		revisionGroup := apiGroup.Group("/revisions")
		{
			revisionGroup.GET("", revisionHandler.ListRevisions)
			revisionGroup.POST("/:revision/activate", revisionHandler.Activate)
		}
		apiGroup.GET("/activations", revisionHandler.History)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
