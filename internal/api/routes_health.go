package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authzd/internal/handlers"
	"github.com/charlesng35/authzd/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, manager *monitoring.HealthManager) {
	r.GET("/health", handlers.Health(manager))
	r.GET("/api/health", handlers.Health(manager))
}
