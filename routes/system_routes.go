package routes

import (
	handlers "rescuelink/internal/handlers/shared"
	"rescuelink/pkg/websocket"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupWebSocketRoutes mounts the realtime endpoint. Clients authenticate
// with a bearer token on the upgrade or an auth event after connecting.
func SetupWebSocketRoutes(r *gin.Engine, path string, wsHandler *websocket.Handler) {
	r.GET(path, wsHandler.HandleWebSocket)
}

// SetupOpsRoutes exposes liveness and Prometheus metrics
func SetupOpsRoutes(r *gin.Engine, healthHandler *handlers.HealthHandler) {
	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
