package bootstrap

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	httpHandler "github.com/fluffy-dev/The-Loom/internal/handler/http"
	wsHandler "github.com/fluffy-dev/The-Loom/internal/handler/websocket"
	"github.com/fluffy-dev/The-Loom/internal/middleware"
	"github.com/fluffy-dev/The-Loom/internal/service"
)

// RouterDeps is everything the HTTP surface needs.
type RouterDeps struct {
	Config      *Config
	Log         *logrus.Logger
	RedisClient *redis.Client // nil disables rate limiting
	AuthService *service.AuthService
	RoomService *service.RoomService
	WS          *wsHandler.WebSocketHandler
	Health      *httpHandler.HealthHandler
}

// NewRouter wires the API, health and WebSocket routes.
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(d.Log))

	router.GET("/healthz", d.Health.Healthz)
	router.GET("/ws/:roomId/:fileId", d.WS.HandleConnection)

	authHandler := httpHandler.NewAuthHandler(d.AuthService)
	roomHandler := httpHandler.NewRoomHandler(d.RoomService)

	api := router.Group("/api")
	api.Use(CORSMiddleware(d.Config.CORSAllowedOrigin))
	if d.RedisClient != nil {
		api.Use(middleware.RateLimit(d.RedisClient, d.Config.RedisKeyPrefix, d.Config.RateLimitMax, d.Config.RateLimitWindow))
	}
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}
	roomRoutes := api.Group("/rooms", middleware.Auth(d.AuthService))
	{
		roomRoutes.POST("", roomHandler.CreateRoom)
		roomRoutes.GET("/:roomId", roomHandler.GetRoom)
	}
	return router
}
