package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentmechat/internal/infra/config"
	"rentmechat/internal/infra/obs"
)

// NewRouter wires middleware, health checks and the chat routes under /api.
func NewRouter(env string, obsMW obs.Middleware, health obs.HealthHandlers, chat ChatHTTP) *gin.Engine {
	mode := configureGinMode(env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Type", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api")
	if chat != nil {
		api.POST("/conversations/find-or-create", chat.FindOrCreateConversation)
		api.GET("/messages/conversation/:id", chat.ListMessages)
		api.POST("/messages", chat.SendMessage)
	}
	return router
}

// NewServer wraps the router in an http.Server bound to cfg.HTTPAddr.
func NewServer(cfg config.Stub, obsMW obs.Middleware, health obs.HealthHandlers, chat ChatHTTP) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg.Env, obsMW, health, chat),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
