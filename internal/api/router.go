// Package api exposes the REST surface and mounts the WebSocket relay on a
// gin engine.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Tyrowin/chatrelay/internal/auth"
	"github.com/Tyrowin/chatrelay/internal/history"
	"github.com/Tyrowin/chatrelay/internal/server"
)

type Deps struct {
	Auth    *auth.Service
	Tokens  *auth.Tokens
	History *history.Service
	Relay   *server.Relay
	Log     *slog.Logger
}

type Handler struct {
	auth    *auth.Service
	tokens  *auth.Tokens
	history *history.Service
	log     *slog.Logger
}

// NewRouter wires middleware, REST routes and the relay endpoints.
func NewRouter(deps Deps) *gin.Engine {
	h := &Handler{auth: deps.Auth, tokens: deps.Tokens, history: deps.History, log: deps.Log}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(deps.Log))
	r.Use(CORS("/api"))

	r.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})

	r.GET("/", gin.WrapF(server.HealthHandler))
	r.GET("/test", gin.WrapF(server.TestPageHandler))
	r.Any(server.WebSocketPath, gin.WrapF(deps.Relay.ServeWS))
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"online": deps.Relay.Hub().Registry().Count(),
		})
	})

	api := r.Group("/api")
	registerUserRoutes(api.Group("/users"), h)
	registerMessageRoutes(api.Group("/messages"), h)

	return r
}

func registerUserRoutes(r *gin.RouterGroup, h *Handler) {
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.GET("/:username", h.GetUser)
}

func registerMessageRoutes(r *gin.RouterGroup, h *Handler) {
	requireAuth := BearerAuth(h.tokens)

	r.GET("", h.ListMessages)
	r.GET("/user/:userId", h.ListUserMessages)
	r.POST("", requireAuth, h.SendMessage)
	r.DELETE("/:messageId", requireAuth, h.DeleteMessage)
}
