// Package http maps the chat engine onto its HTTP surface: room pages,
// session management, message posting, votes, and the live event streams.
package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sampsyo/band/internal/app"
	"github.com/sampsyo/band/internal/config"
)

// ClientTokenMiddleware tags every browser with a stable cookie token so
// log lines from one client correlate across requests.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, dispatcher *app.Dispatcher) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("BandSessions", store))
	r.Use(ClientTokenMiddleware())

	ctl := &Controller{
		Dispatcher: dispatcher,
		Config:     cfg,
		Limiter:    NewPostRateLimiter(cfg.PostRateLimit, cfg.PostRateWindow),
	}

	r.Static("/static", cfg.StaticPath)
	r.GET("/", ctl.handleIndex)
	r.POST("/", ctl.handleCreateRoom)

	room := r.Group("/:room")
	room.GET("", ctl.handleRoomPage)
	room.GET("/history", ctl.handleHistory)
	room.POST("/session", ctl.handleCreateSession)
	room.GET("/session", ctl.handleGetSession)
	room.PUT("/session", ctl.handleRenameSession)
	room.POST("/message", ctl.handlePostMessage)
	room.POST("/message/:msg/vote", ctl.handleVote)
	room.GET("/votes", ctl.handleVotes)
	room.GET("/chat", func(c *gin.Context) { ctl.handleSSE(ctx, c) })
	room.GET("/ws", func(c *gin.Context) { ctl.handleWS(ctx, c) })

	log.Info().Str("module", "transport.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}
