package main

import (
	"github.com/gin-gonic/gin"

	"relaychat/internal/handlers"
	"relaychat/internal/middleware"
	"relaychat/pkg/auth"
)

type Deps struct {
	Auth         *handlers.AuthHandler
	User         *handlers.UserHandler
	Conversation *handlers.ConversationHandler
	Message      *handlers.MessageHandler
	Upload       *handlers.UploadHandler
	WS           *handlers.WebSocketHandler

	Sessions *auth.SessionManager
	Limiter  *middleware.RateLimiter

	UploadsDir  string
	UploadsPath string
}

func APIEndpoints(r *gin.Engine, d *Deps) {
	// Credential endpoints, optionally rate limited.
	authGroup := r.Group("/api/auth")
	if d.Limiter != nil {
		authGroup.POST("/register", d.Limiter.Middleware(), d.Auth.Register)
		authGroup.POST("/login", d.Limiter.Middleware(), d.Auth.Login)
	} else {
		authGroup.POST("/register", d.Auth.Register)
		authGroup.POST("/login", d.Auth.Login)
	}
	authGroup.POST("/logout", d.Auth.Logout)

	// Session-scoped API.
	api := r.Group("/api", middleware.AuthMiddleware(d.Sessions))
	{
		api.GET("/auth/me", d.Auth.Me)
		api.PUT("/auth/profile", d.Auth.UpdateProfile)

		api.GET("/users/search", d.User.SearchUsers)

		api.GET("/conversations", d.Conversation.List)
		api.POST("/conversations", d.Conversation.Create)
		api.POST("/conversations/:id/participants", d.Conversation.AddParticipants)
		api.DELETE("/conversations/:id/participants", d.Conversation.RemoveParticipant)

		api.GET("/conversations/:id/messages", d.Message.List)
		api.POST("/conversations/:id/messages", d.Message.Send)

		api.POST("/upload", d.Upload.Upload)
	}

	// The socket starts anonymous; identity arrives via the
	// authenticate event.
	r.GET("/ws", d.WS.HandleWebSocket)

	r.Static(d.UploadsPath, d.UploadsDir)
}
