package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"chat-backend/internal/api/handlers"
	"chat-backend/internal/api/middleware"
	"chat-backend/internal/auth"
	"chat-backend/internal/services"
	"chat-backend/internal/storage"
	ws "chat-backend/internal/websocket"
)

type Router struct {
	engine          *gin.Engine
	gateway         *ws.Gateway
	authHandler     *handlers.AuthHandler
	chatHandler     *handlers.ChatHandler
	messageHandler  *handlers.MessageHandler
	fileHandler     *handlers.FileHandler
	presenceHandler *handlers.PresenceHandler
	rateLimitMW     *middleware.RateLimitMiddleware
	authMW          *middleware.AuthMiddleware
}

func NewRouter(
	gateway *ws.Gateway,
	pipeline *ws.Pipeline,
	authService *auth.Service,
	chatService *services.ChatService,
	messageService *services.MessageService,
	redisService *services.RedisService,
	verifier *auth.TokenVerifier,
	fileStore *storage.MinIOClient, // nil disables uploads
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi())

	var fileHandler *handlers.FileHandler
	var attachments handlers.AttachmentStore
	if fileStore != nil {
		fileHandler = handlers.NewFileHandler(fileStore, pipeline)
		attachments = fileStore
	}

	return &Router{
		engine:          engine,
		gateway:         gateway,
		authHandler:     handlers.NewAuthHandler(authService),
		chatHandler:     handlers.NewChatHandler(chatService, messageService, pipeline),
		messageHandler:  handlers.NewMessageHandler(pipeline, attachments),
		fileHandler:     fileHandler,
		presenceHandler: handlers.NewPresenceHandler(redisService),
		rateLimitMW:     middleware.NewRateLimitMiddleware(redisService),
		authMW:          middleware.NewAuthMiddleware(verifier),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.engine.Group("/api/v1")

	// The WebSocket endpoint authenticates via a query token during the
	// handshake, so it sits outside the header-based auth middleware.
	api.GET("/ws", r.gateway.HandleWebSocket)

	authed := api.Group("/")
	authed.Use(r.authMW.RequireAuth())
	{
		users := authed.Group("/users")
		users.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			users.GET("/search", r.authHandler.SearchUsers)
			users.GET("/online", r.presenceHandler.OnlineUsers)
			users.GET("/:id/online", r.presenceHandler.UserOnline)
		}

		authed.GET("/auth/me", r.authHandler.Profile)

		chats := authed.Group("/chats")
		chats.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			chats.POST("", r.chatHandler.CreateChat)
			chats.GET("", r.chatHandler.ListChats)
			chats.GET("/:id/members", r.chatHandler.ListMembers)
			chats.POST("/:id/members", r.chatHandler.AddMember)
			chats.DELETE("/:id/members/me", r.chatHandler.LeaveChat)
			chats.GET("/:id/messages", r.chatHandler.History)
			if r.fileHandler != nil {
				chats.POST("/:id/attachments", r.fileHandler.UploadAttachment)
			}
		}

		if r.fileHandler != nil {
			authed.GET("/files/*object", r.fileHandler.Download)
		}

		messages := authed.Group("/messages")
		messages.Use(r.rateLimitMW.RateLimit(200, time.Minute))
		{
			messages.PUT("/:id", r.messageHandler.UpdateMessage)
			messages.DELETE("/:id", r.messageHandler.DeleteMessage)
		}
	}

	public := api.Group("/auth")
	public.Use(r.rateLimitMW.RateLimitIP(50, time.Minute))
	{
		public.POST("/register", r.authHandler.Register)
		public.POST("/login", r.authHandler.Login)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
