package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/lumenchat/lumen-backend/internal/cache"
	"github.com/lumenchat/lumen-backend/internal/handlers"
	"github.com/lumenchat/lumen-backend/internal/handlers/ws"
	"github.com/lumenchat/lumen-backend/internal/middleware"
	"github.com/lumenchat/lumen-backend/internal/repository"
	"github.com/lumenchat/lumen-backend/internal/service"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	app := fiber.New(fiber.Config{
		AppName: "Lumen Realtime Backend",
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize database connection
	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize Redis cache
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	redisCache := cache.NewRedisCache(redisAddr, redisPassword, redisDB)
	if err := redisCache.Ping(); err != nil {
		log.Printf("WARNING: Redis connection failed: %v. Running without cache.", err)
		redisCache = nil
	} else {
		log.Println("Redis cache connected successfully")
	}

	messageCache := cache.NewMessageCache(redisCache)
	presenceCache := cache.NewPresenceCache(redisCache)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	readStateRepo := repository.NewReadStateRepository(db)
	contactRepo := repository.NewContactRepository(db)

	// Initialize services
	userService := service.NewUserService(userRepo)
	chatService := service.NewChatService(chatRepo)
	messageService := service.NewMessageService(messageRepo, chatRepo)
	reactionService := service.NewReactionService(reactionRepo, messageRepo, chatRepo)
	readService := service.NewReadService(readStateRepo, messageRepo, chatRepo)

	// Realtime core: hub first, presence wired in after to break the cycle
	hub := ws.NewHub()
	channels := ws.NewChannelRegistry(hub)
	typing := ws.NewTypingCoordinator(channels, ws.DefaultTypingTTL)
	presence := ws.NewPresenceTracker(hub, userRepo, contactRepo, presenceCache, ws.DefaultOfflineGrace)
	hub.SetPresence(presence)

	// Initialize handlers
	wsHandler := handlers.NewWebSocketHandler(hub, channels, typing, presence,
		messageService, chatService, reactionService, readService, userService, messageCache)
	chatHandler := handlers.NewChatHandler(chatService, readService, messageCache)
	messageHandler := handlers.NewMessageHandler(messageService, readService, channels, messageCache)
	userHandler := handlers.NewUserHandler(userService, contactRepo, presenceCache)

	// Protected REST routes
	api := app.Group("/api", middleware.OriginAllowed())
	protected := api.Group("/", middleware.AuthRequired(), limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}))
	protected.Get("/users/me", userHandler.GetCurrentUser)
	protected.Get("/users/lookup", userHandler.LookupByUsername)
	protected.Get("/users/:id", userHandler.GetUser)
	protected.Get("/users/:id/presence", userHandler.GetPresence)
	protected.Get("/contacts", userHandler.GetContacts)
	protected.Get("/chats", chatHandler.GetMyChats)
	protected.Post("/chats", chatHandler.CreateChat)
	protected.Get("/chats/:id", chatHandler.GetChat)
	protected.Get("/chats/:id/participants", chatHandler.GetParticipants)
	protected.Get("/chats/:id/messages", messageHandler.GetChatMessages)
	protected.Post("/chats/:id/read", messageHandler.MarkChatRead)
	protected.Get("/chats/:id/read-state", messageHandler.GetReadState)

	// WebSocket route; authentication happens in-band via the first frame
	app.Use(
		"/ws",
		middleware.OriginAllowed(),
		func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ok",
			"connections": hub.Count(),
		})
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s...", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
