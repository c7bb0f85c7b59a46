package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"

	"github.com/Harishreddyyarramada/novawrite-realtime/internal/config"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/handlers"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/metrics"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/middleware"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/ws"
)

// NewServer assembles the fiber app: websocket endpoint, chat REST API,
// health and metrics.
func NewServer(cfg *config.Config, wsSrv *ws.Server, chatHandler *handlers.ChatHandler, limiter *middleware.RateLimiter) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Chat.MaxUploadBytes + 1024,
	})
	app.Use(fiberlogger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsSrv.HandleWS()))

	chatAPI := app.Group("/api/chat", middleware.JWTAuth(cfg.App.JWTSecret))
	chatAPI.Post("/conversation", chatHandler.StartConversation)
	chatAPI.Get("/conversations", chatHandler.ListConversations)
	chatAPI.Get("/messages/:conversationId", chatHandler.ListMessages)
	chatAPI.Post("/messages", limiter.MiddlewareByKey(middleware.UserID), chatHandler.SendMessage)
	chatAPI.Post("/messages/upload", chatHandler.UploadImage)
	chatAPI.Patch("/messages/:conversationId/read", chatHandler.MarkRead)
	chatAPI.Delete("/conversation/:conversationId", chatHandler.DeleteConversation)

	return app
}
