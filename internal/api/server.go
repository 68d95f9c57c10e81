package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/conversation-service/internal/auth"
	"github.com/fathima-sithara/conversation-service/internal/service"
	"github.com/fathima-sithara/conversation-service/internal/ws"
)

// NewServer builds the fiber app with the /v1 operation surface behind
// JWT auth.
func NewServer(
	jv *auth.JWTValidator,
	convSvc *service.ConversationService,
	msgSvc *service.MessageService,
	reactSvc *service.ReactionService,
	wsrv *ws.Server,
	log *zap.SugaredLogger,
) *fiber.App {
	app := fiber.New()
	app.Use(fiberlogger.New())

	h := &Handlers{convs: convSvc, msgs: msgSvc, reactions: reactSvc, log: log}

	api := app.Group("/v1")
	api.Use(JWTAuthMiddleware(jv))

	api.Get("/conversations", h.listConversations)
	api.Post("/conversations", h.createConversation)
	api.Get("/conversations/:id", h.getConversation)
	api.Post("/conversations/direct/:user_id", h.findOrCreateDirect)
	api.Post("/conversations/:id/mute", h.muteConversation)
	api.Post("/conversations/:id/archive", h.archiveConversation)
	api.Delete("/conversations/:id", h.deleteConversation)
	api.Post("/conversations/:id/read", h.markConversationRead)
	api.Get("/conversations/:id/messages", h.listMessages)
	api.Get("/conversations/:id/messages/search", h.searchMessages)
	api.Get("/conversations/:id/media", h.listMedia)

	api.Post("/messages", h.sendMessage)
	api.Get("/messages/:msg_id", h.getMessage)
	api.Patch("/messages/:msg_id", h.editMessage)
	api.Delete("/messages/:msg_id", h.deleteMessage)
	api.Post("/messages/:msg_id/read", h.markRead)
	api.Post("/messages/:msg_id/like", h.toggleLike)
	api.Post("/messages/:msg_id/save", h.toggleSave)
	api.Get("/messages/:msg_id/reactions", h.listReactions)
	api.Post("/messages/:msg_id/reactions", h.addReaction)
	api.Delete("/messages/:msg_id/reactions", h.removeReaction)

	api.Get("/unread-count", h.unreadCount)

	if wsrv != nil {
		api.Get("/ws", websocket.New(wsrv.HandleWS))
	}

	return app
}

func JWTAuthMiddleware(jv *auth.JWTValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get("Authorization")
		if h == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing auth"})
		}
		const pref = "Bearer "
		if !strings.HasPrefix(h, pref) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid auth"})
		}
		sub, err := jv.Validate(h[len(pref):])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}
		c.Locals("user_id", sub)
		return c.Next()
	}
}
