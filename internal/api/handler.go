package api

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/conversation-service/internal/service"
)

const requestTimeout = 5 * time.Second

type Handlers struct {
	convs     *service.ConversationService
	msgs      *service.MessageService
	reactions *service.ReactionService
	log       *zap.SugaredLogger
}

func (h *Handlers) fail(c *fiber.Ctx, op string, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, service.ErrUnauthorized):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "unauthorized"})
	case errors.Is(err, service.ErrInvalidOperation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid operation"})
	}
	h.log.Errorw(op, "err", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}

func userID(c *fiber.Ctx) string {
	u, _ := c.Locals("user_id").(string)
	return u
}

func pagination(c *fiber.Ctx) (skip, limit int64) {
	skip, _ = strconv.ParseInt(c.Query("skip", "0"), 10, 64)
	limit, _ = strconv.ParseInt(c.Query("limit", "50"), 10, 64)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}
	return skip, limit
}

func requestCtx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), requestTimeout)
}

// conversations

func (h *Handlers) listConversations(c *fiber.Ctx) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	skip, limit := pagination(c)
	views, err := h.convs.ListForUser(ctx, userID(c), skip, limit)
	if err != nil {
		return h.fail(c, "list conversations", err)
	}
	return c.JSON(fiber.Map{"status": "ok", "data": views})
}

func (h *Handlers) createConversation(c *fiber.Ctx) error {
	var in service.CreateConversationInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	view, err := h.convs.Create(ctx, in, userID(c))
	if err != nil {
		return h.fail(c, "create conversation", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "ok", "data": view})
}

func (h *Handlers) getConversation(c *fiber.Ctx) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	view, err := h.convs.GetByID(ctx, c.Params("id"), userID(c))
	if err != nil {
		return h.fail(c, "get conversation", err)
	}
	return c.JSON(fiber.Map{"status": "ok", "data": view})
}

func (h *Handlers) findOrCreateDirect(c *fiber.Ctx) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	view, err := h.convs.FindOrCreateDirect(ctx, userID(c), c.Params("user_id"))
	if err != nil {
		return h.fail(c, "find or create direct", err)
	}
	return c.JSON(fiber.Map{"status": "ok", "data": view})
}

func (h *Handlers) muteConversation(c *fiber.Ctx) error {
	var body struct {
		Muted bool `json:"muted"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.convs.Mute(ctx, c.Params("id"), userID(c), body.Muted); err != nil {
		return h.fail(c, "mute conversation", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handlers) archiveConversation(c *fiber.Ctx) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.convs.Archive(ctx, c.Params("id"), userID(c)); err != nil {
		return h.fail(c, "archive conversation", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handlers) deleteConversation(c *fiber.Ctx) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.convs.Delete(ctx, c.Params("id"), userID(c)); err != nil {
		return h.fail(c, "delete conversation", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handlers) markConversationRead(c *fiber.Ctx) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.msgs.MarkConversationRead(ctx, c.Params("id"), userID(c)); err != nil {
		return h.fail(c, "mark conversation read", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handlers) listMessages(c *fiber.Ctx) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	skip, limit := pagination(c)
	views, err := h.msgs.List(ctx, c.Params("id"), userID(c), skip, limit)
	if err != nil {
		return h.fail(c, "list messages", err)
	}
	return c.JSON(fiber.Map{"status": "ok", "data": views})
}

func (h *Handlers) searchMessages(c *fiber.Ctx) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	skip, limit := pagination(c)
	views, err := h.msgs.Search(ctx, c.Params("id"), userID(c), c.Query("q"), skip, limit)
	if err != nil {
		return h.fail(c, "search messages", err)
	}
	return c.JSON(fiber.Map{"status": "ok", "data": views})
}

func (h *Handlers) listMedia(c *fiber.Ctx) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	skip, limit := pagination(c)
	views, err := h.msgs.ListMedia(ctx, c.Params("id"), userID(c), skip, limit)
	if err != nil {
		return h.fail(c, "list media", err)
	}
	return c.JSON(fiber.Map{"status": "ok", "data": views})
}

// messages

func (h *Handlers) sendMessage(c *fiber.Ctx) error {
	var in service.SendMessageInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	view, err := h.msgs.Send(ctx, in, userID(c))
	if err != nil {
		return h.fail(c, "send message", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "ok", "data": view})
}

func (h *Handlers) getMessage(c *fiber.Ctx) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	view, err := h.msgs.Get(ctx, c.Params("msg_id"), userID(c))
	if err != nil {
		return h.fail(c, "get message", err)
	}
	return c.JSON(fiber.Map{"status": "ok", "data": view})
}

func (h *Handlers) editMessage(c *fiber.Ctx) error {
	var body struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	view, err := h.msgs.Edit(ctx, c.Params("msg_id"), userID(c), body.Content)
	if err != nil {
		return h.fail(c, "edit message", err)
	}
	return c.JSON(fiber.Map{"status": "ok", "data": view})
}

func (h *Handlers) deleteMessage(c *fiber.Ctx) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.msgs.Delete(ctx, c.Params("msg_id"), userID(c)); err != nil {
		return h.fail(c, "delete message", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handlers) markRead(c *fiber.Ctx) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.msgs.MarkRead(ctx, c.Params("msg_id"), userID(c)); err != nil {
		return h.fail(c, "mark read", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handlers) toggleLike(c *fiber.Ctx) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.msgs.ToggleLike(ctx, c.Params("msg_id"), userID(c)); err != nil {
		return h.fail(c, "toggle like", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handlers) toggleSave(c *fiber.Ctx) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.msgs.ToggleSave(ctx, c.Params("msg_id"), userID(c)); err != nil {
		return h.fail(c, "toggle save", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// reactions

func (h *Handlers) listReactions(c *fiber.Ctx) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	views, err := h.reactions.List(ctx, c.Params("msg_id"))
	if err != nil {
		return h.fail(c, "list reactions", err)
	}
	return c.JSON(fiber.Map{"status": "ok", "data": views})
}

func (h *Handlers) addReaction(c *fiber.Ctx) error {
	var body struct {
		Type string `json:"reaction_type"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	in := service.AddReactionInput{MessageID: c.Params("msg_id"), Type: body.Type}
	view, err := h.reactions.Add(ctx, in, userID(c))
	if err != nil {
		return h.fail(c, "add reaction", err)
	}
	// nil view means the reaction toggled off
	return c.JSON(fiber.Map{"status": "ok", "data": view})
}

func (h *Handlers) removeReaction(c *fiber.Ctx) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.reactions.Remove(ctx, c.Params("msg_id"), userID(c)); err != nil {
		return h.fail(c, "remove reaction", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// unread

func (h *Handlers) unreadCount(c *fiber.Ctx) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	n, err := h.msgs.CountUnread(ctx, userID(c), c.Query("conversation_id"))
	if err != nil {
		return h.fail(c, "count unread", err)
	}
	return c.JSON(fiber.Map{"status": "ok", "count": n})
}
