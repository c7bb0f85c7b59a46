package handlers

import (
	"context"
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Harishreddyyarramada/novawrite-realtime/internal/chat"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/middleware"
)

// MediaStore uploads a chat image and returns the (url, public id) pair the
// resulting image message carries.
type MediaStore interface {
	Upload(ctx context.Context, filename, contentType string, data []byte) (mediaURL, publicID string, err error)
}

type ChatHandler struct {
	svc       *chat.Service
	media     MediaStore
	maxUpload int
	log       *zap.SugaredLogger
}

func NewChatHandler(svc *chat.Service, media MediaStore, maxUpload int, log *zap.SugaredLogger) *ChatHandler {
	return &ChatHandler{svc: svc, media: media, maxUpload: maxUpload, log: log}
}

func (h *ChatHandler) StartConversation(c *fiber.Ctx) error {
	var body struct {
		UserID string `json:"userId"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	view, err := h.svc.StartConversation(c.Context(), middleware.UserID(c), body.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	views, err := h.svc.ListConversations(c.Context(), middleware.UserID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(views)
}

func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	msgs, err := h.svc.ListMessages(c.Context(), c.Params("conversationId"), middleware.UserID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(msgs)
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var in chat.SendMessageInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	msg, err := h.svc.SendMessage(c.Context(), middleware.UserID(c), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(msg)
}

func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.svc.MarkRead(c.Context(), c.Params("conversationId"), middleware.UserID(c)); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "marked as read"})
}

func (h *ChatHandler) DeleteConversation(c *fiber.Ctx) error {
	if err := h.svc.DeleteConversation(c.Context(), c.Params("conversationId"), middleware.UserID(c)); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "conversation deleted"})
}

func (h *ChatHandler) UploadImage(c *fiber.Ctx) error {
	if h.media == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"message": "media upload not configured"})
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "image is required"})
	}
	if h.maxUpload > 0 && fh.Size > int64(h.maxUpload) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "image too large"})
	}

	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "unreadable upload"})
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "unreadable upload"})
	}

	mediaURL, publicID, err := h.media.Upload(c.Context(), fh.Filename, fh.Header.Get("Content-Type"), data)
	if err != nil {
		h.log.Errorw("media upload failed", "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "upload failed"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"mediaUrl":      mediaURL,
		"mediaPublicId": publicID,
	})
}

func (h *ChatHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, chat.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, chat.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "user not found"})
	case errors.Is(err, chat.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "conversation not found"})
	default:
		h.log.Errorw("chat request failed", "path", c.Path(), "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal error"})
	}
}
