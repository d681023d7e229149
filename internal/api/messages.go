package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Tyrowin/chatrelay/internal/history"
	"github.com/Tyrowin/chatrelay/internal/store"
)

type sendRequest struct {
	MessageText string `json:"messageText"`
}

// SendMessage archives a message authored by the token's user.
func (h *Handler) SendMessage(ctx *gin.Context) {
	var req sendRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	message, err := h.history.Send(ctx, claimsFrom(ctx).UserID, req.MessageText)
	switch {
	case errors.Is(err, history.ErrValidation):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Message text is required and must be at most 1000 characters"})
		return
	case errors.Is(err, history.ErrUnknownUser):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "User not found"})
		return
	case err != nil:
		h.internalError(ctx, "send message", err)
		return
	}
	ctx.JSON(http.StatusCreated, message)
}

func (h *Handler) ListMessages(ctx *gin.Context) {
	h.listMessages(ctx, store.Filter{})
}

func (h *Handler) ListUserMessages(ctx *gin.Context) {
	userID, err := strconv.ParseInt(ctx.Param("userId"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}
	h.listMessages(ctx, store.Filter{UserID: userID})
}

func (h *Handler) listMessages(ctx *gin.Context, filter store.Filter) {
	messages, err := h.history.List(ctx, filter)
	if err != nil {
		h.internalError(ctx, "list messages", err)
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	ctx.JSON(http.StatusOK, messages)
}

// DeleteMessage removes a message if the token's user wrote it.
func (h *Handler) DeleteMessage(ctx *gin.Context) {
	messageID, err := strconv.ParseInt(ctx.Param("messageId"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	err = h.history.Delete(ctx, messageID, claimsFrom(ctx).UserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
	case errors.Is(err, history.ErrForbidden):
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own messages"})
	case err != nil:
		h.internalError(ctx, "delete message", err)
	default:
		ctx.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
	}
}
