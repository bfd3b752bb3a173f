package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/oakhaven/storefront/apperrors"
	"github.com/oakhaven/storefront/models"
	"github.com/oakhaven/storefront/utils"
	"github.com/oakhaven/storefront/validation"
)

// ChatController relays the chat widget conversation to the completion service.
type ChatController struct {
	validator *validation.Validator
	completer utils.Completer
}

// NewChatController creates a new ChatController instance.
func NewChatController(v *validation.Validator, c utils.Completer) *ChatController {
	return &ChatController{validator: v, completer: c}
}

// Reply answers the latest turn of the conversation.
func (c *ChatController) Reply(ctx *gin.Context) {
	turns, ok := c.conversation(ctx)
	if !ok {
		return
	}
	reply, err := c.completer.Reply(ctx.Request.Context(), turns)
	if err != nil {
		reject(ctx, models.FormChat, completionError(err))
		return
	}
	accept(models.FormChat)
	utils.Success(ctx, "", gin.H{"reply": utils.SanitizeText(reply)})
}

// Summary condenses the conversation for attaching to a contact request.
func (c *ChatController) Summary(ctx *gin.Context) {
	turns, ok := c.conversation(ctx)
	if !ok {
		return
	}
	summary, err := c.completer.Summarize(ctx.Request.Context(), turns)
	if err != nil {
		reject(ctx, models.FormChat, completionError(err))
		return
	}
	accept(models.FormChat)
	utils.Success(ctx, "", gin.H{"summary": utils.SanitizeText(summary)})
}

// conversation validates and sanitizes the posted turns. It writes the error response itself.
func (c *ChatController) conversation(ctx *gin.Context) ([]models.ChatTurn, bool) {
	raw, err := bindJSONObject(ctx)
	if err != nil {
		reject(ctx, models.FormChat, err)
		return nil, false
	}
	if res := c.validator.Validate(models.FormChat, raw); !res.Valid {
		reject(ctx, models.FormChat, res.Err())
		return nil, false
	}

	clean, _ := utils.SanitizeObject(raw).(map[string]any)
	if res := c.validator.Validate(models.FormChat, clean); !res.Valid {
		reject(ctx, models.FormChat, res.Err())
		return nil, false
	}

	items, _ := clean["messages"].([]any)
	turns := make([]models.ChatTurn, 0, len(items))
	for _, item := range items {
		m, _ := item.(map[string]any)
		turns = append(turns, models.ChatTurn{
			Role:    stringField(m, "role"),
			Content: stringField(m, "content"),
		})
	}
	return turns, true
}

func completionError(err error) error {
	if errors.Is(err, utils.ErrCompletionUnavailable) {
		return apperrors.Unavailable(err)
	}
	return apperrors.Internal(err)
}
