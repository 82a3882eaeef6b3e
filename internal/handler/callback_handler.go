package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pinmarket/payment-service/internal/webhook"
)

// CallbackProcessor runs the settlement pipeline for one normalized callback
// and returns the redirect location.
type CallbackProcessor interface {
	HandleCallback(ctx context.Context, fields map[string]string, requestID string) string
}

// CallbackHandler terminates the provider webhook. The response is always a
// 302 to the storefront's success or failure page; the caller is a customer's
// browser mid-checkout, not an API client.
type CallbackHandler struct {
	callbacks CallbackProcessor
	logger    *zap.Logger
}

func NewCallbackHandler(callbacks CallbackProcessor, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{
		callbacks: callbacks,
		logger:    logger,
	}
}

func (h *CallbackHandler) HandleShopierCallback(c *gin.Context) {
	requestID := c.GetString("request_id")

	fields := webhook.Normalize(c.Request)
	location := h.callbacks.HandleCallback(c.Request.Context(), fields, requestID)

	c.Redirect(http.StatusFound, location)
}
