package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cutwerk/inventory-service/internal/reconcile"
)

// SignatureHeader carries the claimed HMAC of the webhook body.
const SignatureHeader = "X-Shopify-Hmac-Sha256"

// maxBodyBytes caps the webhook body read. Order payloads are a few KB;
// anything near the cap is not a legitimate event.
const maxBodyBytes = 1 << 20

type OrderProcessor interface {
	Process(ctx context.Context, rawBody []byte, claim string) error
}

type WebhookHandler struct {
	processor OrderProcessor
	logger    *zap.Logger
}

func NewWebhookHandler(processor OrderProcessor, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		logger:    logger,
	}
}

// HandleOrderPaid receives an orders/paid event. The body is read verbatim
// and handed to the processor unparsed; verification happens on the exact
// bytes received. Non-2xx tells the source to redeliver.
func (h *WebhookHandler) HandleOrderPaid(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("Failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unreadable body",
			"code":  "malformed",
		})
		return
	}

	claim := c.GetHeader(SignatureHeader)

	err = h.processor.Process(c.Request.Context(), body, claim)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "accepted"})

	case errors.Is(err, reconcile.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid signature",
			"code":  "unauthorized",
		})

	case errors.Is(err, reconcile.ErrMalformed):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Malformed event",
			"code":  "malformed",
		})

	case errors.Is(err, reconcile.ErrNotFound):
		h.logger.Error("Event failed, inventory item unresolved", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Inventory item not found",
			"code":  "not_found",
		})

	default:
		h.logger.Error("Event failed upstream", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Upstream store failure",
			"code":  "upstream_failure",
		})
	}
}
