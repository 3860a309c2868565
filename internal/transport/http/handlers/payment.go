package handlers

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-reading/internal/usecase"
)

const paystackSignatureHeader = "x-paystack-signature"

// paystackEvent is the subset of the Paystack webhook payload the service
// consumes. The user id travels in the transaction metadata set at
// initialization time.
type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Metadata  struct {
			UserID string `json:"user_id"`
		} `json:"metadata"`
		Customer struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// PaymentHandler receives payment provider webhooks and flips the payment
// gate on confirmed charges.
type PaymentHandler struct {
	payments      *usecase.PaymentService
	webhookSecret string
	logger        *zap.Logger
}

// NewPaymentHandler constructs a payment webhook handler.
func NewPaymentHandler(payments *usecase.PaymentService, webhookSecret string, logger *zap.Logger) *PaymentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentHandler{payments: payments, webhookSecret: webhookSecret, logger: logger}
}

// RegisterRoutes binds the webhook route. The route is unauthenticated; the
// HMAC signature over the raw body is the caller's proof of identity.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.POST("/webhook", h.PaystackWebhook)
}

// PaystackWebhook verifies the provider signature and, on charge.success,
// marks the referenced account as paid. Unknown event types are acknowledged
// without action so the provider stops retrying them.
func (h *PaymentHandler) PaystackWebhook(c *gin.Context) {
	if h.payments == nil || h.webhookSecret == "" {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "payment webhook unavailable"))
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "failed to read request body"))
		return
	}

	if !h.validSignature(body, c.GetHeader(paystackSignatureHeader)) {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid signature"))
		return
	}

	var event paystackEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "malformed event payload"))
		return
	}

	if event.Event != "charge.success" {
		c.JSON(http.StatusOK, MessageResponse{Message: "event ignored"})
		return
	}

	userID := strings.TrimSpace(event.Data.Metadata.UserID)
	if userID == "" {
		h.logger.Warn("charge.success without user metadata",
			zap.String("reference", event.Data.Reference))
		c.JSON(http.StatusOK, MessageResponse{Message: "event ignored"})
		return
	}

	if err := h.payments.ConfirmPayment(c.Request.Context(), userID, event.Data.Reference); err != nil {
		if errors.Is(err, usecase.ErrAccountNotFound) {
			// Acknowledge so the provider stops retrying a charge we can
			// never attribute.
			h.logger.Warn("payment for unknown account",
				zap.String("user_id", userID),
				zap.String("reference", event.Data.Reference))
			c.JSON(http.StatusOK, MessageResponse{Message: "account not found, event ignored"})
			return
		}
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to record payment")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "ok"})
}

func (h *PaymentHandler) validSignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(h.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
