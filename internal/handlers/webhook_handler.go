package handlers

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PsylineServices/psy-scheduler/internal/httperr"
	"github.com/PsylineServices/psy-scheduler/internal/httpresp"
	ucPayment "github.com/PsylineServices/psy-scheduler/internal/usecase/payment"
	"github.com/PsylineServices/psy-scheduler/internal/webhookauth"
)

// ======================================================
// HANDLER
// ======================================================

type WebhookHandler struct {
	verifier    webhookauth.Verifier
	reconcileUC *ucPayment.ReconcileWebhook
	logger      *zap.Logger
}

func NewWebhookHandler(
	verifier webhookauth.Verifier,
	reconcileUC *ucPayment.ReconcileWebhook,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		verifier:    verifier,
		reconcileUC: reconcileUC,
		logger:      logger,
	}
}

// ======================================================
// PROVIDER PAYLOAD
// ======================================================

// yookassaEvent is the provider notification shape: an event name plus the
// payment object it concerns.
type yookassaEvent struct {
	ID     string `json:"id"`
	Event  string `json:"event"`
	Object struct {
		ID     string `json:"id"`
		Status string `json:"status"`

		CancellationDetails struct {
			Reason string `json:"reason"`
		} `json:"cancellation_details"`
	} `json:"object"`
}

// ======================================================
// ENDPOINT
// ======================================================

// HandleYookassa is the payment reconciliation endpoint. Responses follow
// the provider's retry contract: 2xx acknowledges, anything else is retried.
func (h *WebhookHandler) HandleYookassa(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httperr.BadRequest(c, "invalid_request", "Could not read body.")
		return
	}

	if res := h.verifier.Verify(c.Request, body); !res.OK {
		h.logger.Warn("webhook rejected",
			zap.String("provider", "yookassa"),
			zap.String("reason", res.Reason),
		)
		httperr.Unauthorized(c, "invalid_signature", "Webhook signature check failed.")
		return
	}

	var ev yookassaEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		httperr.BadRequest(c, "invalid_payload", "Could not decode event.")
		return
	}
	if ev.Event == "" || ev.Object.ID == "" {
		httperr.BadRequest(c, "invalid_payload", "Event and payment id are required.")
		return
	}

	// Not every provider sends a notification id; the (payment, event)
	// pair still identifies the delivery for dedup.
	eventID := ev.ID
	if eventID == "" {
		eventID = ev.Object.ID + ":" + ev.Event
	}

	outcome, err := h.reconcileUC.Execute(c.Request.Context(), ucPayment.WebhookInput{
		Provider:          "yookassa",
		EventID:           eventID,
		EventType:         ev.Event,
		ProviderPaymentID: ev.Object.ID,
		Status:            ev.Object.Status,
		FailureCategory:   ev.Object.CancellationDetails.Reason,
		RawPayload:        string(body),
	})
	if err != nil {
		// 5xx so the provider redelivers; every step on the retry path
		// is idempotent
		h.logger.Error("webhook reconciliation failed",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
		httperr.Internal(c, "reconcile_failed", "Could not process event.")
		return
	}

	switch outcome {
	case ucPayment.OutcomeUnknownPayment:
		// acknowledged but left unprocessed so it stays visible for
		// investigation
		httpresp.Accepted(c, gin.H{"outcome": string(outcome)})
	default:
		httpresp.OK(c, gin.H{"outcome": string(outcome)})
	}
}
