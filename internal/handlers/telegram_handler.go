package handlers

import (
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	tgmodels "github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	domain "github.com/PsylineServices/psy-scheduler/internal/domain/payment"
	"github.com/PsylineServices/psy-scheduler/internal/httperr"
	"github.com/PsylineServices/psy-scheduler/internal/httpresp"
	"github.com/PsylineServices/psy-scheduler/internal/timezone"
	"github.com/PsylineServices/psy-scheduler/internal/webhookauth"
)

// BotHandler reacts to a deduplicated Telegram update (commands, replies,
// notification callbacks).
type BotHandler interface {
	HandleUpdate(ctx context.Context, update *tgmodels.Update) error
}

// ======================================================
// HANDLER
// ======================================================

type TelegramHandler struct {
	verifier webhookauth.Verifier
	events   domain.WebhookEventRepository
	bot      BotHandler
	logger   *zap.Logger
}

func NewTelegramHandler(
	verifier webhookauth.Verifier,
	events domain.WebhookEventRepository,
	bot BotHandler,
	logger *zap.Logger,
) *TelegramHandler {
	return &TelegramHandler{
		verifier: verifier,
		events:   events,
		bot:      bot,
		logger:   logger,
	}
}

// HandleUpdate receives Telegram webhook deliveries. Telegram redelivers an
// update until it gets a 2xx, so updates are deduplicated by update_id the
// same way payment events are.
func (h *TelegramHandler) HandleUpdate(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httperr.BadRequest(c, "invalid_request", "Could not read body.")
		return
	}

	if res := h.verifier.Verify(c.Request, body); !res.OK {
		h.logger.Warn("webhook rejected",
			zap.String("provider", "telegram"),
			zap.String("reason", res.Reason),
		)
		httperr.Unauthorized(c, "invalid_secret_token", "Webhook token check failed.")
		return
	}

	var update tgmodels.Update
	if err := json.Unmarshal(body, &update); err != nil {
		httperr.BadRequest(c, "invalid_payload", "Could not decode update.")
		return
	}
	if update.ID == 0 {
		httperr.BadRequest(c, "invalid_payload", "Update id is required.")
		return
	}

	ctx := c.Request.Context()
	eventID := strconv.FormatInt(update.ID, 10)

	isNew, err := h.events.MarkReceived(ctx, "telegram", eventID, "update", string(body))
	if err != nil {
		httperr.Internal(c, "dedup_failed", "Could not record update.")
		return
	}
	if !isNew {
		processed, perr := h.events.IsProcessed(ctx, "telegram", eventID)
		if perr != nil {
			httperr.Internal(c, "dedup_failed", "Could not check update.")
			return
		}
		if processed {
			httpresp.OK(c, gin.H{"outcome": "already_processed"})
			return
		}
		// received but never finished: fall through and reprocess
	}

	if h.bot != nil {
		if err := h.bot.HandleUpdate(ctx, &update); err != nil {
			h.logger.Error("telegram update failed",
				zap.Int64("update_id", update.ID),
				zap.Error(err),
			)
			httperr.Internal(c, "update_failed", "Could not process update.")
			return
		}
	}

	if err := h.events.MarkProcessed(ctx, "telegram", eventID, timezone.Now()); err != nil {
		httperr.Internal(c, "update_failed", "Could not finish update.")
		return
	}

	httpresp.OK(c, gin.H{"outcome": "processed"})
}
