package handlers

import (
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/PsylineServices/psy-scheduler/internal/httperr"
	"github.com/PsylineServices/psy-scheduler/internal/httpresp"
	"github.com/PsylineServices/psy-scheduler/internal/idempotency"
	"github.com/PsylineServices/psy-scheduler/internal/models"
	"github.com/PsylineServices/psy-scheduler/internal/timezone"
	ucBooking "github.com/PsylineServices/psy-scheduler/internal/usecase/booking"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// ======================================================
// HANDLER
// ======================================================

type PublicHandler struct {
	db             *gorm.DB
	availabilityUC *ucBooking.ListAvailableSlots
	createUC       *ucBooking.CreateAppointment
	guard          *idempotency.Guard
	logger         *zap.Logger
}

func NewPublicHandler(
	db *gorm.DB,
	availabilityUC *ucBooking.ListAvailableSlots,
	createUC *ucBooking.CreateAppointment,
	guard *idempotency.Guard,
	logger *zap.Logger,
) *PublicHandler {
	return &PublicHandler{
		db:             db,
		availabilityUC: availabilityUC,
		createUC:       createUC,
		guard:          guard,
		logger:         logger,
	}
}

// ======================================================
// REQUESTS
// ======================================================

type CreateBookingRequest struct {
	ServiceID uint `json:"service_id" binding:"required"`
	SlotID    uint `json:"slot_id" binding:"required"`

	ClientName  string `json:"client_name" binding:"required"`
	ClientPhone string `json:"client_phone" binding:"required"`
	ClientEmail string `json:"client_email"`

	Notes string `json:"notes"`
}

// ======================================================
// CATALOG
// ======================================================

func (h *PublicHandler) ListServices(c *gin.Context) {
	var services []models.ConsultService
	if err := h.db.
		Where("active = ?", true).
		Order("id ASC").
		Find(&services).Error; err != nil {

		httperr.Internal(c, "failed_to_list_services", "Could not list services.")
		return
	}

	httpresp.List(c, services)
}

func (h *PublicHandler) Availability(c *gin.Context) {
	serviceID, err := strconv.ParseUint(c.Query("service_id"), 10, 64)
	if err != nil {
		httperr.BadRequest(c, "invalid_service", "Service id is required.")
		return
	}

	dateStr := c.Query("date")
	date, err := time.ParseInLocation(
		"2006-01-02",
		dateStr,
		timezone.Location(timezone.DefaultTimezone),
	)
	if err != nil {
		httperr.BadRequest(c, "invalid_date", "Date is required (YYYY-MM-DD).")
		return
	}

	slots, err := h.availabilityUC.Execute(c.Request.Context(), uint(serviceID), date)
	if err != nil {
		if httperr.IsBusiness(err, "service_not_found") {
			httperr.NotFound(c, "service_not_found", "Service not found.")
			return
		}
		httperr.Internal(c, "availability_failed", "Could not load availability.")
		return
	}

	httpresp.List(c, slots)
}

// ======================================================
// BOOKING
// ======================================================

// CreateAppointment books a slot for a client. When the Idempotency-Key
// header is present, a retry with the same key and payload replays the
// stored response; the same key with a different payload is a conflict.
func (h *PublicHandler) CreateAppointment(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httperr.BadRequest(c, "invalid_request", "Could not read body.")
		return
	}

	var req CreateBookingRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid payload.")
		return
	}
	if req.ServiceID == 0 || req.SlotID == 0 || req.ClientName == "" || req.ClientPhone == "" {
		httperr.BadRequest(c, "missing_fields", "Service, slot, name and phone are required.")
		return
	}

	key := c.GetHeader(IdempotencyKeyHeader)
	bodyHash := idempotency.HashBody(body)

	if key != "" {
		rec, err := h.guard.Check(c.Request.Context(), key)
		if err != nil {
			httperr.Internal(c, "idempotency_check_failed", "Could not check idempotency key.")
			return
		}
		if rec != nil {
			if rec.RequestHash != bodyHash {
				httperr.Conflict(c, "idempotency_key_conflict", "Idempotency key already used with a different payload.")
				return
			}
			c.Data(rec.StatusCode, "application/json", []byte(rec.Result))
			return
		}
	}

	ap, err := h.createUC.Execute(c.Request.Context(), ucBooking.CreateAppointmentInput{
		ServiceID:   req.ServiceID,
		SlotID:      req.SlotID,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		ClientEmail: req.ClientEmail,
		Notes:       req.Notes,
	})
	if err != nil {
		h.writeCreateError(c, err)
		return
	}

	status := 201
	if key != "" {
		raw, merr := json.Marshal(ap)
		if merr == nil {
			if serr := h.guard.Save(c.Request.Context(), key, bodyHash, status, string(raw)); serr != nil {
				// the booking itself succeeded; a failed save only costs
				// replay protection for this key
				h.logger.Warn("idempotency save failed",
					zap.String("key", key),
					zap.Error(serr),
				)
			}
		}
	}

	c.JSON(status, ap)
}

// Business failures of the booking flow are expected outcomes, not server
// errors: a lost slot race is a 409, a stale catalog a 404.
func (h *PublicHandler) writeCreateError(c *gin.Context, err error) {
	switch {
	case httperr.IsBusiness(err, "service_not_found"):
		httperr.NotFound(c, "service_not_found", "Service not found.")
	case httperr.IsBusiness(err, "slot_not_found"):
		httperr.NotFound(c, "slot_not_found", "Slot not found.")
	case httperr.IsBusiness(err, "slot_service_mismatch"):
		httperr.BadRequest(c, "slot_service_mismatch", "Slot does not belong to this service.")
	case httperr.IsBusiness(err, "too_soon"):
		httperr.Conflict(c, "too_soon", "Slot starts too soon to be booked.")
	case httperr.IsBusiness(err, "slot_taken"):
		httperr.Conflict(c, "slot_taken", "Slot is no longer available.")
	default:
		h.logger.Error("booking failed", zap.Error(err))
		httperr.Internal(c, "booking_failed", "Could not create appointment.")
	}
}
