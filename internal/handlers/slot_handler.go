package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	domain "github.com/PsylineServices/psy-scheduler/internal/domain/booking"
	"github.com/PsylineServices/psy-scheduler/internal/httperr"
	"github.com/PsylineServices/psy-scheduler/internal/httpresp"
	"github.com/PsylineServices/psy-scheduler/internal/middleware"
	"github.com/PsylineServices/psy-scheduler/internal/models"
	"github.com/PsylineServices/psy-scheduler/internal/timezone"
)

// ======================================================
// HANDLER
// ======================================================

type SlotHandler struct {
	db    *gorm.DB
	slots domain.SlotRepository
}

func NewSlotHandler(db *gorm.DB, slots domain.SlotRepository) *SlotHandler {
	return &SlotHandler{db: db, slots: slots}
}

// ======================================================
// REQUESTS
// ======================================================

type CreateSlotsRequest struct {
	ServiceID uint     `json:"service_id" binding:"required"`
	Date      string   `json:"date" binding:"required"`  // YYYY-MM-DD
	Times     []string `json:"times" binding:"required"` // ["10:00", "11:00", ...]
}

// ======================================================
// HANDLERS
// ======================================================

// Create publishes free slots for a day. Overlap with any existing slot of
// the same psychologist is rejected up front; this is schedule hygiene, not
// the reservation race (that one is decided by the conditional update).
func (h *SlotHandler) Create(c *gin.Context) {
	psychologistID := c.MustGet(middleware.ContextUserID).(uint)

	var req CreateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid payload.")
		return
	}

	var user models.User
	if err := h.db.First(&user, psychologistID).Error; err != nil {
		httperr.Internal(c, "user_not_found", "User not found.")
		return
	}

	var svc models.ConsultService
	if err := h.db.
		Where("id = ? AND psychologist_id = ?", req.ServiceID, psychologistID).
		First(&svc).Error; err != nil {

		httperr.BadRequest(c, "service_not_found", "Service not found.")
		return
	}

	loc := timezone.Location(user.Timezone)

	created := make([]models.Slot, 0, len(req.Times))

	for _, t := range req.Times {
		start, err := time.ParseInLocation("2006-01-02 15:04", req.Date+" "+t, loc)
		if err != nil {
			httperr.BadRequest(c, "invalid_date_or_time", "Invalid date or time.")
			return
		}

		interval, err := domain.NewTimeSlot(
			start,
			start.Add(time.Duration(svc.DurationMin)*time.Minute),
		)
		if err != nil {
			httperr.BadRequest(c, "invalid_interval", "Invalid interval.")
			return
		}

		overlap, err := h.slots.HasOverlappingSlot(
			c.Request.Context(),
			psychologistID,
			interval.Start,
			interval.End,
		)
		if err != nil {
			httperr.Internal(c, "overlap_check_failed", "Could not validate slot.")
			return
		}
		if overlap {
			httperr.Conflict(c, "slot_overlap", "Slot overlaps an existing one.")
			return
		}

		slot := models.Slot{
			PsychologistID: psychologistID,
			ServiceID:      svc.ID,
			StartTime:      interval.Start,
			EndTime:        interval.End,
			State:          string(domain.SlotFree),
		}

		if err := h.slots.CreateSlot(c.Request.Context(), &slot); err != nil {
			httperr.Internal(c, "failed_to_create_slot", "Could not create slot.")
			return
		}

		created = append(created, slot)
	}

	c.JSON(201, gin.H{"slots": created, "total": len(created)})
}

func (h *SlotHandler) List(c *gin.Context) {
	psychologistID := c.MustGet(middleware.ContextUserID).(uint)

	var user models.User
	if err := h.db.First(&user, psychologistID).Error; err != nil {
		httperr.Internal(c, "user_not_found", "User not found.")
		return
	}

	loc := timezone.Location(user.Timezone)

	dateStr := c.Query("date")
	if dateStr == "" {
		httperr.BadRequest(c, "missing_params", "Date is required.")
		return
	}

	date, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		httperr.BadRequest(c, "invalid_date", "Invalid date.")
		return
	}

	slots, err := h.slots.ListSlots(
		c.Request.Context(),
		psychologistID,
		date,
		date.Add(24*time.Hour),
	)
	if err != nil {
		httperr.Internal(c, "failed_to_list_slots", "Could not list slots.")
		return
	}

	httpresp.List(c, slots)
}

// Delete removes a slot only while it is still free.
func (h *SlotHandler) Delete(c *gin.Context) {
	psychologistID := c.MustGet(middleware.ContextUserID).(uint)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid slot id.")
		return
	}

	ok, err := h.slots.DeleteFreeSlot(c.Request.Context(), uint(id), psychologistID)
	if err != nil {
		httperr.Internal(c, "failed_to_delete_slot", "Could not delete slot.")
		return
	}
	if !ok {
		httperr.Conflict(c, "slot_not_free", "Slot is reserved or does not exist.")
		return
	}

	c.Status(204)
}
