package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PsylineServices/psy-scheduler/internal/httperr"
	"github.com/PsylineServices/psy-scheduler/internal/httpresp"
	"github.com/PsylineServices/psy-scheduler/internal/middleware"
	"github.com/PsylineServices/psy-scheduler/internal/timezone"
	ucBooking "github.com/PsylineServices/psy-scheduler/internal/usecase/booking"
	ucPayment "github.com/PsylineServices/psy-scheduler/internal/usecase/payment"
)

// ======================================================
// HANDLER
// ======================================================

type AppointmentHandler struct {
	cancelUC      *ucBooking.CancelAppointment
	completeUC    *ucBooking.CompleteAppointment
	listByDateUC  *ucBooking.ListAppointmentsByDate
	listByMonthUC *ucBooking.ListAppointmentsByMonth
	intentUC      *ucPayment.CreateIntent
}

func NewAppointmentHandler(
	cancelUC *ucBooking.CancelAppointment,
	completeUC *ucBooking.CompleteAppointment,
	listByDateUC *ucBooking.ListAppointmentsByDate,
	listByMonthUC *ucBooking.ListAppointmentsByMonth,
	intentUC *ucPayment.CreateIntent,
) *AppointmentHandler {
	return &AppointmentHandler{
		cancelUC:      cancelUC,
		completeUC:    completeUC,
		listByDateUC:  listByDateUC,
		listByMonthUC: listByMonthUC,
		intentUC:      intentUC,
	}
}

// ======================================================
// REQUESTS
// ======================================================

type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

// ======================================================
// LISTS
// ======================================================

func (h *AppointmentHandler) ListByDate(c *gin.Context) {
	psychologistID := c.MustGet(middleware.ContextUserID).(uint)

	dateStr := c.Query("date")
	if dateStr == "" {
		httperr.BadRequest(c, "missing_params", "Date is required.")
		return
	}

	date, err := time.ParseInLocation(
		"2006-01-02",
		dateStr,
		timezone.Location(timezone.DefaultTimezone),
	)
	if err != nil {
		httperr.BadRequest(c, "invalid_date", "Invalid date.")
		return
	}

	out, err := h.listByDateUC.Execute(c.Request.Context(), psychologistID, date)
	if err != nil {
		httperr.Internal(c, "list_failed", "Could not list appointments.")
		return
	}

	httpresp.List(c, out)
}

func (h *AppointmentHandler) ListByMonth(c *gin.Context) {
	psychologistID := c.MustGet(middleware.ContextUserID).(uint)

	year, errY := strconv.Atoi(c.Query("year"))
	month, errM := strconv.Atoi(c.Query("month"))
	if errY != nil || errM != nil || month < 1 || month > 12 {
		httperr.BadRequest(c, "invalid_params", "Year and month are required.")
		return
	}

	out, err := h.listByMonthUC.Execute(c.Request.Context(), psychologistID, year, month)
	if err != nil {
		httperr.Internal(c, "list_failed", "Could not list appointments.")
		return
	}

	httpresp.List(c, out)
}

// ======================================================
// STATE CHANGES
// ======================================================

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	psychologistID := c.MustGet(middleware.ContextUserID).(uint)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid appointment id.")
		return
	}

	var req CancelAppointmentRequest
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "cancelled_by_psychologist"
	}

	ap, err := h.cancelUC.Execute(c.Request.Context(), psychologistID, uint(id), req.Reason)
	if err != nil {
		switch {
		case httperr.IsBusiness(err, "appointment_not_found"):
			httperr.NotFound(c, "appointment_not_found", "Appointment not found.")
		case httperr.IsBusiness(err, "cancel_cutoff_passed"):
			httperr.Conflict(c, "cancel_cutoff_passed", "Too late to cancel this appointment.")
		case httperr.IsBusiness(err, "invalid_state"):
			httperr.Conflict(c, "invalid_state", "Appointment cannot be cancelled.")
		default:
			httperr.Internal(c, "cancel_failed", "Could not cancel appointment.")
		}
		return
	}

	httpresp.OK(c, ap)
}

func (h *AppointmentHandler) Complete(c *gin.Context) {
	psychologistID := c.MustGet(middleware.ContextUserID).(uint)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid appointment id.")
		return
	}

	ap, err := h.completeUC.Execute(c.Request.Context(), psychologistID, uint(id))
	if err != nil {
		switch {
		case httperr.IsBusiness(err, "appointment_not_found"):
			httperr.NotFound(c, "appointment_not_found", "Appointment not found.")
		case httperr.IsBusiness(err, "not_finished_yet"):
			httperr.Conflict(c, "not_finished_yet", "Appointment has not finished yet.")
		case httperr.IsBusiness(err, "invalid_state"):
			httperr.Conflict(c, "invalid_state", "Appointment cannot be completed.")
		default:
			httperr.Internal(c, "complete_failed", "Could not complete appointment.")
		}
		return
	}

	httpresp.OK(c, ap)
}

// ======================================================
// PAYMENT INTENT
// ======================================================

func (h *AppointmentHandler) CreatePaymentIntent(c *gin.Context) {
	psychologistID := c.MustGet(middleware.ContextUserID).(uint)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid appointment id.")
		return
	}

	p, err := h.intentUC.Execute(c.Request.Context(), ucPayment.CreateIntentInput{
		PsychologistID: psychologistID,
		AppointmentID:  uint(id),
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		switch {
		case httperr.IsBusiness(err, "appointment_not_found"):
			httperr.NotFound(c, "appointment_not_found", "Appointment not found.")
		case httperr.IsBusiness(err, "invalid_state"):
			httperr.Conflict(c, "invalid_state", "Appointment is not awaiting payment.")
		case httperr.IsBusiness(err, "idempotency_key_conflict"):
			httperr.Conflict(c, "idempotency_key_conflict", "Idempotency key already used for another appointment.")
		default:
			httperr.Internal(c, "intent_failed", "Could not create payment.")
		}
		return
	}

	c.JSON(201, p)
}
