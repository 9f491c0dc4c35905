package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	domain "github.com/PsylineServices/psy-scheduler/internal/domain/booking"
	"github.com/PsylineServices/psy-scheduler/internal/models"
)

type AppointmentGormRepository struct {
	db *gorm.DB
}

func NewAppointmentGormRepository(db *gorm.DB) *AppointmentGormRepository {
	return &AppointmentGormRepository{db: db}
}

// --------------------------------------------------
// Reads
// --------------------------------------------------

func (r *AppointmentGormRepository) GetAppointment(
	ctx context.Context,
	id uint,
) (*models.Appointment, error) {

	var ap models.Appointment
	if err := r.db.WithContext(ctx).First(&ap, id).Error; err != nil {
		return nil, err
	}
	return &ap, nil
}

func (r *AppointmentGormRepository) GetAppointmentForPsychologist(
	ctx context.Context,
	id uint,
	psychologistID uint,
) (*models.Appointment, error) {

	var ap models.Appointment
	if err := r.db.WithContext(ctx).
		Where("id = ? AND psychologist_id = ?", id, psychologistID).
		First(&ap).Error; err != nil {
		return nil, err
	}

	return &ap, nil
}

func (r *AppointmentGormRepository) GetAppointmentBySlot(
	ctx context.Context,
	slotID uint,
) (*models.Appointment, error) {

	var ap models.Appointment
	if err := r.db.WithContext(ctx).
		Where("slot_id = ?", slotID).
		First(&ap).Error; err != nil {
		return nil, err
	}

	return &ap, nil
}

func (r *AppointmentGormRepository) ListAppointmentsForPeriod(
	ctx context.Context,
	psychologistID uint,
	start time.Time,
	end time.Time,
) ([]models.Appointment, error) {

	var apps []models.Appointment

	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Service").
		Where(
			"psychologist_id = ? AND start_time >= ? AND start_time < ?",
			psychologistID,
			start,
			end,
		).
		Order("start_time ASC").
		Find(&apps).Error

	if err != nil {
		return nil, err
	}

	return apps, nil
}

// --------------------------------------------------
// Writes
// --------------------------------------------------

func (r *AppointmentGormRepository) CreateAppointment(
	ctx context.Context,
	ap *models.Appointment,
) error {
	return r.db.WithContext(ctx).Create(ap).Error
}

// --------------------------------------------------
// Conditional transitions
// --------------------------------------------------

// ConfirmIfPending is the only path to confirmed. Concurrent webhook retries
// race on this predicate; exactly one caller observes an affected row and
// owns the side effects.
func (r *AppointmentGormRepository) ConfirmIfPending(
	ctx context.Context,
	id uint,
	now time.Time,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ? AND status IN ?", id, domain.ConfirmableStatuses).
		Updates(map[string]any{
			"status":       domain.StatusConfirmed,
			"confirmed_at": now,
		})

	return res.RowsAffected > 0, res.Error
}

// CancelIfActive folds the confirmed-cancellation cutoff into the predicate:
// a webhook confirming the appointment between the caller's read and this
// update flips the row into the `confirmed AND start_time >= ?` branch, so a
// too-late cancel matches zero rows instead of discarding a paid booking.
func (r *AppointmentGormRepository) CancelIfActive(
	ctx context.Context,
	id uint,
	reason string,
	now time.Time,
	minStart time.Time,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where(
			"id = ? AND (status IN ? OR (status = ? AND start_time >= ?))",
			id, domain.PendingHoldStatuses, domain.StatusConfirmed, minStart,
		).
		Updates(map[string]any{
			"status":        domain.StatusCancelled,
			"cancel_reason": reason,
			"cancelled_at":  now,
		})

	return res.RowsAffected > 0, res.Error
}

// CancelIfPendingHold never touches a confirmed appointment, whichever of
// this update and a concurrent confirmation reaches the row first.
func (r *AppointmentGormRepository) CancelIfPendingHold(
	ctx context.Context,
	id uint,
	reason string,
	now time.Time,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ? AND status IN ?", id, domain.PendingHoldStatuses).
		Updates(map[string]any{
			"status":        domain.StatusCancelled,
			"cancel_reason": reason,
			"cancelled_at":  now,
		})

	return res.RowsAffected > 0, res.Error
}

func (r *AppointmentGormRepository) CompleteIfConfirmed(
	ctx context.Context,
	id uint,
	now time.Time,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, domain.StatusConfirmed).
		Updates(map[string]any{
			"status":       domain.StatusCompleted,
			"completed_at": now,
		})

	return res.RowsAffected > 0, res.Error
}

// --------------------------------------------------
// Client / Service
// --------------------------------------------------

func (r *AppointmentGormRepository) GetClient(
	ctx context.Context,
	id uint,
) (*models.Client, error) {

	var client models.Client
	if err := r.db.WithContext(ctx).First(&client, id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *AppointmentGormRepository) GetOrCreateClient(
	ctx context.Context,
	name string,
	phone string,
	email string,
) (*models.Client, error) {

	var client models.Client
	err := r.db.WithContext(ctx).
		Where("phone = ?", phone).
		First(&client).Error

	if err == nil {
		return &client, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	client = models.Client{
		Name:  name,
		Phone: phone,
		Email: email,
	}

	if err := r.db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, err
	}

	return &client, nil
}

func (r *AppointmentGormRepository) LinkTelegramChat(
	ctx context.Context,
	phone string,
	chatID int64,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("phone = ?", phone).
		Update("telegram_chat_id", chatID)

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *AppointmentGormRepository) GetService(
	ctx context.Context,
	id uint,
) (*models.ConsultService, error) {

	var svc models.ConsultService
	if err := r.db.WithContext(ctx).First(&svc, id).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

// Compile-time checks
var (
	_ domain.AppointmentRepository = (*AppointmentGormRepository)(nil)
	_ domain.ClientRepository      = (*AppointmentGormRepository)(nil)
	_ domain.ServiceRepository     = (*AppointmentGormRepository)(nil)
)
