package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	domain "github.com/PsylineServices/psy-scheduler/internal/domain/booking"
	"github.com/PsylineServices/psy-scheduler/internal/models"
)

type SlotGormRepository struct {
	db *gorm.DB
}

func NewSlotGormRepository(db *gorm.DB) *SlotGormRepository {
	return &SlotGormRepository{db: db}
}

// --------------------------------------------------
// Reads
// --------------------------------------------------

func (r *SlotGormRepository) GetSlot(
	ctx context.Context,
	id uint,
) (*models.Slot, error) {

	var slot models.Slot
	if err := r.db.WithContext(ctx).First(&slot, id).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *SlotGormRepository) ListFreeSlots(
	ctx context.Context,
	serviceID uint,
	from time.Time,
	to time.Time,
) ([]models.Slot, error) {

	var slots []models.Slot
	if err := r.db.WithContext(ctx).
		Where(
			"service_id = ? AND state = ? AND start_time >= ? AND start_time < ?",
			serviceID, domain.SlotFree, from, to,
		).
		Order("start_time ASC").
		Find(&slots).Error; err != nil {
		return nil, err
	}

	return slots, nil
}

func (r *SlotGormRepository) ListSlots(
	ctx context.Context,
	psychologistID uint,
	from time.Time,
	to time.Time,
) ([]models.Slot, error) {

	var slots []models.Slot
	if err := r.db.WithContext(ctx).
		Where(
			"psychologist_id = ? AND start_time >= ? AND start_time < ?",
			psychologistID, from, to,
		).
		Order("start_time ASC").
		Find(&slots).Error; err != nil {
		return nil, err
	}

	return slots, nil
}

func (r *SlotGormRepository) ListExpiredHolds(
	ctx context.Context,
	cutoff time.Time,
) ([]models.Slot, error) {

	var slots []models.Slot
	if err := r.db.WithContext(ctx).
		Where("state = ? AND reserved_at < ?", domain.SlotReserved, cutoff).
		Order("reserved_at ASC").
		Find(&slots).Error; err != nil {
		return nil, err
	}

	return slots, nil
}

func (r *SlotGormRepository) HasOverlappingSlot(
	ctx context.Context,
	psychologistID uint,
	start time.Time,
	end time.Time,
) (bool, error) {

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where(
			"psychologist_id = ? AND start_time < ? AND end_time > ?",
			psychologistID, end, start,
		).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

// --------------------------------------------------
// Writes
// --------------------------------------------------

func (r *SlotGormRepository) CreateSlot(
	ctx context.Context,
	slot *models.Slot,
) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *SlotGormRepository) DeleteFreeSlot(
	ctx context.Context,
	id uint,
	psychologistID uint,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Where(
			"id = ? AND psychologist_id = ? AND state = ?",
			id, psychologistID, domain.SlotFree,
		).
		Delete(&models.Slot{})

	return res.RowsAffected > 0, res.Error
}

// --------------------------------------------------
// Conditional transitions
// --------------------------------------------------

// ReserveSlot moves free -> reserved in a single conditional update. The
// affected-row count decides the winner under concurrent calls; a
// read-then-write here would be a race.
func (r *SlotGormRepository) ReserveSlot(
	ctx context.Context,
	id uint,
	by string,
	now time.Time,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where("id = ? AND state = ?", id, domain.SlotFree).
		Updates(map[string]any{
			"state":       domain.SlotReserved,
			"reserved_at": now,
			"reserved_by": by,
		})

	return res.RowsAffected > 0, res.Error
}

func (r *SlotGormRepository) ReleaseSlot(
	ctx context.Context,
	id uint,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where(
			"id = ? AND state IN ?",
			id,
			[]domain.SlotState{domain.SlotReserved, domain.SlotConfirmed},
		).
		Updates(map[string]any{
			"state":       domain.SlotFree,
			"reserved_at": nil,
			"reserved_by": "",
		})

	return res.RowsAffected > 0, res.Error
}

func (r *SlotGormRepository) ConfirmSlot(
	ctx context.Context,
	id uint,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where("id = ? AND state = ?", id, domain.SlotReserved).
		Update("state", domain.SlotConfirmed)

	return res.RowsAffected > 0, res.Error
}

// ReleaseIfExpired keeps the same predicate discipline for the sweeper: a
// hold confirmed between the list and this update no-ops here.
func (r *SlotGormRepository) ReleaseIfExpired(
	ctx context.Context,
	id uint,
	cutoff time.Time,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where(
			"id = ? AND state = ? AND reserved_at < ?",
			id, domain.SlotReserved, cutoff,
		).
		Updates(map[string]any{
			"state":       domain.SlotFree,
			"reserved_at": nil,
			"reserved_by": "",
		})

	return res.RowsAffected > 0, res.Error
}

// Compile-time check
var _ domain.SlotRepository = (*SlotGormRepository)(nil)
