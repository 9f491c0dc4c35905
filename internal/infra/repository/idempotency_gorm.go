package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/PsylineServices/psy-scheduler/internal/idempotency"
	"github.com/PsylineServices/psy-scheduler/internal/models"
)

type IdempotencyGormRepository struct {
	db *gorm.DB
}

func NewIdempotencyGormRepository(db *gorm.DB) *IdempotencyGormRepository {
	return &IdempotencyGormRepository{db: db}
}

func (r *IdempotencyGormRepository) Get(
	ctx context.Context,
	key string,
	now time.Time,
) (*models.IdempotencyRecord, error) {

	var rec models.IdempotencyRecord
	err := r.db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, now).
		First(&rec).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// Put keeps the first writer's record; the unique key means a concurrent
// duplicate save no-ops instead of overwriting a result already handed out.
func (r *IdempotencyGormRepository) Put(
	ctx context.Context,
	rec *models.IdempotencyRecord,
) error {

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rec).Error
}

func (r *IdempotencyGormRepository) DeleteExpired(
	ctx context.Context,
	now time.Time,
) (int64, error) {

	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.IdempotencyRecord{})

	return res.RowsAffected, res.Error
}

// Compile-time check
var _ idempotency.Store = (*IdempotencyGormRepository)(nil)
