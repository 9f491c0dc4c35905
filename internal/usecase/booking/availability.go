package booking

import (
	"context"
	"time"

	domain "github.com/PsylineServices/psy-scheduler/internal/domain/booking"
	"github.com/PsylineServices/psy-scheduler/internal/httperr"
	"github.com/PsylineServices/psy-scheduler/internal/models"
)

type ListAvailableSlots struct {
	slots    domain.SlotRepository
	services domain.ServiceRepository
}

func NewListAvailableSlots(
	slots domain.SlotRepository,
	services domain.ServiceRepository,
) *ListAvailableSlots {
	return &ListAvailableSlots{
		slots:    slots,
		services: services,
	}
}

func (uc *ListAvailableSlots) Execute(
	ctx context.Context,
	serviceID uint,
	date time.Time,
) ([]models.Slot, error) {

	svc, err := uc.services.GetService(ctx, serviceID)
	if err != nil || !svc.Active {
		return nil, httperr.ErrBusiness("service_not_found")
	}

	dayStart := time.Date(
		date.Year(), date.Month(), date.Day(),
		0, 0, 0, 0,
		date.Location(),
	)
	dayEnd := dayStart.Add(24 * time.Hour)

	return uc.slots.ListFreeSlots(ctx, serviceID, dayStart, dayEnd)
}
