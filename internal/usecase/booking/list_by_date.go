package booking

import (
	"context"
	"time"

	domain "github.com/PsylineServices/psy-scheduler/internal/domain/booking"
	"github.com/PsylineServices/psy-scheduler/internal/dto"
)

type ListAppointmentsByDate struct {
	appts domain.AppointmentRepository
}

func NewListAppointmentsByDate(
	appts domain.AppointmentRepository,
) *ListAppointmentsByDate {
	return &ListAppointmentsByDate{
		appts: appts,
	}
}

func (uc *ListAppointmentsByDate) Execute(
	ctx context.Context,
	psychologistID uint,
	date time.Time,
) ([]dto.AppointmentListDTO, error) {

	start := time.Date(
		date.Year(),
		date.Month(),
		date.Day(),
		0, 0, 0, 0,
		date.Location(),
	)
	end := start.Add(24 * time.Hour)

	appointments, err := uc.appts.ListAppointmentsForPeriod(
		ctx,
		psychologistID,
		start,
		end,
	)
	if err != nil {
		return nil, err
	}

	out := make([]dto.AppointmentListDTO, 0, len(appointments))
	for _, ap := range appointments {
		out = append(out, dto.AppointmentListDTO{
			ID:          ap.ID,
			StartTime:   ap.StartTime,
			EndTime:     ap.EndTime,
			Status:      ap.Status,
			ClientName:  ap.Client.Name,
			ServiceName: ap.Service.Name,
		})
	}

	return out, nil
}
