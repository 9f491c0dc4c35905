package booking

import (
	"context"
	"time"

	domain "github.com/PsylineServices/psy-scheduler/internal/domain/booking"
	"github.com/PsylineServices/psy-scheduler/internal/dto"
	"github.com/PsylineServices/psy-scheduler/internal/timezone"
)

type ListAppointmentsByMonth struct {
	appts domain.AppointmentRepository
}

func NewListAppointmentsByMonth(
	appts domain.AppointmentRepository,
) *ListAppointmentsByMonth {
	return &ListAppointmentsByMonth{
		appts: appts,
	}
}

func (uc *ListAppointmentsByMonth) Execute(
	ctx context.Context,
	psychologistID uint,
	year int,
	month int,
) ([]dto.AppointmentListDTO, error) {

	loc := timezone.Location(timezone.DefaultTimezone)

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0)

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
