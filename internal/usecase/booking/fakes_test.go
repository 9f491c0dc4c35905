package booking_test

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	domain "github.com/PsylineServices/psy-scheduler/internal/domain/booking"
	"github.com/PsylineServices/psy-scheduler/internal/events"
	"github.com/PsylineServices/psy-scheduler/internal/models"
)

// ======================================================
// In-memory slot ledger
// ======================================================

// fakeSlotRepo mimics the conditional-update semantics of the real
// repository: every transition checks the prior state under one lock, so
// concurrent callers observe at-most-one-winner behavior.
type fakeSlotRepo struct {
	mu    sync.Mutex
	slots map[uint]*models.Slot
}

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{slots: map[uint]*models.Slot{}}
}

func (r *fakeSlotRepo) GetSlot(_ context.Context, id uint) (*models.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSlotRepo) CreateSlot(_ context.Context, slot *models.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slot.ID == 0 {
		slot.ID = uint(len(r.slots) + 1)
	}
	if slot.State == "" {
		slot.State = string(domain.SlotFree)
	}
	cp := *slot
	r.slots[slot.ID] = &cp
	return nil
}

func (r *fakeSlotRepo) DeleteFreeSlot(_ context.Context, id uint, psychologistID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok || s.PsychologistID != psychologistID || s.State != string(domain.SlotFree) {
		return false, nil
	}
	delete(r.slots, id)
	return true, nil
}

func (r *fakeSlotRepo) ReserveSlot(_ context.Context, id uint, by string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok || s.State != string(domain.SlotFree) {
		return false, nil
	}
	s.State = string(domain.SlotReserved)
	s.ReservedAt = &now
	s.ReservedBy = by
	return true, nil
}

func (r *fakeSlotRepo) ReleaseSlot(_ context.Context, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok {
		return false, nil
	}
	if s.State != string(domain.SlotReserved) && s.State != string(domain.SlotConfirmed) {
		return false, nil
	}
	s.State = string(domain.SlotFree)
	s.ReservedAt = nil
	s.ReservedBy = ""
	return true, nil
}

func (r *fakeSlotRepo) ConfirmSlot(_ context.Context, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok || s.State != string(domain.SlotReserved) {
		return false, nil
	}
	s.State = string(domain.SlotConfirmed)
	return true, nil
}

func (r *fakeSlotRepo) ReleaseIfExpired(_ context.Context, id uint, cutoff time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok || s.State != string(domain.SlotReserved) {
		return false, nil
	}
	if s.ReservedAt == nil || !s.ReservedAt.Before(cutoff) {
		return false, nil
	}
	s.State = string(domain.SlotFree)
	s.ReservedAt = nil
	s.ReservedBy = ""
	return true, nil
}

func (r *fakeSlotRepo) ListExpiredHolds(_ context.Context, cutoff time.Time) ([]models.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Slot
	for _, s := range r.slots {
		if s.State == string(domain.SlotReserved) && s.ReservedAt != nil && s.ReservedAt.Before(cutoff) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) ListFreeSlots(_ context.Context, serviceID uint, from, to time.Time) ([]models.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Slot
	for _, s := range r.slots {
		if s.ServiceID == serviceID && s.State == string(domain.SlotFree) &&
			!s.StartTime.Before(from) && s.StartTime.Before(to) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) ListSlots(_ context.Context, psychologistID uint, from, to time.Time) ([]models.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Slot
	for _, s := range r.slots {
		if s.PsychologistID == psychologistID &&
			!s.StartTime.Before(from) && s.StartTime.Before(to) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) HasOverlappingSlot(_ context.Context, psychologistID uint, start, end time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.slots {
		if s.PsychologistID == psychologistID &&
			s.StartTime.Before(end) && s.EndTime.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSlotRepo) state(id uint) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.slots[id]; ok {
		return s.State
	}
	return ""
}

// ======================================================
// In-memory appointments + clients + services
// ======================================================

type fakeApptRepo struct {
	mu       sync.Mutex
	appts    map[uint]*models.Appointment
	clients  map[uint]*models.Client
	services map[uint]*models.ConsultService
	nextID   uint
}

func newFakeApptRepo() *fakeApptRepo {
	return &fakeApptRepo{
		appts:    map[uint]*models.Appointment{},
		clients:  map[uint]*models.Client{},
		services: map[uint]*models.ConsultService{},
		nextID:   1,
	}
}

func (r *fakeApptRepo) GetAppointment(_ context.Context, id uint) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ap, ok := r.appts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *ap
	return &cp, nil
}

func (r *fakeApptRepo) GetAppointmentForPsychologist(_ context.Context, id uint, psychologistID uint) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ap, ok := r.appts[id]
	if !ok || ap.PsychologistID != psychologistID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *ap
	return &cp, nil
}

func (r *fakeApptRepo) GetAppointmentBySlot(_ context.Context, slotID uint) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ap := range r.appts {
		if ap.SlotID == slotID {
			cp := *ap
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeApptRepo) CreateAppointment(_ context.Context, ap *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// one appointment per slot, like the unique index
	for _, existing := range r.appts {
		if existing.SlotID == ap.SlotID {
			return gorm.ErrDuplicatedKey
		}
	}

	ap.ID = r.nextID
	r.nextID++
	cp := *ap
	r.appts[ap.ID] = &cp
	return nil
}

func (r *fakeApptRepo) ConfirmIfPending(_ context.Context, id uint, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ap, ok := r.appts[id]
	if !ok {
		return false, nil
	}
	if ap.Status != string(domain.StatusPending) && ap.Status != string(domain.StatusPendingPayment) {
		return false, nil
	}
	ap.Status = string(domain.StatusConfirmed)
	ap.ConfirmedAt = &now
	return true, nil
}

func (r *fakeApptRepo) CancelIfActive(_ context.Context, id uint, reason string, now time.Time, minStart time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ap, ok := r.appts[id]
	if !ok {
		return false, nil
	}
	switch ap.Status {
	case string(domain.StatusPending), string(domain.StatusPendingPayment):
	case string(domain.StatusConfirmed):
		if ap.StartTime.Before(minStart) {
			return false, nil
		}
	default:
		return false, nil
	}
	ap.Status = string(domain.StatusCancelled)
	ap.CancelReason = reason
	ap.CancelledAt = &now
	return true, nil
}

func (r *fakeApptRepo) CancelIfPendingHold(_ context.Context, id uint, reason string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ap, ok := r.appts[id]
	if !ok {
		return false, nil
	}
	if ap.Status != string(domain.StatusPending) && ap.Status != string(domain.StatusPendingPayment) {
		return false, nil
	}
	ap.Status = string(domain.StatusCancelled)
	ap.CancelReason = reason
	ap.CancelledAt = &now
	return true, nil
}

func (r *fakeApptRepo) CompleteIfConfirmed(_ context.Context, id uint, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ap, ok := r.appts[id]
	if !ok || ap.Status != string(domain.StatusConfirmed) {
		return false, nil
	}
	ap.Status = string(domain.StatusCompleted)
	ap.CompletedAt = &now
	return true, nil
}

func (r *fakeApptRepo) ListAppointmentsForPeriod(_ context.Context, psychologistID uint, start, end time.Time) ([]models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Appointment
	for _, ap := range r.appts {
		if ap.PsychologistID == psychologistID &&
			!ap.StartTime.Before(start) && ap.StartTime.Before(end) {
			out = append(out, *ap)
		}
	}
	return out, nil
}

func (r *fakeApptRepo) GetClient(_ context.Context, id uint) (*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeApptRepo) GetOrCreateClient(_ context.Context, name, phone, email string) (*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.clients {
		if c.Phone == phone {
			cp := *c
			return &cp, nil
		}
	}

	c := &models.Client{
		ID:    uint(len(r.clients) + 1),
		Name:  name,
		Phone: phone,
		Email: email,
	}
	r.clients[c.ID] = c
	cp := *c
	return &cp, nil
}

func (r *fakeApptRepo) LinkTelegramChat(_ context.Context, phone string, chatID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.clients {
		if c.Phone == phone {
			c.TelegramChatID = &chatID
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeApptRepo) GetService(_ context.Context, id uint) (*models.ConsultService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	svc, ok := r.services[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *svc
	return &cp, nil
}

func (r *fakeApptRepo) addService(svc *models.ConsultService) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[svc.ID] = svc
}

func (r *fakeApptRepo) addClient(c *models.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
}

func (r *fakeApptRepo) status(id uint) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ap, ok := r.appts[id]; ok {
		return ap.Status
	}
	return ""
}

// ======================================================
// Event bus / mailer fakes
// ======================================================

type fakeBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *fakeBus) Publish(ev events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *fakeBus) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, ev := range b.events {
		if ev.Name == name {
			n++
		}
	}
	return n
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *fakeMailer) SendEmail(_ context.Context, to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// Interface conformance
var (
	_ domain.SlotRepository        = (*fakeSlotRepo)(nil)
	_ domain.AppointmentRepository = (*fakeApptRepo)(nil)
	_ domain.ClientRepository      = (*fakeApptRepo)(nil)
	_ domain.ServiceRepository     = (*fakeApptRepo)(nil)
	_ events.Bus                   = (*fakeBus)(nil)
)
