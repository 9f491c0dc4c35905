package payment_test

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	domain "github.com/PsylineServices/psy-scheduler/internal/domain/payment"
	"github.com/PsylineServices/psy-scheduler/internal/events"
	"github.com/PsylineServices/psy-scheduler/internal/models"
)

// ======================================================
// In-memory payments
// ======================================================

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*models.Payment // keyed by provider+"/"+providerPaymentID
	nextID   uint
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: map[string]*models.Payment{}, nextID: 1}
}

func paymentKey(provider, providerPaymentID string) string {
	return provider + "/" + providerPaymentID
}

func (r *fakePaymentRepo) CreatePayment(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := paymentKey(p.Provider, p.ProviderPaymentID)
	if _, exists := r.payments[key]; exists {
		return gorm.ErrDuplicatedKey
	}

	p.ID = r.nextID
	r.nextID++
	if p.Status == "" {
		p.Status = string(domain.StatusPending)
	}
	cp := *p
	r.payments[key] = &cp
	return nil
}

func (r *fakePaymentRepo) GetByProviderPaymentID(_ context.Context, provider, providerPaymentID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[paymentKey(provider, providerPaymentID)]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) GetByIdempotencyKey(_ context.Context, key string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.payments {
		if p.IdempotencyKey != nil && *p.IdempotencyKey == key {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePaymentRepo) UpdateStatus(
	_ context.Context,
	provider string,
	providerPaymentID string,
	from domain.Status,
	to domain.Status,
	failureCategory string,
	now time.Time,
) (bool, error) {

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[paymentKey(provider, providerPaymentID)]
	if !ok || p.Status != string(from) {
		return false, nil
	}

	p.Status = string(to)
	p.FailureCategory = failureCategory
	if to == domain.StatusSucceeded {
		p.ConfirmedAt = &now
	}
	return true, nil
}

func (r *fakePaymentRepo) status(provider, providerPaymentID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[paymentKey(provider, providerPaymentID)]; ok {
		return p.Status
	}
	return ""
}

// ======================================================
// In-memory webhook event log
// ======================================================

type fakeWebhookEventRepo struct {
	mu     sync.Mutex
	events map[string]*models.WebhookEvent
}

func newFakeWebhookEventRepo() *fakeWebhookEventRepo {
	return &fakeWebhookEventRepo{events: map[string]*models.WebhookEvent{}}
}

func (r *fakeWebhookEventRepo) MarkReceived(_ context.Context, provider, eventID, eventType, payload string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := provider + "/" + eventID
	if _, exists := r.events[key]; exists {
		return false, nil
	}

	r.events[key] = &models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       eventType,
		Payload:         payload,
	}
	return true, nil
}

func (r *fakeWebhookEventRepo) IsProcessed(_ context.Context, provider, eventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.events[provider+"/"+eventID]
	return ok && ev.ProcessedAt != nil, nil
}

func (r *fakeWebhookEventRepo) MarkProcessed(_ context.Context, provider, eventID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ev, ok := r.events[provider+"/"+eventID]; ok {
		ev.ProcessedAt = &now
	}
	return nil
}

// unmarkProcessed simulates a crash between the downstream effects and the
// processed marker.
func (r *fakeWebhookEventRepo) unmarkProcessed(provider, eventID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ev, ok := r.events[provider+"/"+eventID]; ok {
		ev.ProcessedAt = nil
	}
}

// ======================================================
// Confirmer / bus fakes
// ======================================================

// fakeConfirmer counts invocations and applies the same at-most-once rule as
// the real use case: only the first call transitions.
type fakeConfirmer struct {
	mu        sync.Mutex
	calls     int
	confirmed map[uint]bool
}

func newFakeConfirmer() *fakeConfirmer {
	return &fakeConfirmer{confirmed: map[uint]bool{}}
}

func (c *fakeConfirmer) Execute(_ context.Context, appointmentID uint) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	if c.confirmed[appointmentID] {
		return false, nil
	}
	c.confirmed[appointmentID] = true
	return true, nil
}

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

// Interface conformance
var (
	_ domain.Repository             = (*fakePaymentRepo)(nil)
	_ domain.WebhookEventRepository = (*fakeWebhookEventRepo)(nil)
	_ events.Bus                    = (*fakeBus)(nil)
)
