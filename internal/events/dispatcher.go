package events

import (
	"go.uber.org/zap"
)

type Handler func(Event)

// Dispatcher fans events out to subscribers on a background goroutine.
// Publishing never blocks a request: a full queue drops the event and logs.
type Dispatcher struct {
	handlers []Handler
	queue    chan Event
	logger   *zap.Logger
}

func NewDispatcher(logger *zap.Logger, handlers ...Handler) *Dispatcher {
	d := &Dispatcher{
		handlers: handlers,
		queue:    make(chan Event, 100),
		logger:   logger,
	}

	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	for ev := range d.queue {
		for _, h := range d.handlers {
			h(ev)
		}
	}
}

func (d *Dispatcher) Publish(ev Event) {
	select {
	case d.queue <- ev:
		// queued
	default:
		// queue full: drop rather than block the API
		d.logger.Warn("event queue full, dropping event", zap.String("event", ev.Name))
	}
}

// Compile-time check
var _ Bus = (*Dispatcher)(nil)
