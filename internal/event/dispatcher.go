package event

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var centsPerUnit = decimal.NewFromInt(100)

// Subscriber reacts to a dispatched invoice event. Implementations must be
// safe to call from the request goroutine.
type Subscriber interface {
	Name() string
	Handle(ctx context.Context, evt InvoiceEvent) error
}

// Dispatcher fans an event out to every registered subscriber, in
// registration order, synchronously. Subscriber failures are logged and
// swallowed: dispatch runs after the originating transaction has committed,
// so no subscriber can veto or roll it back.
type Dispatcher struct {
	subscribers []Subscriber
	logger      zerolog.Logger
}

func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Subscribe registers a subscriber. Call during startup wiring only; the
// subscriber list is not mutated after that.
func (d *Dispatcher) Subscribe(s Subscriber) {
	d.subscribers = append(d.subscribers, s)
}

// Dispatch delivers the event to all subscribers.
func (d *Dispatcher) Dispatch(ctx context.Context, evt InvoiceEvent) {
	for _, s := range d.subscribers {
		d.deliver(ctx, s, evt)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, s Subscriber, evt InvoiceEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Str("subscriber", s.Name()).
				Str("event", evt.Name).
				Str("invoice", evt.InvoiceNumber).
				Interface("panic", r).
				Msg("event subscriber panicked")
		}
	}()

	if err := s.Handle(ctx, evt); err != nil {
		d.logger.Error().
			Err(err).
			Str("subscriber", s.Name()).
			Str("event", evt.Name).
			Str("invoice", evt.InvoiceNumber).
			Msg("event subscriber failed")
	}
}
