package notify

import (
	"context"
	"log"
	"time"

	"github.com/Techmanna/seat-reservation-api/internal/model"
	"github.com/Techmanna/seat-reservation-api/internal/queue"
)

// Publisher enqueues a rendered email for asynchronous delivery.
type Publisher func(ctx context.Context, event queue.EmailQueuedEvent) error

// DirectSender delivers an email synchronously, used as fallback when
// the broker is unreachable.
type DirectSender interface {
	Send(to, subject, html string) error
}

// Dispatcher renders notifications and hands them to the email queue.
// When publishing fails it falls back to a direct SMTP send so a broker
// outage degrades delivery latency, not delivery itself. Failures are
// logged and returned; callers never roll back booking state over them.
type Dispatcher struct {
	Renderer *Renderer
	Publish  Publisher
	Fallback DirectSender
}

// NewDispatcher wires the default publisher and fallback sender.
func NewDispatcher(r *Renderer, fallback DirectSender) *Dispatcher {
	return &Dispatcher{Renderer: r, Publish: queue.PublishEmail, Fallback: fallback}
}

// SendOTP dispatches the verification-code email for a pending booking.
func (d *Dispatcher) SendOTP(ctx context.Context, to string, b model.Booking, code string, ttl time.Duration) error {
	subject, html, err := d.Renderer.OTPEmail(b, code, ttl)
	if err != nil {
		return err
	}
	return d.dispatch(ctx, queue.EmailQueuedEvent{To: to, Subject: subject, HTML: html, Kind: "otp"})
}

// SendConfirmation dispatches the booking-confirmed email.
func (d *Dispatcher) SendConfirmation(ctx context.Context, to string, b model.Booking, rawToken string) error {
	subject, html, err := d.Renderer.ConfirmationEmail(b, rawToken)
	if err != nil {
		return err
	}
	return d.dispatch(ctx, queue.EmailQueuedEvent{To: to, Subject: subject, HTML: html, Kind: "confirmation", TicketID: b.TicketID})
}

// SendCancellation dispatches the booking-cancelled email.
func (d *Dispatcher) SendCancellation(ctx context.Context, to string, b model.Booking) error {
	subject, html, err := d.Renderer.CancellationEmail(b)
	if err != nil {
		return err
	}
	return d.dispatch(ctx, queue.EmailQueuedEvent{To: to, Subject: subject, HTML: html, Kind: "cancellation", TicketID: b.TicketID})
}

func (d *Dispatcher) dispatch(ctx context.Context, ev queue.EmailQueuedEvent) error {
	ev.QueuedAt = time.Now().UTC().Format(time.RFC3339)
	if err := d.Publish(ctx, ev); err == nil {
		return nil
	}
	log.Printf("notify: broker unavailable, sending %s email to %s directly", ev.Kind, ev.To)
	return d.Fallback.Send(ev.To, ev.Subject, ev.HTML)
}
