// Package queue defines message payloads exchanged over the message broker.
package queue

// EmailQueuedEvent is published for every notification the booking flow
// produces (verification code, confirmation, cancellation). The consumer
// only needs the rendered message; templating happens before publishing
// so a broker replay delivers exactly what was originally composed.
type EmailQueuedEvent struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTML     string `json:"html"`
	Kind     string `json:"kind"`      // otp | confirmation | cancellation
	TicketID string `json:"ticket_id"` // empty for OTP email
	QueuedAt string `json:"queued_at"` // RFC3339 UTC
}
