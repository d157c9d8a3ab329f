package notify

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/Techmanna/seat-reservation-api/internal/model"
)

// Email templating for the three notifications the booking flow sends:
// the verification code, the confirmation (with QR payload and calendar
// link) and the cancellation notice. Rendering is pure; delivery is the
// dispatcher's problem.

const layoutHTML = `<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background:#f9fafb;font-family:Arial,Helvetica,sans-serif;color:#374151;">
  <div style="max-width:600px;margin:20px auto;background:#ffffff;border-radius:12px;padding:24px;">
    <div style="text-align:center;border-bottom:3px solid #10b981;padding-bottom:16px;margin-bottom:24px;">
      <h2 style="margin:0;color:#1f2937;">{{.Title}}</h2>
    </div>
    {{.Body}}
    <div style="text-align:center;color:#6b7280;font-size:13px;border-top:1px solid #e5e7eb;margin-top:28px;padding-top:16px;">
      This email was sent automatically. Please do not reply.
    </div>
  </div>
</body>
</html>`

const otpBodyHTML = `
<p>Hello,</p>
<p>Use the code below to verify your email and complete your reservation
for <strong>{{.EventDate}}</strong> (seats {{.Seats}}).</p>
<div style="text-align:center;margin:24px 0;">
  <span style="display:inline-block;font-size:32px;letter-spacing:8px;font-weight:bold;background:#f9fafb;border:1px solid #e5e7eb;border-radius:8px;padding:12px 24px;">{{.Code}}</span>
</div>
<p>The code expires in <strong>{{.ExpiresMinutes}} minutes</strong>. If you
did not request this reservation, you can ignore this email and the seats
will be released automatically.</p>`

const confirmationBodyHTML = `
<p>Hello,</p>
<p>Your reservation is confirmed. Keep this email: you will need the
ticket ID and reservation token to cancel.</p>
<div style="background:#f9fafb;border:1px solid #e5e7eb;border-radius:12px;padding:20px;margin:20px 0;">
  <p style="margin:4px 0;"><strong>Ticket ID:</strong> {{.TicketID}}</p>
  <p style="margin:4px 0;"><strong>Date:</strong> {{.EventDate}}</p>
  <p style="margin:4px 0;"><strong>Seats:</strong> {{.Seats}}</p>
  <p style="margin:4px 0;"><strong>Reservation token:</strong> <code>{{.ReservationToken}}</code></p>
</div>
<div style="text-align:center;margin:20px 0;">
  <a href="{{.TicketURL}}" style="display:inline-block;background:#000000;color:#ffffff;border-radius:25px;padding:12px 24px;text-decoration:none;font-weight:600;">View ticket</a>
  <a href="{{.CalendarLink}}" style="display:inline-block;border:2px solid #d1d5db;color:#374151;border-radius:25px;padding:12px 24px;text-decoration:none;font-weight:600;">Add to calendar</a>
</div>
<p style="color:#6b7280;font-size:13px;">Show the QR code on your ticket
page at the entrance ({{.QRPayload}}).</p>`

const cancellationBodyHTML = `
<p>Hello,</p>
<p>Your reservation <strong>{{.TicketID}}</strong> for
<strong>{{.EventDate}}</strong> (seats {{.Seats}}) has been cancelled.
The seats are available again for other guests.</p>
<p>If this was a mistake you are welcome to book again at
<a href="{{.FrontendURL}}">{{.FrontendURL}}</a>.</p>`

var (
	layoutTmpl       = template.Must(template.New("layout").Parse(layoutHTML))
	otpTmpl          = template.Must(template.New("otp").Parse(otpBodyHTML))
	confirmationTmpl = template.Must(template.New("confirmation").Parse(confirmationBodyHTML))
	cancellationTmpl = template.Must(template.New("cancellation").Parse(cancellationBodyHTML))
)

// Renderer builds the subject and HTML body for each notification type.
type Renderer struct {
	AppName     string
	FrontendURL string
}

func (r *Renderer) render(title string, body *template.Template, data any) (string, error) {
	var inner bytes.Buffer
	if err := body.Execute(&inner, data); err != nil {
		return "", err
	}
	var out bytes.Buffer
	err := layoutTmpl.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{Title: title, Body: template.HTML(inner.String())})
	return out.String(), err
}

// OTPEmail renders the verification-code email for a pending booking.
func (r *Renderer) OTPEmail(b model.Booking, code string, ttl time.Duration) (subject, html string, err error) {
	subject = r.AppName + " - your verification code"
	html, err = r.render("Verify your email", otpTmpl, map[string]any{
		"Code":           code,
		"EventDate":      b.EventDate.Format("2006-01-02"),
		"Seats":          strings.Join(b.SeatLabels, ", "),
		"ExpiresMinutes": int(ttl.Minutes()),
	})
	return
}

// ConfirmationEmail renders the booking-confirmed email. rawToken is the
// one-time reveal of the reservation token; it is never stored in clear.
func (r *Renderer) ConfirmationEmail(b model.Booking, rawToken string) (subject, html string, err error) {
	subject = r.AppName + " - reservation confirmed (" + b.TicketID + ")"
	html, err = r.render("Reservation confirmed", confirmationTmpl, map[string]any{
		"TicketID":         b.TicketID,
		"EventDate":        b.EventDate.Format("2006-01-02"),
		"Seats":            strings.Join(b.SeatLabels, ", "),
		"ReservationToken": rawToken,
		"TicketURL":        strings.TrimRight(r.FrontendURL, "/") + "/tickets/" + b.TicketID,
		"CalendarLink":     b.CalendarLink,
		"QRPayload":        b.QRPayload,
	})
	return
}

// CancellationEmail renders the booking-cancelled email.
func (r *Renderer) CancellationEmail(b model.Booking) (subject, html string, err error) {
	subject = r.AppName + " - reservation cancelled (" + b.TicketID + ")"
	html, err = r.render("Reservation cancelled", cancellationTmpl, map[string]any{
		"TicketID":    b.TicketID,
		"EventDate":   b.EventDate.Format("2006-01-02"),
		"Seats":       strings.Join(b.SeatLabels, ", "),
		"FrontendURL": r.FrontendURL,
	})
	return
}
