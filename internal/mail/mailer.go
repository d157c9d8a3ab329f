// Package mail wraps the SMTP transport behind a single Send call.
package mail

import (
	"log"

	gomail "gopkg.in/gomail.v2"
)

// Mailer delivers rendered HTML email over SMTP. Delivery is
// best-effort: callers log failures but never roll back booking state
// because an email did not go out.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// New returns a Mailer for the given SMTP endpoint and sender address.
func New(host string, port int, user, pass, from string) *Mailer {
	return &Mailer{dialer: gomail.NewDialer(host, port, user, pass), from: from}
}

// Send delivers one HTML message. Errors are returned to the caller
// after being logged so upstream code can decide whether to retry.
func (m *Mailer) Send(to, subject, html string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)
	if err := m.dialer.DialAndSend(msg); err != nil {
		log.Printf("mail: send to %s failed: %v", to, err)
		return err
	}
	log.Printf("mail: sent %q to %s", subject, to)
	return nil
}
