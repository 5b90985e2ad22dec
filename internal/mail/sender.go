package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
)

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPSender creates a sender for addr (host:port). PLAIN auth is used
// when a user is given.
func NewSMTPSender(addr, from, user, password string) *SMTPSender {
	s := &SMTPSender{addr: addr, from: from}
	if user != "" {
		host, _, _ := net.SplitHostPort(addr)
		s.auth = smtp.PlainAuth("", user, password, host)
	}
	return s
}

// Send implements Sender.
func (s *SMTPSender) Send(_ context.Context, m Message) error {
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{m.To}, buildMessage(s.from, m)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.To, err)
	}
	return nil
}

// buildMessage formats m as an RFC 5322 plain-text message.
func buildMessage(from string, m Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + m.To + "\r\n")
	b.WriteString("Subject: " + m.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogSender writes messages to the log instead of sending them. Used in
// development when no relay is available.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(_ context.Context, m Message) error {
	slog.Info("mail (not sent)", "to", m.To, "subject", m.Subject, "body", m.Body)
	return nil
}
