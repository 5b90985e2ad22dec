// Package mail queues outbound notification emails in Valkey and delivers
// them from a pool of background workers. Request handlers only enqueue;
// they never wait for delivery.
package mail

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/google/uuid"
)

// Kind selects the email template.
type Kind string

const (
	KindActivation    Kind = "activation"
	KindResetPassword Kind = "reset_password"
)

// Task is one queued email. Activation tasks carry the confirmation link
// in Context; reset tasks carry the token and the validation link.
type Task struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Email      string    `json:"email"`
	Context    string    `json:"context,omitempty"`
	Token      string    `json:"token,omitempty"`
	Link       string    `json:"link,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// ActivationTask builds the task sent after registration or on resend.
func ActivationTask(email, confirmURL string) Task {
	return Task{
		ID:         uuid.NewString(),
		Kind:       KindActivation,
		Email:      email,
		Context:    confirmURL,
		EnqueuedAt: time.Now().UTC(),
	}
}

// ResetPasswordTask builds the task sent on a password reset request.
func ResetPasswordTask(email, token, link string) Task {
	return Task{
		ID:         uuid.NewString(),
		Kind:       KindResetPassword,
		Email:      email,
		Token:      token,
		Link:       link,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

var (
	activationTmpl = template.Must(template.New("activation").Parse(
		`Welcome!

Please confirm your email address by opening the link below:

{{.Context}}

If you did not create an account you can ignore this message.
`))

	resetTmpl = template.Must(template.New("reset_password").Parse(
		`A password reset was requested for your account.

Submit this token to {{.Link}} to continue:

{{.Token}}

If you did not request a reset you can ignore this message.
`))
)

// Render turns a task into a message.
func Render(t Task) (Message, error) {
	var (
		tmpl    *template.Template
		subject string
	)
	switch t.Kind {
	case KindActivation:
		tmpl, subject = activationTmpl, "Activate your account"
	case KindResetPassword:
		tmpl, subject = resetTmpl, "Reset your password"
	default:
		return Message{}, fmt.Errorf("unknown mail kind %q", t.Kind)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, t); err != nil {
		return Message{}, fmt.Errorf("render %s mail: %w", t.Kind, err)
	}
	return Message{To: t.Email, Subject: subject, Body: buf.String()}, nil
}
