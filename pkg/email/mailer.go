package email

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

var ErrNotConfigured = errors.New("email not configured")

type Message struct {
	To      string `json:"to"`
	ToName  string `json:"to_name,omitempty"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPMailer struct {
	dialer    dialer
	fromEmail string
	fromName  string
}

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	SSL       bool
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.SSL

	return &SMTPMailer{
		dialer:    d,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

// Send dials per message. The SMTP exchange itself cannot be interrupted,
// so ctx only bounds how long the caller waits for it.
func (s *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	if msg.To == "" {
		return errors.New("email: empty recipient")
	}

	m := s.build(msg)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", msg.To, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SMTPMailer) build(msg *Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.fromEmail, s.fromName)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	return m
}

type NoopMailer struct{}

func (NoopMailer) Send(ctx context.Context, msg *Message) error {
	return ErrNotConfigured
}
