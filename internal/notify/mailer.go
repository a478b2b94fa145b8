package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	_ "embed"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"time"

	"kehila/internal/platform/config"
)

//go:embed templates/approved-email.html
var approvedEmailHTML string

var approvedEmailTmpl = template.Must(template.New("approved-email").Parse(approvedEmailHTML))

// Mailer sends the approval email over SMTP with STARTTLS. Connection and IO
// deadlines keep a slow SMTP server from stalling the request path.
type Mailer struct {
	addr     string
	username string
	password string
	from     string
	fromName string
}

// NewMailer builds an SMTP dispatcher from mailer configuration.
func NewMailer(cfg config.Mailer) *Mailer {
	return &Mailer{
		addr:     cfg.SMTPAddr,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		fromName: cfg.FromName,
	}
}

func (m *Mailer) Send(ctx context.Context, n Notification) error {
	var body bytes.Buffer
	if err := approvedEmailTmpl.Execute(&body, n); err != nil {
		return fmt.Errorf("render approval email: %w", err)
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s <%s>", m.fromName, m.from),
		fmt.Sprintf("To: %s", n.Email),
		"Subject: Volunteer registration approved",
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		body.String(),
	}, "\r\n")

	if err := m.sendSMTP(ctx, n.Email, []byte(msg)); err != nil {
		return fmt.Errorf("send approval email to %s: %w", n.Email, err)
	}
	return nil
}

func (m *Mailer) sendSMTP(ctx context.Context, to string, msg []byte) error {
	host := m.addr
	if h, _, err := net.SplitHostPort(m.addr); err == nil {
		host = h
	}

	dialer := &net.Dialer{Timeout: 8 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", m.addr)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(15 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer func() { _ = c.Quit() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if m.username != "" {
		auth := smtp.PlainAuth("", m.username, m.password, host)
		if err := c.Auth(auth); err != nil {
			return err
		}
	}

	if err := c.Mail(m.from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
