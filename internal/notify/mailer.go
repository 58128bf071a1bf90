// Package notify delivers outbound email: OTP codes, join-request alerts,
// status-change notices and bulk mail to society members.
//
// Notification failures never fail the triggering operation. Callers either
// send inline with a bounded retry loop (OTP delivery, where the user is
// waiting for the code) or detach the send entirely via SendDetached
// (workflow notifications, where the requester should not wait).
package notify

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/societyhub/societyhub/internal/config"
	"github.com/societyhub/societyhub/internal/safego"
	"github.com/societyhub/societyhub/internal/telemetry"
)

// Mailer sends a single plain-text email to one or more recipients.
type Mailer interface {
	Send(to []string, subject, body string) error
}

// SMTPMailer implements Mailer over SMTP with a bounded retry loop and fixed
// backoff. When notifications are disabled or no SMTP host is configured,
// sends are skipped and logged.
type SMTPMailer struct {
	cfg *config.NotificationsConfig
}

// NewSMTPMailer creates a mailer from the notifications configuration.
func NewSMTPMailer(cfg *config.NotificationsConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Enabled reports whether the mailer will actually deliver anything.
func (m *SMTPMailer) Enabled() bool {
	return m.cfg.Enabled && m.cfg.SMTP.Host != ""
}

// Send composes and delivers a plain-text email, retrying transient failures
// up to cfg.MaxRetries times with a fixed backoff between attempts.
func (m *SMTPMailer) Send(to []string, subject, body string) error {
	if !m.Enabled() {
		slog.Debug("email skipped, notifications disabled", "subject", subject)
		return nil
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	retries := m.cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}
	backoff := m.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		lastErr = m.deliver(to, subject, body)
		if lastErr == nil {
			return nil
		}
		slog.Warn("email send attempt failed",
			"attempt", attempt, "max", retries, "subject", subject, "error", lastErr)
		if attempt < retries {
			time.Sleep(backoff)
		}
	}
	return fmt.Errorf("send after %d attempts: %w", retries, lastErr)
}

// SendDetached fires the send on a recovered background goroutine and records
// the outcome in the email metrics. kind labels the metric series ("otp",
// "join_request", "status_change", "bulk").
func SendDetached(m Mailer, kind string, to []string, subject, body string) {
	safego.Go(func() {
		if err := m.Send(to, subject, body); err != nil {
			telemetry.EmailSendFailuresTotal.WithLabelValues(kind).Inc()
			slog.Error("notification email failed", "kind", kind, "error", err)
			return
		}
		telemetry.EmailsSentTotal.WithLabelValues(kind).Inc()
	})
}

func (m *SMTPMailer) deliver(to []string, subject, body string) error {
	smtpCfg := &m.cfg.SMTP

	headers := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n",
		smtpCfg.From, to[0], subject,
	)
	msg := []byte(headers + body + "\r\n")

	addr := fmt.Sprintf("%s:%d", smtpCfg.Host, smtpCfg.Port)
	var auth smtp.Auth
	if smtpCfg.Username != "" {
		auth = smtp.PlainAuth("", smtpCfg.Username, smtpCfg.Password, smtpCfg.Host)
	}

	if smtpCfg.UseTLS {
		return sendMailTLS(addr, smtpCfg.Host, auth, smtpCfg.From, to, msg)
	}
	return smtp.SendMail(addr, auth, smtpCfg.From, to, msg)
}

// sendMailTLS connects via implicit TLS (port 465 / SMTPS) and sends a
// message. For port 587 STARTTLS the dial fails and we fall back to
// smtp.SendMail, which negotiates the upgrade itself; UseTLS=true always
// means an encrypted connection either way.
func sendMailTLS(addr, host string, auth smtp.Auth, from string, to []string, msg []byte) error {
	tlsConfig := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return smtp.SendMail(addr, auth, from, to, msg)
	}
	defer conn.Close()

	hostname, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, hostname)
	if err != nil {
		return fmt.Errorf("smtp new client: %w", err)
	}
	defer c.Quit() //nolint:errcheck

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	return w.Close()
}
