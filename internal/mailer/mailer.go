// Package mailer sends the daily due-date digest over SMTP.
package mailer

import (
	"crypto/tls"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/prefvista/fiscal-api/internal/config"
)

// Mailer wraps an SMTP dialer. A nil Mailer is valid and drops messages,
// so callers never need to guard on SMTP being configured.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

// NewMailer creates a mailer from the SMTP configuration. Returns nil when
// SMTP is disabled.
func NewMailer(cfg *config.SMTPConfig, logger *zap.Logger) *Mailer {
	if !cfg.Enabled || cfg.Host == "" {
		logger.Info("SMTP disabled, digest emails will not be sent")
		return nil
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{
		ServerName: cfg.Host,
		MinVersion: tls.VersionTLS12,
	}

	return &Mailer{
		dialer: dialer,
		from:   cfg.From,
		logger: logger,
	}
}

// Send delivers one HTML message to the recipients
func (m *Mailer) Send(subject, htmlBody string, recipients []string) error {
	if m == nil {
		return nil
	}
	if len(recipients) == 0 {
		return nil
	}

	msg := gomail.NewMessage(
		gomail.SetCharset("UTF-8"),
		gomail.SetEncoding(gomail.Base64),
	)
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("email sent",
		zap.String("subject", subject),
		zap.Int("recipients", len(recipients)),
	)
	return nil
}
