package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"vigil/api/config"
	"vigil/api/logger"
)

// EmailSender delivers alert mail over SMTP with STARTTLS. When the
// SMTP config is incomplete the sender logs and skips, matching how an
// unconfigured channel behaves elsewhere in the service.
type EmailSender struct {
	cfg config.SMTPConfig
}

func NewEmailSender(cfg config.SMTPConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

func (s *EmailSender) Name() string { return "email" }

func (s *EmailSender) configured() bool {
	return s.cfg.Host != "" && s.cfg.User != "" && s.cfg.Password != "" &&
		s.cfg.From != "" && s.cfg.To != ""
}

func (s *EmailSender) Send(_ context.Context, ev Event) error {
	if !s.configured() {
		clog := logger.WithComponent("notify")
		clog.Warn().Msg("email configuration incomplete, skipping email alert")
		return nil
	}

	subject := fmt.Sprintf("Alert: %s is %s", ev.MonitorName, ev.Kind)
	body := fmt.Sprintf(
		"Vigil Alert\r\n\r\nMonitor: %s\r\nStatus: %s\r\nTime: %s\r\n\r\nMessage: %s\r\n\r\n---\r\nThis is an automated alert from vigil\r\n",
		ev.MonitorName,
		strings.ToUpper(ev.Kind),
		ev.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
		ev.Message,
	)

	msg := strings.Join([]string{
		"From: " + s.cfg.From,
		"To: " + s.cfg.To,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)

	// smtp.SendMail negotiates STARTTLS when the server offers it.
	if err := smtp.SendMail(addr, auth, s.cfg.From, strings.Split(s.cfg.To, ","), []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
