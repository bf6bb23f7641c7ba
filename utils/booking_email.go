package utils

import (
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"go.uber.org/zap"
)

// SMTPMailer delivers notification emails over SMTP. When the SMTP
// environment variables are absent it logs the mail instead of sending,
// so local setups work without a mail account.
type SMTPMailer struct {
	logger *zap.Logger
}

func NewSMTPMailer(logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{logger: logger}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USERNAME")
	smtpPass := os.Getenv("SMTP_PASSWORD")
	fromName := os.Getenv("SMTP_FROM_NAME")

	if smtpUser == "" || smtpPass == "" || smtpHost == "" || smtpPort == "" {
		m.logger.Info("mock email (SMTP not configured)",
			zap.String("to", to),
			zap.String("subject", subject),
		)
		return nil
	}

	from := fmt.Sprintf("%s <%s>", fromName, smtpUser)
	addr := fmt.Sprintf("%s:%s", smtpHost, smtpPort)
	auth := smtp.PlainAuth("", smtpUser, smtpPass, smtpHost)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("From: %s\r\n", from))
	sb.WriteString(fmt.Sprintf("To: %s\r\n", to))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	sb.WriteString(htmlBody + "\r\n")

	if err := smtp.SendMail(addr, auth, smtpUser, []string{to}, []byte(sb.String())); err != nil {
		m.logger.Warn("failed to send email", zap.String("to", to), zap.Error(err))
		return err
	}

	m.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
