// internal/notify/email.go
package notify

import (
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Notifier delivers trade and report emails. Delivery is best effort:
// callers fire it from detached goroutines and failures are only logged.
type Notifier interface {
	Notify(subject, body, attachmentPath string)
}

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Enabled reports whether enough settings are present to send mail.
func (c EmailConfig) Enabled() bool {
	return c.Host != "" && c.From != "" && c.To != ""
}

// EmailNotifier sends notifications over SMTP.
type EmailNotifier struct {
	config EmailConfig
	dialer *gomail.Dialer
	logger *zap.Logger
}

// NewEmailNotifier creates an SMTP notifier.
func NewEmailNotifier(config EmailConfig, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		logger: logger.Named("notify"),
	}
}

// Notify sends one email. Failures are logged, never surfaced.
func (n *EmailNotifier) Notify(subject, body, attachmentPath string) {
	if !n.config.Enabled() {
		n.logger.Debug("Email disabled, dropping notification", zap.String("subject", subject))
		return
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.config.From)
	msg.SetHeader("To", n.config.To)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if attachmentPath != "" {
		msg.Attach(attachmentPath)
	}

	if err := n.dialer.DialAndSend(msg); err != nil {
		n.logger.Error("Failed to send notification email",
			zap.String("subject", subject),
			zap.Error(err))
		return
	}
	n.logger.Info("📧 Notification sent", zap.String("subject", subject))
}

// NopNotifier drops every notification. Used when mail is not configured
// and in tests.
type NopNotifier struct{}

func (NopNotifier) Notify(string, string, string) {}
