package mailer

import (
	"context"

	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/config"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/logger"
)

type Message struct {
	ToEmail string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Service sends one message and returns the provider's message id, if any.
type Service interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// New picks MailerSend, then SMTP, then the log-only dev mailer.
func New(cfg config.EmailConfig) Service {
	switch {
	case cfg.DevMode:
		logger.Info("Email dev mode: messages are logged, not sent")
		return NewDevMailer()
	case cfg.MailerSendKey != "":
		return NewMailer(cfg.MailerSendKey, cfg.FromName, cfg.From)
	case cfg.SMTPHost != "":
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.From, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPTLS)
	default:
		logger.Warn("No email provider configured, falling back to dev mailer")
		return NewDevMailer()
	}
}
