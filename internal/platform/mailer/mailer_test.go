package mailer

import (
	"context"
	"testing"

	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/config"
)

func TestNewPicksProvider(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.EmailConfig
		want string
	}{
		{"dev mode wins", config.EmailConfig{DevMode: true, MailerSendKey: "key", From: "a@b.co"}, "dev"},
		{"mailersend", config.EmailConfig{MailerSendKey: "key", From: "a@b.co"}, "mailersend"},
		{"smtp", config.EmailConfig{SMTPHost: "localhost", SMTPPort: 1025, From: "a@b.co"}, "smtp"},
		{"nothing configured", config.EmailConfig{}, "dev"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			switch New(tt.cfg).(type) {
			case *DevMailer:
				got = "dev"
			case *Mailer:
				got = "mailersend"
			case *SMTPMailer:
				got = "smtp"
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDisabledMailerSendFails(t *testing.T) {
	m := NewMailer("", "HagzYomi", "")
	if m.Enabled {
		t.Fatal("expected mailer to be disabled without a key")
	}
	if _, err := m.Send(context.Background(), Message{ToEmail: "admin@example.com"}); err == nil {
		t.Fatal("expected error from disabled mailer")
	}
}

func TestSMTPRejectsEmptyRecipient(t *testing.T) {
	m := NewSMTPMailer("localhost", 1025, "noreply@example.com", "", "", false)
	if _, err := m.Send(context.Background(), Message{Subject: "x"}); err == nil {
		t.Fatal("expected error for empty recipient")
	}
}

func TestDevMailerNeverFails(t *testing.T) {
	if _, err := NewDevMailer().Send(context.Background(), Message{ToEmail: "admin@example.com", Subject: "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
