package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"mercator-hq/tabula/pkg/filestore"
)

type fakeSender struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeSender) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, email)
	return &rest.Response{StatusCode: f.status}, nil
}

func sampleEvent() Event {
	return Event{
		ExportID:  "exp-1",
		Label:     "gift cards",
		Recipient: "ops@example.com",
		Reference: filestore.Reference{Name: "gift_card_data.csv", Location: "https://files.example.com/gift_card_data.csv"},
		Rows:      3,
	}
}

func TestSendGridNotifier_Notify(t *testing.T) {
	sender := &fakeSender{status: 202}
	n := newSendGridNotifier(&SendGridConfig{FromEmail: "noreply@example.com", FromName: "Tabula"}, sender)

	if err := n.Notify(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Notify() failed: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.Subject != "Your gift cards export is ready" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if got := msg.Personalizations[0].To[0].Address; got != "ops@example.com" {
		t.Errorf("recipient = %q", got)
	}
	if !strings.Contains(msg.Content[0].Value, "https://files.example.com/gift_card_data.csv") {
		t.Errorf("body lacks download link: %q", msg.Content[0].Value)
	}
}

func TestSendGridNotifier_SkipsWithoutRecipient(t *testing.T) {
	sender := &fakeSender{status: 202}
	n := newSendGridNotifier(&SendGridConfig{FromEmail: "noreply@example.com"}, sender)

	event := sampleEvent()
	event.Recipient = ""
	if err := n.Notify(context.Background(), event); err != nil {
		t.Fatalf("Notify() failed: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent %d messages, want none", len(sender.sent))
	}
}

func TestSendGridNotifier_Errors(t *testing.T) {
	tests := []struct {
		name   string
		sender *fakeSender
	}{
		{"transport", &fakeSender{err: errors.New("connection reset")}},
		{"status", &fakeSender{status: 401}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newSendGridNotifier(&SendGridConfig{FromEmail: "noreply@example.com"}, tt.sender)
			var de *DeliveryError
			if err := n.Notify(context.Background(), sampleEvent()); !errors.As(err, &de) {
				t.Errorf("Notify() = %v, want *DeliveryError", err)
			}
		})
	}
}

func TestNewSendGridNotifier_RequiresConfig(t *testing.T) {
	if _, err := NewSendGridNotifier(&SendGridConfig{}); err == nil {
		t.Error("expected error without api key")
	}
	if _, err := NewSendGridNotifier(&SendGridConfig{APIKey: "k"}); err == nil {
		t.Error("expected error without sender")
	}
}

func TestMulti_JoinsErrors(t *testing.T) {
	ok := NewRecorder()
	failing := NewRecorder()
	failing.FailNext(1, errors.New("down"))

	err := Multi{failing, NewLogNotifier(), ok}.Notify(context.Background(), sampleEvent())
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(ok.Events()) != 1 {
		t.Errorf("healthy notifier got %d events, want 1", len(ok.Events()))
	}
	if len(failing.Events()) != 0 {
		t.Errorf("failing notifier recorded %d events", len(failing.Events()))
	}
}
