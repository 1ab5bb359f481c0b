package mailer

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/edupanel/apiserver/internal/mq"
	"github.com/edupanel/apiserver/internal/notify"
)

type sentMail struct {
	to      string
	subject string
	body    string
}

type fakeSender struct {
	mails []sentMail
}

func (s *fakeSender) Send(to, subject, htmlBody string) error {
	s.mails = append(s.mails, sentMail{to: to, subject: subject, body: htmlBody})
	return nil
}

func message(t *testing.T, event notify.Event) mq.Message {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return mq.Message{ID: "msg-1", Data: data}
}

func TestWorkerSendsConfirmEmail(t *testing.T) {
	sender := &fakeSender{}
	worker := NewWorker(nil, "", sender)

	err := worker.handle(context.Background(), message(t, notify.Event{
		Kind:  notify.KindConfirmEmail,
		Email: "alice@campus.edu",
		Code:  "123456",
	}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(sender.mails) != 1 {
		t.Fatalf("sent %d mails, want 1", len(sender.mails))
	}
	mail := sender.mails[0]
	if mail.to != "alice@campus.edu" {
		t.Fatalf("to = %q", mail.to)
	}
	if !strings.Contains(mail.body, "123456") {
		t.Fatalf("body does not carry the code: %s", mail.body)
	}
}

func TestWorkerSendsApprovalResult(t *testing.T) {
	sender := &fakeSender{}
	worker := NewWorker(nil, "", sender)

	err := worker.handle(context.Background(), message(t, notify.Event{
		Kind:     notify.KindApprovalResult,
		Email:    "alice@campus.edu",
		Name:     "Alice Iyer",
		Approved: true,
	}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	mail := sender.mails[0]
	if !strings.Contains(mail.subject, "approved") {
		t.Fatalf("subject = %q, want an approval subject", mail.subject)
	}
	if !strings.Contains(mail.body, "Alice Iyer") {
		t.Fatalf("body does not address the recipient: %s", mail.body)
	}

	err = worker.handle(context.Background(), message(t, notify.Event{
		Kind:     notify.KindApprovalResult,
		Email:    "bob@campus.edu",
		Name:     "Bob Rao",
		Approved: false,
	}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if strings.Contains(sender.mails[1].body, "has been approved") {
		t.Fatalf("rejection mail carries approval copy: %s", sender.mails[1].body)
	}
}

func TestWorkerDropsBadEvents(t *testing.T) {
	sender := &fakeSender{}
	worker := NewWorker(nil, "", sender)
	ctx := context.Background()

	// Malformed payloads and unknown kinds are dropped without error so
	// the broker does not redeliver them forever.
	if err := worker.handle(ctx, mq.Message{ID: "bad", Data: []byte("{not json")}); err != nil {
		t.Fatalf("malformed payload err = %v, want nil", err)
	}
	if err := worker.handle(ctx, message(t, notify.Event{Kind: "surprise"})); err != nil {
		t.Fatalf("unknown kind err = %v, want nil", err)
	}
	if len(sender.mails) != 0 {
		t.Fatalf("sent %d mails, want 0", len(sender.mails))
	}
}
