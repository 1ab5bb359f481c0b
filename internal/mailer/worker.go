package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log"

	"github.com/edupanel/apiserver/internal/mq"
	"github.com/edupanel/apiserver/internal/notify"
)

var confirmTmpl = template.Must(template.New("confirm").Parse(`
<p>Welcome to EduPanel.</p>
<p>Your verification code is:</p>
<h2>{{.Code}}</h2>
<p>The code expires in 10 minutes. If you did not register, ignore this email.</p>
`))

var approvalTmpl = template.Must(template.New("approval").Parse(`
{{if .Approved}}
<p>Hello {{.Name}},</p>
<p>Your EduPanel account has been approved. You can now sign in and use your dashboard.</p>
{{else}}
<p>Hello {{.Name}},</p>
<p>Your EduPanel account request was not approved. Please contact support for details.</p>
{{end}}
`))

// Sender is satisfied by *Mailer.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// Worker consumes notification events and sends the matching email.
type Worker struct {
	queue   *mq.MQ
	channel string
	sender  Sender
}

func NewWorker(queue *mq.MQ, channel string, sender Sender) *Worker {
	if channel == "" {
		channel = notify.DefaultChannel
	}
	return &Worker{queue: queue, channel: channel, sender: sender}
}

// Run blocks consuming the notification channel until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	return w.queue.Subscribe(ctx, w.channel, w.handle)
}

func (w *Worker) handle(ctx context.Context, msg mq.Message) error {
	var event notify.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		// Malformed payloads are dropped, not retried.
		log.Printf("mailer: dropping malformed event %s: %v", msg.ID, err)
		return nil
	}

	switch event.Kind {
	case notify.KindConfirmEmail:
		return w.sendConfirm(event)
	case notify.KindApprovalResult:
		return w.sendApprovalResult(event)
	default:
		log.Printf("mailer: dropping event %s with unknown kind %q", msg.ID, event.Kind)
		return nil
	}
}

func (w *Worker) sendConfirm(event notify.Event) error {
	var body bytes.Buffer
	if err := confirmTmpl.Execute(&body, event); err != nil {
		return fmt.Errorf("render confirm email: %w", err)
	}
	return w.sender.Send(event.Email, "Verify your EduPanel email", body.String())
}

func (w *Worker) sendApprovalResult(event notify.Event) error {
	var body bytes.Buffer
	if err := approvalTmpl.Execute(&body, event); err != nil {
		return fmt.Errorf("render approval email: %w", err)
	}

	subject := "Your EduPanel account was approved"
	if !event.Approved {
		subject = "Your EduPanel account request"
	}
	return w.sender.Send(event.Email, subject, body.String())
}
