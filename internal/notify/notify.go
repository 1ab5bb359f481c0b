// Package notify is the fire-and-forget notification channel. The
// lifecycle services publish events here; delivery happens elsewhere
// (the mailer worker). Callers never wait on delivery beyond the broker
// accepting the message.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/edupanel/apiserver/internal/mq"
	"github.com/edupanel/apiserver/types"
	"github.com/sony/gobreaker"
)

// DefaultChannel is the broker channel notification events go through.
const DefaultChannel = "notifications"

// Event kinds.
const (
	KindConfirmEmail   = "confirm_email"
	KindApprovalResult = "approval_result"
)

// Event is the wire format shared by the publisher and the mailer.
type Event struct {
	Kind     string     `json:"kind"`
	Email    string     `json:"email"`
	Name     string     `json:"name,omitempty"`
	Role     types.Role `json:"role,omitempty"`
	Code     string     `json:"code,omitempty"`
	Approved bool       `json:"approved,omitempty"`
}

// Notifier is what the lifecycle services publish through.
type Notifier interface {
	ConfirmEmail(ctx context.Context, email string, role types.Role, code string) error
	ApprovalResult(ctx context.Context, email, name string, approved bool) error
}

// Publisher sends events over the message queue behind a circuit
// breaker, so a dead broker fails fast instead of stalling logins.
type Publisher struct {
	queue   *mq.MQ
	channel string
	breaker *gobreaker.CircuitBreaker
}

func NewPublisher(queue *mq.MQ, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{
		queue:   queue,
		channel: channel,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "notify-publisher",
			MaxRequests: 3,
			Interval:    10 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("circuit breaker %s: %s -> %s", name, from, to)
			},
		}),
	}
}

func (p *Publisher) ConfirmEmail(ctx context.Context, email string, role types.Role, code string) error {
	return p.publish(ctx, Event{
		Kind:  KindConfirmEmail,
		Email: email,
		Role:  role,
		Code:  code,
	})
}

func (p *Publisher) ApprovalResult(ctx context.Context, email, name string, approved bool) error {
	return p.publish(ctx, Event{
		Kind:     KindApprovalResult,
		Email:    email,
		Name:     name,
		Approved: approved,
	})
}

func (p *Publisher) publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.breaker.Execute(func() (any, error) {
		id, err := p.queue.Publish(ctx, p.channel, data, map[string]string{"kind": event.Kind})
		return id, err
	})
	return err
}
