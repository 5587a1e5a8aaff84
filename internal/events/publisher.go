// Package events publishes directory events and mail jobs to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
	"github.com/brokerdesk/backoffice/backend/internal/identity"
)

const (
	EventQueue = "directory_events"
	MailQueue  = "email_queue"
)

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Publisher struct {
	ch      Channel
	timeout time.Duration
}

func NewPublisher(ch Channel, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Publisher{ch: ch, timeout: timeout}
}

// DeclareQueues declares the durable queues the publisher writes to.
func DeclareQueues(ch *amqp.Channel) error {
	for _, name := range []string{EventQueue, MailQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.ch.PublishWithContext(
		ctx,
		"",
		queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

func (p *Publisher) PublishMail(ctx context.Context, msg domain.MailMessage) error {
	return p.publish(ctx, MailQueue, msg)
}

// mailFor picks the notice sent to the account owner, if any.
func mailFor(event domain.Event) (string, bool) {
	switch event.Type {
	case domain.EventCreated:
		return domain.MailAccountCreated, true
	case domain.EventDeactivated:
		return domain.MailAccountDeactivated, true
	case domain.EventReactivated:
		return domain.MailAccountReactivated, true
	}
	return "", false
}

// Notify publishes the event and queues the matching mail.
func (p *Publisher) Notify(ctx context.Context, event domain.Event) error {
	if err := p.publish(ctx, EventQueue, event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	mailType, ok := mailFor(event)
	if !ok || event.Email == "" {
		return nil
	}

	msg := domain.MailMessage{
		Type: mailType,
		To:   event.Email,
		Data: domain.AccountMailData{Name: event.Name, Role: event.Role},
	}
	if err := p.PublishMail(ctx, msg); err != nil {
		return fmt.Errorf("publish mail: %w", err)
	}
	return nil
}

// CredentialsHook returns a callback that mails generated credentials to the
// account owner.
func (p *Publisher) CredentialsHook(logger *slog.Logger) func(ctx context.Context, c identity.Credentials) {
	return func(ctx context.Context, c identity.Credentials) {
		msg := domain.MailMessage{
			Type: domain.MailAccountCredentials,
			To:   c.Email,
			Data: domain.CredentialsMailData{Name: c.Name, Email: c.Email, Password: c.Password},
		}
		if err := p.PublishMail(ctx, msg); err != nil {
			logger.Error("cannot queue credentials mail", "account", c.AccountID, "error", err)
		}
	}
}
