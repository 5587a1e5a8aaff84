package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
	"github.com/brokerdesk/backoffice/backend/internal/identity"
)

type published struct {
	queue string
	msg   amqp.Publishing
}

type fakeChannel struct {
	sent []published
	err  error
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	c.sent = append(c.sent, published{queue: key, msg: msg})
	return nil
}

func TestPublisher_NotifyCreated(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, time.Second)

	event := domain.Event{Type: domain.EventCreated, Kind: domain.KindAdvisor, EntityID: "adv_1", Name: "João Silva", Email: "joao@x.com", Role: domain.RoleAdvisor}
	require.NoError(t, p.Notify(context.Background(), event))

	require.Len(t, ch.sent, 2)
	assert.Equal(t, EventQueue, ch.sent[0].queue)
	assert.Equal(t, "application/json", ch.sent[0].msg.ContentType)

	var got domain.Event
	require.NoError(t, json.Unmarshal(ch.sent[0].msg.Body, &got))
	assert.Equal(t, "adv_1", got.EntityID)

	assert.Equal(t, MailQueue, ch.sent[1].queue)
	var mail struct {
		Type string                 `json:"type"`
		To   string                 `json:"to"`
		Data domain.AccountMailData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(ch.sent[1].msg.Body, &mail))
	assert.Equal(t, domain.MailAccountCreated, mail.Type)
	assert.Equal(t, "joao@x.com", mail.To)
	assert.Equal(t, domain.RoleAdvisor, mail.Data.Role)
}

func TestPublisher_NotifyUpdatedSendsNoMail(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, time.Second)

	require.NoError(t, p.Notify(context.Background(), domain.Event{Type: domain.EventUpdated, Email: "a@x.com"}))
	require.Len(t, ch.sent, 1)
	assert.Equal(t, EventQueue, ch.sent[0].queue)
}

func TestPublisher_NotifyError(t *testing.T) {
	p := NewPublisher(&fakeChannel{err: amqp.ErrClosed}, time.Second)
	err := p.Notify(context.Background(), domain.Event{Type: domain.EventDeleted})
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

func TestPublisher_CredentialsHook(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, time.Second)
	hook := p.CredentialsHook(slog.New(slog.NewTextHandler(io.Discard, nil)))

	hook(context.Background(), identity.Credentials{AccountID: "a1", Email: "maria@x.com", Name: "Maria", Password: "Xy12abcd"})

	require.Len(t, ch.sent, 1)
	var mail struct {
		Type string                     `json:"type"`
		Data domain.CredentialsMailData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(ch.sent[0].msg.Body, &mail))
	assert.Equal(t, domain.MailAccountCredentials, mail.Type)
	assert.Equal(t, "Xy12abcd", mail.Data.Password)
}
