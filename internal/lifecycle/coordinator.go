// Package lifecycle keeps directory rows and identity provider accounts in
// step.
//
// Every operation talks to the provider and to the local store in a fixed
// order and never retries inline. Provider calls that are best-effort leave
// a reconciliation task behind when they fail, and the outbox worker replays
// those until both systems agree.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
	"github.com/brokerdesk/backoffice/backend/internal/identity"
	"github.com/brokerdesk/backoffice/backend/internal/outbox"
	"github.com/brokerdesk/backoffice/backend/internal/utils"
)

// Store is the local directory.
type Store interface {
	GetByID(ctx context.Context, kind domain.Kind, id string) (*domain.Entity, error)
	FindByEmail(ctx context.Context, email string) (*domain.Entity, error)
	FindByCode(ctx context.Context, code string) (*domain.Entity, error)
	Insert(ctx context.Context, e *domain.Entity) error
	Update(ctx context.Context, e *domain.Entity) error
	SetActive(ctx context.Context, kind domain.Kind, id string, active bool) (*domain.Entity, error)
	Delete(ctx context.Context, kind domain.Kind, id string) error
	CountDependents(ctx context.Context, advisorID string, activeOnly bool) (int, error)
	CountRelated(ctx context.Context, userID string) (domain.RelatedCounts, error)
	GetOffice(ctx context.Context, id string) (*domain.Office, error)
}

// Locker serializes operations on the same key. Acquire fails with
// domain.ErrBusy when the key is held.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type Outbox interface {
	NewTask(ctx context.Context, taskType outbox.TaskType, kind domain.Kind, accountID, reason string) (string, error)
}

type Notifier interface {
	Notify(ctx context.Context, event domain.Event) error
}

type Recorder interface {
	ObserveOperation(ctx context.Context, kind domain.Kind, op string, err error, d time.Duration)
	ObserveCompensation(ctx context.Context, kind domain.Kind, ok bool)
	ObserveReconciliation(ctx context.Context, kind domain.Kind, taskType string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveOperation(context.Context, domain.Kind, string, error, time.Duration) {}
func (noopRecorder) ObserveCompensation(context.Context, domain.Kind, bool) {}
func (noopRecorder) ObserveReconciliation(context.Context, domain.Kind, string) {}

const (
	OpCreate     = "create"
	OpUpdate     = "update"
	OpDeactivate = "deactivate"
	OpReactivate = "reactivate"
	OpDelete     = "delete"
)

type Coordinator struct {
	store    Store
	provider identity.Provider
	validate *validator.Validate

	locker          Locker
	outbox          Outbox
	notifier        Notifier
	recorder        Recorder
	logger          *slog.Logger
	providerTimeout time.Duration
	now             func() time.Time
}

type Option func(*Coordinator)

func WithLocker(l Locker) Option {
	return func(c *Coordinator) { c.locker = l }
}

func WithOutbox(o Outbox) Option {
	return func(c *Coordinator) { c.outbox = o }
}

func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) { c.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithProviderTimeout bounds every identity provider call. Zero disables
// the bound.
func WithProviderTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.providerTimeout = d }
}

func WithValidator(v *validator.Validate) Option {
	return func(c *Coordinator) { c.validate = v }
}

// New builds a coordinator. The validator, shared or default, gets the
// custom domain tags registered.
func New(store Store, provider identity.Provider, opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		store:    store,
		provider: provider,
		recorder: noopRecorder{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.validate == nil {
		c.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	if err := utils.RegisterValidations(c.validate); err != nil {
		return nil, fmt.Errorf("register validations: %w", err)
	}
	c.logger = c.logger.With("component", "lifecycle")
	return c, nil
}

func (c *Coordinator) providerCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.providerTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.providerTimeout)
}

func (c *Coordinator) lock(ctx context.Context, key string) (func(), error) {
	if c.locker == nil {
		return func() {}, nil
	}
	return c.locker.Acquire(ctx, key)
}

func (c *Coordinator) observe(ctx context.Context, kind domain.Kind, op string, start time.Time, err error) {
	c.recorder.ObserveOperation(ctx, kind, op, err, time.Since(start))
}

// reconcile records follow-up work for the outbox worker. It never fails the
// calling operation.
func (c *Coordinator) reconcile(ctx context.Context, taskType outbox.TaskType, kind domain.Kind, accountID string, cause error) {
	if c.outbox == nil {
		return
	}

	reason := ""
	if cause != nil {
		reason = cause.Error()
	}

	if _, err := c.outbox.NewTask(context.WithoutCancel(ctx), taskType, kind, accountID, reason); err != nil {
		c.logger.Error("cannot record reconciliation task", "type", taskType, "kind", kind, "id", accountID, "error", err)
		return
	}
	c.recorder.ObserveReconciliation(ctx, kind, string(taskType))
}

func (c *Coordinator) notify(ctx context.Context, eventType domain.EventType, e *domain.Entity) {
	if c.notifier == nil {
		return
	}

	event := domain.Event{
		Type:       eventType,
		Kind:       e.Kind,
		EntityID:   e.ID,
		Name:       e.Name,
		Email:      e.Email,
		Role:       e.Role,
		OccurredAt: c.now(),
	}
	if err := c.notifier.Notify(context.WithoutCancel(ctx), event); err != nil {
		c.logger.Warn("cannot publish event", "type", eventType, "kind", e.Kind, "id", e.ID, "error", err)
	}
}

// Get loads one entity of the given kind.
func (c *Coordinator) Get(ctx context.Context, kind domain.Kind, id string) (*domain.Entity, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidKind
	}
	return c.store.GetByID(ctx, kind, id)
}
