package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
	"github.com/brokerdesk/backoffice/backend/internal/identity"
)

const workerName = "OutboxWorker"

// EntityGetter loads the authoritative local row of an account.
type EntityGetter interface {
	GetByID(ctx context.Context, kind domain.Kind, id string) (*domain.Entity, error)
}

type WorkerOptions struct {
	Schedule       string
	BatchSize      int
	RequestTimeout time.Duration
}

type Worker struct {
	repo     Repository
	store    EntityGetter
	provider identity.Provider
	opts     WorkerOptions
	logger   *slog.Logger
	cron     *cron.Cron
}

func NewWorker(repo Repository, store EntityGetter, provider identity.Provider, opts WorkerOptions, logger *slog.Logger) *Worker {
	if opts.Schedule == "" {
		opts.Schedule = "@every 1m"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		repo:     repo,
		store:    store,
		provider: provider,
		opts:     opts,
		logger:   logger.With("worker", workerName),
		cron:     cron.New(),
	}
}

func (w *Worker) Start() error {
	if err := w.cron.AddFunc(w.opts.Schedule, func() { w.ProcessPending(context.Background()) }); err != nil {
		return fmt.Errorf("schedule %s: %w", workerName, err)
	}
	w.cron.Start()
	w.logger.Info("outbox worker started", "schedule", w.opts.Schedule)
	return nil
}

func (w *Worker) Stop() {
	w.cron.Stop()
}

// ProcessPending replays one batch of pending tasks and returns how many
// were completed.
func (w *Worker) ProcessPending(ctx context.Context) int {
	tasks, err := w.repo.GetPending(ctx, w.opts.BatchSize)
	if err != nil {
		w.logger.Error("cannot read pending tasks", "error", err)
		return 0
	}

	done := 0
	for _, task := range tasks {
		if err := w.process(ctx, task); err != nil {
			w.logger.Warn("task failed", "task", task.TaskID, "type", task.Type, "account", task.AccountID, "retry", task.Retry+1, "error", err)
			if err := w.repo.RecordFailure(ctx, task.TaskID, err); err != nil {
				w.logger.Error("cannot record task failure", "task", task.TaskID, "error", err)
			}
			continue
		}

		if err := w.repo.MarkProcessed(ctx, task.TaskID); err != nil {
			w.logger.Error("cannot mark task processed", "task", task.TaskID, "error", err)
			continue
		}
		done++
	}

	return done
}

func (w *Worker) process(ctx context.Context, task Task) error {
	ctx, cancel := context.WithTimeout(ctx, w.opts.RequestTimeout)
	defer cancel()

	switch task.Type {
	case TaskDeleteAccount:
		return w.provider.DeleteAccount(ctx, task.AccountID)
	case TaskSyncAccount:
		return w.sync(ctx, task)
	default:
		return fmt.Errorf("unknown task type %q", task.Type)
	}
}

func (w *Worker) sync(ctx context.Context, task Task) error {
	entity, err := w.store.GetByID(ctx, task.EntityKind, task.AccountID)
	if errors.Is(err, domain.ErrNotFound) {
		w.logger.Info("local row is gone, deleting account", "task", task.TaskID, "account", task.AccountID)
		return w.provider.DeleteAccount(ctx, task.AccountID)
	}
	if err != nil {
		return err
	}

	metadata := identity.MetadataFor(entity)
	if account, err := w.provider.GetAccount(ctx, entity.ID); err == nil {
		metadata = account.Metadata.Refresh(entity)
	} else if identity.IsNotFound(err) {
		return fmt.Errorf("account %s does not exist at the provider", entity.ID)
	}
	metadata = metadata.WithActive(entity.IsActive)

	given, family := identity.SplitName(entity.Name)
	changes := identity.AccountChanges{
		GivenName:  &given,
		FamilyName: &family,
		Email:      &entity.Email,
		Phone:      &entity.Phone,
	}

	return w.provider.UpdateAccount(ctx, entity.ID, changes, &metadata)
}
