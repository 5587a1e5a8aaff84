package lifecycle

import (
	"context"
	"time"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
	"github.com/brokerdesk/backoffice/backend/internal/identity"
	"github.com/brokerdesk/backoffice/backend/internal/outbox"
)

// Deactivate soft-removes an entity. The provider status mirror is
// best-effort; the local row is always updated. An advisor with active
// clients is refused before anything is touched.
func (c *Coordinator) Deactivate(ctx context.Context, kind domain.Kind, id string) (e *domain.Entity, err error) {
	start := time.Now()
	defer func() { c.observe(ctx, kind, OpDeactivate, start, err) }()

	return c.setActive(ctx, kind, id, false)
}

// Reactivate restores a deactivated entity.
func (c *Coordinator) Reactivate(ctx context.Context, kind domain.Kind, id string) (e *domain.Entity, err error) {
	start := time.Now()
	defer func() { c.observe(ctx, kind, OpReactivate, start, err) }()

	return c.setActive(ctx, kind, id, true)
}

func (c *Coordinator) setActive(ctx context.Context, kind domain.Kind, id string, active bool) (*domain.Entity, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidKind
	}

	release, err := c.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	e, err := c.store.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	if !active && kind == domain.KindAdvisor {
		n, err := c.store.CountDependents(ctx, id, true)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, domain.ErrHasActiveDependents
		}
	}

	if err := c.mirrorStatus(ctx, e, active); err != nil {
		c.logger.Warn("cannot mirror status to provider", "kind", kind, "id", id, "active", active, "error", err)
		c.reconcile(ctx, outbox.TaskSyncAccount, kind, id, err)
	}

	updated, err := c.store.SetActive(ctx, kind, id, active)
	if err != nil {
		return nil, err
	}

	eventType := domain.EventReactivated
	if !active {
		eventType = domain.EventDeactivated
	}
	c.notify(ctx, eventType, updated)

	return updated, nil
}

// mirrorStatus merges isActive into the account's current metadata.
func (c *Coordinator) mirrorStatus(ctx context.Context, e *domain.Entity, active bool) error {
	pctx, cancel := c.providerCtx(ctx)
	defer cancel()

	account, err := c.provider.GetAccount(pctx, e.ID)
	if err != nil {
		return err
	}

	metadata := account.Metadata
	if metadata.Validate() != nil {
		// blob was never written or got mangled; rebuild it from the row
		metadata = metadata.Refresh(e)
	}
	metadata = metadata.WithActive(active)

	return c.provider.UpdateAccount(pctx, e.ID, identity.AccountChanges{}, &metadata)
}
