package lifecycle

import (
	"context"
	"time"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
	"github.com/brokerdesk/backoffice/backend/internal/outbox"
)

// PermanentDelete removes an inactive entity from both systems. Guards run
// before any mutation; the provider delete is best-effort and the local
// delete always runs once the guards pass.
func (c *Coordinator) PermanentDelete(ctx context.Context, kind domain.Kind, id string) (res domain.DeleteResult, err error) {
	start := time.Now()
	defer func() { c.observe(ctx, kind, OpDelete, start, err) }()

	if !kind.Valid() {
		return domain.DeleteResult{}, domain.ErrInvalidKind
	}

	release, err := c.lock(ctx, id)
	if err != nil {
		return domain.DeleteResult{}, err
	}
	defer release()

	e, err := c.store.GetByID(ctx, kind, id)
	if err != nil {
		return domain.DeleteResult{}, err
	}

	if err := c.checkDeletable(ctx, e); err != nil {
		return domain.DeleteResult{}, err
	}

	pctx, cancel := c.providerCtx(ctx)
	perr := c.provider.DeleteAccount(pctx, id)
	cancel()
	if perr != nil {
		c.logger.Warn("cannot delete provider account", "kind", kind, "id", id, "error", perr)
		c.reconcile(ctx, outbox.TaskDeleteAccount, kind, id, perr)
	}

	if err := c.store.Delete(ctx, kind, id); err != nil {
		return domain.DeleteResult{}, err
	}

	c.logger.Info("entity deleted", "kind", kind, "id", id)
	c.notify(ctx, domain.EventDeleted, e)

	return domain.DeleteResult{Success: true, Name: e.Name}, nil
}

func (c *Coordinator) checkDeletable(ctx context.Context, e *domain.Entity) error {
	if e.IsActive {
		return domain.ErrStillActive
	}

	switch e.Kind {
	case domain.KindAdvisor:
		n, err := c.store.CountDependents(ctx, e.ID, false)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrHasDependents
		}
	case domain.KindUser:
		counts, err := c.store.CountRelated(ctx, e.ID)
		if err != nil {
			return err
		}
		if counts.Total() > 0 {
			return domain.ErrHasRelatedRecords
		}
	}

	return nil
}
