package lifecycle

import (
	"context"
	"time"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
	"github.com/brokerdesk/backoffice/backend/internal/identity"
	"github.com/brokerdesk/backoffice/backend/internal/outbox"
)

// Create provisions the provider account and then the local row under the
// account's id. An empty password asks the provider to generate credentials.
//
// If the local insert fails the account is deleted again; a failed
// compensation is logged and queued for the outbox worker, and the caller
// only sees the insert error.
func (c *Coordinator) Create(ctx context.Context, kind domain.Kind, fields domain.Fields, password string) (e *domain.Entity, err error) {
	start := time.Now()
	defer func() { c.observe(ctx, kind, OpCreate, start, err) }()

	if !kind.Valid() {
		return nil, domain.ErrInvalidKind
	}

	e, err = c.newEntity(kind, fields)
	if err != nil {
		return nil, err
	}

	release, err := c.lock(ctx, "email:"+e.Email)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := c.checkEmailFree(ctx, e.Email, ""); err != nil {
		return nil, err
	}
	if kind == domain.KindAdvisor {
		if err := c.checkCodeFree(ctx, e.Code, ""); err != nil {
			return nil, err
		}
	}
	if err := c.checkReferences(ctx, e); err != nil {
		return nil, err
	}

	given, family := identity.SplitName(e.Name)
	account := identity.NewAccount{
		Email:              e.Email,
		GivenName:          given,
		FamilyName:         family,
		Password:           password,
		SkipPasswordChecks: password == "",
		Metadata:           identity.MetadataFor(e),
	}

	pctx, cancel := c.providerCtx(ctx)
	id, err := c.provider.CreateAccount(pctx, account)
	cancel()
	if err != nil {
		return nil, identity.MapError(err)
	}

	e.ID = id
	if err := c.store.Insert(ctx, e); err != nil {
		c.compensateCreate(ctx, kind, id, err)
		return nil, err
	}

	c.logger.Info("entity created", "kind", kind, "id", e.ID)
	c.notify(ctx, domain.EventCreated, e)

	return e, nil
}

func (c *Coordinator) compensateCreate(ctx context.Context, kind domain.Kind, accountID string, cause error) {
	c.logger.Warn("local insert failed, deleting provider account", "kind", kind, "id", accountID, "error", cause)

	pctx, cancel := c.providerCtx(context.WithoutCancel(ctx))
	defer cancel()

	if err := c.provider.DeleteAccount(pctx, accountID); err != nil {
		c.logger.Error("compensating delete failed, provider account is orphaned", "kind", kind, "id", accountID, "error", err)
		c.recorder.ObserveCompensation(ctx, kind, false)
		c.reconcile(ctx, outbox.TaskDeleteAccount, kind, accountID, err)
		return
	}

	c.recorder.ObserveCompensation(ctx, kind, true)
}
