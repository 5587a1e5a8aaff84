package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
	"github.com/brokerdesk/backoffice/backend/internal/identity"
	"github.com/brokerdesk/backoffice/backend/internal/outbox"
)

// applyChanges returns a copy of e with ch applied. Fields that do not exist
// for e's kind are rejected or ignored.
func applyChanges(e *domain.Entity, ch domain.Changes) (*domain.Entity, error) {
	next := *e

	if ch.Name != nil {
		next.Name = strings.TrimSpace(*ch.Name)
	}
	if ch.Email != nil {
		next.Email = strings.TrimSpace(*ch.Email)
	}
	if ch.Phone != nil {
		next.Phone = *ch.Phone
	}
	if ch.TaxID != nil {
		next.TaxID = *ch.TaxID
	}

	if ch.Role != nil && *ch.Role != e.Role {
		if e.Kind != domain.KindUser {
			return nil, domain.ErrInvalidRole
		}
		role, err := roleFor(domain.KindUser, *ch.Role)
		if err != nil {
			return nil, err
		}
		next.Role = role
	}

	switch e.Kind {
	case domain.KindAdvisor:
		if ch.Code != nil {
			next.Code = strings.TrimSpace(*ch.Code)
		}
		if ch.OfficeID != nil {
			next.OfficeID = emptyToNil(ch.OfficeID)
		}
	case domain.KindUser:
		if ch.OfficeID != nil {
			next.OfficeID = emptyToNil(ch.OfficeID)
		}
		if ch.AdvisorID != nil {
			next.AdvisorID = emptyToNil(ch.AdvisorID)
		}
	}

	return &next, nil
}

func linksChanged(prev, next *domain.Entity) bool {
	return prev.Role != next.Role || prev.Code != next.Code ||
		!sameRef(prev.OfficeID, next.OfficeID) || !sameRef(prev.AdvisorID, next.AdvisorID)
}

// profileChanges lists the provider profile fields that differ.
func profileChanges(prev, next *domain.Entity) identity.AccountChanges {
	var ch identity.AccountChanges
	if prev.Name != next.Name {
		given, family := identity.SplitName(next.Name)
		ch.GivenName = &given
		ch.FamilyName = &family
	}
	if prev.Email != next.Email {
		email := next.Email
		ch.Email = &email
	}
	if prev.Phone != next.Phone {
		phone := next.Phone
		ch.Phone = &phone
	}
	return ch
}

// Update changes an entity. The provider only receives the fields that
// changed plus refreshed metadata; the local row is then written in full.
//
// A local write failing after the provider accepted the change is returned
// to the caller and queued as a sync task so the provider is brought back
// in line with the local row.
func (c *Coordinator) Update(ctx context.Context, kind domain.Kind, id string, changes domain.Changes) (e *domain.Entity, err error) {
	start := time.Now()
	defer func() { c.observe(ctx, kind, OpUpdate, start, err) }()

	if !kind.Valid() {
		return nil, domain.ErrInvalidKind
	}
	if err := c.validate.Struct(changes); err != nil {
		return nil, err
	}

	release, err := c.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	prev, err := c.store.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	next, err := applyChanges(prev, changes)
	if err != nil {
		return nil, err
	}
	if next.Name == "" {
		return nil, domain.ErrNameRequired
	}
	if kind == domain.KindAdvisor && next.Code == "" {
		return nil, domain.ErrCodeRequired
	}

	if next.Email != prev.Email {
		// same key as Create, so a concurrent create cannot claim the address
		releaseEmail, err := c.lock(ctx, "email:"+next.Email)
		if err != nil {
			return nil, err
		}
		defer releaseEmail()

		if err := c.checkEmailFree(ctx, next.Email, id); err != nil {
			return nil, err
		}
	}
	if kind == domain.KindAdvisor && next.Code != prev.Code {
		if err := c.checkCodeFree(ctx, next.Code, id); err != nil {
			return nil, err
		}
	}

	relinked := linksChanged(prev, next)
	if relinked {
		if err := c.checkReferences(ctx, next); err != nil {
			return nil, err
		}
	}

	profile := profileChanges(prev, next)
	pushed := false
	if !profile.Empty() || relinked {
		if err := c.pushUpdate(ctx, next, profile); err != nil {
			return nil, identity.MapError(err)
		}
		pushed = true
	}

	if err := c.store.Update(ctx, next); err != nil {
		if pushed {
			c.logger.Error("local update failed after provider update, systems diverged", "kind", kind, "id", id, "error", err)
			c.reconcile(ctx, outbox.TaskSyncAccount, kind, id, err)
		}
		return nil, err
	}

	c.notify(ctx, domain.EventUpdated, next)

	return next, nil
}

// pushUpdate merges the stored metadata with next's links and sends it along
// with the profile changes.
func (c *Coordinator) pushUpdate(ctx context.Context, next *domain.Entity, profile identity.AccountChanges) error {
	pctx, cancel := c.providerCtx(ctx)
	defer cancel()

	account, err := c.provider.GetAccount(pctx, next.ID)
	if err != nil {
		return err
	}
	metadata := account.Metadata.Refresh(next)

	return c.provider.UpdateAccount(pctx, next.ID, profile, &metadata)
}
