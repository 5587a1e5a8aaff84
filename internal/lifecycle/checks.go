package lifecycle

import (
	"context"
	"errors"
	"strings"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
)

// roleFor resolves the role stored for a new entity of kind.
func roleFor(kind domain.Kind, requested domain.Role) (domain.Role, error) {
	switch kind {
	case domain.KindPlatformAdmin:
		if requested != "" && requested != domain.RolePlatformAdmin {
			return "", domain.ErrInvalidRole
		}
		return domain.RolePlatformAdmin, nil
	case domain.KindAdvisor:
		if requested != "" && requested != domain.RoleAdvisor {
			return "", domain.ErrInvalidRole
		}
		return domain.RoleAdvisor, nil
	case domain.KindUser:
		if requested != domain.RoleOfficeAdmin && requested != domain.RoleAdvisorClient {
			return "", domain.ErrInvalidRole
		}
		return requested, nil
	}
	return "", domain.ErrInvalidKind
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (c *Coordinator) newEntity(kind domain.Kind, f domain.Fields) (*domain.Entity, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Code = strings.TrimSpace(f.Code)

	if err := c.validate.Struct(f); err != nil {
		return nil, err
	}

	role, err := roleFor(kind, f.Role)
	if err != nil {
		return nil, err
	}

	e := &domain.Entity{
		Kind:     kind,
		Name:     f.Name,
		Email:    f.Email,
		Phone:    f.Phone,
		TaxID:    f.TaxID,
		Role:     role,
		IsActive: true,
	}

	switch kind {
	case domain.KindAdvisor:
		if f.Code == "" {
			return nil, domain.ErrCodeRequired
		}
		e.Code = f.Code
		e.OfficeID = emptyToNil(f.OfficeID)
	case domain.KindUser:
		e.OfficeID = emptyToNil(f.OfficeID)
		e.AdvisorID = emptyToNil(f.AdvisorID)
	}

	return e, nil
}

func (c *Coordinator) checkEmailFree(ctx context.Context, email, selfID string) error {
	found, err := c.store.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case found.ID != selfID:
		return domain.ErrDuplicateEmail
	}
	return nil
}

func (c *Coordinator) checkCodeFree(ctx context.Context, code, selfID string) error {
	found, err := c.store.FindByCode(ctx, code)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case found.ID != selfID:
		return domain.ErrDuplicateCode
	}
	return nil
}

// checkReferences verifies the office and advisor an entity points at.
func (c *Coordinator) checkReferences(ctx context.Context, e *domain.Entity) error {
	if e.OfficeID != nil {
		office, err := c.store.GetOffice(ctx, *e.OfficeID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrReferenceNotFound
		}
		if err != nil {
			return err
		}
		if e.Role == domain.RoleOfficeAdmin && !office.IsActive {
			return domain.ErrInactiveReference
		}
	}

	if e.AdvisorID != nil {
		advisor, err := c.store.GetByID(ctx, domain.KindAdvisor, *e.AdvisorID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrReferenceNotFound
		}
		if err != nil {
			return err
		}
		if e.Role == domain.RoleAdvisorClient && !advisor.IsActive {
			return domain.ErrInactiveReference
		}
	}

	return nil
}
