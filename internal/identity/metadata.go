package identity

import (
	"fmt"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
)

// Metadata is the blob stored next to the provider account. Only these keys
// are owned by the directory.
type Metadata struct {
	Role      domain.Role `json:"role"`
	Code      string      `json:"code,omitempty"`
	OfficeID  string      `json:"officeId,omitempty"`
	AdvisorID string      `json:"advisorId,omitempty"`
	IsActive  *bool       `json:"isActive,omitempty"`
}

func (m Metadata) Validate() error {
	if !m.Role.Valid() {
		return fmt.Errorf("metadata: unknown role %q", m.Role)
	}
	return nil
}

// MetadataFor builds the metadata that mirrors an entity's links. IsActive is
// left unset; status is mirrored separately.
func MetadataFor(e *domain.Entity) Metadata {
	m := Metadata{Role: e.Role, Code: e.Code}
	if e.OfficeID != nil {
		m.OfficeID = *e.OfficeID
	}
	if e.AdvisorID != nil {
		m.AdvisorID = *e.AdvisorID
	}
	return m
}

// Refresh overwrites the link keys from e, keeping the stored status flag.
func (m Metadata) Refresh(e *domain.Entity) Metadata {
	next := MetadataFor(e)
	next.IsActive = m.IsActive
	return next
}

func (m Metadata) WithActive(active bool) Metadata {
	m.IsActive = &active
	return m
}
