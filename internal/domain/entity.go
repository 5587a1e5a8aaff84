package domain

import (
	"time"
)

// Kind selects which directory table an entity lives in.
type Kind string

const (
	KindPlatformAdmin Kind = "PLATFORM_ADMIN"
	KindAdvisor       Kind = "ADVISOR"
	KindUser          Kind = "USER"
)

func (k Kind) Valid() bool {
	switch k {
	case KindPlatformAdmin, KindAdvisor, KindUser:
		return true
	}
	return false
}

type Role string

const (
	RolePlatformAdmin Role = "PLATFORM_ADMIN"
	RoleOfficeAdmin   Role = "OFFICE_ADMIN"
	RoleAdvisor       Role = "ADVISOR"
	RoleAdvisorClient Role = "ADVISOR_CLIENT"
)

func (r Role) Valid() bool {
	switch r {
	case RolePlatformAdmin, RoleOfficeAdmin, RoleAdvisor, RoleAdvisorClient:
		return true
	}
	return false
}

// KindForRole tells which table holds people logged in with the given role.
func KindForRole(r Role) Kind {
	switch r {
	case RolePlatformAdmin:
		return KindPlatformAdmin
	case RoleAdvisor:
		return KindAdvisor
	default:
		return KindUser
	}
}

// Entity is a person with login access. ID is always the identity provider
// account id; no local id is ever generated.
type Entity struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	TaxID     string    `json:"cpf"`
	Role      Role      `json:"role"`
	Code      string    `json:"code,omitempty"`
	OfficeID  *string   `json:"officeId"`
	AdvisorID *string   `json:"advisorId,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Fields carries the caller supplied attributes of a new entity.
type Fields struct {
	Name      string  `json:"name" validate:"required,max=100"`
	Email     string  `json:"email" validate:"required,email"`
	Phone     string  `json:"phone"`
	TaxID     string  `json:"cpf" validate:"omitempty,cpf"`
	Code      string  `json:"code" validate:"max=20"`
	Role      Role    `json:"role"`
	OfficeID  *string `json:"officeId"`
	AdvisorID *string `json:"advisorId"`
}

// Changes is a partial update; nil pointers are left untouched. An empty
// OfficeID or AdvisorID detaches the link.
type Changes struct {
	Name      *string `json:"name" validate:"omitnil,min=1,max=100"`
	Email     *string `json:"email" validate:"omitnil,email"`
	Phone     *string `json:"phone"`
	TaxID     *string `json:"cpf" validate:"omitnil,omitempty,cpf"`
	Code      *string `json:"code" validate:"omitnil,min=1,max=20"`
	Role      *Role   `json:"role"`
	OfficeID  *string `json:"officeId"`
	AdvisorID *string `json:"advisorId"`
}

// RelatedCounts lists records that pin a GenericUser in place.
type RelatedCounts struct {
	Conversations int `json:"conversations"`
	Insurances    int `json:"insurances"`
	Messages      int `json:"messages"`
}

func (c RelatedCounts) Total() int {
	return c.Conversations + c.Insurances + c.Messages
}

// DeleteResult is returned by a permanent delete.
type DeleteResult struct {
	Success bool   `json:"success"`
	Name    string `json:"name"`
}
