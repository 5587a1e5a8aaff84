package domain

import (
	"errors"
	"fmt"
)

// Validation and guard failures. Messages are shown to end users as is.
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateEmail    = errors.New("e-mail is already registered")
	ErrDuplicateCode     = errors.New("advisor code is already registered")
	ErrCodeRequired      = errors.New("advisor code is required")
	ErrNameRequired      = errors.New("name is required")
	ErrReferenceNotFound = errors.New("referenced record does not exist")
	ErrInactiveReference = errors.New("referenced record is inactive")

	ErrStillActive         = errors.New("record must be deactivated before it can be deleted")
	ErrHasDependents       = errors.New("advisor still has clients")
	ErrHasActiveDependents = errors.New("advisor still has active clients")
	ErrHasRelatedRecords   = errors.New("user still has conversations, insurances or messages")

	ErrBusy        = errors.New("another operation on this record is in progress")
	ErrInvalidKind = errors.New("unknown entity kind")
	ErrInvalidRole = errors.New("role is not allowed for this kind of record")
)

// Identity provider failures mapped from provider error codes.
var (
	ErrEmailAlreadyUsedExternally = errors.New("e-mail is already used by another login account")
	ErrWeakPassword               = errors.New("password was found in a data breach, choose another one")
	ErrPasswordTooShort           = errors.New("password is too short")
	ErrPasswordPolicyFailed       = errors.New("password does not meet the password policy")
)

// ProviderError is an identity provider failure with no specific mapping.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return "identity provider error"
	}
	return fmt.Sprintf("identity provider error: %s", e.Message)
}
