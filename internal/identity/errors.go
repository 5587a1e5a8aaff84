package identity

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
)

// Provider error codes understood by the directory.
const (
	CodeIdentifierExists         = "form_identifier_exists"
	CodePasswordPwned            = "form_password_pwned"
	CodePasswordTooShort         = "form_password_length_too_short"
	CodePasswordValidationFailed = "form_password_validation_failed"
	CodeNotFound                 = "resource_not_found"
)

var (
	ErrInvalidCredentials = errors.New("e-mail or password is incorrect")
	ErrAccountDisabled    = errors.New("account is disabled")
)

// Error is a failure reported by an identity provider.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("identity provider: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("identity provider: %s: %s", e.Code, e.Message)
}

func IsNotFound(err error) bool {
	var perr *Error
	if !errors.As(err, &perr) {
		return false
	}
	return perr.Code == CodeNotFound || perr.Status == http.StatusNotFound
}

// MapError turns a provider failure into the domain error users see.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var perr *Error
	if !errors.As(err, &perr) {
		return &domain.ProviderError{Message: err.Error()}
	}

	switch perr.Code {
	case CodeIdentifierExists:
		return domain.ErrEmailAlreadyUsedExternally
	case CodePasswordPwned:
		return domain.ErrWeakPassword
	case CodePasswordTooShort:
		return domain.ErrPasswordTooShort
	case CodePasswordValidationFailed:
		return domain.ErrPasswordPolicyFailed
	}

	return &domain.ProviderError{Message: perr.Message}
}
