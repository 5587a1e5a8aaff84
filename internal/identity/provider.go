// Package identity talks to the system of record for login accounts.
//
// The directory keeps its own rows, but every person in it also owns an
// account at an identity provider. Provider abstracts the handful of
// account-management calls the directory needs; RemoteProvider speaks to a
// hosted provider over HTTP and LocalProvider keeps accounts in PostgreSQL.
package identity

import (
	"context"
)

// NewAccount describes an account to provision. When Password is empty and
// SkipPasswordChecks is set the provider generates the credentials itself.
type NewAccount struct {
	Email              string
	GivenName          string
	FamilyName         string
	Password           string
	SkipPasswordChecks bool
	Metadata           Metadata
}

// AccountChanges holds the profile fields to change; nil means unchanged.
type AccountChanges struct {
	GivenName  *string
	FamilyName *string
	Email      *string
	Phone      *string
}

func (c AccountChanges) Empty() bool {
	return c.GivenName == nil && c.FamilyName == nil && c.Email == nil && c.Phone == nil
}

type Account struct {
	ID         string
	Email      string
	GivenName  string
	FamilyName string
	Phone      string
	Metadata   Metadata
}

type Provider interface {
	CreateAccount(ctx context.Context, account NewAccount) (string, error)
	// UpdateAccount applies changes and, when metadata is not nil, replaces
	// the directory owned metadata keys.
	UpdateAccount(ctx context.Context, id string, changes AccountChanges, metadata *Metadata) error
	GetAccount(ctx context.Context, id string) (*Account, error)
	DeleteAccount(ctx context.Context, id string) error
}
