package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// Credentials is handed to the credentials hook when LocalProvider generated
// a password on the caller's behalf.
type Credentials struct {
	AccountID string
	Email     string
	Name      string
	Password  string
}

type LocalOptions struct {
	QueryTimeout            time.Duration
	PasswordMinLength       int
	GeneratedPasswordLength int
	// OnGeneratedPassword delivers generated credentials, usually by mail.
	OnGeneratedPassword func(ctx context.Context, c Credentials)
}

// LocalProvider keeps login accounts in the identity_accounts table.
type LocalProvider struct {
	db   *sql.DB
	opts LocalOptions
}

func NewLocalProvider(db *sql.DB, opts LocalOptions) *LocalProvider {
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 10 * time.Second
	}
	if opts.PasswordMinLength <= 0 {
		opts.PasswordMinLength = 8
	}
	return &LocalProvider{db: db, opts: opts}
}

func (p *LocalProvider) CreateAccount(ctx context.Context, account NewAccount) (string, error) {
	if err := account.Metadata.Validate(); err != nil {
		return "", err
	}

	pw := account.Password
	generated := false
	switch {
	case pw == "" && !account.SkipPasswordChecks:
		return "", &Error{Code: CodePasswordValidationFailed, Message: "password is required"}
	case pw == "":
		var err error
		pw, err = GeneratePassword(p.opts.GeneratedPasswordLength)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		generated = true
	case !account.SkipPasswordChecks:
		if err := CheckPassword(pw, p.opts.PasswordMinLength); err != nil {
			return "", err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	metadata, err := json.Marshal(account.Metadata)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO identity_accounts (id, email, given_name, family_name, password_hash, metadata)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
	`

	ctx, cancel := context.WithTimeout(ctx, p.opts.QueryTimeout)
	defer cancel()

	id := uuid.NewString()
	args := []any{id, account.Email, account.GivenName, account.FamilyName, string(hash), string(metadata)}
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return "", translateAccountError(err)
	}

	if generated && p.opts.OnGeneratedPassword != nil {
		p.opts.OnGeneratedPassword(ctx, Credentials{
			AccountID: id,
			Email:     account.Email,
			Name:      account.GivenName,
			Password:  pw,
		})
	}

	return id, nil
}

func (p *LocalProvider) UpdateAccount(ctx context.Context, id string, changes AccountChanges, metadata *Metadata) error {
	var rawMetadata any
	if metadata != nil {
		if err := metadata.Validate(); err != nil {
			return err
		}
		data, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		rawMetadata = string(data)
	}

	query := `
		UPDATE identity_accounts
		SET
			given_name = COALESCE($1, given_name),
			family_name = COALESCE($2, family_name),
			email = COALESCE($3, email),
			phone = COALESCE($4, phone),
			metadata = COALESCE($5::jsonb, metadata),
			updated_at = now()
		WHERE id = $6
	`

	ctx, cancel := context.WithTimeout(ctx, p.opts.QueryTimeout)
	defer cancel()

	args := []any{changes.GivenName, changes.FamilyName, changes.Email, changes.Phone, rawMetadata, id}
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translateAccountError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: "account not found"}
	}

	return nil
}

func (p *LocalProvider) GetAccount(ctx context.Context, id string) (*Account, error) {
	query := `
		SELECT email, given_name, family_name, phone, metadata
		FROM identity_accounts WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, p.opts.QueryTimeout)
	defer cancel()

	account := &Account{ID: id}
	var metadata []byte
	dst := []any{&account.Email, &account.GivenName, &account.FamilyName, &account.Phone, &metadata}
	if err := p.db.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: "account not found"}
		}
		return nil, err
	}
	if err := json.Unmarshal(metadata, &account.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	return account, nil
}

func (p *LocalProvider) DeleteAccount(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.QueryTimeout)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `DELETE FROM identity_accounts WHERE id = $1`, id)
	return err
}

// Authenticate checks a password login and returns the account.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	query := `
		SELECT id, given_name, family_name, phone, password_hash, metadata
		FROM identity_accounts WHERE email = $1
	`

	ctx, cancel := context.WithTimeout(ctx, p.opts.QueryTimeout)
	defer cancel()

	account := &Account{Email: email}
	var hash string
	var metadata []byte
	dst := []any{&account.ID, &account.GivenName, &account.FamilyName, &account.Phone, &hash, &metadata}
	if err := p.db.QueryRowContext(ctx, query, email).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := json.Unmarshal(metadata, &account.Metadata); err != nil {
		slog.Warn("cannot decode account metadata", "id", account.ID, "error", err)
	}
	if account.Metadata.IsActive != nil && !*account.Metadata.IsActive {
		return nil, ErrAccountDisabled
	}

	return account, nil
}

func translateAccountError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == "identity_accounts_email_key" {
		return &Error{Status: http.StatusUnprocessableEntity, Code: CodeIdentifierExists, Message: "that e-mail address is taken"}
	}
	return err
}
