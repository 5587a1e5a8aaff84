package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
)

// Every directory table is read through the same projection so rows of all
// kinds scan into domain.Entity.
var projections = map[domain.Kind]string{
	domain.KindPlatformAdmin: `
		SELECT 'PLATFORM_ADMIN' AS kind, id, name, email, phone, cpf, 'PLATFORM_ADMIN' AS role, '' AS code,
			NULL::text AS office_id, NULL::text AS advisor_id, is_active, created_at, updated_at
		FROM platform_admins`,
	domain.KindAdvisor: `
		SELECT 'ADVISOR' AS kind, id, name, email, phone, cpf, 'ADVISOR' AS role, code,
			office_id, NULL::text AS advisor_id, is_active, created_at, updated_at
		FROM advisors`,
	domain.KindUser: `
		SELECT 'USER' AS kind, id, name, email, phone, cpf, role, '' AS code,
			office_id, advisor_id, is_active, created_at, updated_at
		FROM users`,
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*domain.Entity, error) {
	e := &domain.Entity{}
	var officeID, advisorID sql.NullString
	dst := []any{&e.Kind, &e.ID, &e.Name, &e.Email, &e.Phone, &e.TaxID, &e.Role, &e.Code, &officeID, &advisorID, &e.IsActive, &e.CreatedAt, &e.UpdatedAt}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	e.OfficeID = stringPtr(officeID)
	e.AdvisorID = stringPtr(advisorID)
	return e, nil
}

func projection(kind domain.Kind) (string, error) {
	p, ok := projections[kind]
	if !ok {
		return "", domain.ErrInvalidKind
	}
	return p, nil
}

func (r *Repository) GetByID(ctx context.Context, kind domain.Kind, id string) (*domain.Entity, error) {
	p, err := projection(kind)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	e, err := scanEntity(r.dbpool.QueryRowContext(ctx, p+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// FindByEmail looks the address up in every directory table. Matching is exact.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*domain.Entity, error) {
	query := fmt.Sprintf(`
		SELECT * FROM (%s UNION ALL %s UNION ALL %s) AS directory
		WHERE email = $1
		LIMIT 1
	`, projections[domain.KindPlatformAdmin], projections[domain.KindAdvisor], projections[domain.KindUser])

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	e, err := scanEntity(r.dbpool.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *Repository) FindByCode(ctx context.Context, code string) (*domain.Entity, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	e, err := scanEntity(r.dbpool.QueryRowContext(ctx, projections[domain.KindAdvisor]+` WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// List returns the rows of one kind. A non-empty search matches name or
// e-mail case-insensitively.
func (r *Repository) List(ctx context.Context, kind domain.Kind, search string) ([]*domain.Entity, error) {
	p, err := projection(kind)
	if err != nil {
		return nil, err
	}
	query := p + `
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%'
		ORDER BY name
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entities := make([]*domain.Entity, 0)
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entities, nil
}

func (r *Repository) Insert(ctx context.Context, e *domain.Entity) error {
	var query string
	var args []any

	switch e.Kind {
	case domain.KindPlatformAdmin:
		query = `
			INSERT INTO platform_admins (id, name, email, phone, cpf, is_active)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at, updated_at
		`
		args = []any{e.ID, e.Name, e.Email, e.Phone, e.TaxID, e.IsActive}
	case domain.KindAdvisor:
		query = `
			INSERT INTO advisors (id, name, email, phone, cpf, code, office_id, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at, updated_at
		`
		args = []any{e.ID, e.Name, e.Email, e.Phone, e.TaxID, e.Code, nullString(e.OfficeID), e.IsActive}
	case domain.KindUser:
		query = `
			INSERT INTO users (id, name, email, phone, cpf, role, office_id, advisor_id, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_at, updated_at
		`
		args = []any{e.ID, e.Name, e.Email, e.Phone, e.TaxID, e.Role, nullString(e.OfficeID), nullString(e.AdvisorID), e.IsActive}
	default:
		return domain.ErrInvalidKind
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		return translateWriteError(err)
	}

	return nil
}

// Update writes the full field set of e.
func (r *Repository) Update(ctx context.Context, e *domain.Entity) error {
	var query string
	var args []any

	switch e.Kind {
	case domain.KindPlatformAdmin:
		query = `
			UPDATE platform_admins
			SET name = $1, email = $2, phone = $3, cpf = $4, is_active = $5, updated_at = now()
			WHERE id = $6
			RETURNING created_at, updated_at
		`
		args = []any{e.Name, e.Email, e.Phone, e.TaxID, e.IsActive, e.ID}
	case domain.KindAdvisor:
		query = `
			UPDATE advisors
			SET name = $1, email = $2, phone = $3, cpf = $4, code = $5, office_id = $6, is_active = $7, updated_at = now()
			WHERE id = $8
			RETURNING created_at, updated_at
		`
		args = []any{e.Name, e.Email, e.Phone, e.TaxID, e.Code, nullString(e.OfficeID), e.IsActive, e.ID}
	case domain.KindUser:
		query = `
			UPDATE users
			SET name = $1, email = $2, phone = $3, cpf = $4, role = $5, office_id = $6, advisor_id = $7, is_active = $8, updated_at = now()
			WHERE id = $9
			RETURNING created_at, updated_at
		`
		args = []any{e.Name, e.Email, e.Phone, e.TaxID, e.Role, nullString(e.OfficeID), nullString(e.AdvisorID), e.IsActive, e.ID}
	default:
		return domain.ErrInvalidKind
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return translateWriteError(err)
	}

	return nil
}

var tables = map[domain.Kind]string{
	domain.KindPlatformAdmin: "platform_admins",
	domain.KindAdvisor:       "advisors",
	domain.KindUser:          "users",
}

func (r *Repository) SetActive(ctx context.Context, kind domain.Kind, id string, active bool) (*domain.Entity, error) {
	table, ok := tables[kind]
	if !ok {
		return nil, domain.ErrInvalidKind
	}
	query := fmt.Sprintf(`UPDATE %s SET is_active = $1, updated_at = now() WHERE id = $2`, table)

	execCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.dbpool.ExecContext(execCtx, query, active, id)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrNotFound
	}

	return r.GetByID(ctx, kind, id)
}

func (r *Repository) Delete(ctx context.Context, kind domain.Kind, id string) error {
	table, ok := tables[kind]
	if !ok {
		return domain.ErrInvalidKind
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table)

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return translateDeleteError(err)
	}

	return nil
}
