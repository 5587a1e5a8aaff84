package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
)

func (r *Repository) GetOffice(ctx context.Context, id string) (*domain.Office, error) {
	query := `
		SELECT name, email, phone, is_active, created_at, updated_at
		FROM offices WHERE id = $1
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	office := &domain.Office{ID: id}
	dst := []any{&office.Name, &office.Email, &office.Phone, &office.IsActive, &office.CreatedAt, &office.UpdatedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return office, nil
}

func (r *Repository) CreateOffice(ctx context.Context, office *domain.Office) error {
	query := `
		INSERT INTO offices (id, name, email, phone, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	if office.ID == "" {
		office.ID = uuid.NewString()
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{office.ID, office.Name, office.Email, office.Phone, office.IsActive}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&office.CreatedAt, &office.UpdatedAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateOffice(ctx context.Context, office *domain.Office) error {
	query := `
		UPDATE offices
		SET name = $1, email = $2, phone = $3, is_active = $4, updated_at = now()
		WHERE id = $5
		RETURNING created_at, updated_at
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{office.Name, office.Email, office.Phone, office.IsActive, office.ID}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&office.CreatedAt, &office.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	return nil
}

func (r *Repository) ListOffices(ctx context.Context) ([]*domain.Office, error) {
	query := `
		SELECT id, name, email, phone, is_active, created_at, updated_at
		FROM offices ORDER BY name
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	offices := make([]*domain.Office, 0)
	for rows.Next() {
		office := &domain.Office{}
		dst := []any{&office.ID, &office.Name, &office.Email, &office.Phone, &office.IsActive, &office.CreatedAt, &office.UpdatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		offices = append(offices, office)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return offices, nil
}
