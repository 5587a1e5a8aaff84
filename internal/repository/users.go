package repository

import (
	"context"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
)

// CountDependents counts the users attached to an advisor. With activeOnly
// set, deactivated users are skipped.
func (r *Repository) CountDependents(ctx context.Context, advisorID string, activeOnly bool) (int, error) {
	query := `
		SELECT count(*) FROM users
		WHERE advisor_id = $1 AND ($2 = false OR is_active)
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var n int
	if err := r.dbpool.QueryRowContext(ctx, query, advisorID, activeOnly).Scan(&n); err != nil {
		return 0, err
	}

	return n, nil
}

func (r *Repository) CountRelated(ctx context.Context, userID string) (domain.RelatedCounts, error) {
	query := `
		SELECT
			(SELECT count(*) FROM conversations WHERE user_id = $1),
			(SELECT count(*) FROM insurances WHERE client_id = $1),
			(SELECT count(*) FROM messages WHERE sender_id = $1)
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var counts domain.RelatedCounts
	dst := []any{&counts.Conversations, &counts.Insurances, &counts.Messages}
	if err := r.dbpool.QueryRowContext(ctx, query, userID).Scan(dst...); err != nil {
		return domain.RelatedCounts{}, err
	}

	return counts, nil
}
