package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pmarques/hemiciclo/internal/model"
)

// ActivityStore handles database operations for parliamentary activity.
type ActivityStore struct {
	db DBTX
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// WithTx returns a copy of the store bound to the transaction.
func (s *ActivityStore) WithTx(tx *sql.Tx) *ActivityStore {
	return &ActivityStore{db: tx}
}

// Upsert stores one activity aggregate. Unique per (deputy, kind,
// legislature); totals and details are overwritten on re-import, never
// accumulated.
func (s *ActivityStore) Upsert(ctx context.Context, a *model.Activity) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO activities (deputy_id, kind, legislature, total, details)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (deputy_id, kind, legislature) DO UPDATE SET
			total = EXCLUDED.total,
			details = EXCLUDED.details
		RETURNING id
	`, a.DeputyID, a.Kind, a.Legislature, a.Total, a.Details).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert activity %s for deputy %d: %w", a.Kind, a.DeputyID, err)
	}
	return nil
}

// ActivityFilter narrows the activity listing.
type ActivityFilter struct {
	Legislature string
	Kind        string
	Party       string
}

// GetAll lists activities joined with their deputies, highest totals first.
func (s *ActivityStore) GetAll(ctx context.Context, f ActivityFilter) ([]model.ActivityRow, error) {
	query := `
		SELECT a.deputy_id, d.display_name, COALESCE(d.party, ''),
		       a.kind, a.legislature, a.total, a.last_date, COALESCE(a.details, '')
		FROM activities a
		JOIN deputies d ON d.id = a.deputy_id
	`
	var conds []string
	var args []interface{}
	if f.Legislature != "" {
		args = append(args, f.Legislature)
		conds = append(conds, fmt.Sprintf("a.legislature = $%d", len(args)))
	}
	if f.Kind != "" {
		args = append(args, f.Kind)
		conds = append(conds, fmt.Sprintf("a.kind = $%d", len(args)))
	}
	if f.Party != "" {
		args = append(args, f.Party)
		conds = append(conds, fmt.Sprintf("d.party = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY a.total DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get activities: %w", err)
	}
	defer rows.Close()

	var result []model.ActivityRow
	for rows.Next() {
		var r model.ActivityRow
		if err := rows.Scan(&r.DeputyID, &r.Deputy, &r.Party, &r.Kind, &r.Legislature, &r.Total, &r.LastDate, &r.Details); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
