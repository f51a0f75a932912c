package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pmarques/hemiciclo/internal/model"
)

// AgendaStore handles database operations for agenda items.
type AgendaStore struct {
	db DBTX
}

// NewAgendaStore creates a new AgendaStore.
func NewAgendaStore(db *sql.DB) *AgendaStore {
	return &AgendaStore{db: db}
}

// WithTx returns a copy of the store bound to the transaction.
func (s *AgendaStore) WithTx(tx *sql.Tx) *AgendaStore {
	return &AgendaStore{db: tx}
}

// Upsert stores one calendar event keyed by external identifier,
// overwriting every field in place on re-import.
func (s *AgendaStore) Upsert(ctx context.Context, item *model.AgendaItem) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO agenda_items (external_id, title, theme, section, organizer, venue,
		                          legislature, parliament_group, link, starts_at, ends_at, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (external_id) DO UPDATE SET
			title = EXCLUDED.title,
			theme = EXCLUDED.theme,
			section = EXCLUDED.section,
			organizer = EXCLUDED.organizer,
			venue = EXCLUDED.venue,
			legislature = EXCLUDED.legislature,
			parliament_group = EXCLUDED.parliament_group,
			link = EXCLUDED.link,
			starts_at = EXCLUDED.starts_at,
			ends_at = EXCLUDED.ends_at,
			body = EXCLUDED.body
		RETURNING id
	`, item.ExternalID, item.Title, item.Theme, item.Section, item.Organizer, item.Venue,
		item.Legislature, item.ParliamentGroup, item.Link, item.StartsAt, item.EndsAt, item.Body,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert agenda item %d: %w", item.ExternalID, err)
	}
	return nil
}

// GetUpcoming lists agenda items matching the filter, earliest start first
// with undated events last, capped at 50 rows.
func (s *AgendaStore) GetUpcoming(ctx context.Context, f model.AgendaFilter) ([]model.AgendaItem, error) {
	query := `
		SELECT id, external_id, title, theme, section, organizer, venue,
		       legislature, parliament_group, link, starts_at, ends_at, body
		FROM agenda_items
	`
	var conds []string
	var args []interface{}
	if f.Legislature != "" {
		args = append(args, f.Legislature)
		conds = append(conds, fmt.Sprintf("legislature = $%d", len(args)))
	}
	if f.Section != "" {
		args = append(args, f.Section)
		conds = append(conds, fmt.Sprintf("section = $%d", len(args)))
	}
	if f.Theme != "" {
		args = append(args, f.Theme)
		conds = append(conds, fmt.Sprintf("theme = $%d", len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		conds = append(conds, fmt.Sprintf("starts_at >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		conds = append(conds, fmt.Sprintf("starts_at <= $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY starts_at ASC NULLS LAST LIMIT 50"

	return s.scanItems(ctx, query, args...)
}

// GetLatest lists the most recently starting agenda items, for the static
// export.
func (s *AgendaStore) GetLatest(ctx context.Context, limit int) ([]model.AgendaItem, error) {
	query := `
		SELECT id, external_id, title, theme, section, organizer, venue,
		       legislature, parliament_group, link, starts_at, ends_at, body
		FROM agenda_items
		ORDER BY starts_at DESC NULLS LAST
		LIMIT $1
	`
	return s.scanItems(ctx, query, limit)
}

func (s *AgendaStore) scanItems(ctx context.Context, query string, args ...interface{}) ([]model.AgendaItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get agenda items: %w", err)
	}
	defer rows.Close()

	var items []model.AgendaItem
	for rows.Next() {
		var it model.AgendaItem
		if err := rows.Scan(&it.ID, &it.ExternalID, &it.Title, &it.Theme, &it.Section, &it.Organizer,
			&it.Venue, &it.Legislature, &it.ParliamentGroup, &it.Link, &it.StartsAt, &it.EndsAt, &it.Body); err != nil {
			return nil, fmt.Errorf("failed to scan agenda item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
