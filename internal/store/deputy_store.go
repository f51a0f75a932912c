package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pmarques/hemiciclo/internal/model"
)

// DeputyStore handles database operations for deputies.
type DeputyStore struct {
	db DBTX
}

// NewDeputyStore creates a new DeputyStore.
func NewDeputyStore(db *sql.DB) *DeputyStore {
	return &DeputyStore{db: db}
}

// WithTx returns a copy of the store bound to the transaction.
func (s *DeputyStore) WithTx(tx *sql.Tx) *DeputyStore {
	return &DeputyStore{db: tx}
}

// GetByNormalizedName retrieves a deputy by identity key.
func (s *DeputyStore) GetByNormalizedName(ctx context.Context, name string) (*model.Deputy, error) {
	var d model.Deputy
	err := s.db.QueryRowContext(ctx, `
		SELECT id, normalized_name, display_name, party
		FROM deputies
		WHERE normalized_name = $1
	`, name).Scan(&d.ID, &d.NormalizedName, &d.DisplayName, &d.Party)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deputy %s: %w", name, err)
	}
	return &d, nil
}

// GetOrCreate resolves a deputy by normalized name, creating the row on
// first encounter and otherwise overwriting display name and party with the
// incoming values.
func (s *DeputyStore) GetOrCreate(ctx context.Context, normalized, display, party string) (int, bool, error) {
	var id int
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM deputies WHERE normalized_name = $1`, normalized,
	).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		err = s.db.QueryRowContext(ctx, `
			INSERT INTO deputies (normalized_name, display_name, party)
			VALUES ($1, $2, NULLIF($3, ''))
			RETURNING id
		`, normalized, display, party).Scan(&id)
		if err != nil {
			return 0, false, fmt.Errorf("failed to insert deputy %s: %w", normalized, err)
		}
		return id, true, nil
	case err != nil:
		return 0, false, fmt.Errorf("failed to look up deputy %s: %w", normalized, err)
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE deputies
		SET display_name = $2, party = COALESCE(NULLIF($3, ''), party)
		WHERE id = $1
	`, id, display, party); err != nil {
		return 0, false, fmt.Errorf("failed to update deputy %s: %w", normalized, err)
	}
	return id, false, nil
}

// Count returns the total number of known deputies.
func (s *DeputyStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deputies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count deputies: %w", err)
	}
	return n, nil
}

// GetStats aggregates attendance counters per deputy over all sessions,
// optionally restricted to one legislature. Deputies with no attendance
// rows are omitted.
func (s *DeputyStore) GetStats(ctx context.Context, legislature string) ([]model.DeputyStats, error) {
	query := `
		SELECT d.display_name, COALESCE(d.party, ''),
		       COUNT(*) FILTER (WHERE a.status LIKE 'Presença%') AS presences,
		       COUNT(*) FILTER (WHERE a.status LIKE 'Falta Justificada%') AS justified,
		       COUNT(*) FILTER (WHERE a.status LIKE 'Ausência em Missão Parlamentar%') AS mission,
		       COUNT(*) FILTER (WHERE a.status LIKE 'Falta ao Quórum de Votação%') AS penalizing
		FROM deputies d
		JOIN attendance a ON a.deputy_id = d.id
	`
	var args []interface{}
	if legislature != "" {
		query += `
		JOIN sessions s ON s.id = a.session_id
		WHERE s.legislature = $1
		`
		args = append(args, legislature)
	}
	query += `GROUP BY d.id, d.display_name, d.party`

	return s.scanStats(ctx, query, args...)
}

// GetStatsFiltered aggregates attendance counters per deputy over the
// sessions selected by the filter. Only deputies with at least one row in
// the selected sessions appear.
func (s *DeputyStore) GetStatsFiltered(ctx context.Context, f StatsFilter) ([]model.DeputyStats, error) {
	query := `
		SELECT d.display_name, COALESCE(d.party, ''),
		       COUNT(*) FILTER (WHERE a.status LIKE 'Presença%') AS presences,
		       COUNT(*) FILTER (WHERE a.status LIKE 'Falta Justificada%') AS justified,
		       COUNT(*) FILTER (WHERE a.status LIKE 'Ausência em Missão Parlamentar%') AS mission,
		       COUNT(*) FILTER (WHERE a.status LIKE 'Falta ao Quórum de Votação%') AS penalizing
		FROM deputies d
		JOIN attendance a ON a.deputy_id = d.id
		JOIN sessions s ON s.id = a.session_id
	`
	var conds []string
	var args []interface{}
	if f.Legislature != "" {
		args = append(args, f.Legislature)
		conds = append(conds, fmt.Sprintf("s.legislature = $%d", len(args)))
	}
	if f.Kind != "" {
		args = append(args, f.Kind)
		conds = append(conds, fmt.Sprintf("s.kind = $%d", len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		conds = append(conds, fmt.Sprintf("s.session_date >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		conds = append(conds, fmt.Sprintf("s.session_date <= $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` GROUP BY d.id, d.display_name, d.party`

	return s.scanStats(ctx, query, args...)
}

func (s *DeputyStore) scanStats(ctx context.Context, query string, args ...interface{}) ([]model.DeputyStats, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get deputy stats: %w", err)
	}
	defer rows.Close()

	var stats []model.DeputyStats
	for rows.Next() {
		var st model.DeputyStats
		if err := rows.Scan(&st.Name, &st.Party, &st.Presences, &st.Justified, &st.Mission, &st.Penalizing); err != nil {
			return nil, fmt.Errorf("failed to scan deputy stats: %w", err)
		}
		st.Percentage = model.AttendancePct(st.Presences, st.Penalizing)
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// FindByPartialName retrieves the first deputy whose display name contains
// the given fragment, case-insensitively.
func (s *DeputyStore) FindByPartialName(ctx context.Context, fragment string) (*model.Deputy, error) {
	var d model.Deputy
	err := s.db.QueryRowContext(ctx, `
		SELECT id, normalized_name, display_name, party
		FROM deputies
		WHERE display_name ILIKE '%' || $1 || '%'
		ORDER BY id
		LIMIT 1
	`, fragment).Scan(&d.ID, &d.NormalizedName, &d.DisplayName, &d.Party)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find deputy %q: %w", fragment, err)
	}
	return &d, nil
}

// GetDetails lists a deputy's attendance session by session, most recent
// first.
func (s *DeputyStore) GetDetails(ctx context.Context, deputyID int) ([]model.AttendanceDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.session_date, s.code, s.kind, s.legislature, s.number,
		       a.status, COALESCE(a.reason, ''), COALESCE(a.party, '')
		FROM attendance a
		JOIN sessions s ON s.id = a.session_id
		WHERE a.deputy_id = $1
		ORDER BY s.session_date DESC
	`, deputyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get details for deputy %d: %w", deputyID, err)
	}
	defer rows.Close()

	var details []model.AttendanceDetail
	for rows.Next() {
		var d model.AttendanceDetail
		if err := rows.Scan(&d.Date, &d.Code, &d.Kind, &d.Legislature, &d.Number, &d.Status, &d.Reason, &d.Party); err != nil {
			return nil, fmt.Errorf("failed to scan attendance detail: %w", err)
		}
		details = append(details, d)
	}
	return details, rows.Err()
}
