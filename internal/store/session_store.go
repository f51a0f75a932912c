package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pmarques/hemiciclo/internal/model"
)

// ErrSessionExists signals that an upload targets an already stored session
// and the caller did not ask for a replacement. It carries the stored
// descriptor so the caller can prompt for confirmation. Nothing is written.
type ErrSessionExists struct {
	Existing model.Session
}

func (e *ErrSessionExists) Error() string {
	return fmt.Sprintf("session %s already loaded", e.Existing.Code)
}

// SaveResult reports what a SaveIngest wrote.
type SaveResult struct {
	Inserted    int
	NewDeputies int
	Duplicates  int
}

// SessionStore handles database operations for sessions and attendance.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// GetByCode retrieves a session by its external code.
func (s *SessionStore) GetByCode(ctx context.Context, code string) (*model.Session, error) {
	query := `
		SELECT id, code, legislature, number, kind, session_date
		FROM sessions
		WHERE code = $1
	`
	var sess model.Session
	err := s.db.QueryRowContext(ctx, query, code).Scan(
		&sess.ID, &sess.Code, &sess.Legislature, &sess.Number, &sess.Kind, &sess.Date,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", code, err)
	}
	return &sess, nil
}

// SaveIngest writes one validated upload in a single transaction.
//
// Replacement is a full delete-and-recreate, never an in-place update.
// Deputies are resolved by normalized name: absent ones are created, known
// ones get their display name and party overwritten. A second attendance
// row for the same (session, deputy) pair is suppressed by the uniqueness
// constraint and counted, not treated as an error; every other database
// error rolls the whole upload back.
func (s *SessionStore) SaveIngest(ctx context.Context, meta model.SessionMeta, records []model.IngestRecord, replace bool) (*SaveResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing model.Session
	err = tx.QueryRowContext(ctx, `
		SELECT id, code, legislature, number, kind, session_date
		FROM sessions WHERE code = $1
	`, meta.Code).Scan(
		&existing.ID, &existing.Code, &existing.Legislature,
		&existing.Number, &existing.Kind, &existing.Date,
	)
	switch {
	case err == nil:
		if !replace {
			return nil, &ErrSessionExists{Existing: existing}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM attendance WHERE session_id = $1`, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to clear attendance for session %s: %w", meta.Code, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to delete session %s: %w", meta.Code, err)
		}
	case err != sql.ErrNoRows:
		return nil, fmt.Errorf("failed to check session %s: %w", meta.Code, err)
	}

	var sessionID int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO sessions (code, legislature, number, kind, session_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, meta.Code, meta.Legislature, meta.Number, meta.Kind, meta.Date).Scan(&sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session %s: %w", meta.Code, err)
	}

	result := &SaveResult{}
	for _, r := range records {
		var deputyID int
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM deputies WHERE normalized_name = $1`, r.NormalizedName,
		).Scan(&deputyID)
		switch {
		case err == sql.ErrNoRows:
			err = tx.QueryRowContext(ctx, `
				INSERT INTO deputies (normalized_name, display_name, party)
				VALUES ($1, $2, NULLIF($3, ''))
				RETURNING id
			`, r.NormalizedName, r.OriginalName, r.Party).Scan(&deputyID)
			if err != nil {
				return nil, fmt.Errorf("failed to insert deputy %s: %w", r.NormalizedName, err)
			}
			result.NewDeputies++
		case err != nil:
			return nil, fmt.Errorf("failed to look up deputy %s: %w", r.NormalizedName, err)
		default:
			_, err = tx.ExecContext(ctx, `
				UPDATE deputies SET display_name = $2, party = NULLIF($3, '')
				WHERE id = $1
			`, deputyID, r.OriginalName, r.Party)
			if err != nil {
				return nil, fmt.Errorf("failed to update deputy %s: %w", r.NormalizedName, err)
			}
		}

		// The unique constraint converts in-upload duplicates into a
		// zero-row insert instead of poisoning the transaction.
		res, err := tx.ExecContext(ctx, `
			INSERT INTO attendance (session_id, deputy_id, party, status, reason)
			VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''))
			ON CONFLICT (session_id, deputy_id) DO NOTHING
		`, sessionID, deputyID, r.Party, r.Status, r.Reason)
		if err != nil {
			return nil, fmt.Errorf("failed to insert attendance for %s: %w", r.NormalizedName, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read insert result: %w", err)
		}
		if affected == 0 {
			result.Duplicates++
			continue
		}
		result.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit session %s: %w", meta.Code, err)
	}
	return result, nil
}

// GetAll retrieves all sessions, most recent first.
func (s *SessionStore) GetAll(ctx context.Context) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, legislature, number, kind, session_date
		FROM sessions
		ORDER BY session_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		if err := rows.Scan(&sess.ID, &sess.Code, &sess.Legislature, &sess.Number, &sess.Kind, &sess.Date); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// AttendanceCount returns the number of attendance rows stored for a
// session code, zero when the session is unknown.
func (s *SessionStore) AttendanceCount(ctx context.Context, code string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM attendance a
		JOIN sessions s ON s.id = a.session_id
		WHERE s.code = $1
	`, code).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attendance for %s: %w", code, err)
	}
	return count, nil
}

// StatsFilter narrows session-level queries.
type StatsFilter struct {
	Legislature string
	Kind        string
	From        time.Time
	To          time.Time
}

// GetStats aggregates attendance counters per session, oldest first.
func (s *SessionStore) GetStats(ctx context.Context, f StatsFilter) ([]model.SessionStats, error) {
	query := `
		SELECT s.code, s.legislature, s.number, s.kind, s.session_date,
		       COUNT(a.id) AS total,
		       COUNT(*) FILTER (WHERE a.status LIKE 'Presença%') AS presences,
		       COUNT(*) FILTER (WHERE a.status LIKE 'Falta ao Quórum de Votação%') AS quorum,
		       COUNT(*) FILTER (WHERE a.status LIKE 'Falta Justificada%') AS justified,
		       COUNT(*) FILTER (WHERE a.status LIKE 'Ausência em Missão Parlamentar%') AS mission
		FROM sessions s
		LEFT JOIN attendance a ON a.session_id = s.id
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
	query += `
		GROUP BY s.id, s.code, s.legislature, s.number, s.kind, s.session_date
		ORDER BY s.session_date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get session stats: %w", err)
	}
	defer rows.Close()

	var stats []model.SessionStats
	for rows.Next() {
		var st model.SessionStats
		if err := rows.Scan(&st.Code, &st.Legislature, &st.Number, &st.Kind, &st.Date,
			&st.Total, &st.Presences, &st.Quorum, &st.Justified, &st.Mission); err != nil {
			return nil, fmt.Errorf("failed to scan session stats: %w", err)
		}
		st.Percentage = model.AttendancePct(st.Presences, st.Quorum)
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// WeekdayAbsences buckets penalizing absences by day of the week.
type WeekdayAbsences struct {
	Day      string  `json:"dia"`
	Absences int     `json:"faltas"`
	Sessions int     `json:"sessoes"`
	Average  float64 `json:"media_por_sessao"`
}

// SessionRanking is one session in the worst-attendance ranking.
type SessionRanking struct {
	Code       string  `json:"id_legis_sessao"`
	Date       string  `json:"data"`
	Kind       string  `json:"tipo"`
	Percentage float64 `json:"assiduidade_pct"`
	Quorum     int     `json:"faltas_quorum"`
	Presences  int     `json:"presencas"`
	Total      int     `json:"total_registos"`
	Weekday    string  `json:"dia_semana"`
}

// Analysis is the advanced attendance breakdown.
type Analysis struct {
	Weekdays        []WeekdayAbsences
	WorstSessions   []SessionRanking
	TotalPenalizing int
}

// Portuguese weekday names, Monday first.
var weekdayNames = []string{"Segunda", "Terça", "Quarta", "Quinta", "Sexta", "Sábado", "Domingo"}

// GetAnalysis computes absences per weekday and ranks the ten sessions with
// the worst attendance.
func (s *SessionStore) GetAnalysis(ctx context.Context) (*Analysis, error) {
	stats, err := s.GetStats(ctx, StatsFilter{})
	if err != nil {
		return nil, err
	}

	a := &Analysis{Weekdays: make([]WeekdayAbsences, 7)}
	for i, name := range weekdayNames {
		a.Weekdays[i] = WeekdayAbsences{Day: name}
	}

	for _, st := range stats {
		// time.Weekday starts on Sunday; the report starts on Monday.
		day := (int(st.Date.Weekday()) + 6) % 7
		a.Weekdays[day].Absences += st.Quorum
		a.Weekdays[day].Sessions++
		a.TotalPenalizing += st.Quorum

		a.WorstSessions = append(a.WorstSessions, SessionRanking{
			Code:       st.Code,
			Date:       st.Date.Format("2006-01-02"),
			Kind:       st.Kind,
			Percentage: st.Percentage,
			Quorum:     st.Quorum,
			Presences:  st.Presences,
			Total:      st.Total,
			Weekday:    weekdayNames[day],
		})
	}

	for i := range a.Weekdays {
		if a.Weekdays[i].Sessions > 0 {
			avg := float64(a.Weekdays[i].Absences) / float64(a.Weekdays[i].Sessions)
			a.Weekdays[i].Average = roundTwo(avg)
		}
	}

	sort.SliceStable(a.WorstSessions, func(i, j int) bool {
		return a.WorstSessions[i].Percentage < a.WorstSessions[j].Percentage
	})
	if len(a.WorstSessions) > 10 {
		a.WorstSessions = a.WorstSessions[:10]
	}
	return a, nil
}

// DeputyTenure is a deputy's first and last appearance under one party.
type DeputyTenure struct {
	Name         string `json:"nome"`
	FirstSession string `json:"primeira_sessao"`
	FirstDate    string `json:"primeira_data"`
	LastSession  string `json:"ultima_sessao"`
	LastDate     string `json:"ultima_data"`
}

// PartyMovements groups deputies that entered or left a party's bench over
// the stored sessions.
type PartyMovements struct {
	Departures []DeputyTenure `json:"saidas"`
	Entries    []DeputyTenure `json:"entradas"`
}

// GetSubstitutions derives bench movements per party: a departure is a
// deputy whose last appearance predates the most recent stored session, an
// entry is one whose first appearance postdates the oldest.
func (s *SessionStore) GetSubstitutions(ctx context.Context) (map[string]PartyMovements, error) {
	var firstCode, lastCode string
	err := s.db.QueryRowContext(ctx,
		`SELECT code FROM sessions ORDER BY session_date ASC LIMIT 1`,
	).Scan(&firstCode)
	if err == sql.ErrNoRows {
		return map[string]PartyMovements{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get first session: %w", err)
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT code FROM sessions ORDER BY session_date DESC LIMIT 1`,
	).Scan(&lastCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get last session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(a.party, d.party, 'Sem Partido') AS party,
		       d.display_name,
		       (ARRAY_AGG(s.code ORDER BY s.session_date ASC))[1],
		       MIN(s.session_date),
		       (ARRAY_AGG(s.code ORDER BY s.session_date DESC))[1],
		       MAX(s.session_date)
		FROM attendance a
		JOIN deputies d ON d.id = a.deputy_id
		JOIN sessions s ON s.id = a.session_id
		GROUP BY 1, d.id, d.display_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get substitutions: %w", err)
	}
	defer rows.Close()

	movements := make(map[string]PartyMovements)
	for rows.Next() {
		var party, name, first, last string
		var firstDate, lastDate time.Time
		if err := rows.Scan(&party, &name, &first, &firstDate, &last, &lastDate); err != nil {
			return nil, fmt.Errorf("failed to scan substitution row: %w", err)
		}
		tenure := DeputyTenure{
			Name:         name,
			FirstSession: first,
			FirstDate:    firstDate.Format("2006-01-02"),
			LastSession:  last,
			LastDate:     lastDate.Format("2006-01-02"),
		}
		m := movements[party]
		if last != lastCode {
			m.Departures = append(m.Departures, tenure)
		}
		if first != firstCode {
			m.Entries = append(m.Entries, tenure)
		}
		movements[party] = m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Parties with no movement are omitted from the report.
	for party, m := range movements {
		if len(m.Departures) == 0 && len(m.Entries) == 0 {
			delete(movements, party)
		}
	}
	return movements, nil
}

func roundTwo(v float64) float64 {
	return math.Round(v*100) / 100
}
