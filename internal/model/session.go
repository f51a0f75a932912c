package model

import "time"

// Attendance statuses as they appear in the parliament's exports. Presence
// is matched by prefix because the export sometimes carries the short code
// in parentheses and sometimes does not.
const (
	StatusPresentPrefix = "Presença"
	StatusJustified     = "Falta Justificada (FJ)"
	StatusMission       = "Ausência em Missão Parlamentar (AMP)"
)

// Session is a single recorded sitting of the legislature.
type Session struct {
	ID          int
	Code        string
	Legislature string
	Number      string
	Kind        string
	Date        time.Time
}

// SessionMeta is the session descriptor extracted from an attendance
// upload. Session-level fields are read from the first data row.
type SessionMeta struct {
	Code        string    `json:"id_legis_sessao"`
	Legislature string    `json:"legislatura"`
	Number      string    `json:"numero"`
	Kind        string    `json:"tipo"`
	Date        time.Time `json:"-"`
}

// IngestRecord is one normalized attendance row ready to be persisted.
type IngestRecord struct {
	OriginalName   string `json:"deputado_original"`
	NormalizedName string `json:"deputado_normalizado"`
	Party          string `json:"partido"`
	Status         string `json:"status"`
	Reason         string `json:"motivo"`
}

// SessionStats aggregates one session's attendance counters.
type SessionStats struct {
	Code        string    `json:"id_legis_sessao"`
	Legislature string    `json:"legislatura"`
	Number      string    `json:"numero"`
	Kind        string    `json:"tipo"`
	Date        time.Time `json:"-"`
	Presences   int       `json:"presencas"`
	Quorum      int       `json:"faltas_quorum"`
	Justified   int       `json:"faltas_justificadas"`
	Mission     int       `json:"amp"`
	Total       int       `json:"total_registos"`
	Percentage  float64   `json:"assiduidade_pct"`
}

// AttendanceDetail is one deputy's status in one session, joined with the
// session descriptor for the per-deputy history view.
type AttendanceDetail struct {
	Date        time.Time
	Code        string
	Kind        string
	Legislature string
	Number      string
	Status      string
	Reason      string
	Party       string
}
