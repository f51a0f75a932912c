package model

import (
	"database/sql"
	"math"
)

// Deputy represents a member of parliament, identified by the
// accent-stripped lowercase form of their name. Display name and party
// always reflect the most recent ingestion that mentioned the deputy.
type Deputy struct {
	ID             int
	NormalizedName string
	DisplayName    string
	Party          sql.NullString
}

// DeputyStats aggregates a deputy's attendance counters.
type DeputyStats struct {
	Name       string  `json:"nome"`
	Party      string  `json:"partido"`
	Presences  int     `json:"presencas"`
	Justified  int     `json:"faltas_justificadas"`
	Mission    int     `json:"missao_parlamentar_amp"`
	Penalizing int     `json:"faltas_penalizadoras"`
	Percentage float64 `json:"assiduidade_pct"`
}

// AttendancePct computes the attendance percentage used everywhere in the
// system: presences over presences plus penalizing absences, rounded to two
// decimals. Justified absences and parliamentary missions do not enter the
// denominator. Zero when the deputy has no countable sittings.
func AttendancePct(presences, penalizing int) float64 {
	denom := presences + penalizing
	if denom == 0 {
		return 0
	}
	return math.Round(float64(presences)/float64(denom)*100*100) / 100
}
