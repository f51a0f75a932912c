package handlers

import (
	"database/sql"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pmarques/hemiciclo/internal/model"
)

const dateLayout = "2006-01-02"

func roundTwo(v float64) float64 {
	return math.Round(v*100) / 100
}

// parseISODate parses a YYYY-MM-DD query value, returning the zero time for
// empty or malformed input so filters simply stay off.
func parseISODate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullTimeISO renders an optional timestamp as ISO 8601 or JSON null.
func nullTimeISO(t sql.NullTime) interface{} {
	if !t.Valid {
		return nil
	}
	return t.Time.Format("2006-01-02T15:04:05")
}

// sessionPayload shapes a session descriptor for the wire.
func sessionPayload(m model.SessionMeta) fiber.Map {
	return fiber.Map{
		"id_legis_sessao": m.Code,
		"legislatura":     m.Legislature,
		"numero":          m.Number,
		"tipo":            m.Kind,
		"data":            m.Date.Format(dateLayout),
	}
}
