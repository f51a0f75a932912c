package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/pmarques/hemiciclo/internal/store"
)

// SessionsHandler lists all stored sessions, most recent first.
func SessionsHandler(sessions *store.SessionStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		all, err := sessions.GetAll(ctx)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"ok": false, "mensagem": "Erro a carregar sessões.",
			})
		}

		rows := make([]fiber.Map, 0, len(all))
		for _, s := range all {
			rows = append(rows, fiber.Map{
				"id_legis_sessao": s.Code,
				"legislatura":     s.Legislature,
				"numero":          s.Number,
				"tipo":            s.Kind,
				"data":            s.Date.Format(dateLayout),
			})
		}
		return c.JSON(fiber.Map{"ok": true, "sessoes": rows})
	}
}

// SessionStatsHandler aggregates attendance counters per session.
func SessionStatsHandler(sessions *store.SessionStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		kind := c.Query("tipo")
		if kind == "" {
			kind = c.Query("tipo_sessao")
		}
		filter := store.StatsFilter{
			Legislature: c.Query("legislatura"),
			Kind:        kind,
			From:        parseISODate(c.Query("data_inicio")),
			To:          parseISODate(c.Query("data_fim")),
		}

		stats, err := sessions.GetStats(ctx, filter)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"ok": false, "mensagem": "Erro a carregar estatísticas.",
			})
		}

		rows := make([]fiber.Map, 0, len(stats))
		for _, st := range stats {
			rows = append(rows, fiber.Map{
				"id_legis_sessao":     st.Code,
				"legislatura":         st.Legislature,
				"numero":              st.Number,
				"data":                st.Date.Format(dateLayout),
				"tipo":                st.Kind,
				"presencas":           st.Presences,
				"faltas_quorum":       st.Quorum,
				"faltas_justificadas": st.Justified,
				"amp":                 st.Mission,
				"total_registos":      st.Total,
				"assiduidade_pct":     st.Percentage,
			})
		}
		return c.JSON(fiber.Map{"ok": true, "sessoes": rows})
	}
}

// defaultAbsenceCost is the estimated daily cost of a penalizing absence,
// overridable per request.
const defaultAbsenceCost = 200

// AnalysisHandler breaks penalizing absences down by weekday, ranks the
// worst-attended sessions and estimates the cost of absences.
func AnalysisHandler(sessions *store.SessionStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		costPerDay := float64(defaultAbsenceCost)
		if v := c.Query("custo_dia"); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				costPerDay = parsed
			}
		}

		analysis, err := sessions.GetAnalysis(ctx)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"ok": false, "mensagem": "Erro a carregar análise.",
			})
		}

		return c.JSON(fiber.Map{
			"ok":                    true,
			"faltas_por_dia_semana": analysis.Weekdays,
			"top_10_piores_sessoes": analysis.WorstSessions,
			"custo_estimado":        costEstimate(analysis.TotalPenalizing, costPerDay),
		})
	}
}

// costEstimate shapes the absence cost block, with the total rounded to
// cents.
func costEstimate(totalPenalizing int, costPerDay float64) fiber.Map {
	return fiber.Map{
		"total_faltas_penalizadoras": totalPenalizing,
		"custo_por_dia":              costPerDay,
		"custo_total":                roundTwo(float64(totalPenalizing) * costPerDay),
		"disclaimer":                 "Estimativa baseada no salário base de deputado (€4.595,81/mês, 14 meses). Não inclui subsídios adicionais.",
	}
}

// SubstitutionsHandler lists bench entries and departures per party across
// the stored sessions.
func SubstitutionsHandler(sessions *store.SessionStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		movements, err := sessions.GetSubstitutions(ctx)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"ok": false, "mensagem": "Erro a carregar substituições.",
			})
		}
		return c.JSON(fiber.Map{
			"ok":             true,
			"movimentos":     movements,
			"total_partidos": len(movements),
		})
	}
}
