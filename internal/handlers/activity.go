package handlers

import (
	"context"
	"math"

	"github.com/gofiber/fiber/v2"

	"github.com/pmarques/hemiciclo/internal/model"
	"github.com/pmarques/hemiciclo/internal/store"
)

// ActivityHandler lists parliamentary activity aggregates joined with their
// deputies, highest totals first.
func ActivityHandler(activities *store.ActivityStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		rows, err := activities.GetAll(ctx, store.ActivityFilter{
			Legislature: c.Query("legislatura"),
			Kind:        c.Query("tipo"),
			Party:       c.Query("partido"),
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"ok": false, "mensagem": "Erro a carregar atividade.",
			})
		}

		out := make([]fiber.Map, 0, len(rows))
		for _, r := range rows {
			var lastDate interface{}
			if r.LastDate.Valid {
				lastDate = r.LastDate.Time.Format(dateLayout)
			}
			out = append(out, fiber.Map{
				"deputado":    r.Deputy,
				"partido":     r.Party,
				"tipo":        r.Kind,
				"total":       r.Total,
				"legislatura": r.Legislature,
				"detalhes":    r.Details,
				"ultima_data": lastDate,
			})
		}
		return c.JSON(fiber.Map{"ok": true, "registos": out})
	}
}

// ActivityStatsHandler computes chamber-wide activity aggregates: the most
// active party, per-category totals and the share of deputies with any
// recorded activity.
func ActivityStatsHandler(activities *store.ActivityStore, deputies *store.DeputyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		rows, err := activities.GetAll(ctx, store.ActivityFilter{
			Legislature: c.Query("legislatura"),
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"ok": false, "mensagem": "Erro a carregar atividade.",
			})
		}

		partyTotals := make(map[string]int)
		kindTotals := make(map[string]int)
		activeDeputies := make(map[int]struct{})
		mostActiveParty := ""
		maxPartyTotal := 0

		for _, r := range rows {
			if r.Party != "" {
				partyTotals[r.Party] += r.Total
				if partyTotals[r.Party] > maxPartyTotal {
					maxPartyTotal = partyTotals[r.Party]
					mostActiveParty = r.Party
				}
			}
			kindTotals[r.Kind] += r.Total
			activeDeputies[r.DeputyID] = struct{}{}
		}

		totalActivities := 0
		for _, n := range kindTotals {
			totalActivities += n
		}

		totalDeputies, err := deputies.Count(ctx)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"ok": false, "mensagem": "Erro a carregar deputados.",
			})
		}
		participation := 0.0
		if totalDeputies > 0 {
			participation = math.Round(float64(len(activeDeputies))/float64(totalDeputies)*100*10) / 10
		}

		if mostActiveParty == "" {
			mostActiveParty = "-"
		}
		return c.JSON(fiber.Map{
			"ok":                       true,
			"partido_mais_ativo":       mostActiveParty,
			"iniciativas_legislativas": kindTotals["Iniciativas"],
			"taxa_participacao":        participation,
			"total_atividades":         totalActivities,
			"deputados_ativos":         len(activeDeputies),
			"tipos_atividade":          len(kindTotals),
		})
	}
}

// AgendaHandler lists upcoming agenda items matching the query filters.
func AgendaHandler(agenda *store.AgendaStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		items, err := agenda.GetUpcoming(ctx, model.AgendaFilter{
			Legislature: c.Query("legislatura"),
			Section:     c.Query("section"),
			Theme:       c.Query("theme"),
			From:        parseISODate(c.Query("data_inicio")),
			To:          parseISODate(c.Query("data_fim")),
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"ok": false, "mensagem": "Erro a carregar agenda.",
			})
		}

		out := make([]fiber.Map, 0, len(items))
		for _, it := range items {
			out = append(out, fiber.Map{
				"titulo":      it.Title,
				"tema":        it.Theme.String,
				"secao":       it.Section.String,
				"local":       it.Venue.String,
				"legislatura": it.Legislature.String,
				"inicio":      nullTimeISO(it.StartsAt),
				"fim":         nullTimeISO(it.EndsAt),
				"link":        it.Link.String,
				"texto":       it.Body.String,
			})
		}
		return c.JSON(fiber.Map{"ok": true, "agenda": out})
	}
}
