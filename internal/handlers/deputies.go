package handlers

import (
	"context"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/pmarques/hemiciclo/internal/model"
	"github.com/pmarques/hemiciclo/internal/store"
)

// DeputiesHandler lists per-deputy attendance statistics, optionally
// restricted to one legislature.
func DeputiesHandler(deputies *store.DeputyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		stats, err := deputies.GetStats(ctx, c.Query("legislatura"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"ok": false, "mensagem": "Erro a carregar deputados.",
			})
		}
		if stats == nil {
			stats = []model.DeputyStats{}
		}
		return c.JSON(fiber.Map{"ok": true, "deputados": stats})
	}
}

// DeputiesFilteredHandler lists per-deputy statistics over the sessions
// selected by legislature, session kind and date range.
func DeputiesFilteredHandler(deputies *store.DeputyStore) fiber.Handler {
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

		stats, err := deputies.GetStatsFiltered(ctx, filter)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"ok": false, "mensagem": "Erro a carregar deputados.",
			})
		}
		if stats == nil {
			stats = []model.DeputyStats{}
		}
		return c.JSON(fiber.Map{"ok": true, "deputados": stats})
	}
}

// DeputyDetailHandler shows one deputy's attendance session by session,
// matching the name fragment case-insensitively.
func DeputyDetailHandler(deputies *store.DeputyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		name, err := url.QueryUnescape(c.Params("nome"))
		if err != nil {
			name = c.Params("nome")
		}

		deputy, err := deputies.FindByPartialName(ctx, name)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"ok": false, "mensagem": "Erro a carregar deputado.",
			})
		}
		if deputy == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"ok": false, "mensagem": "Deputado não encontrado",
			})
		}

		details, err := deputies.GetDetails(ctx, deputy.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"ok": false, "mensagem": "Erro a carregar detalhes.",
			})
		}

		rows := make([]fiber.Map, 0, len(details))
		for _, d := range details {
			rows = append(rows, fiber.Map{
				"data":            d.Date.Format(dateLayout),
				"id_legis_sessao": d.Code,
				"tipo":            d.Kind,
				"legislatura":     d.Legislature,
				"numero":          d.Number,
				"status":          d.Status,
				"motivo":          d.Reason,
				"partido":         d.Party,
			})
		}
		return c.JSON(fiber.Map{
			"ok": true,
			"deputado": fiber.Map{
				"nome":    deputy.DisplayName,
				"partido": deputy.Party.String,
			},
			"total_sessoes": len(rows),
			"detalhes":      rows,
		})
	}
}
