package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pmarques/hemiciclo/internal/service"
	"github.com/pmarques/hemiciclo/internal/store"
)

// UploadHandler receives attendance TSV uploads and activity/agenda JSON
// feeds on the same endpoint. JSON files are dispatched by shape; anything
// else runs through the attendance validation pipeline and, on success, is
// merged into the store.
func UploadHandler(pipeline *service.Pipeline, sessions *store.SessionStore, importer *service.JSONImporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"ok": false, "mensagem": "Ficheiro não enviado.",
			})
		}
		replace := strings.EqualFold(c.FormValue("substituir"), "true")

		file, err := fileHeader.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"ok": false, "mensagem": "Ficheiro ilegível.",
			})
		}
		defer file.Close()

		if strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".json") {
			return handleJSONUpload(ctx, c, importer, file, fileHeader.Filename)
		}

		result, err := pipeline.Run(file)
		if err != nil {
			var stage *service.StageError
			if errors.As(err, &stage) {
				payload := fiber.Map{"ok": false, "etapa": stage.Stage, "mensagem": stage.Message}
				if len(stage.Violations) > 0 {
					payload["violacoes"] = stage.Violations
				}
				return c.Status(fiber.StatusBadRequest).JSON(payload)
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"ok": false, "mensagem": err.Error(),
			})
		}

		save, err := sessions.SaveIngest(ctx, result.Session, result.Records, replace)
		if err != nil {
			var conflict *store.ErrSessionExists
			if errors.As(err, &conflict) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"ok":                 false,
					"mensagem":           fmt.Sprintf("Sessão %s já foi carregada anteriormente.", result.Session.Code),
					"sessao":             sessionPayload(result.Session),
					"requer_confirmacao": true,
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"ok": false, "mensagem": fmt.Sprintf("Erro ao inserir na base: %v", err),
			})
		}

		message := "Sessão inserida com sucesso."
		if replace {
			message = "Sessão substituída com sucesso."
		}
		return c.JSON(fiber.Map{
			"ok":                   true,
			"mensagem":             message,
			"sessao":               sessionPayload(result.Session),
			"inseridos":            save.Inserted,
			"novos_deputados":      save.NewDeputies,
			"duplicados_ignorados": save.Duplicates,
			"resumo":               result.Summary,
			"substituiu":           replace,
		})
	}
}

func handleJSONUpload(ctx context.Context, c *fiber.Ctx, importer *service.JSONImporter, file io.Reader, filename string) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok": false, "mensagem": "Ficheiro ilegível.",
		})
	}

	kind, total, err := importer.Import(ctx, data)
	if err != nil {
		if errors.Is(err, service.ErrUnrecognizedPayload) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"ok": false, "mensagem": err.Error() + ".",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"ok": false, "mensagem": fmt.Sprintf("Erro a processar JSON: %v", err),
		})
	}

	var message string
	if kind == service.PayloadActivity {
		message = fmt.Sprintf("Atividade carregada com sucesso (%d deputados).", total)
	} else {
		message = fmt.Sprintf("Agenda carregada com sucesso (%d eventos).", total)
	}
	return c.JSON(fiber.Map{
		"ok":       true,
		"mensagem": message,
		"tipo":     kind,
		"ficheiro": filename,
	})
}
