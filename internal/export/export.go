// Package export writes the aggregate payloads served over HTTP to static
// JSON files, so the frontend can run without a backend.
package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pmarques/hemiciclo/internal/model"
	"github.com/pmarques/hemiciclo/internal/store"
)

const dateLayout = "2006-01-02"

// Exporter reads the stores and writes one JSON file per aggregate.
type Exporter struct {
	deputies   *store.DeputyStore
	sessions   *store.SessionStore
	activities *store.ActivityStore
	agenda     *store.AgendaStore
	logger     *log.Logger
}

// NewExporter creates an Exporter.
func NewExporter(deputies *store.DeputyStore, sessions *store.SessionStore, activities *store.ActivityStore, agenda *store.AgendaStore) *Exporter {
	return &Exporter{
		deputies:   deputies,
		sessions:   sessions,
		activities: activities,
		agenda:     agenda,
		logger:     log.New(os.Stdout, "", log.LstdFlags),
	}
}

// Run writes every aggregate file into dir, creating it if needed.
func (e *Exporter) Run(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}

	files := []struct {
		name  string
		build func(context.Context) (interface{}, error)
	}{
		{"deputados.json", e.buildDeputies},
		{"sessoes.json", e.buildSessions},
		{"estatisticas_sessoes.json", e.buildSessionStats},
		{"atividades.json", e.buildActivities},
		{"agenda.json", e.buildAgenda},
		{"substituicoes.json", e.buildSubstitutions},
	}

	for _, f := range files {
		payload, err := f.build(ctx)
		if err != nil {
			return fmt.Errorf("failed to build %s: %w", f.name, err)
		}
		if err := writeJSON(filepath.Join(dir, f.name), payload); err != nil {
			return err
		}
		e.logger.Printf("Wrote %s", f.name)
	}
	return nil
}

func (e *Exporter) buildDeputies(ctx context.Context) (interface{}, error) {
	stats, err := e.deputies.GetStats(ctx, "")
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = []model.DeputyStats{}
	}
	return map[string]interface{}{"ok": true, "deputados": stats}, nil
}

func (e *Exporter) buildSessions(ctx context.Context) (interface{}, error) {
	sessions, err := e.sessions.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]interface{}, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, map[string]interface{}{
			"id":              s.ID,
			"id_legis_sessao": s.Code,
			"legislatura":     s.Legislature,
			"numero":          s.Number,
			"tipo":            s.Kind,
			"data":            s.Date.Format(dateLayout),
		})
	}
	return map[string]interface{}{"ok": true, "sessoes": rows}, nil
}

func (e *Exporter) buildSessionStats(ctx context.Context) (interface{}, error) {
	stats, err := e.sessions.GetStats(ctx, store.StatsFilter{})
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]interface{}, 0, len(stats))
	for _, st := range stats {
		rows = append(rows, map[string]interface{}{
			"id_legis_sessao": st.Code,
			"legislatura":     st.Legislature,
			"numero":          st.Number,
			"tipo":            st.Kind,
			"data":            st.Date.Format(dateLayout),
			"presencas":       st.Presences,
			"faltas":          st.Quorum,
			"assiduidade_pct": st.Percentage,
		})
	}
	return map[string]interface{}{"ok": true, "sessoes": rows}, nil
}

func (e *Exporter) buildActivities(ctx context.Context) (interface{}, error) {
	rows, err := e.activities.GetAll(ctx, store.ActivityFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		var lastDate interface{}
		if r.LastDate.Valid {
			lastDate = r.LastDate.Time.Format(dateLayout)
		}
		out = append(out, map[string]interface{}{
			"deputado_id":   r.DeputyID,
			"deputado_nome": r.Deputy,
			"partido":       r.Party,
			"tipo":          r.Kind,
			"legislatura":   r.Legislature,
			"total":         r.Total,
			"ultima_data":   lastDate,
			"detalhes":      r.Details,
		})
	}
	return map[string]interface{}{"ok": true, "atividades": out}, nil
}

func (e *Exporter) buildAgenda(ctx context.Context) (interface{}, error) {
	items, err := e.agenda.GetLatest(ctx, 100)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		out = append(out, map[string]interface{}{
			"id":     it.ID,
			"inicio": nullTimeISO(it.StartsAt),
			"fim":    nullTimeISO(it.EndsAt),
			"titulo": it.Title,
			"link":   it.Link.String,
		})
	}
	return map[string]interface{}{"ok": true, "agenda": out}, nil
}

func (e *Exporter) buildSubstitutions(ctx context.Context) (interface{}, error) {
	movements, err := e.sessions.GetSubstitutions(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"ok": true, "substituicoes": movements}, nil
}

func writeJSON(path string, payload interface{}) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func nullTimeISO(t sql.NullTime) interface{} {
	if !t.Valid {
		return nil
	}
	return t.Time.Format("2006-01-02T15:04:05")
}
