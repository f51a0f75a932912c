package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/pmarques/hemiciclo/internal/model"
	"github.com/pmarques/hemiciclo/internal/store"
)

// PayloadKind identifies which importer handles a JSON upload.
type PayloadKind string

const (
	PayloadActivity PayloadKind = "atividade"
	PayloadAgenda   PayloadKind = "agenda"
)

// ErrUnrecognizedPayload is returned when a JSON upload matches neither the
// activity nor the agenda shape.
var ErrUnrecognizedPayload = errors.New("JSON não reconhecido (esperado Atividade ou Agenda)")

// activityKinds maps the feed's short field names to report categories.
var activityKinds = map[string]string{
	"Ini":        "Iniciativas",
	"Intev":      "Intervenções",
	"Req":        "Requerimentos",
	"Audicoes":   "Audições",
	"Audiencias": "Audiências",
	"ActP":       "Atos Parlamentares",
	"Cms":        "Comissões",
}

// JSONImporter loads the parliament's activity and agenda JSON feeds. Each
// payload is written in a single transaction: a failure halfway through a
// file leaves nothing behind.
type JSONImporter struct {
	db         *sql.DB
	deputies   *store.DeputyStore
	activities *store.ActivityStore
	agenda     *store.AgendaStore
	logger     *log.Logger
}

// NewJSONImporter creates a JSONImporter.
func NewJSONImporter(db *sql.DB, deputies *store.DeputyStore, activities *store.ActivityStore, agenda *store.AgendaStore) *JSONImporter {
	return &JSONImporter{
		db:         db,
		deputies:   deputies,
		activities: activities,
		agenda:     agenda,
		logger:     log.New(os.Stdout, "", log.LstdFlags),
	}
}

// Detect decides which importer a JSON payload belongs to by inspecting the
// first array element: an activity entry carries both the activity list and
// the deputy block, an agenda entry carries a start date and a title.
func Detect(data []byte) (PayloadKind, error) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return "", fmt.Errorf("payload inválido: %w", err)
	}
	if len(items) == 0 {
		return "", ErrUnrecognizedPayload
	}
	first := items[0]
	if _, ok := first["AtividadeDeputadoList"]; ok {
		if _, ok := first["Deputado"]; ok {
			return PayloadActivity, nil
		}
	}
	if _, ok := first["EventStartDate"]; ok {
		if _, ok := first["Title"]; ok {
			return PayloadAgenda, nil
		}
	}
	return "", ErrUnrecognizedPayload
}

// Import dispatches a JSON payload to the matching importer and returns the
// payload kind plus the number of processed elements. The whole payload
// commits or rolls back as one unit.
func (i *JSONImporter) Import(ctx context.Context, data []byte) (PayloadKind, int, error) {
	kind, err := Detect(data)
	if err != nil {
		return "", 0, err
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var n int
	switch kind {
	case PayloadActivity:
		n, err = i.importActivity(ctx, tx, data)
	default:
		n, err = i.importAgenda(ctx, tx, data)
	}
	if err != nil {
		return kind, 0, err
	}
	if err := tx.Commit(); err != nil {
		return kind, 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return kind, n, nil
}

type activityDeputy struct {
	DepNomeParlamentar string `json:"DepNomeParlamentar"`
	DepNomeCompleto    string `json:"DepNomeCompleto"`
	LegDes             string `json:"LegDes"`
	DepGP              []struct {
		GpSigla string `json:"GpSigla"`
	} `json:"DepGP"`
}

type activityEntry struct {
	Deputado              *activityDeputy              `json:"Deputado"`
	AtividadeDeputadoList []map[string]json.RawMessage `json:"AtividadeDeputadoList"`
}

func (i *JSONImporter) importActivity(ctx context.Context, tx *sql.Tx, data []byte) (int, error) {
	var entries []activityEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("payload de atividade inválido: %w", err)
	}

	deputies := i.deputies.WithTx(tx)
	activities := i.activities.WithTx(tx)
	processed := 0
	for _, entry := range entries {
		if entry.Deputado == nil {
			continue
		}
		name := entry.Deputado.DepNomeParlamentar
		if name == "" {
			name = entry.Deputado.DepNomeCompleto
		}
		normalized := NormalizeName(name)
		if normalized == "" {
			continue
		}
		party := ""
		if len(entry.Deputado.DepGP) > 0 {
			party = entry.Deputado.DepGP[0].GpSigla
		}

		deputyID, created, err := deputies.GetOrCreate(ctx, normalized, name, party)
		if err != nil {
			return processed, err
		}
		if created {
			i.logger.Printf("New deputy from activity feed: %s", name)
		}

		for _, block := range entry.AtividadeDeputadoList {
			for field, kind := range activityKinds {
				raw, ok := block[field]
				if !ok {
					continue
				}
				total, details, ok := summarizeItems(raw)
				if !ok {
					continue
				}
				activity := &model.Activity{
					DeputyID:    deputyID,
					Kind:        kind,
					Legislature: entry.Deputado.LegDes,
					Total:       total,
					Details:     nullString(details),
				}
				if err := activities.Upsert(ctx, activity); err != nil {
					return processed, err
				}
			}
		}
		processed++
	}
	return processed, nil
}

// summarizeItems counts a category's items (a list counts its length, a
// single object counts one) and samples up to three item titles.
func summarizeItems(raw json.RawMessage) (total int, details string, ok bool) {
	var list []map[string]interface{}
	if err := json.Unmarshal(raw, &list); err == nil {
		return len(list), sampleTitles(list), true
	}
	var single map[string]interface{}
	if err := json.Unmarshal(raw, &single); err == nil {
		return 1, sampleTitles([]map[string]interface{}{single}), true
	}
	return 0, "", false
}

// sampleTitles picks whatever titles the first three items carry; untitled
// items among them shrink the sample, later items are never consulted.
func sampleTitles(items []map[string]interface{}) string {
	if len(items) > 3 {
		items = items[:3]
	}
	var titles []string
	for _, item := range items {
		for _, key := range []string{"IniTi", "IntSu", "ActTpdesc", "Titulo"} {
			if v, ok := item[key].(string); ok && v != "" {
				titles = append(titles, v)
				break
			}
		}
	}
	return strings.Join(titles, "; ")
}

type agendaEntry struct {
	ID             *int64      `json:"Id"`
	Title          string      `json:"Title"`
	Theme          string      `json:"Theme"`
	Section        string      `json:"Section"`
	Local          string      `json:"Local"`
	OrgDes         string      `json:"OrgDes"`
	LegDes         string      `json:"LegDes"`
	ParlamentGroup interface{} `json:"ParlamentGroup"`
	Link           string      `json:"Link"`
	InternetText   string      `json:"InternetText"`
	EventStartDate string      `json:"EventStartDate"`
	EventStartTime string      `json:"EventStartTime"`
	EventEndDate   string      `json:"EventEndDate"`
	EventEndTime   string      `json:"EventEndTime"`
}

func (i *JSONImporter) importAgenda(ctx context.Context, tx *sql.Tx, data []byte) (int, error) {
	var entries []agendaEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("payload de agenda inválido: %w", err)
	}

	agenda := i.agenda.WithTx(tx)
	processed := 0
	for _, entry := range entries {
		if entry.ID == nil {
			continue
		}
		item := &model.AgendaItem{
			ExternalID:      *entry.ID,
			Title:           entry.Title,
			Theme:           nullString(entry.Theme),
			Section:         nullString(entry.Section),
			Organizer:       nullString(entry.OrgDes),
			Venue:           nullString(entry.Local),
			Legislature:     nullString(entry.LegDes),
			ParliamentGroup: nullGroup(entry.ParlamentGroup),
			Link:            nullString(entry.Link),
			Body:            nullString(entry.InternetText),
			StartsAt:        buildEventTime(entry.EventStartDate, entry.EventStartTime),
			EndsAt:          buildEventTime(entry.EventEndDate, entry.EventEndTime),
		}
		if err := agenda.Upsert(ctx, item); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

// buildEventTime combines the feed's DD/MM/YYYY date with an optional
// HH:MM:SS time. A missing or unparseable date yields null; a missing or
// unparseable time falls back to midnight.
func buildEventTime(dateStr, timeStr string) sql.NullTime {
	if dateStr == "" {
		return sql.NullTime{}
	}
	day, err := time.Parse("02/01/2006", dateStr)
	if err != nil {
		return sql.NullTime{}
	}
	if timeStr != "" {
		if clock, err := time.Parse("15:04:05", timeStr); err == nil {
			day = day.Add(time.Duration(clock.Hour())*time.Hour +
				time.Duration(clock.Minute())*time.Minute +
				time.Duration(clock.Second())*time.Second)
		}
	}
	return sql.NullTime{Time: day, Valid: true}
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func nullGroup(v interface{}) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: fmt.Sprint(v), Valid: true}
}
