package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pmarques/hemiciclo/internal/model"
)

// Pipeline stages, in execution order. Every ingestion failure is tagged
// with the stage that produced it so the caller can react per stage.
const (
	StageParse    = "leitura_csv"
	StageColumns  = "validar_colunas"
	StageCount    = "validar_230"
	StageReasons  = "validar_motivos"
	StageMetadata = "metadados"
)

// sessionDateLayout is the day-month-year format used by the export.
const sessionDateLayout = "02-01-2006"

// StageError is a classified ingestion failure. It is the only error type
// the pipeline produces; nothing escapes unclassified.
type StageError struct {
	Stage      string
	Message    string
	Missing    []string    // set for StageColumns
	Distinct   int         // set for StageCount
	Violations []Violation // set for StageReasons
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

// Summary counts what a successful ingestion saw.
type Summary struct {
	TotalRows     int `json:"total_linhas"`
	DistinctNames int `json:"nomes_distintos"`
}

// IngestResult is the validated, normalized output of the pipeline, safe to
// hand to the store layer.
type IngestResult struct {
	Session model.SessionMeta    `json:"sessao"`
	Records []model.IngestRecord `json:"registos"`
	Summary Summary              `json:"resumo"`
}

// Pipeline validates and normalizes attendance uploads.
type Pipeline struct {
	// IncludeMission makes the parliamentary-mission absence require a
	// justification. Off by default, matching the chamber's rules.
	IncludeMission bool
}

// NewPipeline creates a Pipeline.
func NewPipeline(includeMission bool) *Pipeline {
	return &Pipeline{IncludeMission: includeMission}
}

// table is a parsed upload with every cell already cleaned.
type table struct {
	header []string
	index  map[string]int
	rows   [][]string
}

func (t *table) cell(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// readTable parses the upload as tab-separated values with double-quote
// quoting and runs every cell through CleanField.
func readTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("ficheiro vazio")
	}

	t := &table{header: records[0], index: make(map[string]int)}
	for i, col := range t.header {
		t.header[i] = CleanField(col)
		t.index[t.header[i]] = i
	}
	for _, row := range records[1:] {
		for i := range row {
			row[i] = CleanField(row[i])
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// Run executes the full validation pipeline. Stages run in a fixed order
// and the first failing stage wins; within the reason stage all rows are
// checked so the operator sees the complete violation list at once.
func (p *Pipeline) Run(r io.Reader) (*IngestResult, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, &StageError{Stage: StageParse, Message: fmt.Sprintf("Erro ao ler o CSV: %v", err)}
	}

	if missing := MissingColumns(t.header); len(missing) > 0 {
		return nil, &StageError{
			Stage:   StageColumns,
			Message: fmt.Sprintf("CSV inválido. Faltam colunas: %v", missing),
			Missing: missing,
		}
	}

	distinct := make(map[string]struct{}, len(t.rows))
	for _, row := range t.rows {
		distinct[NormalizeName(t.cell(row, "DEPUTADO"))] = struct{}{}
	}
	if len(distinct) != ExpectedDeputies {
		return nil, &StageError{
			Stage:    StageCount,
			Message:  fmt.Sprintf("Encontrados %d nomes distintos (esperado: %d).", len(distinct), ExpectedDeputies),
			Distinct: len(distinct),
		}
	}

	var violations []Violation
	for i, row := range t.rows {
		status := t.cell(row, "ASSIDUIDADE")
		reason := t.cell(row, "MOTIVO")
		if !ReasonRequired(status, p.IncludeMission) {
			continue
		}
		v := Violation{
			Line:   i + 2, // 1-based, plus the header row
			Deputy: t.cell(row, "DEPUTADO"),
			Status: status,
		}
		switch {
		case reason == "":
			v.Kind = ViolationReasonMissing
		case !ValidReason(reason):
			v.Kind = ViolationReasonInvalid
			v.Reason = reason
		default:
			continue
		}
		violations = append(violations, v)
	}
	if len(violations) > 0 {
		return nil, &StageError{
			Stage:      StageReasons,
			Message:    fmt.Sprintf("Foram encontradas %d violações.", len(violations)),
			Violations: violations,
		}
	}

	meta, err := extractMeta(t)
	if err != nil {
		return nil, &StageError{Stage: StageMetadata, Message: fmt.Sprintf("Erro a extrair metadados da sessão: %v", err)}
	}

	records := make([]model.IngestRecord, 0, len(t.rows))
	for _, row := range t.rows {
		name := t.cell(row, "DEPUTADO")
		records = append(records, model.IngestRecord{
			OriginalName:   name,
			NormalizedName: NormalizeName(name),
			Party:          t.cell(row, "PARTIDO"),
			Status:         t.cell(row, "ASSIDUIDADE"),
			Reason:         t.cell(row, "MOTIVO"),
		})
	}

	return &IngestResult{
		Session: meta,
		Records: records,
		Summary: Summary{TotalRows: len(t.rows), DistinctNames: len(distinct)},
	}, nil
}

// extractMeta reads the session descriptor from the first data row. The
// export repeats session-level fields on every row; the first row is
// trusted and other rows are not cross-checked.
func extractMeta(t *table) (model.SessionMeta, error) {
	if len(t.rows) == 0 {
		return model.SessionMeta{}, errors.New("tabela sem linhas")
	}
	first := t.rows[0]
	date, err := time.Parse(sessionDateLayout, t.cell(first, "DATA"))
	if err != nil {
		return model.SessionMeta{}, err
	}
	return model.SessionMeta{
		Code:        t.cell(first, "ID_LEGIS_SESSAO"),
		Legislature: t.cell(first, "LEGISLATURA"),
		Number:      t.cell(first, "NUMERO"),
		Kind:        t.cell(first, "SESSAO"),
		Date:        date,
	}, nil
}
