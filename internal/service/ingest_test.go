package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uploadHeader = "LEGISLATURA\tDATA\tNUMERO\tSESSAO\tID_LEGIS_SESSAO\tDEPUTADO\tPARTIDO\tASSIDUIDADE\tMOTIVO"

// uploadRow renders one attendance line for the standard test session.
func uploadRow(deputy, party, status, reason string) string {
	return strings.Join([]string{"XVII", "12-03-2025", "42", "Plenária", "XVII-042", deputy, party, status, reason}, "\t")
}

// fullBench returns one presence row per seat, with overrides applied to
// the first rows.
func fullBench(overrides ...string) string {
	lines := []string{uploadHeader}
	lines = append(lines, overrides...)
	for i := len(overrides) + 1; i <= ExpectedDeputies; i++ {
		lines = append(lines, uploadRow(fmt.Sprintf("Deputado %03d", i), "PSD", "Presença (P)", ""))
	}
	return strings.Join(lines, "\n")
}

func stageOf(t *testing.T, err error) *StageError {
	t.Helper()
	var stage *StageError
	require.True(t, errors.As(err, &stage), "expected a StageError, got %v", err)
	return stage
}

func TestPipelineSuccess(t *testing.T) {
	p := NewPipeline(false)

	result, err := p.Run(strings.NewReader(fullBench()))
	require.NoError(t, err)

	assert.Equal(t, ExpectedDeputies, result.Summary.DistinctNames)
	assert.Equal(t, ExpectedDeputies, result.Summary.TotalRows)
	assert.Len(t, result.Records, ExpectedDeputies)

	assert.Equal(t, "XVII-042", result.Session.Code)
	assert.Equal(t, "XVII", result.Session.Legislature)
	assert.Equal(t, "42", result.Session.Number)
	assert.Equal(t, "Plenária", result.Session.Kind)
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), result.Session.Date)

	first := result.Records[0]
	assert.Equal(t, "Deputado 001", first.OriginalName)
	assert.Equal(t, "deputado 001", first.NormalizedName)
	assert.Equal(t, "PSD", first.Party)
	assert.Equal(t, "Presença (P)", first.Status)
}

func TestPipelineRepeatedDeputyStillCountsOnce(t *testing.T) {
	p := NewPipeline(false)

	upload := fullBench() + "\n" + uploadRow("Deputado 001", "PSD", "Presença (P)", "")
	result, err := p.Run(strings.NewReader(upload))
	require.NoError(t, err)

	assert.Equal(t, ExpectedDeputies, result.Summary.DistinctNames)
	assert.Equal(t, ExpectedDeputies+1, result.Summary.TotalRows)
}

func TestPipelineUnreadableUpload(t *testing.T) {
	p := NewPipeline(false)

	_, err := p.Run(strings.NewReader(""))
	assert.Equal(t, StageParse, stageOf(t, err).Stage)

	// ragged rows fail the tab-separated parse
	_, err = p.Run(strings.NewReader(uploadHeader + "\nonly\tthree\tcells"))
	assert.Equal(t, StageParse, stageOf(t, err).Stage)
}

func TestPipelineMissingColumns(t *testing.T) {
	p := NewPipeline(false)

	upload := "LEGISLATURA\tDATA\tNUMERO\tSESSAO\tID_LEGIS_SESSAO\tDEPUTADO\tPARTIDO\tASSIDUIDADE\n" +
		"XVII\t12-03-2025\t42\tPlenária\tXVII-042\tDeputado 001\tPSD\tPresença (P)"
	_, err := p.Run(strings.NewReader(upload))

	stage := stageOf(t, err)
	assert.Equal(t, StageColumns, stage.Stage)
	assert.Equal(t, []string{"MOTIVO"}, stage.Missing)
}

func TestPipelineWrongDeputyCount(t *testing.T) {
	p := NewPipeline(false)

	lines := []string{uploadHeader}
	for i := 1; i <= ExpectedDeputies-1; i++ {
		lines = append(lines, uploadRow(fmt.Sprintf("Deputado %03d", i), "PSD", "Presença (P)", ""))
	}
	_, err := p.Run(strings.NewReader(strings.Join(lines, "\n")))

	stage := stageOf(t, err)
	assert.Equal(t, StageCount, stage.Stage)
	assert.Equal(t, ExpectedDeputies-1, stage.Distinct)
}

func TestPipelineReasonViolations(t *testing.T) {
	p := NewPipeline(false)

	upload := fullBench(
		uploadRow("Deputado 001", "PSD", "Falta Justificada (FJ)", ""),
		uploadRow("Deputado 002", "PS", "Falta Justificada (FJ)", "ida ao futebol"),
		uploadRow("Deputado 003", "PS", "Falta Justificada (FJ)", "doença crónica"),
		uploadRow("Deputado 004", "BE", "Presença (P)", "texto irrelevante"),
		uploadRow("Deputado 005", "PCP", "Falta ao Quórum de Votação", ""),
		uploadRow("Deputado 006", "IL", "Ausência em Missão Parlamentar (AMP)", ""),
	)
	_, err := p.Run(strings.NewReader(upload))

	stage := stageOf(t, err)
	assert.Equal(t, StageReasons, stage.Stage)
	require.Len(t, stage.Violations, 2)

	missing := stage.Violations[0]
	assert.Equal(t, 2, missing.Line)
	assert.Equal(t, "Deputado 001", missing.Deputy)
	assert.Equal(t, "Falta Justificada (FJ)", missing.Status)
	assert.Equal(t, ViolationReasonMissing, missing.Kind)
	assert.Empty(t, missing.Reason)

	invalid := stage.Violations[1]
	assert.Equal(t, 3, invalid.Line)
	assert.Equal(t, "Deputado 002", invalid.Deputy)
	assert.Equal(t, ViolationReasonInvalid, invalid.Kind)
	assert.Equal(t, "ida ao futebol", invalid.Reason)
}

func TestPipelineMissionReasonOptIn(t *testing.T) {
	upload := fullBench(
		uploadRow("Deputado 001", "IL", "Ausência em Missão Parlamentar (AMP)", ""),
	)

	_, err := NewPipeline(false).Run(strings.NewReader(upload))
	require.NoError(t, err)

	_, err = NewPipeline(true).Run(strings.NewReader(upload))
	stage := stageOf(t, err)
	assert.Equal(t, StageReasons, stage.Stage)
	require.Len(t, stage.Violations, 1)
	assert.Equal(t, ViolationReasonMissing, stage.Violations[0].Kind)
}

func TestPipelineBadSessionDate(t *testing.T) {
	p := NewPipeline(false)

	lines := []string{uploadHeader}
	for i := 1; i <= ExpectedDeputies; i++ {
		lines = append(lines, strings.Join([]string{
			"XVII", "2025-03-12", "42", "Plenária", "XVII-042",
			fmt.Sprintf("Deputado %03d", i), "PSD", "Presença (P)", "",
		}, "\t"))
	}
	_, err := p.Run(strings.NewReader(strings.Join(lines, "\n")))

	assert.Equal(t, StageMetadata, stageOf(t, err).Stage)
}

func TestPipelineCleansQuotedCells(t *testing.T) {
	p := NewPipeline(false)

	upload := fullBench(
		uploadRow("  Deputado   001 ", "PSD", "Presença (P)", "nan"),
	)
	result, err := p.Run(strings.NewReader(upload))
	require.NoError(t, err)

	assert.Equal(t, "Deputado 001", result.Records[0].OriginalName)
	assert.Equal(t, "deputado 001", result.Records[0].NormalizedName)
	assert.Empty(t, result.Records[0].Reason)
}
