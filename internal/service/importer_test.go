package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	activity := `[{"Deputado": {"DepNomeParlamentar": "Ana Gomes"}, "AtividadeDeputadoList": []}]`
	agenda := `[{"Id": 12345, "Title": "Plenário", "EventStartDate": "12/03/2025"}]`

	kind, err := Detect([]byte(activity))
	require.NoError(t, err)
	assert.Equal(t, PayloadActivity, kind)

	kind, err = Detect([]byte(agenda))
	require.NoError(t, err)
	assert.Equal(t, PayloadAgenda, kind)

	_, err = Detect([]byte(`[{"foo": "bar"}]`))
	assert.ErrorIs(t, err, ErrUnrecognizedPayload)

	_, err = Detect([]byte(`[]`))
	assert.ErrorIs(t, err, ErrUnrecognizedPayload)

	_, err = Detect([]byte(`{"not": "an array"}`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnrecognizedPayload)
}

func TestBuildEventTime(t *testing.T) {
	got := buildEventTime("12/03/2025", "14:30:00")
	require.True(t, got.Valid)
	assert.Equal(t, time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC), got.Time)

	got = buildEventTime("12/03/2025", "")
	require.True(t, got.Valid)
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), got.Time)

	// unparseable time falls back to midnight
	got = buildEventTime("12/03/2025", "às 14h30")
	require.True(t, got.Valid)
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), got.Time)

	assert.False(t, buildEventTime("", "14:30:00").Valid)
	assert.False(t, buildEventTime("2025-03-12", "").Valid)
}

func TestSummarizeItems(t *testing.T) {
	total, details, ok := summarizeItems(json.RawMessage(`[
		{"IniTi": "Projeto de Lei 1"},
		{"IniTi": "Projeto de Lei 2"},
		{"IniTi": "Projeto de Lei 3"},
		{"IniTi": "Projeto de Lei 4"}
	]`))
	require.True(t, ok)
	assert.Equal(t, 4, total)
	assert.Equal(t, "Projeto de Lei 1; Projeto de Lei 2; Projeto de Lei 3", details)

	total, details, ok = summarizeItems(json.RawMessage(`{"IntSu": "Intervenção sobre o OE"}`))
	require.True(t, ok)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Intervenção sobre o OE", details)

	total, details, ok = summarizeItems(json.RawMessage(`[]`))
	require.True(t, ok)
	assert.Equal(t, 0, total)
	assert.Empty(t, details)

	_, _, ok = summarizeItems(json.RawMessage(`"just a string"`))
	assert.False(t, ok)
}

func TestSampleTitles(t *testing.T) {
	items := []map[string]interface{}{
		{"ActTpdesc": "Voto de pesar"},
		{"Titulo": "Audição do Ministro"},
		{"sem_titulo": true},
	}
	assert.Equal(t, "Voto de pesar; Audição do Ministro", sampleTitles(items))
	assert.Empty(t, sampleTitles(nil))

	// only the first three items are sampled; an untitled one among them
	// shrinks the sample rather than pulling in a later title
	items = append(items, map[string]interface{}{"Titulo": "Quarta atividade"})
	assert.Equal(t, "Voto de pesar; Audição do Ministro", sampleTitles(items))
}
