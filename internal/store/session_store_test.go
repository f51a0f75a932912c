package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmarques/hemiciclo/internal/model"
)

// testDB connects to the database named by TEST_DATABASE_URL and starts the
// test from an empty schema. Tests are skipped when the variable is unset so
// the unit suite stays runnable without PostgreSQL.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}

	db, err := NewDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db))
	_, err = db.ExecContext(ctx, `TRUNCATE attendance, activities, agenda_items, sessions, deputies RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return db
}

func testMeta(code string) model.SessionMeta {
	return model.SessionMeta{
		Code:        code,
		Legislature: "XVII",
		Number:      "42",
		Kind:        "Plenária",
		Date:        time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
	}
}

func testRecords(n int, status string) []model.IngestRecord {
	records := make([]model.IngestRecord, 0, n)
	for i := 1; i <= n; i++ {
		name := fmt.Sprintf("Deputado %03d", i)
		records = append(records, model.IngestRecord{
			OriginalName:   name,
			NormalizedName: fmt.Sprintf("deputado %03d", i),
			Party:          "PSD",
			Status:         status,
		})
	}
	return records
}

func TestSaveIngestCreatesSession(t *testing.T) {
	db := testDB(t)
	s := NewSessionStore(db)
	ctx := context.Background()

	result, err := s.SaveIngest(ctx, testMeta("XVII-042"), testRecords(5, "Presença (P)"), false)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Inserted)
	assert.Equal(t, 5, result.NewDeputies)
	assert.Zero(t, result.Duplicates)

	sess, err := s.GetByCode(ctx, "XVII-042")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "XVII", sess.Legislature)

	count, err := s.AttendanceCount(ctx, "XVII-042")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestSaveIngestConflictLeavesDataUntouched(t *testing.T) {
	db := testDB(t)
	s := NewSessionStore(db)
	ctx := context.Background()

	_, err := s.SaveIngest(ctx, testMeta("XVII-042"), testRecords(5, "Presença (P)"), false)
	require.NoError(t, err)

	_, err = s.SaveIngest(ctx, testMeta("XVII-042"), testRecords(3, "Falta ao Quórum de Votação"), false)
	var exists *ErrSessionExists
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, "XVII-042", exists.Existing.Code)

	count, err := s.AttendanceCount(ctx, "XVII-042")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestSaveIngestReplace(t *testing.T) {
	db := testDB(t)
	s := NewSessionStore(db)
	ctx := context.Background()

	_, err := s.SaveIngest(ctx, testMeta("XVII-042"), testRecords(5, "Presença (P)"), false)
	require.NoError(t, err)

	result, err := s.SaveIngest(ctx, testMeta("XVII-042"), testRecords(3, "Falta ao Quórum de Votação"), true)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Inserted)
	assert.Zero(t, result.NewDeputies, "deputies from the first load are reused")

	count, err := s.AttendanceCount(ctx, "XVII-042")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// replacing with the same upload again changes nothing
	again, err := s.SaveIngest(ctx, testMeta("XVII-042"), testRecords(3, "Falta ao Quórum de Votação"), true)
	require.NoError(t, err)
	assert.Equal(t, result.Inserted, again.Inserted)

	count, err = s.AttendanceCount(ctx, "XVII-042")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSaveIngestCountsDuplicateRows(t *testing.T) {
	db := testDB(t)
	s := NewSessionStore(db)
	ctx := context.Background()

	records := testRecords(4, "Presença (P)")
	records = append(records, records[0])

	result, err := s.SaveIngest(ctx, testMeta("XVII-042"), records, false)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Inserted)
	assert.Equal(t, 4, result.NewDeputies)
	assert.Equal(t, 1, result.Duplicates)

	count, err := s.AttendanceCount(ctx, "XVII-042")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestGetStats(t *testing.T) {
	db := testDB(t)
	s := NewSessionStore(db)
	ctx := context.Background()

	records := testRecords(10, "Presença (P)")
	for i := 8; i < 10; i++ {
		records[i].Status = "Falta ao Quórum de Votação"
	}
	records[7].Status = "Falta Justificada (FJ)"
	records[7].Reason = "doença"

	_, err := s.SaveIngest(ctx, testMeta("XVII-042"), records, false)
	require.NoError(t, err)

	stats, err := s.GetStats(ctx, StatsFilter{})
	require.NoError(t, err)
	require.Len(t, stats, 1)

	st := stats[0]
	assert.Equal(t, "XVII-042", st.Code)
	assert.Equal(t, 10, st.Total)
	assert.Equal(t, 7, st.Presences)
	assert.Equal(t, 2, st.Quorum)
	assert.Equal(t, 1, st.Justified)
	// justified absences do not enter the percentage
	assert.Equal(t, 77.78, st.Percentage)

	filtered, err := s.GetStats(ctx, StatsFilter{Legislature: "XVI"})
	require.NoError(t, err)
	assert.Empty(t, filtered)
}

func TestGetSubstitutions(t *testing.T) {
	db := testDB(t)
	s := NewSessionStore(db)
	ctx := context.Background()

	movements, err := s.GetSubstitutions(ctx)
	require.NoError(t, err)
	assert.Empty(t, movements)

	first := testRecords(3, "Presença (P)")
	_, err = s.SaveIngest(ctx, testMeta("XVII-041"), first, false)
	require.NoError(t, err)

	// deputy 003 leaves the bench, deputy 004 takes the seat
	second := testRecords(2, "Presença (P)")
	second = append(second, model.IngestRecord{
		OriginalName:   "Deputado 004",
		NormalizedName: "deputado 004",
		Party:          "PSD",
		Status:         "Presença (P)",
	})
	meta := testMeta("XVII-042")
	meta.Date = meta.Date.AddDate(0, 0, 7)
	_, err = s.SaveIngest(ctx, meta, second, false)
	require.NoError(t, err)

	movements, err = s.GetSubstitutions(ctx)
	require.NoError(t, err)
	require.Contains(t, movements, "PSD")

	psd := movements["PSD"]
	require.Len(t, psd.Departures, 1)
	assert.Equal(t, "Deputado 003", psd.Departures[0].Name)
	assert.Equal(t, "XVII-041", psd.Departures[0].LastSession)
	require.Len(t, psd.Entries, 1)
	assert.Equal(t, "Deputado 004", psd.Entries[0].Name)
}
