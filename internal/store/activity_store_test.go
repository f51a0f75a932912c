package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmarques/hemiciclo/internal/model"
)

func TestActivityUpsertOverwrites(t *testing.T) {
	db := testDB(t)
	deputies := NewDeputyStore(db)
	activities := NewActivityStore(db)
	ctx := context.Background()

	deputyID, created, err := deputies.GetOrCreate(ctx, "ana gomes", "Ana Gomes", "PS")
	require.NoError(t, err)
	assert.True(t, created)

	// the feed sometimes omits the legislature; the empty string must
	// still key the row so a re-import overwrites instead of duplicating
	first := &model.Activity{DeputyID: deputyID, Kind: "Iniciativas", Legislature: "", Total: 4}
	require.NoError(t, activities.Upsert(ctx, first))

	second := &model.Activity{DeputyID: deputyID, Kind: "Iniciativas", Legislature: "", Total: 7}
	require.NoError(t, activities.Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	rows, err := activities.GetAll(ctx, ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 7, rows[0].Total)
	assert.Equal(t, "", rows[0].Legislature)

	// a named legislature is a separate aggregate
	third := &model.Activity{DeputyID: deputyID, Kind: "Iniciativas", Legislature: "XVII", Total: 2}
	require.NoError(t, activities.Upsert(ctx, third))

	rows, err = activities.GetAll(ctx, ActivityFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestStoresWithTxRollback(t *testing.T) {
	db := testDB(t)
	deputies := NewDeputyStore(db)
	activities := NewActivityStore(db)
	agenda := NewAgendaStore(db)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	deputyID, _, err := deputies.WithTx(tx).GetOrCreate(ctx, "ana gomes", "Ana Gomes", "PS")
	require.NoError(t, err)
	require.NoError(t, activities.WithTx(tx).Upsert(ctx, &model.Activity{
		DeputyID: deputyID, Kind: "Iniciativas", Total: 4,
	}))
	require.NoError(t, agenda.WithTx(tx).Upsert(ctx, &model.AgendaItem{
		ExternalID: 12345, Title: "Plenário",
	}))
	require.NoError(t, tx.Rollback())

	count, err := deputies.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	rows, err := activities.GetAll(ctx, ActivityFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	items, err := agenda.GetLatest(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}
