package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "mlforge.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}

func TestOpenRunsMigrations(t *testing.T) {
	store := openTestStore(t)

	rows, err := store.Query(context.Background(),
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('samples', 'runs') ORDER BY name`)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "runs", rows[0]["name"])
	assert.Equal(t, "samples", rows[1]["name"])
}

func TestSampleRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	samples := []Sample{
		{Features: []float64{1, 2, 3}, Label: 0, Tag: "iris"},
		{Features: []float64{4, 5, 6}, Label: 1, Tag: "iris"},
		{Features: []float64{7, 8, 9}, Label: 2, Tag: "other"},
	}
	require.NoError(t, store.InsertSamples(ctx, samples))

	count, err := store.CountSamples(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	got, err := store.ListSamples(ctx, "iris")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []float64{1, 2, 3}, got[0].Features)
	assert.Equal(t, 1, got[1].Label)

	all, err := store.ListSamples(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRunRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := Run{
		ID:           uuid.NewString(),
		StartedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Epochs:       50,
		FinalLoss:    0.12,
		ValAccuracy:  0.9,
		TestAccuracy: 0.88,
		Config:       `{"epochs":50}`,
	}
	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, got)

	require.Error(t, store.SaveRun(ctx, Run{}))
}

func TestGenericCRUD(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.InsertRecord(ctx, "samples", map[string]any{
		"features":   "[1]",
		"label":      4,
		"tag":        "crud",
		"created_at": 0,
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	rows, err := store.Query(ctx, "SELECT label, tag FROM samples WHERE id = ?", id)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(4), rows[0]["label"])
	assert.Equal(t, "crud", rows[0]["tag"])

	affected, err := store.UpdateRecords(ctx, "samples",
		map[string]any{"label": 5}, "id = ?", id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = store.DeleteRecords(ctx, "samples", "id = ?", id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	count, err := store.CountSamples(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestCreateIndex(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateIndex(ctx, "samples", []string{"tag", "label"}, false))
	// Idempotent via IF NOT EXISTS.
	require.NoError(t, store.CreateIndex(ctx, "samples", []string{"tag", "label"}, false))
	require.NoError(t, store.CreateIndex(ctx, "runs", []string{"started_at"}, true))

	rows, err := store.Query(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?`, "idx_samples_tag_label")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestIdentifierValidation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.InsertRecord(ctx, "samples; DROP TABLE samples", map[string]any{"label": 1})
	require.Error(t, err)

	_, err = store.InsertRecord(ctx, "samples", map[string]any{"label = 1 --": 1})
	require.Error(t, err)

	err = store.CreateIndex(ctx, "samples", []string{"tag)"}, false)
	require.Error(t, err)

	_, err = store.UpdateRecords(ctx, "samples", map[string]any{"label": 1}, "")
	require.Error(t, err)
}
