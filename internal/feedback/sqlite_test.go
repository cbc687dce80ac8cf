package feedback

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faskesq-clinical-assist/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "feedback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleFeedback(recordID, examination string, decision Decision) *Feedback {
	return &Feedback{
		RecordID:            recordID,
		Examination:         examination,
		Mode:                "Standard",
		SuggestedPriority:   "High",
		SuggestedConfidence: 85,
		Decision:            decision,
	}
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "feedback.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")
	assert.Equal(t, dbPath, store.Path())
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	fb := sampleFeedback("rec-1", "Darah lengkap", "Accepted")
	fb.Notes = "Sesuai indikasi"

	require.NoError(t, store.Save(ctx, fb))
	assert.NotZero(t, fb.ID)
	assert.False(t, fb.CreatedAt.IsZero())
	assert.Equal(t, DecisionAccepted, fb.Decision, "decision is normalised on save")

	got, err := store.Get(ctx, "rec-1", "Darah lengkap")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, fb.ID, got.ID)
	assert.Equal(t, "Standard", got.Mode)
	assert.Equal(t, 85.0, got.SuggestedConfidence)
	assert.Equal(t, "Sesuai indikasi", got.Notes)
}

func TestSQLiteStore_SaveUpdatesExistingPair(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	first := sampleFeedback("rec-1", "Foto toraks", DecisionAccepted)
	require.NoError(t, store.Save(ctx, first))

	second := sampleFeedback("rec-1", "Foto toraks", DecisionModified)
	second.Replacement = "CT toraks"
	require.NoError(t, store.Save(ctx, second))

	assert.Equal(t, first.ID, second.ID)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := store.Get(ctx, "rec-1", "Foto toraks")
	require.NoError(t, err)
	assert.Equal(t, DecisionModified, got.Decision)
	assert.Equal(t, "CT toraks", got.Replacement)
}

func TestSQLiteStore_SaveRejectsInvalid(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		fb   *Feedback
	}{
		{"missing record", sampleFeedback("", "Darah lengkap", DecisionAccepted)},
		{"missing examination", sampleFeedback("rec-1", " ", DecisionAccepted)},
		{"unknown decision", sampleFeedback("rec-1", "Darah lengkap", "maybe")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, store.Save(ctx, tt.fb))
		})
	}
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := createTestStore(t)

	got, err := store.Get(context.Background(), "nope", "nothing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ListCountDelete(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	for _, exam := range []string{"Darah lengkap", "Urinalisis", "Widal"} {
		require.NoError(t, store.Save(ctx, sampleFeedback("rec-2", exam, DecisionAccepted)))
	}

	list, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Widal", list[0].Examination, "newest first")

	rest, err := store.List(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "Darah lengkap", rest[0].Examination)

	require.NoError(t, store.Delete(ctx, rest[0].ID))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_Summarize(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleFeedback("rec-3", "Darah lengkap", DecisionAccepted)))
	require.NoError(t, store.Save(ctx, sampleFeedback("rec-3", "Urinalisis", DecisionAccepted)))
	require.NoError(t, store.Save(ctx, sampleFeedback("rec-3", "Widal", DecisionRejected)))
	require.NoError(t, store.Save(ctx, sampleFeedback("rec-3", "Foto toraks", DecisionModified)))

	summary, err := store.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 4, Accepted: 2, Rejected: 1, Modified: 1}, *summary)
	assert.Equal(t, 0.5, summary.AcceptanceRate())
}

func TestSQLiteStore_ExportImport(t *testing.T) {
	source := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, source.Save(ctx, sampleFeedback("rec-4", "Darah lengkap", DecisionAccepted)))
	require.NoError(t, source.Save(ctx, sampleFeedback("rec-4", "Widal", DecisionRejected)))

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))
	assert.Contains(t, buf.String(), `"version": "1.0"`)
	assert.Contains(t, buf.String(), `"count": 2`)

	target := createTestStore(t)
	require.NoError(t, target.Save(ctx, sampleFeedback("rec-4", "Widal", DecisionModified)))

	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	existing, err := target.Get(ctx, "rec-4", "Widal")
	require.NoError(t, err)
	assert.Equal(t, DecisionModified, existing.Decision, "import never overwrites")
}

func TestSQLiteStore_ExportEmpty(t *testing.T) {
	store := createTestStore(t)

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(context.Background(), &buf))
	assert.Contains(t, buf.String(), `"feedback": []`)
}

func TestSQLiteStore_ImportMalformed(t *testing.T) {
	store := createTestStore(t)

	_, _, err := store.ImportJSON(context.Background(), bytes.NewBufferString("{not json"))
	assert.Error(t, err)
}

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision(" REJECTED ")
	require.NoError(t, err)
	assert.Equal(t, DecisionRejected, d)

	_, err = ParseDecision("ignored")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open.db")

	store, err := Open(domain.FeedbackConfig{Backend: "SQLite", SQLitePath: path}, "")
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &SQLiteStore{}, store)

	_, err = Open(domain.FeedbackConfig{Backend: "mongo"}, "")
	assert.EqualError(t, err, "unsupported feedback backend: mongo")
}
