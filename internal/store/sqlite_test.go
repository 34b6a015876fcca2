package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acl-rts-tracker/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing
	return logger
}

// createTestStore creates a SQLite store in a temp directory.
func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath, testLogger())
	require.NoError(t, err)
	return store
}

func fakePatient(mrn string) *domain.Patient {
	return &domain.Patient{
		MRN:         mrn,
		Name:        gofakeit.LastName() + ", " + gofakeit.FirstName(),
		SurgeryDate: time.Date(2024, 10, 17, 0, 0, 0, 0, time.UTC),
	}
}

func testRecord(id, mrn string, visit time.Time) *domain.AssessmentRecord {
	return &domain.AssessmentRecord{
		ID:          id,
		MRN:         mrn,
		VisitDate:   visit,
		WeeksPostOp: 12,
		Metrics: map[string]domain.MetricValue{
			domain.MetricACLRSI:      domain.Known(75),
			domain.MetricQuadLSI:     domain.Known(82.5),
			domain.MetricQuadTTBWInv: domain.Unknown(),
		},
		Notes:     gofakeit.Sentence(8),
		CreatedAt: visit.Add(time.Hour),
	}
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "rts.db")

	store, err := NewSQLiteStore(dbPath, nil)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
	assert.Equal(t, dbPath, store.Path())
	assert.NoError(t, store.Ping(context.Background()))
}

func TestSQLiteStore_Patients(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	p := fakePatient("#000000")
	require.NoError(t, store.CreatePatient(ctx, p))
	assert.False(t, p.CreatedAt.IsZero(), "CreatedAt should be set")

	got, err := store.GetPatient(ctx, "#000000")
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.True(t, p.SurgeryDate.Equal(got.SurgeryDate))

	err = store.CreatePatient(ctx, fakePatient("#000000"))
	assert.True(t, errors.Is(err, domain.ErrDuplicatePatient))

	_, err = store.GetPatient(ctx, "#404404")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, store.CreatePatient(ctx, fakePatient("#123456")))
	all, err := store.ListPatients(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "#000000", all[0].MRN)
	assert.Equal(t, "#123456", all[1].MRN)

	assert.True(t, domain.IsValidationError(store.CreatePatient(ctx, &domain.Patient{MRN: "#1"})))
}

func TestSQLiteStore_AppendAndList(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()
	require.NoError(t, store.CreatePatient(ctx, fakePatient("#000000")))

	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	late := testRecord("r-late", "#000000", base.AddDate(0, 0, 14))
	tieA := testRecord("r-tie-a", "#000000", base)
	tieB := testRecord("r-tie-b", "#000000", base)

	require.NoError(t, store.AppendAssessment(ctx, late))
	require.NoError(t, store.AppendAssessment(ctx, tieA))
	require.NoError(t, store.AppendAssessment(ctx, tieB))
	assert.Less(t, late.Sequence, tieA.Sequence)

	records, err := store.ListAssessments(ctx, "#000000")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "r-tie-a", records[0].ID)
	assert.Equal(t, "r-tie-b", records[1].ID)
	assert.Equal(t, "r-late", records[2].ID)

	got := records[2]
	assert.Equal(t, late.Notes, got.Notes)
	assert.Equal(t, 12, got.WeeksPostOp)
	assert.Equal(t, domain.Known(82.5), got.Metrics[domain.MetricQuadLSI])
	// Unknown survives the round trip as unknown, not zero.
	v, present := got.Metrics[domain.MetricQuadTTBWInv]
	assert.True(t, present)
	assert.False(t, v.IsKnown())

	empty, err := store.ListAssessments(ctx, "#123456")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteStore_AppendIsAppendOnly(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()
	require.NoError(t, store.CreatePatient(ctx, fakePatient("#000000")))

	visit := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendAssessment(ctx, testRecord("r1", "#000000", visit)))

	dup := testRecord("r1", "#000000", visit.AddDate(0, 1, 0))
	dup.Notes = "overwrite attempt"
	err := store.AppendAssessment(ctx, dup)
	assert.True(t, errors.Is(err, domain.ErrDuplicateRecord))

	records, err := store.ListAssessments(ctx, "#000000")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotEqual(t, "overwrite attempt", records[0].Notes)

	err = store.AppendAssessment(ctx, testRecord("r2", "#404404", visit))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSQLiteStore_ExportImport(t *testing.T) {
	source := createTestStore(t)
	defer source.Close()
	ctx := context.Background()

	require.NoError(t, source.CreatePatient(ctx, fakePatient("#000000")))
	visit := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, source.AppendAssessment(ctx, testRecord(id, "#000000", visit.AddDate(0, 0, 7*i))))
	}

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, "#000000", &buf))

	var export TimelineExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, ExportVersion, export.Version)
	assert.Equal(t, 3, export.Count)
	assert.Equal(t, "#000000", export.Patient.MRN)

	target := createTestStore(t)
	defer target.Close()

	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 3, imported)
	assert.Equal(t, 0, skipped)

	imported, skipped, err = target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
	assert.Equal(t, 3, skipped)

	records, err := target.ListAssessments(ctx, "#000000")
	require.NoError(t, err)
	assert.Len(t, records, 3)

	err = source.ExportJSON(ctx, "#404404", &buf)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, _, err = target.ImportJSON(ctx, bytes.NewReader([]byte("not json")))
	assert.Error(t, err)
}
