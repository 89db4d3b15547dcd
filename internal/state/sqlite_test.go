package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harley062/projeto-IA-Adega/internal/testutil"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenStore(":memory:", testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// clock returns a store clock advancing one second per call.
func clock(start time.Time) func() time.Time {
	cur := start.Add(-time.Second)
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	for _, table := range []string{"runs", "model_results", "predictions"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, "table %s", table)
		_ = rows.Close()
	}

	// Migrating twice is a no-op.
	require.NoError(t, store.Migrate())
}

func TestSQLiteStore_OpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := OpenStore(path, nil)
	require.NoError(t, err)
	run, err := store.CreateRun(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = OpenStore(path, nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	got, err := store.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusRunning, got.Status)
	assert.Equal(t, path, store.Path())
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = clock(start)

	run, err := store.CreateRun(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, start.Equal(got.StartedAt))
	assert.Nil(t, got.CompletedAt)
	assert.Empty(t, got.BestModel)

	require.NoError(t, store.CompleteRun(ctx, run.ID, RunOutcome{
		Status:       RunStatusCompleted,
		Rows:         120,
		Customers:    40,
		BestModel:    "Gradient Boosting",
		BestAccuracy: 0.91,
		ModelPath:    "output/models/best_model_Gradient_Boosting.gob",
	}))

	got, err = store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.After(got.StartedAt))
	assert.Equal(t, 120, got.Rows)
	assert.Equal(t, 40, got.Customers)
	assert.Equal(t, "Gradient Boosting", got.BestModel)
	assert.InDelta(t, 0.91, got.BestAccuracy, 1e-12)
	assert.Empty(t, got.Error)
}

func TestSQLiteStore_RunNotFound(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	_, err := store.GetRun(ctx, "missing")
	assert.ErrorContains(t, err, "run not found: missing")

	err = store.CompleteRun(ctx, "missing", RunOutcome{Status: RunStatusFailed})
	assert.ErrorContains(t, err, "run not found: missing")
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	store.now = clock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var ids []string
	for range 3 {
		run, err := store.CreateRun(ctx)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)

	runs, err = store.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSQLiteStore_ModelResults(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	run, err := store.CreateRun(ctx)
	require.NoError(t, err)

	mean, std := 0.88, 0.02
	results := []ModelResult{
		{RunID: run.ID, Model: "KNN", Trained: true, Accuracy: 0.8, Duration: 15 * time.Millisecond},
		{RunID: run.ID, Model: "Random Forest", Trained: true, Accuracy: 0.9, CVMean: &mean, CVStd: &std, Duration: time.Second},
		{RunID: run.ID, Model: "AdaBoost", Trained: false, Error: "boom"},
	}
	for _, r := range results {
		require.NoError(t, store.RecordModelResult(ctx, r))
	}

	got, err := store.GetModelResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Random Forest", got[0].Model)
	require.NotNil(t, got[0].CVMean)
	assert.InDelta(t, 0.88, *got[0].CVMean, 1e-12)
	assert.Equal(t, time.Second, got[0].Duration)
	assert.Equal(t, "KNN", got[1].Model)
	assert.Nil(t, got[1].CVMean)
	assert.False(t, got[2].Trained)
	assert.Equal(t, "boom", got[2].Error)

	// Re-recording replaces.
	results[0].Accuracy = 0.95
	require.NoError(t, store.RecordModelResult(ctx, results[0]))
	got, err = store.GetModelResults(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "KNN", got[0].Model)

	err = store.RecordModelResult(ctx, ModelResult{RunID: "no-such-run", Model: "KNN"})
	assert.Error(t, err, "foreign key should reject unknown run")
}

func TestSQLiteStore_Predictions(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	store.now = clock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	for i, id := range []int64{1, 2, 1} {
		p := &Prediction{CustomerID: id, Model: "KNN", ChurnProbability: 0.1 * float64(i+1), RiskTier: "Low"}
		require.NoError(t, store.RecordPrediction(ctx, p))
		assert.NotEmpty(t, p.ID)
		assert.False(t, p.CreatedAt.IsZero())
	}

	got, err := store.ListPredictions(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.3, got[0].ChurnProbability, 1e-12)
	assert.InDelta(t, 0.1, got[1].ChurnProbability, 1e-12)

	all, err := store.ListPredictions(ctx, -1, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := store.ListPredictions(ctx, 42, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(nil)

	_, err := store.CreateRun(ctx)
	assert.ErrorIs(t, err, errNotOpened)
	assert.ErrorIs(t, store.CompleteRun(ctx, "x", RunOutcome{}), errNotOpened)
	_, err = store.ListRuns(ctx, 1)
	assert.ErrorIs(t, err, errNotOpened)
	assert.ErrorIs(t, store.RecordPrediction(ctx, &Prediction{}), errNotOpened)
	assert.ErrorIs(t, store.Migrate(), errNotOpened)
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_FailurePaths(t *testing.T) {
	errDB := errors.New("disk I/O error")

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		call      func(s *SQLiteStore) error
		errMsg    string
	}{
		{
			name: "create run insert fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO runs").WillReturnError(errDB)
			},
			call: func(s *SQLiteStore) error {
				_, err := s.CreateRun(context.Background())
				return err
			},
			errMsg: "failed to create run",
		},
		{
			name: "complete run update fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE runs").WillReturnError(errDB)
			},
			call: func(s *SQLiteStore) error {
				return s.CompleteRun(context.Background(), "r1", RunOutcome{Status: RunStatusFailed})
			},
			errMsg: "failed to complete run",
		},
		{
			name: "complete run affects nothing",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE runs").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			call: func(s *SQLiteStore) error {
				return s.CompleteRun(context.Background(), "r1", RunOutcome{Status: RunStatusFailed})
			},
			errMsg: "run not found: r1",
		},
		{
			name: "list runs query fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM runs").WillReturnError(errDB)
			},
			call: func(s *SQLiteStore) error {
				_, err := s.ListRuns(context.Background(), 5)
				return err
			},
			errMsg: "failed to list runs",
		},
		{
			name: "stored timestamp is corrupt",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "status", "started_at", "completed_at", "rows_used",
					"customers", "best_model", "best_accuracy", "model_path", "error"}).
					AddRow("r1", "running", "yesterday", nil, 0, 0, nil, nil, nil, nil)
				mock.ExpectQuery("SELECT (.+) FROM runs WHERE id").WithArgs("r1").WillReturnRows(rows)
			},
			call: func(s *SQLiteStore) error {
				_, err := s.GetRun(context.Background(), "r1")
				return err
			},
			errMsg: "invalid stored timestamp",
		},
		{
			name: "record prediction fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO predictions").WillReturnError(errDB)
			},
			call: func(s *SQLiteStore) error {
				return s.RecordPrediction(context.Background(), &Prediction{CustomerID: 1})
			},
			errMsg: "failed to record prediction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			tt.setupMock(mock)
			err = tt.call(NewWithDB(db, nil))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
