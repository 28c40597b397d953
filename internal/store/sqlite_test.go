package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/attrition-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// testEmployeeTable builds a table with the shared employees columns and two
// rows with ids E1 and E2.
func testEmployeeTable(t *testing.T) *model.Table {
	t.Helper()
	tbl := model.NewTable(employeeColumnNames())
	for _, id := range []string{"E1", "E2"} {
		cells := make([]model.Cell, len(employeeColumns))
		for i, col := range employeeColumns {
			switch {
			case col.Name == model.ColEmployeeID:
				cells[i] = model.String(id)
			case col.Name == model.ColTargetText:
				cells[i] = model.String("Non")
			case col.Text:
				cells[i] = model.String("valeur")
			default:
				cells[i] = model.Number(float64(i))
			}
		}
		require.NoError(t, tbl.AppendRow(cells))
	}
	return tbl
}

// --- Employees ---

func TestSQLite_Employees_UpsertAndLoad(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.UpsertEmployees(ctx, testEmployeeTable(t))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	loaded, err := st.LoadEmployees(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.NumRows())
	assert.Equal(t, employeeColumnNames(), loaded.Columns())
	assert.Equal(t, "E1", loaded.At(0, model.ColEmployeeID).Str())
	assert.Equal(t, "Non", loaded.At(0, model.ColTargetText).Str())
	assert.Equal(t, 1.0, loaded.At(0, "age").Num())
}

func TestSQLite_Employees_UpsertOverwrites(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	tbl := testEmployeeTable(t)
	_, err := st.UpsertEmployees(ctx, tbl)
	require.NoError(t, err)

	// Same ids again with a changed value must update, not duplicate.
	tbl.Set(0, "age", model.Number(50))
	_, err = st.UpsertEmployees(ctx, tbl)
	require.NoError(t, err)

	count, err := st.CountEmployees(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	loaded, err := st.LoadEmployees(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50.0, loaded.At(0, "age").Num())
}

func TestSQLite_Employees_NullCells(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	tbl := model.NewTable(employeeColumnNames())
	cells := make([]model.Cell, len(employeeColumns))
	for i := range cells {
		cells[i] = model.Null
	}
	cells[0] = model.String("E9")
	require.NoError(t, tbl.AppendRow(cells))

	_, err := st.UpsertEmployees(ctx, tbl)
	require.NoError(t, err)

	loaded, err := st.LoadEmployees(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, loaded.NumRows())
	assert.True(t, loaded.At(0, "age").IsNull())
	assert.True(t, loaded.At(0, "genre").IsNull())
}

func TestSQLite_Employees_MissingIDColumn(t *testing.T) {
	st := newTestSQLiteStore(t)

	tbl := model.NewTable([]string{"age"})
	_, err := st.UpsertEmployees(context.Background(), tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), model.ColEmployeeID)
}

func TestSQLite_Employees_EmptyTable(t *testing.T) {
	st := newTestSQLiteStore(t)

	n, err := st.UpsertEmployees(context.Background(), model.NewTable(employeeColumnNames()))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

// --- Prediction logs ---

func TestSQLite_PredictionLog_InsertAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	input, _ := json.Marshal(map[string]any{"age": 45})
	entry := &model.AuditEntry{
		EmployeeID:   "E1",
		Input:        input,
		Probability:  0.81,
		Class:        1,
		ModelVersion: "attrition-logistic-abc123",
	}
	require.NoError(t, st.LogPrediction(ctx, entry))
	assert.NotZero(t, entry.LogID)
	assert.False(t, entry.Timestamp.IsZero())

	entries, err := st.ListPredictionLogs(ctx, LogFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "E1", entries[0].EmployeeID)
	assert.Equal(t, 1, entries[0].Class)
	assert.InDelta(t, 0.81, entries[0].Probability, 1e-9)
	assert.JSONEq(t, string(input), string(entries[0].Input))
	assert.Equal(t, "attrition-logistic-abc123", entries[0].ModelVersion)
}

func TestSQLite_PredictionLog_FilterByEmployee(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, id := range []string{"E1", "E2", "E1"} {
		require.NoError(t, st.LogPrediction(ctx, &model.AuditEntry{
			EmployeeID:   id,
			Input:        json.RawMessage(`{}`),
			Probability:  0.2,
			ModelVersion: "v1",
		}))
	}

	entries, err := st.ListPredictionLogs(ctx, LogFilter{EmployeeID: "E1"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	count, err := st.CountPredictionLogs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSQLite_PredictionLog_FilterByVersionAndLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		version := "v1"
		if i%2 == 1 {
			version = "v2"
		}
		require.NoError(t, st.LogPrediction(ctx, &model.AuditEntry{
			Timestamp:    base.Add(time.Duration(i) * time.Minute),
			Input:        json.RawMessage(`{}`),
			Probability:  0.5,
			ModelVersion: version,
		}))
	}

	entries, err := st.ListPredictionLogs(ctx, LogFilter{ModelVersion: "v1"})
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	entries, err = st.ListPredictionLogs(ctx, LogFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first
	assert.True(t, entries[0].Timestamp.After(entries[1].Timestamp))
}

func TestSQLite_PredictionLog_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	entries, err := st.ListPredictionLogs(context.Background(), LogFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}
