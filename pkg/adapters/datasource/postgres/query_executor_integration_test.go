//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sightline-ai/sightline-engine/pkg/testhelpers"
)

func setupExecutor(t *testing.T) *QueryExecutor {
	t.Helper()
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	_, err := testDB.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sales (
			id SERIAL PRIMARY KEY,
			region TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			sale_date DATE NOT NULL
		)`)
	require.NoError(t, err)

	_, err = testDB.Pool.Exec(ctx, `TRUNCATE sales`)
	require.NoError(t, err)

	_, err = testDB.Pool.Exec(ctx, `
		INSERT INTO sales (region, amount, sale_date) VALUES
			('EMEA', 100, '2024-01-10'),
			('APAC', 50, '2024-01-11'),
			('EMEA', 30, '2024-02-01')`)
	require.NoError(t, err)

	executor, err := NewQueryExecutorFromConnString(ctx, testDB.ConnStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = executor.Close() })
	return executor
}

func TestQueryExecutor_Query(t *testing.T) {
	executor := setupExecutor(t)

	result, err := executor.Query(context.Background(), "SELECT region, amount FROM sales ORDER BY id", 10)
	require.NoError(t, err)

	assert.Equal(t, 3, result.RowCount)
	require.Len(t, result.Columns, 2)
	assert.Equal(t, "region", result.Columns[0].Name)
	assert.Equal(t, "TEXT", result.Columns[0].Type)
}

func TestQueryExecutor_QueryWithParams(t *testing.T) {
	executor := setupExecutor(t)

	result, err := executor.QueryWithParams(context.Background(),
		"SELECT region, amount FROM sales WHERE region = $1 AND sale_date >= $2",
		[]any{"EMEA", "2024-02-01"}, 10)
	require.NoError(t, err)

	require.Equal(t, 1, result.RowCount)
	assert.Equal(t, "EMEA", result.Rows[0]["region"])
}

func TestQueryExecutor_LimitWrapping(t *testing.T) {
	executor := setupExecutor(t)

	result, err := executor.Query(context.Background(), "SELECT * FROM sales", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)
}

func TestQueryExecutor_QuoteIdentifier(t *testing.T) {
	executor := setupExecutor(t)

	assert.Equal(t, `"users"`, executor.QuoteIdentifier("users"))
	assert.Equal(t, `"bad""name"`, executor.QuoteIdentifier(`bad"name`))
}
