package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	sql := `-- header
CREATE TABLE a (x String);
-- between
CREATE TABLE b (y String) ENGINE = MergeTree() ORDER BY y;
`
	stmts, err := SplitStatements(sql)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE a (x String)",
		"CREATE TABLE b (y String) ENGINE = MergeTree() ORDER BY y",
	}, stmts)
}

func TestSplitStatements_Quotes(t *testing.T) {
	_, err := SplitStatements("INSERT INTO t VALUES ('a;b');")
	assert.ErrorIs(t, err, ErrSemicolonInString)

	stmts, err := SplitStatements("INSERT INTO t VALUES ('it''s');")
	require.NoError(t, err)
	assert.Equal(t, []string{"INSERT INTO t VALUES ('it''s')"}, stmts)
}

func TestEmbeddedFiles(t *testing.T) {
	names, contents, err := sqlFiles(PostgresFS, "postgres")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_benchmark_runs.sql", "002_replica_results.sql"}, names)
	assert.Contains(t, contents["002_replica_results.sql"], "replica_results")

	names, contents, err = sqlFiles(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.Len(t, names, 2)
	for _, name := range names {
		stmts, err := SplitStatements(contents[name])
		require.NoError(t, err, name)
		assert.Len(t, stmts, 1, name)
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default@localhost:9000/ekon")
	require.NoError(t, err)
	assert.Equal(t, "ekon", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}
