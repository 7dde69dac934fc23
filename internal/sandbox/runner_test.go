package sandbox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openManager(t *testing.T, mode string) *Manager {
	t.Helper()
	m := NewManager(mode, 0)
	require.NoError(t, m.Open(context.Background()))
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func countCharacters(t *testing.T, m *Manager) int64 {
	t.Helper()
	res, err := m.Query(context.Background(), `SELECT COUNT(*) AS n FROM Characters`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	return res.Rows[0]["n"].(int64)
}

func TestQueryReturnsOrderedColumnsAndRows(t *testing.T) {
	m := openManager(t, IsolationSnapshot)

	res, err := m.Query(context.Background(), `SELECT * FROM Characters`)
	require.NoError(t, err)
	assert.Equal(t, KindRows, res.Kind)
	assert.Len(t, res.Rows, 7)
	assert.Equal(t, []string{"CharacterID", "FirstName", "LastName", "DateOfBirth", "Gender", "Occupation", "Description"}, res.Columns)
	assert.Equal(t, "Walter", res.Rows[0]["FirstName"])
	assert.Equal(t, int64(1), res.Rows[0]["CharacterID"])
}

func TestQueryNormalizesDates(t *testing.T) {
	m := openManager(t, IsolationSnapshot)

	res, err := m.Query(context.Background(), `SELECT Airdate FROM Episodes WHERE EpisodeID = 1`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "2008-01-20", res.Rows[0]["Airdate"])
}

func TestQueryEmptyResultHasNonNilRows(t *testing.T) {
	m := openManager(t, IsolationSnapshot)

	res, err := m.Query(context.Background(), `SELECT * FROM Characters WHERE 1 = 0`)
	require.NoError(t, err)
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
}

func TestWritesDoNotLeakBetweenSubmissions(t *testing.T) {
	for _, mode := range []string{IsolationSnapshot, IsolationRollback} {
		t.Run(mode, func(t *testing.T) {
			m := openManager(t, mode)

			res, err := m.Exec(context.Background(), `DELETE FROM Characters`)
			require.NoError(t, err)
			assert.Equal(t, KindAffected, res.Kind)
			assert.Equal(t, int64(7), res.AffectedRows)

			assert.Equal(t, int64(7), countCharacters(t, m))
		})
	}
}

func TestDroppedTableIsRestored(t *testing.T) {
	for _, mode := range []string{IsolationSnapshot, IsolationRollback} {
		t.Run(mode, func(t *testing.T) {
			m := openManager(t, mode)

			_, err := m.Exec(context.Background(), `DROP TABLE EventAssociation`)
			require.NoError(t, err)

			res, err := m.Query(context.Background(), `SELECT COUNT(*) AS n FROM EventAssociation`)
			require.NoError(t, err)
			assert.Equal(t, int64(8), res.Rows[0]["n"])
		})
	}
}

func TestRollbackModeReseedsAfterPlayerCommit(t *testing.T) {
	m := openManager(t, IsolationRollback)

	_, err := m.Exec(context.Background(), `DELETE FROM Characters; COMMIT;`)
	require.NoError(t, err)

	assert.Equal(t, int64(7), countCharacters(t, m))
}

func TestSyntaxErrorSurfacesEngineMessage(t *testing.T) {
	m := openManager(t, IsolationSnapshot)

	_, err := m.Query(context.Background(), `SELEC * FROM Characters`)
	require.Error(t, err)
	var qerr *QueryError
	require.True(t, errors.As(err, &qerr))
	assert.Contains(t, qerr.Message, "syntax error")
	assert.Empty(t, qerr.Hint)
}

func TestUnknownTableGetsHint(t *testing.T) {
	m := openManager(t, IsolationSnapshot)

	_, err := m.Query(context.Background(), `SELECT * FROM Charactres`)
	require.Error(t, err)
	var qerr *QueryError
	require.True(t, errors.As(err, &qerr))
	assert.Contains(t, qerr.Message, "no such table")
	assert.Equal(t, `did you mean "Characters"?`, qerr.Hint)
	assert.True(t, strings.HasSuffix(qerr.Error(), `(did you mean "Characters"?)`))
}

func TestDetectReportsSQLiteVersion(t *testing.T) {
	m := openManager(t, IsolationRollback)

	info, err := m.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", info.Name)
	assert.NotEmpty(t, info.Version)
	assert.Equal(t, IsolationRollback, info.Isolation)
}

func TestCatalogAfterOpen(t *testing.T) {
	m := openManager(t, IsolationSnapshot)

	tables, err := m.Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 9)
	assert.Equal(t, "Characters", tables[0].Name)
}

func TestOpenRejectsUnknownMode(t *testing.T) {
	m := NewManager("shared", 0)
	require.Error(t, m.Open(context.Background()))
}

func TestClosedManagerRejectsQueries(t *testing.T) {
	m := NewManager(IsolationRollback, 0)
	require.NoError(t, m.Open(context.Background()))
	require.NoError(t, m.Close())

	_, err := m.Query(context.Background(), `SELECT 1`)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueryTimeoutInterruptsRunawayQuery(t *testing.T) {
	m := NewManager(IsolationRollback, 100*time.Millisecond)
	require.NoError(t, m.Open(context.Background()))
	t.Cleanup(func() { _ = m.Close() })

	started := time.Now()
	_, err := m.Query(context.Background(), `WITH RECURSIVE c(x) AS (SELECT 1 UNION ALL SELECT x + 1 FROM c) SELECT COUNT(*) FROM c`)
	require.Error(t, err)
	assert.Less(t, time.Since(started), 5*time.Second)

	assert.Equal(t, int64(7), countCharacters(t, m))
}
