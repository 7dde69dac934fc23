package dataset

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openSeeded(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Apply(context.Background(), db))
	return db
}

func countRows(t *testing.T, db *sql.DB, query string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query).Scan(&n))
	return n
}

func TestApplySeedsEveryTable(t *testing.T) {
	db := openSeeded(t)

	want := map[string]int{
		"Characters":        7,
		"Episodes":          7,
		"Locations":         6,
		"Drugs":             3,
		"Events":            6,
		"CharacterEpisode":  18,
		"CharacterLocation": 8,
		"CharacterDrug":     5,
		"EventAssociation":  8,
	}
	for table, n := range want {
		require.Equal(t, n, countRows(t, db, "SELECT COUNT(*) FROM "+table), table)
	}
}

func TestSeedMatchesCurriculumShapes(t *testing.T) {
	db := openSeeded(t)

	require.Equal(t, 5, countRows(t, db, `SELECT COUNT(*) FROM Characters WHERE Gender = 'Male'`))
	require.Equal(t, 4, countRows(t, db, `SELECT COUNT(*) FROM CharacterEpisode WHERE EpisodeID = 1`))
	require.Equal(t, 2, countRows(t, db, `
		SELECT COUNT(*) FROM (
			SELECT CharacterID FROM CharacterEpisode GROUP BY CharacterID HAVING COUNT(*) > 5
		)`))
	require.Equal(t, 2, countRows(t, db, `SELECT COUNT(*) FROM Events WHERE Date < '2008-02-01'`))
}

func TestResetRestoresDeletedRows(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `DELETE FROM Characters`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `DROP TABLE Drugs`)
	require.NoError(t, err)

	require.NoError(t, Reset(ctx, db))
	require.Equal(t, 7, countRows(t, db, "SELECT COUNT(*) FROM Characters"))
	require.Equal(t, 3, countRows(t, db, "SELECT COUNT(*) FROM Drugs"))
}

func TestCatalogListsFixtureTablesInOrder(t *testing.T) {
	db := openSeeded(t)

	tables, err := Catalog(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, tables, len(Tables))
	for i, table := range tables {
		require.Equal(t, Tables[i], table.Name)
		require.NotEmpty(t, table.Columns)
	}
	require.Equal(t, "CharacterID", tables[0].Columns[0].Name)
	require.True(t, tables[0].Columns[0].PrimaryKey)
}
