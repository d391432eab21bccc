package db

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrationsIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "league.db")

	database, err := InitDB(path, zerolog.Nop())
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, RunMigrations(database))
	require.NoError(t, RunMigrations(database))

	var tables []string
	err = database.Select(&tables, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	require.NoError(t, err)

	for _, want := range []string{"challenges", "ladder_entrants", "ladder_matches", "matches", "rank_events", "rounds", "sessions", "sweep_marks", "teams", "users"} {
		assert.Contains(t, tables, want)
	}
}

func TestForeignKeysEnabled(t *testing.T) {
	database, err := InitDB(filepath.Join(t.TempDir(), "fk.db"), zerolog.Nop())
	require.NoError(t, err)
	defer database.Close()

	var on int
	require.NoError(t, database.Get(&on, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, on)
}
