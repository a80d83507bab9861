package sqldataset

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndRead(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "samples.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	_, err = db.ExecContext(ctx, `CREATE TABLE samples ("petal width" REAL NULL, "petal length" REAL, flag BOOLEAN, note TEXT)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO samples VALUES (0.2, 1.4, 1, '3.5'), (NULL, 4, 0, 'true'), (1.8, 5, 1, NULL)`)
	require.NoError(t, err)

	features, samples, err := Read(ctx, db, `SELECT "petal width", "petal length", flag, note FROM samples WHERE "petal length" > ? ORDER BY "petal length"`, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"petal width", "petal length", "flag", "note"}, features.Names())
	assert.True(t, features.Frozen())
	require.Len(t, samples, 3)

	assert.Equal(t, 0.2, samples[0].ValueFor("petal width"))
	assert.Equal(t, 1.4, samples[0].ValueFor("petal length"))
	assert.Equal(t, 1.0, samples[0].ValueFor("flag"))
	assert.Equal(t, 3.5, samples[0].ValueFor("note"))

	assert.True(t, samples[1].HasFeature("petal width"))
	assert.True(t, math.IsNaN(samples[1].ValueFor("petal width")))
	assert.Equal(t, 4.0, samples[1].ValueFor("petal length"))
	assert.Equal(t, 1.0, samples[1].ValueFor("note"))

	assert.True(t, math.IsNaN(samples[2].ValueFor("note")))
}

func TestReadErrors(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "samples.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	_, _, err = Read(ctx, db, "SELECT * FROM missing")
	assert.Error(t, err)

	_, _, err = Read(ctx, db, "SELECT 1 AS a, 2 AS a")
	assert.Error(t, err)

	_, _, err = Read(ctx, db, "SELECT 'blue' AS color")
	assert.Error(t, err)
}

func TestIsDSN(t *testing.T) {
	assert.True(t, IsDSN("postgres://user@localhost/samples"))
	assert.True(t, IsDSN("postgresql://localhost/samples?sslmode=disable"))
	assert.True(t, IsDSN("data/samples.db"))
	assert.True(t, IsDSN("samples.sqlite3"))
	assert.False(t, IsDSN("samples.csv"))
	assert.False(t, IsDSN("samples"))
}
