package identity

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:identity_tests?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE identity (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func TestGet_MissingKeyReturnsNil(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	v, err := repo.Get(context.Background(), "base_url")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestSetGet_RoundTrip(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "base_url", []byte("http://hub.lan:8787")))
	v, err := repo.Get(ctx, "base_url")
	require.NoError(t, err)
	require.Equal(t, []byte("http://hub.lan:8787"), v)

	// upsert overwrites
	require.NoError(t, repo.Set(ctx, "base_url", []byte("http://other:1")))
	v, err = repo.Get(ctx, "base_url")
	require.NoError(t, err)
	require.Equal(t, []byte("http://other:1"), v)
}

func TestClear_RemovesAllKeys(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "principal_id", []byte("p1")))
	require.NoError(t, repo.Set(ctx, "client_device_id", []byte("d1")))
	require.NoError(t, repo.Clear(ctx))

	for _, k := range []string{"principal_id", "client_device_id"} {
		v, err := repo.Get(ctx, k)
		require.NoError(t, err)
		require.Nil(t, v)
	}
}
