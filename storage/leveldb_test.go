package storage

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelDBRoundTrip(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Get([]byte("missing"))
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, db.Set([]byte("sig:a"), []byte("1")))
	require.NoError(t, db.Set([]byte("sig:b"), []byte("2")))
	require.NoError(t, db.Set([]byte("other"), []byte("3")))

	v, err := db.Get([]byte("sig:a"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(v))

	it := db.NewIterator([]byte("sig:"))
	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	it.Release()
	require.NoError(t, it.Error())
	assert.Equal(t, []string{"sig:a", "sig:b"}, keys)

	require.NoError(t, db.Delete([]byte("sig:a")))
	_, err = db.Get([]byte("sig:a"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLevelDBBatch(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Set([]byte("gone"), []byte("x")))

	b := db.NewBatch()
	b.Set([]byte("k1"), []byte("v1"))
	b.Delete([]byte("gone"))
	require.NoError(t, b.Write())

	v, err := db.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(v))
	_, err = db.Get([]byte("gone"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

// A closed database keeps its contents for the next open.
func TestLevelDBPersists(t *testing.T) {
	dir := t.TempDir()
	db, err := NewLevelDB(dir)
	require.NoError(t, err)
	require.NoError(t, db.Set([]byte("k"), []byte("v")))
	require.NoError(t, db.Close())

	db, err = NewLevelDB(dir)
	require.NoError(t, err)
	defer db.Close()
	v, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))
}
