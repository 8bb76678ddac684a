package storage

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) Storage {
	t.Helper()
	return NewSharedDisk(t.TempDir())
}

func readAll(t *testing.T, store Storage, path string) string {
	t.Helper()
	file, err := store.Read(path)
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	return string(data)
}

func TestWriteReadDelete(t *testing.T) {
	store := newTestStorage(t)

	err := store.Write("a/b/data.csv", bytes.NewReader([]byte("x,y\n1,2\n")))
	require.NoError(t, err)

	exists, err := store.Exists("a/b/data.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	size, err := store.Size("a/b/data.csv")
	require.NoError(t, err)
	assert.Equal(t, int64(8), size)

	assert.Equal(t, "x,y\n1,2\n", readAll(t, store, "a/b/data.csv"))

	require.NoError(t, store.Delete("a/b/data.csv"))

	exists, err = store.Exists("a/b/data.csv")
	require.NoError(t, err)
	assert.False(t, exists)

	// deleting a missing file is logged but not an error
	assert.NoError(t, store.Delete("a/b/data.csv"))
}

func TestMove(t *testing.T) {
	store := newTestStorage(t)

	require.NoError(t, store.Write("uploads/f.txt", bytes.NewReader([]byte("hello"))))

	final, err := store.Move("uploads/f.txt", "u1/abc.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("u1", "abc.txt"), final)
	assert.Equal(t, "hello", readAll(t, store, final))

	exists, err := store.Exists("uploads/f.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMoveMissingSource(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.Move("uploads/gone.txt", "u1/gone.txt")
	assert.ErrorIs(t, err, ErrFileMissing)
}

func TestMoveCollisionRenames(t *testing.T) {
	store := newTestStorage(t)

	require.NoError(t, store.Write("u1/abc.txt", bytes.NewReader([]byte("first"))))
	require.NoError(t, store.Write("uploads/f.txt", bytes.NewReader([]byte("second"))))

	final, err := store.Move("uploads/f.txt", "u1/abc.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("u1", "0abc.txt"), final)

	assert.Equal(t, "first", readAll(t, store, "u1/abc.txt"))
	assert.Equal(t, "second", readAll(t, store, final))

	// a second collision keeps prepending (abc.txt -> 0abc.txt -> 10abc.txt)
	require.NoError(t, store.Write("uploads/g.txt", bytes.NewReader([]byte("third"))))
	final, err = store.Move("uploads/g.txt", "u1/abc.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("u1", "10abc.txt"), final)
}

func TestEnsureDir(t *testing.T) {
	store := newTestStorage(t)

	require.NoError(t, store.EnsureDir("u1"))
	// creating an existing directory is benign
	require.NoError(t, store.EnsureDir("u1"))
}

func TestUsage(t *testing.T) {
	store := newTestStorage(t)

	stats, err := store.Usage()
	require.NoError(t, err)
	assert.Greater(t, stats.TotalBytes, uint64(0))
	assert.LessOrEqual(t, stats.FreeBytes, stats.TotalBytes)
}

func TestPathHelpers(t *testing.T) {
	ownerId := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	resourceId := uuid.MustParse("99999999-8888-7777-6666-555555555555")

	assert.Equal(t, ownerId.String(), UserDir(ownerId))
	assert.Equal(t,
		filepath.Join(ownerId.String(), resourceId.String()+".counts.tsv"),
		FinalPath(ownerId, resourceId, "counts.tsv"))
	assert.Equal(t,
		filepath.Join("uploads", resourceId.String()+".counts.tsv"),
		UploadPath(resourceId, "counts.tsv"))
}
