package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileStoreWriteCreatesSessionDirLazily(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root)

	now := time.Now()
	path, size, err := store.Write("s1", []byte("payload"), now)
	require.NoError(t, err)
	require.Equal(t, int64(7), size)
	require.Equal(t, filepath.Join(root, "s1", fmt.Sprintf("chunk-%d.webm", now.UnixNano())), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), data)
}

func TestFileStoreWriteReusesExistingDir(t *testing.T) {
	store := NewFileStore(t.TempDir())

	p1, _, err := store.Write("s1", []byte("one"), time.Now())
	require.NoError(t, err)
	p2, _, err := store.Write("s1", []byte("two"), time.Now().Add(time.Millisecond))
	require.NoError(t, err)
	require.NotEqual(t, p1, p2)

	entries, err := os.ReadDir(filepath.Dir(p1))
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestFileStoreRejectsUnsafeSessionIDs(t *testing.T) {
	store := NewFileStore(t.TempDir())

	for _, id := range []string{"", "..", "a/b", "../escape", "a b"} {
		_, _, err := store.Write(id, []byte("x"), time.Now())
		require.ErrorIs(t, err, ErrInvalidSessionID, "session id %q", id)
	}
}

func TestValidSessionID(t *testing.T) {
	require.True(t, ValidSessionID("s1"))
	require.True(t, ValidSessionID("meeting_2024-01-01.a"))
	require.False(t, ValidSessionID(""))
	require.False(t, ValidSessionID("."))
	require.False(t, ValidSessionID("a/../b"))
}

func TestFileStoreConcurrentWrites(t *testing.T) {
	store := NewFileStore(t.TempDir())

	var wg sync.WaitGroup
	base := time.Now()
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := store.Write("shared", []byte("x"), base.Add(time.Duration(i)))
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	entries, err := os.ReadDir(filepath.Join(store.root, "shared"))
	require.NoError(t, err)
	require.Len(t, entries, 10)
}

func TestFileStoreRemove(t *testing.T) {
	store := NewFileStore(t.TempDir())
	path, _, err := store.Write("s1", []byte("x"), time.Now())
	require.NoError(t, err)

	require.NoError(t, store.Remove(path))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}
