package thread

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestNewStore_RequiresPath(t *testing.T) {
	_, err := NewStore(Config{Logger: zerolog.Nop()})
	assert.Error(t, err)
}

func TestAppend_AllocatesFromZero(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	turn, err := store.Append(ctx, TopLevelRoot, "user", "first")
	require.NoError(t, err)
	assert.Equal(t, int64(0), turn)

	turn, err = store.Append(ctx, TopLevelRoot, "assistant", "second")
	require.NoError(t, err)
	assert.Equal(t, int64(1), turn)

	turn, err = store.Append(ctx, TopLevelRoot, "user", "third")
	require.NoError(t, err)
	assert.Equal(t, int64(2), turn)
}

func TestAppend_RootsAreIndependent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, TopLevelRoot, "user", "top")
	require.NoError(t, err)

	turn, err := store.Append(ctx, 5, "assistant", "inner")
	require.NoError(t, err)
	assert.Equal(t, int64(0), turn)
}

func TestAppend_ConcurrentWritersStayGapless(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	turns := make(chan int64, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			turn, err := store.Append(ctx, 3, "assistant", "msg")
			assert.NoError(t, err)
			turns <- turn
		}()
	}
	wg.Wait()
	close(turns)

	seen := make(map[int64]bool)
	for turn := range turns {
		assert.False(t, seen[turn], "turn %d allocated twice", turn)
		seen[turn] = true
	}
	for i := int64(0); i < writers; i++ {
		assert.True(t, seen[i], "turn %d missing", i)
	}
}

func TestAppendAt_UpsertsInPlace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendAt(ctx, TopLevelRoot, 4, "info", "Computing response…"))
	require.NoError(t, store.AppendAt(ctx, TopLevelRoot, 4, "assistant", "done"))

	messages, err := store.Thread(ctx, TopLevelRoot)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, int64(4), messages[0].Turn)
	assert.Equal(t, "assistant", messages[0].Role)
	assert.Equal(t, "done", messages[0].Content)
}

func TestAppendAt_DoesNotDisturbNeighbors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, TopLevelRoot, "user", "ask")
	require.NoError(t, err)
	require.NoError(t, store.AppendAt(ctx, TopLevelRoot, 1, "info", "placeholder"))
	require.NoError(t, store.AppendAt(ctx, TopLevelRoot, 1, "assistant", "answer"))

	messages, err := store.Thread(ctx, TopLevelRoot)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "ask", messages[0].Content)
	assert.Equal(t, "answer", messages[1].Content)
}

func TestThread_OrderedAndEmpty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	messages, err := store.Thread(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, messages)

	require.NoError(t, store.AppendAt(ctx, 9, 2, "user", "c"))
	require.NoError(t, store.AppendAt(ctx, 9, 0, "user", "a"))
	require.NoError(t, store.AppendAt(ctx, 9, 1, "assistant", "b"))

	messages, err = store.Thread(ctx, 9)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "a", messages[0].Content)
	assert.Equal(t, "b", messages[1].Content)
	assert.Equal(t, "c", messages[2].Content)
}

func TestMessage_MissingIsNil(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	msg, err := store.Message(ctx, TopLevelRoot, 0)
	require.NoError(t, err)
	assert.Nil(t, msg)

	_, err = store.Append(ctx, TopLevelRoot, "user", "hello")
	require.NoError(t, err)

	msg, err = store.Message(ctx, TopLevelRoot, 0)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "user", msg.Role)
}

func TestRoots_DistinctAscending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, 7, "assistant", "x")
	require.NoError(t, err)
	_, err = store.Append(ctx, TopLevelRoot, "user", "y")
	require.NoError(t, err)
	_, err = store.Append(ctx, 7, "user", "z")
	require.NoError(t, err)
	_, err = store.Append(ctx, 3, "user", "w")
	require.NoError(t, err)

	roots, err := store.Roots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 3, 7}, roots)
}

func TestDeleteThread(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, 2, "user", "a")
	require.NoError(t, err)
	_, err = store.Append(ctx, TopLevelRoot, "user", "b")
	require.NoError(t, err)

	require.NoError(t, store.DeleteThread(ctx, 2))

	messages, err := store.Thread(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, messages)

	messages, err = store.Thread(ctx, TopLevelRoot)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, TopLevelRoot, "user", "a")
	require.NoError(t, err)
	_, err = store.Append(ctx, 4, "assistant", "b")
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx))

	roots, err := store.Roots(ctx)
	require.NoError(t, err)
	assert.Empty(t, roots)
}

func TestStorageError_Sentinel(t *testing.T) {
	err := storageErr("open", errors.New("disk gone"))
	assert.True(t, errors.Is(err, ErrStorage))
	assert.Contains(t, err.Error(), "open")
	assert.Contains(t, err.Error(), "disk gone")
}

func TestReopen_PersistsHistory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	store, err := NewStore(Config{DBPath: dbPath, Logger: zerolog.Nop()})
	require.NoError(t, err)
	_, err = store.Append(ctx, TopLevelRoot, "user", "survives restart")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewStore(Config{DBPath: dbPath, Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer store.Close()

	messages, err := store.Thread(ctx, TopLevelRoot)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "survives restart", messages[0].Content)
}
