package crate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/cratedigger/internal/imagecache"
	"github.com/llehouerou/cratedigger/internal/provider"
)

// mockStorage records saves and serves a canned load result.
type mockStorage struct {
	mu      sync.Mutex
	saved   [][]provider.AlbumArt
	loaded  []provider.AlbumArt
	loadErr error
	saveErr error
}

func (m *mockStorage) SaveCrate(albums []provider.AlbumArt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, albums)
	return nil
}

func (m *mockStorage) LoadCrate() ([]provider.AlbumArt, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.loaded, nil
}

func (m *mockStorage) lastSave() []provider.AlbumArt {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return nil
	}
	return m.saved[len(m.saved)-1]
}

// stubFetcher returns a fresh handle per fetch, or an error.
type stubFetcher struct {
	mu      sync.Mutex
	err     error
	fetched []string
	handles []*imagecache.Handle
}

func (f *stubFetcher) Fetch(_ context.Context, sourceURL string) (*imagecache.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.fetched = append(f.fetched, sourceURL)
	h := imagecache.NewHandle([]byte("image-bytes"), "image/webp")
	f.handles = append(f.handles, h)
	return h, nil
}

func testAlbum(id string) provider.AlbumArt {
	return provider.AlbumArt{
		ID:         id,
		SourceURL:  "https://img.example/" + id + ".jpg",
		Artist:     "Artist " + id,
		Album:      "Album " + id,
		ProviderID: "mock",
	}
}

func newTestStore(storage *mockStorage, fetcher *stubFetcher) *Store {
	return NewStore(storage, fetcher, zerolog.Nop())
}

func TestStore_Add_Optimistic(t *testing.T) {
	storage := &mockStorage{}
	store := newTestStore(storage, &stubFetcher{})

	store.Add(context.Background(), testAlbum("a"))

	// The in-memory mutation is visible before any background work
	// completes.
	require.Equal(t, 1, store.Len())

	require.NoError(t, store.Close())
	assert.Len(t, storage.lastSave(), 1)
}

func TestStore_Add_Idempotent(t *testing.T) {
	storage := &mockStorage{}
	store := newTestStore(storage, &stubFetcher{})

	store.Add(context.Background(), testAlbum("a"))
	store.Add(context.Background(), testAlbum("a"))

	require.NoError(t, store.Close())
	assert.Equal(t, 1, store.Len())
}

func TestStore_Add_CachesHandleInBackground(t *testing.T) {
	storage := &mockStorage{}
	fetcher := &stubFetcher{}
	store := newTestStore(storage, fetcher)

	store.Add(context.Background(), testAlbum("a"))
	require.NoError(t, store.Close())

	albums := store.Albums()
	require.Len(t, albums, 1)
	require.NotNil(t, albums[0].LocalHandle)
	assert.Equal(t, []byte("image-bytes"), albums[0].LocalHandle.Bytes())
}

func TestStore_Add_CacheFailureKeepsEntry(t *testing.T) {
	storage := &mockStorage{}
	fetcher := &stubFetcher{err: errors.New("offline")}
	store := newTestStore(storage, fetcher)

	store.Add(context.Background(), testAlbum("a"))
	require.NoError(t, store.Close())

	albums := store.Albums()
	require.Len(t, albums, 1)
	// Entry survives without a local handle, serving its remote URL.
	assert.Nil(t, albums[0].LocalHandle)
}

func TestStore_Remove_ReleasesHandle(t *testing.T) {
	storage := &mockStorage{}
	fetcher := &stubFetcher{}
	store := newTestStore(storage, fetcher)

	store.Add(context.Background(), testAlbum("a"))
	require.NoError(t, store.Close())

	store.Remove("a")
	require.NoError(t, store.Close())

	assert.Equal(t, 0, store.Len())
	require.Len(t, fetcher.handles, 1)
	assert.True(t, fetcher.handles[0].Released(), "handle must be released on remove")
	assert.Empty(t, storage.lastSave())
}

func TestStore_Remove_MissingIDIsNoop(t *testing.T) {
	storage := &mockStorage{}
	store := newTestStore(storage, &stubFetcher{})

	store.Add(context.Background(), testAlbum("a"))
	store.Remove("zzz")
	require.NoError(t, store.Close())

	assert.Equal(t, 1, store.Len())
}

func TestStore_Reorder(t *testing.T) {
	storage := &mockStorage{}
	store := newTestStore(storage, &stubFetcher{})

	for _, id := range []string{"a", "b", "c"} {
		store.Add(context.Background(), testAlbum(id))
	}
	require.NoError(t, store.Close())

	store.Reorder(0, 2)
	require.NoError(t, store.Close())

	albums := store.Albums()
	require.Len(t, albums, 3)
	assert.Equal(t, "b", albums[0].ID)
	assert.Equal(t, "c", albums[1].ID)
	assert.Equal(t, "a", albums[2].ID)
}

func TestStore_Reorder_OutOfRangeIsNoop(t *testing.T) {
	storage := &mockStorage{}
	store := newTestStore(storage, &stubFetcher{})

	store.Add(context.Background(), testAlbum("a"))
	store.Add(context.Background(), testAlbum("b"))
	require.NoError(t, store.Close())

	store.Reorder(0, 5)
	store.Reorder(-1, 0)
	require.NoError(t, store.Close())

	albums := store.Albums()
	assert.Equal(t, "a", albums[0].ID)
	assert.Equal(t, "b", albums[1].ID)
}

func TestStore_Shuffle_IsPermutation(t *testing.T) {
	storage := &mockStorage{}
	store := newTestStore(storage, &stubFetcher{})

	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		store.Add(context.Background(), testAlbum(id))
	}
	require.NoError(t, store.Close())

	store.Shuffle()
	require.NoError(t, store.Close())

	albums := store.Albums()
	require.Len(t, albums, len(ids))
	seen := make(map[string]bool)
	for _, a := range albums {
		seen[a.ID] = true
	}
	for _, id := range ids {
		assert.True(t, seen[id], "id %s missing after shuffle", id)
	}
}

func TestStore_Clear_ReleasesAllHandles(t *testing.T) {
	storage := &mockStorage{}
	fetcher := &stubFetcher{}
	store := newTestStore(storage, fetcher)

	store.Add(context.Background(), testAlbum("a"))
	store.Add(context.Background(), testAlbum("b"))
	require.NoError(t, store.Close())

	store.Clear()
	require.NoError(t, store.Close())

	assert.Equal(t, 0, store.Len())
	require.Len(t, fetcher.handles, 2)
	for i, h := range fetcher.handles {
		assert.True(t, h.Released(), "handle %d must be released on clear", i)
	}
	assert.Empty(t, storage.lastSave())
}

func TestStore_Hydrate_PublishesThenCaches(t *testing.T) {
	storage := &mockStorage{loaded: []provider.AlbumArt{testAlbum("a"), testAlbum("b")}}
	fetcher := &stubFetcher{}
	store := newTestStore(storage, fetcher)

	store.Hydrate(context.Background())

	// Published immediately, before caching completes.
	require.True(t, store.Ready())
	require.Equal(t, 2, store.Len())

	require.NoError(t, store.Close())

	for _, a := range store.Albums() {
		assert.NotNil(t, a.LocalHandle, "entry %s should gain a handle in the background", a.ID)
	}
}

func TestStore_Hydrate_ReadFailureStillReady(t *testing.T) {
	storage := &mockStorage{loadErr: errors.New("corrupt")}
	store := newTestStore(storage, &stubFetcher{})

	store.Hydrate(context.Background())

	assert.True(t, store.Ready(), "store must become ready despite a read failure")
	assert.Equal(t, 0, store.Len())
}

// slowFirstStorage blocks its first save until release is closed and
// signals when that save is in flight.
type slowFirstStorage struct {
	mu           sync.Mutex
	saved        [][]provider.AlbumArt
	calls        int
	firstStarted chan struct{}
	release      chan struct{}
}

func (s *slowFirstStorage) SaveCrate(albums []provider.AlbumArt) error {
	s.mu.Lock()
	call := s.calls
	s.calls++
	s.mu.Unlock()

	if call == 0 {
		close(s.firstStarted)
		<-s.release
	}

	s.mu.Lock()
	s.saved = append(s.saved, albums)
	s.mu.Unlock()
	return nil
}

func (s *slowFirstStorage) LoadCrate() ([]provider.AlbumArt, error) { return nil, nil }

func (s *slowFirstStorage) lastSave() []provider.AlbumArt {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saved) == 0 {
		return nil
	}
	return s.saved[len(s.saved)-1]
}

func TestStore_SlowEarlierSaveCannotOvertakeLaterOne(t *testing.T) {
	storage := &slowFirstStorage{
		firstStarted: make(chan struct{}),
		release:      make(chan struct{}),
	}
	store := NewStore(storage, &stubFetcher{}, zerolog.Nop())

	store.Add(context.Background(), testAlbum("a"))
	<-storage.firstStarted // the one-entry save is in flight

	store.Remove("a")
	close(storage.release)
	require.NoError(t, store.Close())

	// The last durable write must reflect the last mutation; otherwise a
	// restart would resurrect the removed album.
	assert.Empty(t, storage.lastSave())
}

func TestStore_SaveErrorKeepsInMemoryState(t *testing.T) {
	storage := &mockStorage{saveErr: errors.New("disk full")}
	store := newTestStore(storage, &stubFetcher{})

	store.Add(context.Background(), testAlbum("a"))
	require.NoError(t, store.Close())

	assert.Equal(t, 1, store.Len(), "in-memory state survives a failed durable write")
}

func TestStore_LateCacheAfterRemoveReleasesHandle(t *testing.T) {
	// The fetch resolves after the entry is gone; the orphaned handle
	// must not leak.
	storage := &mockStorage{}
	blocked := make(chan struct{})
	fetcher := &blockingFetcher{release: blocked}
	store := NewStore(storage, fetcher, zerolog.Nop())

	store.Add(context.Background(), testAlbum("a"))
	store.Remove("a")
	close(blocked)
	require.NoError(t, store.Close())

	require.Len(t, fetcher.handles, 1)
	assert.True(t, fetcher.handles[0].Released())
	assert.Equal(t, 0, store.Len())
}

// blockingFetcher parks fetches until release is closed.
type blockingFetcher struct {
	mu      sync.Mutex
	release chan struct{}
	handles []*imagecache.Handle
}

func (f *blockingFetcher) Fetch(_ context.Context, _ string) (*imagecache.Handle, error) {
	<-f.release
	f.mu.Lock()
	defer f.mu.Unlock()
	h := imagecache.NewHandle([]byte("late"), "image/webp")
	f.handles = append(f.handles, h)
	return h, nil
}
