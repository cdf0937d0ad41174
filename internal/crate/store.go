// Package crate manages the user's ordered working set of selected
// artworks: ordering, durable persistence, and the lifecycle of locally
// cached image bytes.
package crate

import (
	"context"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"

	"github.com/llehouerou/cratedigger/internal/imagecache"
	"github.com/llehouerou/cratedigger/internal/provider"
)

// Storage persists the durable subset of the crate. Implementations
// receive entries whose local handles are stripped at serialization.
type Storage interface {
	SaveCrate(albums []provider.AlbumArt) error
	LoadCrate() ([]provider.AlbumArt, error)
}

// Fetcher acquires a local bytes handle for an artwork URL.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL string) (*imagecache.Handle, error)
}

// Store owns the ordered crate list. Every mutation applies to the
// in-memory list synchronously; durable writes and image caching run as
// detached best-effort tasks so callers never block on I/O. The store is
// the sole mutator of each entry's local handle.
type Store struct {
	mu     sync.Mutex
	albums []provider.AlbumArt
	ready  bool

	storage Storage
	fetcher Fetcher
	log     zerolog.Logger

	// Durable writes go through one background writer at a time,
	// coalesced to the latest snapshot, so a slow earlier save can never
	// commit over a later one.
	saveMu      sync.Mutex
	pendingSave []provider.AlbumArt
	saveDirty   bool
	saving      bool

	bg sync.WaitGroup
}

// NewStore creates a crate store over the given persistence and image
// fetch collaborators.
func NewStore(storage Storage, fetcher Fetcher, log zerolog.Logger) *Store {
	return &Store{
		storage: storage,
		fetcher: fetcher,
		log:     log,
	}
}

// Albums returns a snapshot of the ordered crate list.
func (s *Store) Albums() []provider.AlbumArt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]provider.AlbumArt, len(s.albums))
	copy(out, s.albums)
	return out
}

// Len returns the number of crate entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.albums)
}

// Ready reports whether hydration has completed. True even when the
// persisted crate could not be read.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Hydrate loads the persisted crate and publishes it immediately so
// consumers can render from remote URLs, then caches local image handles
// for every entry in the background. A persistence read failure still
// leaves the store ready, with an empty crate.
func (s *Store) Hydrate(ctx context.Context) {
	saved, err := s.storage.LoadCrate()
	if err != nil {
		s.log.Error().Err(err).Msg("crate hydration failed")
		s.mu.Lock()
		s.ready = true
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.albums = saved
	s.ready = true
	s.mu.Unlock()

	for _, album := range saved {
		s.cacheInBackground(ctx, album.ID, album.SourceURL)
	}
}

// Add appends the album to the crate. A second add with the same id is a
// no-op. The in-memory list reflects the add before Add returns;
// persistence and image caching follow in the background, and a caching
// failure leaves the entry serving its remote URL.
func (s *Store) Add(ctx context.Context, album provider.AlbumArt) {
	s.mu.Lock()
	if s.indexOfLocked(album.ID) >= 0 {
		s.mu.Unlock()
		return
	}
	s.albums = append(s.albums, album)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persistInBackground(snapshot)
	s.cacheInBackground(ctx, album.ID, album.SourceURL)
}

// Remove releases the entry's local handle, if any, and removes the
// entry from the list. The handle is released synchronously, before
// Remove returns; callers must not retain handle values across this
// call.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	idx := s.indexOfLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	if h := s.albums[idx].LocalHandle; h != nil {
		h.Release()
	}
	s.albums = append(s.albums[:idx], s.albums[idx+1:]...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persistInBackground(snapshot)
}

// Reorder moves the entry at from to position to, with splice-move
// semantics: the entry is removed first and reinserted into the
// shortened list. Out-of-range indices are a no-op.
func (s *Store) Reorder(from, to int) {
	s.mu.Lock()
	if from < 0 || from >= len(s.albums) || to < 0 || to >= len(s.albums) {
		s.mu.Unlock()
		return
	}
	moved := s.albums[from]
	s.albums = append(s.albums[:from], s.albums[from+1:]...)
	s.albums = append(s.albums[:to], append([]provider.AlbumArt{moved}, s.albums[to:]...)...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persistInBackground(snapshot)
}

// Shuffle replaces the list order with a uniform random permutation.
func (s *Store) Shuffle() {
	s.mu.Lock()
	rand.Shuffle(len(s.albums), func(i, j int) {
		s.albums[i], s.albums[j] = s.albums[j], s.albums[i]
	})
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persistInBackground(snapshot)
}

// Clear releases every entry's local handle and empties the crate.
func (s *Store) Clear() {
	s.mu.Lock()
	for i := range s.albums {
		if h := s.albums[i].LocalHandle; h != nil {
			h.Release()
		}
	}
	s.albums = nil
	s.mu.Unlock()

	s.persistInBackground(nil)
}

// Close waits for in-flight background persistence and caching tasks.
func (s *Store) Close() error {
	s.bg.Wait()
	return nil
}

// persistInBackground hands the snapshot to the background writer.
// Writes are serialized and intermediate snapshots coalesced away, so the
// last write always reflects the last mutation. The in-memory state stays
// authoritative; a write failure is logged and otherwise ignored.
func (s *Store) persistInBackground(snapshot []provider.AlbumArt) {
	s.saveMu.Lock()
	s.pendingSave = snapshot
	s.saveDirty = true
	if s.saving {
		// The running writer picks up the new snapshot before exiting.
		s.saveMu.Unlock()
		return
	}
	s.saving = true
	s.saveMu.Unlock()

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		for {
			s.saveMu.Lock()
			if !s.saveDirty {
				s.saving = false
				s.saveMu.Unlock()
				return
			}
			snap := s.pendingSave
			s.saveDirty = false
			s.saveMu.Unlock()

			if err := s.storage.SaveCrate(snap); err != nil {
				s.log.Warn().Err(err).Msg("crate persistence failed")
			}
		}
	}()
}

// cacheInBackground fetches the entry's image bytes and attaches the
// resulting handle, unless the entry was removed or already cached in
// the meantime.
func (s *Store) cacheInBackground(ctx context.Context, id, sourceURL string) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()

		handle, err := s.fetcher.Fetch(ctx, sourceURL)
		if err != nil {
			s.log.Warn().Str("album_id", id).Err(err).Msg("image caching failed")
			return
		}

		s.mu.Lock()
		idx := s.indexOfLocked(id)
		if idx < 0 || s.albums[idx].LocalHandle != nil {
			s.mu.Unlock()
			handle.Release()
			return
		}
		s.albums[idx].LocalHandle = handle
		s.mu.Unlock()
	}()
}

func (s *Store) indexOfLocked(id string) int {
	for i := range s.albums {
		if s.albums[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() []provider.AlbumArt {
	out := make([]provider.AlbumArt, len(s.albums))
	copy(out, s.albums)
	return out
}
