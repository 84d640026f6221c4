// Package store implements the State Store (C4): the exclusive owner of the
// playlist and brightness value, with write-temp-then-rename JSON
// persistence. No teacher file persists application state this way — the
// discipline is grounded on the general Go config-persistence idiom used
// across the retrieval pack (full-document JSON writes, atomic rename) and
// on the teacher's own use of encoding/json for internal/config/config.go.
package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/fcurrie/led-matrix-controller/internal/bus"
	"github.com/fcurrie/led-matrix-controller/internal/model"
)

// document is the on-disk shape persisted at the configured state file path.
type document struct {
	Playlist   model.Playlist   `json:"playlist"`
	Brightness model.Brightness `json:"brightness"`
}

// Store is the State Store: one exclusive lock guarding the playlist and
// brightness, held only for the duration of a single mutation.
type Store struct {
	mu   sync.Mutex
	path string
	bus  *bus.Bus

	playlist   model.Playlist
	brightness model.Brightness
}

// Open loads the persisted document at path, or starts from an empty
// playlist and brightness 100 if the file is absent. A present but corrupt
// file is a startup error, matching spec.md §6's boot-behavior contract.
func Open(path string, b *bus.Bus) (*Store, error) {
	s := &Store{path: path, bus: b, brightness: 100}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading state file %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("state file %s is corrupt: %w", path, err)
	}
	s.playlist = doc.Playlist
	s.brightness = doc.Brightness.Clamp()
	return s, nil
}

func (s *Store) persistLocked() error {
	doc := document{Playlist: s.playlist, Brightness: s.brightness}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming temp state file into place: %w", err)
	}
	return nil
}

// persistBestEffortLocked writes the current document to disk, logging an
// error-level alert on failure rather than propagating it: per spec.md §7
// the write-through is best-effort, and an in-memory mutation that already
// committed is still returned successfully to the caller even if it could
// not be persisted.
func (s *Store) persistBestEffortLocked() {
	if err := s.persistLocked(); err != nil {
		log.Printf("store: failed to persist state to %s: %v", s.path, err)
	}
}

func (s *Store) publishPlaylistLocked(action bus.Action) {
	if s.bus == nil {
		return
	}
	snapshot := append(model.Playlist(nil), s.playlist...)
	s.bus.Publish(bus.Event{Topic: bus.TopicPlaylist, Action: action, Data: snapshot})
}

// List returns a snapshot of the current playlist in order.
func (s *Store) List() model.Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(model.Playlist(nil), s.playlist...)
}

// Get returns the item with id, or model.NotFound.
func (s *Store) Get(id uuid.UUID) (model.DisplayItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.playlist {
		if item.ID == id {
			return item, nil
		}
	}
	return model.DisplayItem{}, model.NotFound("no playlist item with id %s", id)
}

// Create validates item, assigns it a fresh id, appends it, persists, and
// publishes an Add event.
func (s *Store) Create(item model.DisplayItem) (model.DisplayItem, error) {
	if err := item.Validate(); err != nil {
		return model.DisplayItem{}, err
	}
	item.ID = uuid.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.playlist = append(s.playlist, item)
	s.persistBestEffortLocked()
	s.publishPlaylistLocked(bus.ActionAdd)
	return item, nil
}

// Update validates item, replaces the existing item with the same id, and
// publishes an Update event. The id field of item is ignored in favor of id.
func (s *Store) Update(id uuid.UUID, item model.DisplayItem) (model.DisplayItem, error) {
	if err := item.Validate(); err != nil {
		return model.DisplayItem{}, err
	}
	item.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, existing := range s.playlist {
		if existing.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return model.DisplayItem{}, model.NotFound("no playlist item with id %s", id)
	}

	s.playlist[idx] = item
	s.persistBestEffortLocked()
	s.publishPlaylistLocked(bus.ActionUpdate)
	return item, nil
}

// Delete removes the item with id and publishes a Delete event.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, existing := range s.playlist {
		if existing.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return model.NotFound("no playlist item with id %s", id)
	}

	prev := s.playlist
	s.playlist = append(append(model.Playlist(nil), prev[:idx]...), prev[idx+1:]...)
	s.persistBestEffortLocked()
	s.publishPlaylistLocked(bus.ActionDelete)
	return nil
}

// Reorder replaces the playlist order with ids, which must be a permutation
// of the current item ids, and publishes a Reorder event.
func (s *Store) Reorder(ids []uuid.UUID) (model.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playlist.SameIDSet(ids) {
		return nil, model.InvalidReorder("reorder ids must be a permutation of the current playlist")
	}

	byID := make(map[uuid.UUID]model.DisplayItem, len(s.playlist))
	for _, item := range s.playlist {
		byID[item.ID] = item
	}

	reordered := make(model.Playlist, len(ids))
	for i, id := range ids {
		reordered[i] = byID[id]
	}

	s.playlist = reordered
	s.persistBestEffortLocked()
	s.publishPlaylistLocked(bus.ActionReorder)
	return append(model.Playlist(nil), s.playlist...), nil
}

// Brightness returns the current brightness setting (not adjusted for the
// max_brightness cap).
func (s *Store) Brightness() model.Brightness {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brightness
}

// SetBrightness validates b is within 0-100, persists it, and publishes a
// BrightnessChanged event.
func (s *Store) SetBrightness(b model.Brightness) error {
	if b < 0 || b > 100 {
		return model.ValidationFailed("brightness must be between 0 and 100, got %d", b)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.brightness = b
	s.persistBestEffortLocked()
	if s.bus != nil {
		s.bus.Publish(bus.Event{Topic: bus.TopicBrightness, Action: bus.ActionBrightnessChanged, Data: s.brightness})
	}
	return nil
}
