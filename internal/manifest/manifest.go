package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/quarry/blobstore"
	"github.com/hupe1980/quarry/model"
)

const (
	// CurrentFileName names the pointer to the newest commit point.
	CurrentFileName = "CURRENT"
	// CommitPrefix starts the name of every commit point.
	CommitPrefix = "commit-"
	// CurrentVersion is the commit point format version.
	CurrentVersion = 1
)

// Manifest is one commit point.
type Manifest struct {
	Version       int             `json:"version"`
	ID            uint64          `json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	NextSegmentID model.SegmentID `json:"next_segment_id"`
	Segments      []SegmentInfo   `json:"segments"`
}

// SegmentInfo is a committed segment and the blobs that hold it.
type SegmentInfo struct {
	model.SegmentInfo
	// File is the segment blob.
	File string `json:"file"`
	// DelFile is the deletion bitmap blob, empty when nothing is deleted.
	DelFile string `json:"del_file,omitempty"`
}

// New returns an empty manifest that has not been saved.
func New() *Manifest {
	return &Manifest{
		Version:       CurrentVersion,
		NextSegmentID: 1,
	}
}

// Clone returns a deep copy of m.
func (m *Manifest) Clone() *Manifest {
	c := *m
	c.Segments = append([]SegmentInfo(nil), m.Segments...)
	return &c
}

// Files returns the segment and deletion blobs m references.
func (m *Manifest) Files() []string {
	files := make([]string, 0, 2*len(m.Segments))
	for _, s := range m.Segments {
		files = append(files, s.File)
		if s.DelFile != "" {
			files = append(files, s.DelFile)
		}
	}
	return files
}

// FileName returns the blob name of commit point id.
func FileName(id uint64) string {
	return fmt.Sprintf("%s%06d.json", CommitPrefix, id)
}

// ParseFileName extracts the commit point id from a blob name.
func ParseFileName(name string) (uint64, bool) {
	rest, ok := strings.CutPrefix(name, CommitPrefix)
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(rest, ".json")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Store reads and writes commit points in a blob store.
type Store struct {
	store blobstore.BlobStore
	mu    sync.Mutex
}

// NewStore creates a manifest store over store.
func NewStore(store blobstore.BlobStore) *Store {
	return &Store{store: store}
}

// Load returns the commit point CURRENT names, or ErrNotFound if
// nothing has been committed.
func (s *Store) Load(ctx context.Context) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := blobstore.ReadAll(ctx, s.store, CurrentFileName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("manifest: read %s: %w", CurrentFileName, err)
	}
	return s.read(ctx, strings.TrimSpace(string(current)))
}

// LoadVersion returns commit point id.
func (s *Store) LoadVersion(ctx context.Context, id uint64) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx, FileName(id))
}

func (s *Store) read(ctx context.Context, name string) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, s.store, name)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", name, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: decode %s: %w", name, err)
	}
	if m.Version > CurrentVersion || m.Version < 1 {
		return nil, fmt.Errorf("%w: %s has version %d", ErrIncompatibleVersion, name, m.Version)
	}
	return &m, nil
}

// ListVersions returns the ids of all stored commit points in ascending order.
func (s *Store) ListVersions(ctx context.Context) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.store.List(ctx, CommitPrefix)
	if err != nil {
		return nil, err
	}
	var ids []uint64
	for _, name := range names {
		if id, ok := ParseFileName(name); ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Save writes m as the next commit point and publishes it through
// CURRENT. On success m.ID holds the new id. On failure m is unchanged.
// Save fails with ErrConflict if another writer already used the next id.
func (s *Store) Save(ctx context.Context, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := m.Clone()
	next.Version = CurrentVersion
	next.ID = m.ID + 1
	next.CreatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}

	name := FileName(next.ID)
	if b, err := s.store.Open(ctx, name); err == nil {
		_ = b.Close()
		return fmt.Errorf("%w: %s", ErrConflict, name)
	} else if !errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("manifest: stat %s: %w", name, err)
	}
	if err := s.store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("manifest: write %s: %w", name, err)
	}
	if err := s.store.Put(ctx, CurrentFileName, []byte(name)); err != nil {
		_ = s.store.Delete(ctx, name)
		return fmt.Errorf("manifest: publish %s: %w", name, err)
	}

	*m = *next
	return nil
}

// DeleteVersion removes commit point id. It does not touch CURRENT.
func (s *Store) DeleteVersion(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(ctx, FileName(id))
}
