package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hupe1980/quarry/blobstore"
	"github.com/hupe1980/quarry/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmpty(t *testing.T) {
	store := NewStore(blobstore.NewMemoryStore())

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	ids, err := store.ListVersions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	store := NewStore(bs)

	m := New()
	m.NextSegmentID = 3
	m.Segments = []SegmentInfo{
		{SegmentInfo: model.SegmentInfo{ID: 1, Name: "seg-000001", DocCount: 3}, File: "seg-000001.qsg"},
		{SegmentInfo: model.SegmentInfo{ID: 2, Name: "seg-000002", DocCount: 2, DelCount: 1}, File: "seg-000002.qsg", DelFile: "seg-000002-1.del"},
	}
	require.NoError(t, store.Save(ctx, m))
	assert.Equal(t, uint64(1), m.ID)
	assert.False(t, m.CreatedAt.IsZero())

	current, err := blobstore.ReadAll(ctx, bs, CurrentFileName)
	require.NoError(t, err)
	assert.Equal(t, "commit-000001.json", string(current))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), loaded.ID)
	assert.Equal(t, CurrentVersion, loaded.Version)
	assert.Equal(t, model.SegmentID(3), loaded.NextSegmentID)
	require.Len(t, loaded.Segments, 2)
	assert.Equal(t, "seg-000002", loaded.Segments[1].Name)
	assert.Equal(t, int32(1), loaded.Segments[1].DelCount)
	assert.Equal(t, []string{"seg-000001.qsg", "seg-000002.qsg", "seg-000002-1.del"}, loaded.Files())

	require.NoError(t, store.Save(ctx, m))
	assert.Equal(t, uint64(2), m.ID)

	ids, err := store.ListVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, ids)

	first, err := store.LoadVersion(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.ID)

	require.NoError(t, store.DeleteVersion(ctx, 1))
	_, err = store.LoadVersion(ctx, 1)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	latest, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), latest.ID)
}

func TestIncompatibleVersion(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	store := NewStore(bs)
	require.NoError(t, store.Save(ctx, New()))

	data, err := blobstore.ReadAll(ctx, bs, FileName(1))
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	raw["version"] = 999
	data, err = json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, bs.Put(ctx, FileName(1), data))

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestCorruptCommitPoint(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	require.NoError(t, bs.Put(ctx, CurrentFileName, []byte("commit-000007.json")))
	require.NoError(t, bs.Put(ctx, "commit-000007.json", []byte("{not json")))

	_, err := NewStore(bs).Load(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSaveConflict(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	require.NoError(t, bs.Put(ctx, FileName(1), []byte("{}")))

	m := New()
	err := NewStore(bs).Save(ctx, m)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Zero(t, m.ID)
}

type failingPutStore struct {
	blobstore.BlobStore
	fail string
}

func (s *failingPutStore) Put(ctx context.Context, name string, data []byte) error {
	if name == s.fail {
		return errors.New("boom")
	}
	return s.BlobStore.Put(ctx, name, data)
}

func TestSaveFailureLeavesManifestUnchanged(t *testing.T) {
	ctx := context.Background()
	bs := &failingPutStore{BlobStore: blobstore.NewMemoryStore(), fail: CurrentFileName}
	store := NewStore(bs)

	m := New()
	m.Segments = []SegmentInfo{{File: "seg-000001.qsg"}}
	require.Error(t, store.Save(ctx, m))
	assert.Zero(t, m.ID)
	assert.True(t, m.CreatedAt.IsZero())

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	bs.fail = ""
	require.NoError(t, store.Save(ctx, m))
	assert.Equal(t, uint64(1), m.ID)
}

func TestCloneIsDeep(t *testing.T) {
	m := New()
	m.Segments = []SegmentInfo{{File: "a"}}
	c := m.Clone()
	c.Segments[0].File = "b"
	assert.Equal(t, "a", m.Segments[0].File)
}

func TestParseFileName(t *testing.T) {
	id, ok := ParseFileName(FileName(42))
	require.True(t, ok)
	assert.Equal(t, uint64(42), id)

	for _, name := range []string{"CURRENT", "commit-x.json", "commit-000001.bin", "seg-000001.qsg"} {
		_, ok := ParseFileName(name)
		assert.False(t, ok, name)
	}
}
