package memory

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alvmarrod/fair/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProfileStore struct {
	saved   []string
	loaded  []*storage.ProfileRecord
	saveErr error
}

func (f *fakeProfileStore) SaveProfile(p *storage.ProfileRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, p.Username)
	return nil
}

func (f *fakeProfileStore) LoadProfiles() ([]*storage.ProfileRecord, error) {
	return f.loaded, nil
}

func TestProfileCachePutWritesThrough(t *testing.T) {
	store := &fakeProfileStore{}
	cache := NewProfileCache(store)

	require.NoError(t, cache.Put(&storage.ProfileRecord{Username: "alice"}))
	require.NoError(t, cache.Put(&storage.ProfileRecord{Username: "bob"}))
	require.NoError(t, cache.Put(&storage.ProfileRecord{Username: "alice", FullName: "Alice"}))

	assert.Equal(t, []string{"alice", "bob", "alice"}, store.saved)
	assert.Equal(t, 2, cache.Len())
	assert.Equal(t, []string{"alice", "bob"}, cache.Usernames())

	p, ok := cache.Get("alice")
	require.True(t, ok)
	assert.Equal(t, "Alice", p.FullName)

	_, ok = cache.Get("carol")
	assert.False(t, ok)
}

func TestProfileCachePutPropagatesStoreFailure(t *testing.T) {
	boom := errors.New("disk full")
	cache := NewProfileCache(&fakeProfileStore{saveErr: boom})

	err := cache.Put(&storage.ProfileRecord{Username: "alice"})
	assert.ErrorIs(t, err, boom)
}

func TestProfileCacheRejectsAnonymous(t *testing.T) {
	cache := NewProfileCache(nil)
	assert.Error(t, cache.Put(&storage.ProfileRecord{}))
	assert.Error(t, cache.Put(nil))
}

func TestProfileCacheLoadFromStorage(t *testing.T) {
	store := &fakeProfileStore{loaded: []*storage.ProfileRecord{
		{Username: "alice"},
		{Username: "bob"},
	}}
	cache := NewProfileCache(store)

	require.NoError(t, cache.LoadFromStorage())
	assert.Equal(t, []string{"alice", "bob"}, cache.Usernames())
	assert.Empty(t, store.saved)

	require.NoError(t, NewProfileCache(nil).LoadFromStorage())
}

func TestBuildNodeLink(t *testing.T) {
	g := NewInteractionGraph()
	_, _ = g.UpsertNode("alice", "Alice A.", 120, 80)
	_, _ = g.UpsertNode("bob", "", 0, 0)
	_, _ = g.UpsertNode("carol", "", 0, 0)
	_, _ = g.UpsertEdge("alice", "bob")
	_, _ = g.UpsertEdge("bob", "alice")
	_, _ = g.UpsertEdge("alice", "carol")

	cache := NewProfileCache(nil)
	require.NoError(t, cache.Put(&storage.ProfileRecord{
		Username:        "carol",
		SuspiciousScore: &storage.ScoreBreakdown{FinalScore: 0.7},
	}))

	doc := BuildNodeLink(g, cache, "alice")
	assert.True(t, doc.Directed)
	assert.Equal(t, "alice", doc.MainUser)
	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, []string{"bob"}, doc.Nodes[0].Predecessors)
	assert.Equal(t, []string{"bob", "carol"}, doc.Nodes[0].Successors)
	assert.Nil(t, doc.Nodes[0].FinalScore)
	require.NotNil(t, doc.Nodes[2].FinalScore)
	assert.Equal(t, 0.7, *doc.Nodes[2].FinalScore)
	assert.Equal(t, []string{}, doc.Nodes[2].Successors)
	assert.Equal(t, []NodeLinkEdge{
		{Source: "alice", Target: "bob"},
		{Source: "bob", Target: "alice"},
		{Source: "alice", Target: "carol"},
	}, doc.Links)

	var buf bytes.Buffer
	require.NoError(t, EncodeNodeLink(&buf, doc))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, true, decoded["directed"])
	assert.Len(t, decoded["links"], 3)
}
