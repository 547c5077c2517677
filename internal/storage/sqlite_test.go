package storage

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "fair.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleProfile() *ProfileRecord {
	return &ProfileRecord{
		Username:    "alice",
		FullName:    "Alice A.",
		Biography:   "photos",
		AccountType: AccountPublic,
		Followers:   120,
		Following:   80,
		Posts:       2,
		LatestPosts: []PostRecord{
			{
				PostID:       "p1",
				Date:         "2024-01-01T10:00:00.000Z",
				Location:     "Madrid",
				Mentions:     []string{"bob"},
				TaggedUsers:  []string{},
				Commenters:   []string{"carol", "dave"},
				Likes:        10,
				CommentCount: 2,
			},
			{
				PostID:       "p2",
				Date:         "1704100800",
				Mentions:     []string{},
				TaggedUsers:  []string{"erin"},
				Commenters:   []string{},
				Likes:        3,
				CommentCount: 0,
			},
		},
	}
}

func TestSaveAndLoadProfile(t *testing.T) {
	store := newTestStorage(t)

	require.NoError(t, store.SaveProfile(sampleProfile()))

	profiles, err := store.LoadProfiles()
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, sampleProfile(), profiles[0])
}

func TestSaveProfileReplacesPostsAndScore(t *testing.T) {
	store := newTestStorage(t)

	p := sampleProfile()
	require.NoError(t, store.SaveProfile(p))

	p.LatestPosts = p.LatestPosts[:1]
	p.SuspiciousScore = &ScoreBreakdown{NameEntropy: 2.5, UsernameEntropy: 2.3, FinalScore: 0.42}
	require.NoError(t, store.SaveProfile(p))

	profiles, err := store.LoadProfiles()
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Len(t, profiles[0].LatestPosts, 1)
	require.NotNil(t, profiles[0].SuspiciousScore)
	assert.Equal(t, 0.42, profiles[0].SuspiciousScore.FinalScore)

	p.SuspiciousScore = nil
	require.NoError(t, store.SaveProfile(p))
	profiles, err = store.LoadProfiles()
	require.NoError(t, err)
	assert.Nil(t, profiles[0].SuspiciousScore)
}

func TestLoadProfilesKeepsPostDataFlag(t *testing.T) {
	store := newTestStorage(t)

	require.NoError(t, store.SaveProfile(&ProfileRecord{Username: "noposts", AccountType: AccountPublic, LatestPosts: []PostRecord{}}))
	require.NoError(t, store.SaveProfile(&ProfileRecord{Username: "unloaded", AccountType: AccountPrivate}))

	profiles, err := store.LoadProfiles()
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, "noposts", profiles[0].Username)
	assert.True(t, profiles[0].HasPostData())
	assert.Empty(t, profiles[0].LatestPosts)

	assert.Equal(t, "unloaded", profiles[1].Username)
	assert.False(t, profiles[1].HasPostData())
	assert.True(t, profiles[1].IsPrivate())
}

func TestSaveProfileRequiresUsername(t *testing.T) {
	store := newTestStorage(t)
	assert.Error(t, store.SaveProfile(&ProfileRecord{}))
	assert.Error(t, store.SaveProfile(nil))
}

func TestDeleteProfiles(t *testing.T) {
	store := newTestStorage(t)
	require.NoError(t, store.SaveProfile(sampleProfile()))

	require.NoError(t, store.DeleteProfiles())

	profiles, err := store.LoadProfiles()
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestSaveAndLoadGraph(t *testing.T) {
	store := newTestStorage(t)

	nodes := []Node{
		{Username: "alice", Count: 2, FullName: "Alice A.", Followers: 120, Following: 80},
		{Username: "bob", Count: 1, FullName: "bob"},
		{Username: "carol", Count: 1, FullName: "carol"},
	}
	edges := []Edge{
		{Source: "alice", Target: "bob"},
		{Source: "bob", Target: "alice"},
		{Source: "alice", Target: "carol"},
		{Source: "alice", Target: "bob"},
	}

	require.NoError(t, store.SaveGraph(nodes, edges, true))

	gotNodes, gotEdges, directed, err := store.LoadGraph()
	require.NoError(t, err)
	assert.True(t, directed)
	assert.Equal(t, nodes, gotNodes)
	assert.Equal(t, edges[:3], gotEdges)

	// Saving again replaces the previous graph
	require.NoError(t, store.SaveGraph(nodes[:1], nil, false))
	gotNodes, gotEdges, directed, err = store.LoadGraph()
	require.NoError(t, err)
	assert.False(t, directed)
	assert.Len(t, gotNodes, 1)
	assert.Empty(t, gotEdges)
}

func TestLoadGraphEmptyStore(t *testing.T) {
	store := newTestStorage(t)

	nodes, edges, directed, err := store.LoadGraph()
	require.NoError(t, err)
	assert.True(t, directed)
	assert.Empty(t, nodes)
	assert.Empty(t, edges)
}

func TestPostDateUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected PostDate
	}{
		{"iso string", `{"date":"2024-01-01T10:00:00.000Z"}`, "2024-01-01T10:00:00.000Z"},
		{"epoch string", `{"date":"1704100800"}`, "1704100800"},
		{"epoch number", `{"date":1704100800}`, "1704100800"},
		{"fractional epoch", `{"date":1704100800.5}`, "1704100800.5"},
		{"null", `{"date":null}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var post PostRecord
			require.NoError(t, json.Unmarshal([]byte(tt.input), &post))
			assert.Equal(t, tt.expected, post.Date)
		})
	}

	var post PostRecord
	assert.Error(t, json.Unmarshal([]byte(`{"date":true}`), &post))
}
