package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alvmarrod/fair/internal/memory"
	"github.com/alvmarrod/fair/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"username":"from_file","max_depth":3,"posts_limit":5}`), 0644))

	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--config", path, "-u", "from_flag", "--posts", "0", "--suspicious-calc"}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "from_flag", cfg.Username)
	assert.Equal(t, 3, cfg.MaxDepth, "unset flags keep the file value")
	assert.Equal(t, 0, cfg.Posts())
	assert.True(t, cfg.SuspiciousCalc)
	assert.False(t, cfg.NoCache)
}

func TestLoadConfigWithoutFile(t *testing.T) {
	cmd := newRootCmd()
	missing := filepath.Join(t.TempDir(), "missing.json")

	require.NoError(t, cmd.Flags().Parse([]string{"--config", missing}))
	_, err := loadConfig(cmd)
	assert.Error(t, err, "username is required")

	cmd = newRootCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--config", missing, "--username", "target", "--depth", "4"}))
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxDepth)
	assert.Equal(t, 3, cfg.Posts())
}

func TestLoadConfigRejectsInvalidFlags(t *testing.T) {
	cmd := newRootCmd()
	missing := filepath.Join(t.TempDir(), "missing.json")
	require.NoError(t, cmd.Flags().Parse([]string{"--config", missing, "-u", "target", "--depth", "0"}))

	_, err := loadConfig(cmd)
	assert.Error(t, err)
}

// writeExportConfig points db_path and graph_path into dir
func writeExportConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	body := fmt.Sprintf(`{"username":"A","db_path":%q,"graph_path":%q}`,
		filepath.Join(dir, "fair.db"), filepath.Join(dir, "graph.json"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestExportFromStoredGraph(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeExportConfig(t, dir)

	store, err := storage.NewStorage(filepath.Join(dir, "fair.db"))
	require.NoError(t, err)
	require.NoError(t, store.SaveGraph(
		[]storage.Node{
			{Username: "A", Count: 2, FullName: "Full A", Followers: 10, Following: 5},
			{Username: "B", Count: 1, FullName: "B"},
		},
		[]storage.Edge{{Source: "A", Target: "B"}},
		true,
	))
	require.NoError(t, store.SaveProfile(&storage.ProfileRecord{
		Username:        "B",
		AccountType:     storage.AccountPublic,
		LatestPosts:     []storage.PostRecord{},
		SuspiciousScore: &storage.ScoreBreakdown{FinalScore: 0.75},
	}))
	require.NoError(t, store.Close())

	out := filepath.Join(dir, "rebuilt.json")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"export", "--config", cfgPath, "--output", out})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc memory.NodeLinkGraph
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.True(t, doc.Directed)
	assert.Equal(t, "A", doc.MainUser)
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, "A", doc.Nodes[0].ID)
	assert.Equal(t, 2, doc.Nodes[0].Count)
	assert.Equal(t, []string{"B"}, doc.Nodes[0].Successors)
	assert.Nil(t, doc.Nodes[0].FinalScore)
	require.NotNil(t, doc.Nodes[1].FinalScore)
	assert.InDelta(t, 0.75, *doc.Nodes[1].FinalScore, 1e-12)
	assert.Equal(t, []memory.NodeLinkEdge{{Source: "A", Target: "B"}}, doc.Links)

	_, err = os.Stat(filepath.Join(dir, "graph.json"))
	assert.True(t, os.IsNotExist(err), "--output overrides graph_path")
}

func TestExportWithoutStoredGraph(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeExportConfig(t, dir)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"export", "--config", cfgPath})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stored graph")

	_, err = os.Stat(filepath.Join(dir, "graph.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestExportRequiresUsername(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"export", "--config", missing})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username is required")
}
