package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alvmarrod/fair/internal/storage"
)

// Tracker holds and manages run metrics
type Tracker struct {
	mu               sync.Mutex
	data             storage.Metrics
	totalFetchTimeMs int64
	fetchCount       int
}

// NewTracker creates a new metrics tracker for a run rooted at mainUser
func NewTracker(mainUser string) *Tracker {
	return &Tracker{
		data: storage.Metrics{
			StartTime: time.Now(),
			MainUser:  mainUser,
		},
	}
}

// AddProfilesExplored adds n usernames taken off the work-list
func (t *Tracker) AddProfilesExplored(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ProfilesExplored += n
}

// AddProfilesResolved adds n profiles fetched from the source
func (t *Tracker) AddProfilesResolved(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ProfilesResolved += n
}

// AddProfilesCached adds n profiles served from the cache
func (t *Tracker) AddProfilesCached(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ProfilesCached += n
}

// AddAttemptsFailed adds n failed credential attempts
func (t *Tracker) AddAttemptsFailed(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.AttemptsFailed += n
}

// AddNodesDiscovered adds n graph nodes created
func (t *Tracker) AddNodesDiscovered(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.NodesDiscovered += n
}

// AddEdgesRecorded adds n graph edges created
func (t *Tracker) AddEdgesRecorded(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.EdgesRecorded += n
}

// SetNodesScored records how many nodes received a suspicion score
func (t *Tracker) SetNodesScored(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.NodesScored = n
}

// RecordFetchTime records the duration of one source resolution
func (t *Tracker) RecordFetchTime(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalFetchTimeMs += duration.Milliseconds()
	t.fetchCount++
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.data
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs

	// Calculate average fetch time
	if t.fetchCount > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}

	return snapshot
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Finalize metrics
	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason
	t.data.TotalFetchTimeMs = t.totalFetchTimeMs
	if t.fetchCount > 0 {
		t.data.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}

	jsonData, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress formats current metrics for periodic console updates
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Profiles: %d explored, %d resolved, %d cached | Attempts failed: %d | Nodes: %d | Edges: %d | Scored: %d",
		t.data.ProfilesExplored,
		t.data.ProfilesResolved,
		t.data.ProfilesCached,
		t.data.AttemptsFailed,
		t.data.NodesDiscovered,
		t.data.EdgesRecorded,
		t.data.NodesScored,
	)
}
