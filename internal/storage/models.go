package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Account visibility values for ProfileRecord.AccountType
const (
	AccountPublic  = "Public"
	AccountPrivate = "Private"
)

// ProfileRecord is the cached view of a resolved account
type ProfileRecord struct {
	Username        string          `json:"username"`
	FullName        string          `json:"full_name"`
	Biography       string          `json:"biography"`
	AccountType     string          `json:"account_type"`
	Followers       int             `json:"followers"`
	Following       int             `json:"following"`
	Posts           int             `json:"posts"`
	LatestPosts     []PostRecord    `json:"latest_posts"`
	SuspiciousScore *ScoreBreakdown `json:"suspicious_score,omitempty"`
}

// IsPrivate reports whether the account hides its posts
func (p *ProfileRecord) IsPrivate() bool {
	return p.AccountType == AccountPrivate
}

// HasPostData reports whether posts were loaded for this profile (possibly zero of them)
func (p *ProfileRecord) HasPostData() bool {
	return p.LatestPosts != nil
}

// PostRecord is a single inspected post of a profile
type PostRecord struct {
	PostID       string   `json:"post_id"`
	Date         PostDate `json:"date"`
	Location     string   `json:"location"`
	Mentions     []string `json:"mentions"`
	TaggedUsers  []string `json:"tagged_users"`
	Commenters   []string `json:"commenters"`
	Likes        int      `json:"likes"`
	CommentCount int      `json:"comment_count"`
}

// PostDate keeps the raw date of a post. The source reports either an
// ISO-8601 string or a numeric epoch; interpretation is left to the scorer.
type PostDate string

// UnmarshalJSON accepts a JSON string, a JSON number or null
func (d *PostDate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to decode post date: %w", err)
		}
		*d = PostDate(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("post date must be a string or number: %w", err)
	}
	*d = PostDate(n.String())
	return nil
}

// ScoreBreakdown holds the individual signals and the composite suspicion score
type ScoreBreakdown struct {
	TemporalEntropy float64 `json:"temporal_entropy"`
	NameEntropy     float64 `json:"name_entropy"`
	UsernameEntropy float64 `json:"username_entropy"`
	Burstiness      float64 `json:"burstiness"`
	EngagementScore float64 `json:"engagement_score"`
	FinalScore      float64 `json:"final_score"`
}

// Node represents an account in the interaction graph
type Node struct {
	Username  string `json:"username"`
	Count     int    `json:"count"`
	FullName  string `json:"full_name"`
	Followers int    `json:"followers"`
	Following int    `json:"following"`
}

// Edge represents a directed interaction between two accounts
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// WorkItem represents a pending (username, depth) visit of the exploration
type WorkItem struct {
	Username string
	Depth    int
}

// Metrics tracks run statistics for export on exit
type Metrics struct {
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	MainUser          string    `json:"main_user"`
	ProfilesExplored  int       `json:"profiles_explored"`
	ProfilesResolved  int       `json:"profiles_resolved"`
	ProfilesCached    int       `json:"profiles_cached"`
	AttemptsFailed    int       `json:"attempts_failed"`
	NodesDiscovered   int       `json:"nodes_discovered"`
	EdgesRecorded     int       `json:"edges_recorded"`
	NodesScored       int       `json:"nodes_scored"`
	TotalFetchTimeMs  int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64     `json:"avg_fetch_time_ms"`
	TerminationReason string    `json:"termination_reason"`
}
