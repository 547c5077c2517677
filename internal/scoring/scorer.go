// Package scoring computes suspicion scores for accounts that hang off the
// investigated root as isolated leaves.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/alvmarrod/fair/internal/config"
	"github.com/alvmarrod/fair/internal/memory"
	"github.com/alvmarrod/fair/internal/stats"
	"github.com/alvmarrod/fair/internal/storage"
	"github.com/sirupsen/logrus"
)

// Scorer holds the weight tables and engagement threshold for a run
type Scorer struct {
	withSignal          config.Weights
	withoutSignal       config.Weights
	engagementThreshold float64
}

// NewScorer creates a scorer, taking weight overrides from cfg when present
func NewScorer(cfg *config.Config) *Scorer {
	s := &Scorer{
		withSignal:          WithSignal,
		withoutSignal:       WithoutSignal,
		engagementThreshold: config.DefaultEngagementThreshold,
	}
	if cfg == nil {
		return s
	}
	if cfg.WeightsWithSignal != nil {
		s.withSignal = *cfg.WeightsWithSignal
	}
	if cfg.WeightsNoSignal != nil {
		s.withoutSignal = *cfg.WeightsNoSignal
	}
	if cfg.EngagementThreshold > 0 {
		s.engagementThreshold = cfg.EngagementThreshold
	}
	return s
}

// IsEligible reports whether node is an isolated leaf of mainUser: its only
// connection is the edge mainUser -> node
func (s *Scorer) IsEligible(g *memory.InteractionGraph, node, mainUser string) bool {
	if node == mainUser {
		return false
	}
	return g.Degree(node) == 1 && g.HasEdge(mainUser, node)
}

// Score computes a breakdown for every eligible node with post data and
// stores it on the cached profile. It returns the scored usernames in graph
// order. The graph is only read.
func (s *Scorer) Score(g *memory.InteractionGraph, cache *memory.ProfileCache, mainUser string) ([]string, error) {
	logrus.Infof("Scoring isolated leaves of %s...", mainUser)

	var scored []string
	for _, node := range g.Nodes() {
		if !s.IsEligible(g, node.Username, mainUser) {
			continue
		}

		profile, ok := cache.Get(node.Username)
		if !ok || !profile.HasPostData() {
			logrus.Debugf("Skipping score for %s: no post data", node.Username)
			continue
		}

		breakdown := s.ComputeBreakdown(profile)
		profile.SuspiciousScore = &breakdown
		if err := cache.Put(profile); err != nil {
			return scored, fmt.Errorf("failed to store score for %s: %w", node.Username, err)
		}

		scored = append(scored, node.Username)
		logrus.Infof("Scored %s: final=%.3f (burstiness=%.3f, temporal=%.3f, engagement=%.3f)",
			node.Username, breakdown.FinalScore, breakdown.Burstiness, breakdown.TemporalEntropy, breakdown.EngagementScore)
	}

	logrus.Infof("Scoring complete: %d accounts scored", len(scored))
	return scored, nil
}

// ComputeBreakdown derives every signal of a profile and the composite score
func (s *Scorer) ComputeBreakdown(p *storage.ProfileRecord) storage.ScoreBreakdown {
	dates := make([]time.Time, 0, len(p.LatestPosts))
	totalInteractions := 0
	for _, post := range p.LatestPosts {
		if ts, err := ParsePostDate(post.Date); err == nil {
			dates = append(dates, ts)
		} else {
			logrus.Debugf("Post %s of %s: %v", post.PostID, p.Username, err)
		}
		// Unparsable dates still count towards engagement
		totalInteractions += post.Likes + post.CommentCount
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	postsAvailable := len(dates) > 0

	var temporal, burst float64
	if postsAvailable {
		temporal = stats.TemporalEntropy(dates)
		burst = stats.Burstiness(dates)
	}

	avgInteractions := 0.0
	if len(p.LatestPosts) > 0 {
		avgInteractions = float64(totalInteractions) / float64(len(p.LatestPosts))
	}

	nameEntropy := stats.Entropy(p.FullName)
	usernameEntropy := stats.Entropy(p.Username)

	engagementRatio := 0.0
	if p.Followers > 0 {
		engagementRatio = avgInteractions / float64(p.Followers)
	}
	engagement := math.Min(1, engagementRatio/s.engagementThreshold)

	usernameScore := 1 / (1 + usernameEntropy)
	nameScore := 1 / (1 + nameEntropy)

	signals := fuzzySignals{
		Engagement: stats.TransformBurstiness(engagement),
		Username:   stats.TransformBurstiness(usernameScore),
		Name:       stats.TransformBurstiness(nameScore),
	}

	weights := s.withoutSignal
	if postsAvailable {
		weights = s.withSignal
		signals.Burstiness = stats.TransformBurstiness(burst)
		signals.Temporal = stats.TransformBurstiness(1 / (1 + temporal/2))
	}

	return storage.ScoreBreakdown{
		TemporalEntropy: temporal,
		NameEntropy:     nameEntropy,
		UsernameEntropy: usernameEntropy,
		Burstiness:      burst,
		EngagementScore: engagement,
		FinalScore:      combine(weights, signals),
	}
}
