package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"
)

// DefaultEngagementThreshold is the engagement-per-follower ratio at which
// the engagement signal saturates (0.5%)
const DefaultEngagementThreshold = 1.0 / 200

// Weights are the contributions of each signal to the final suspicion score.
// A table must sum to 1.
type Weights struct {
	Burstiness float64 `json:"burstiness"`
	Temporal   float64 `json:"temporal"`
	Engagement float64 `json:"engagement"`
	Username   float64 `json:"username"`
	Name       float64 `json:"name"`
}

// Sum returns the total weight
func (w Weights) Sum() float64 {
	return w.Burstiness + w.Temporal + w.Engagement + w.Username + w.Name
}

// Config holds all runtime configuration parameters
type Config struct {
	Username            string   `json:"username"`
	MaxDepth            int      `json:"max_depth"`
	PostsLimit          *int     `json:"posts_limit"`
	RequestTimeoutMs    int      `json:"request_timeout_ms"`
	KeysPath            string   `json:"keys_path"`
	DBPath              string   `json:"db_path"`
	MetricsPath         string   `json:"metrics_path"`
	GraphPath           string   `json:"graph_path"`
	ApifyBaseURL        string   `json:"apify_base_url"`
	ProfileActor        string   `json:"profile_actor"`
	PostsActor          string   `json:"posts_actor"`
	SuspiciousCalc      bool     `json:"suspicious_calc"`
	NoCache             bool     `json:"no_cache"`
	EngagementThreshold float64  `json:"engagement_threshold"`
	WeightsWithSignal   *Weights `json:"weights_with_signal,omitempty"`
	WeightsNoSignal     *Weights `json:"weights_without_signal,omitempty"`
}

// LoadConfig reads configuration from a JSON file and applies defaults
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Apply defaults for missing values
	ApplyDefaults(&cfg)

	return &cfg, nil
}

// LoadConfigOrDefault is LoadConfig, except that a missing file yields the defaults.
// Validation is left to the caller so command-line overrides can be applied first.
func LoadConfigOrDefault(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = &Config{}
		ApplyDefaults(cfg)
		return cfg, nil
	}
	return cfg, err
}

// ApplyDefaults sets default values for unspecified fields
func ApplyDefaults(cfg *Config) {
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = 2
	}
	if cfg.PostsLimit == nil {
		limit := 3
		cfg.PostsLimit = &limit
	}
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = 120000
	}
	if cfg.KeysPath == "" {
		cfg.KeysPath = "keys.env"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "fair.db"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "metrics.log"
	}
	if cfg.GraphPath == "" {
		cfg.GraphPath = "graph.json"
	}
	if cfg.ApifyBaseURL == "" {
		cfg.ApifyBaseURL = "https://api.apify.com"
	}
	if cfg.ProfileActor == "" {
		cfg.ProfileActor = "apify~instagram-scraper"
	}
	if cfg.PostsActor == "" {
		cfg.PostsActor = "nH2AHrwxeTRJoN5hX"
	}
	if cfg.EngagementThreshold == 0 {
		cfg.EngagementThreshold = DefaultEngagementThreshold
	}
}

// Validate checks that required fields are present and values are sensible
func Validate(cfg *Config) error {
	if cfg.Username == "" {
		return fmt.Errorf("username is required")
	}
	if cfg.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be >= 1")
	}
	if cfg.PostsLimit == nil || *cfg.PostsLimit < 0 {
		return fmt.Errorf("posts_limit must be >= 0")
	}
	if cfg.RequestTimeoutMs < 1000 {
		return fmt.Errorf("request_timeout_ms must be >= 1000")
	}
	if cfg.EngagementThreshold <= 0 {
		return fmt.Errorf("engagement_threshold must be > 0")
	}
	if err := validateWeights("weights_with_signal", cfg.WeightsWithSignal); err != nil {
		return err
	}
	if err := validateWeights("weights_without_signal", cfg.WeightsNoSignal); err != nil {
		return err
	}
	return nil
}

// Posts returns the number of posts inspected per account
func (c *Config) Posts() int {
	if c.PostsLimit == nil {
		return 0
	}
	return *c.PostsLimit
}

// RequestTimeout returns the per-attempt timeout
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

func validateWeights(name string, w *Weights) error {
	if w == nil {
		return nil
	}
	for _, v := range []float64{w.Burstiness, w.Temporal, w.Engagement, w.Username, w.Name} {
		if v < 0 {
			return fmt.Errorf("%s must not contain negative weights", name)
		}
	}
	if math.Abs(w.Sum()-1) > 1e-9 {
		return fmt.Errorf("%s must sum to 1, got %v", name, w.Sum())
	}
	return nil
}
