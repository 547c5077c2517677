package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// Default Apify endpoints and actors
const (
	DefaultApifyBaseURL = "https://api.apify.com"
	DefaultProfileActor = "apify~instagram-scraper"
	DefaultPostsActor   = "nH2AHrwxeTRJoN5hX"
)

// ApifyConfig configures the Apify-backed profile source
type ApifyConfig struct {
	BaseURL        string
	ProfileActor   string
	PostsActor     string
	RequestTimeout time.Duration
	UserAgent      string
}

// ApifyClient runs the Instagram scraper actors synchronously and reads
// their dataset items. It implements ProfileSource.
type ApifyClient struct {
	cfg       ApifyConfig
	collector *colly.Collector
}

// NewApifyClient creates a client; empty config fields fall back to the defaults
func NewApifyClient(cfg ApifyConfig) *ApifyClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultApifyBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ProfileActor == "" {
		cfg.ProfileActor = DefaultProfileActor
	}
	if cfg.PostsActor == "" {
		cfg.PostsActor = DefaultPostsActor
	}

	collector := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.MaxDepth(0),
	)
	if cfg.RequestTimeout > 0 {
		collector.SetRequestTimeout(cfg.RequestTimeout)
	}
	if cfg.UserAgent != "" {
		collector.UserAgent = cfg.UserAgent
	}

	return &ApifyClient{cfg: cfg, collector: collector}
}

// FetchProfile returns the profile details of username
func (a *ApifyClient) FetchProfile(ctx context.Context, username string, cred Credential) (*ProfileDetails, error) {
	input := map[string]any{
		"directUrls":  []string{fmt.Sprintf("https://www.instagram.com/%s/", username)},
		"resultsType": "details",
	}

	body, err := a.runActor(ctx, a.cfg.ProfileActor, cred, input)
	if err != nil {
		return nil, err
	}

	var items []ProfileDetails
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: failed to decode profile of %s: %v", ErrSourceUnavailable, username, err)
	}
	if len(items) == 0 || items[0].Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, username)
	}

	return &items[0], nil
}

// FetchPosts returns at most limit latest posts of username, in source order
func (a *ApifyClient) FetchPosts(ctx context.Context, username string, cred Credential, limit int) ([]PostDetails, error) {
	if limit <= 0 {
		return []PostDetails{}, nil
	}

	input := map[string]any{
		"username":     []string{username},
		"resultsLimit": limit,
	}

	body, err := a.runActor(ctx, a.cfg.PostsActor, cred, input)
	if err != nil {
		return nil, err
	}

	var items []PostDetails
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: failed to decode posts of %s: %v", ErrSourceUnavailable, username, err)
	}

	posts := make([]PostDetails, 0, limit)
	for _, item := range items {
		if item.Error != "" {
			continue
		}
		posts = append(posts, item)
		if len(posts) >= limit {
			break
		}
	}
	return posts, nil
}

// runActor starts actor synchronously and returns the raw dataset items
func (a *ApifyClient) runActor(ctx context.Context, actor string, cred Credential, input any) ([]byte, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode actor input: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items", a.cfg.BaseURL, url.PathEscape(actor))

	// One clone per call keeps callbacks and context scoped to this request
	c := a.collector.Clone()
	c.Context = ctx

	var body []byte
	var fetchErr error
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = fmt.Errorf("%w: actor %s via %s returned status %d: %v", ErrSourceUnavailable, actor, cred, status, err)
	})

	hdr := http.Header{}
	hdr.Set("Content-Type", "application/json")
	hdr.Set("Accept", "application/json")
	hdr.Set("Authorization", "Bearer "+cred.Token)

	start := time.Now()
	err = c.Request(http.MethodPost, endpoint, bytes.NewReader(payload), nil, hdr)
	logrus.Debugf("Actor %s via %s finished in %v", actor, cred, time.Since(start))

	if fetchErr != nil {
		return nil, fetchErr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: actor %s via %s: %v", ErrSourceUnavailable, actor, cred, err)
	}
	if body == nil {
		return nil, fmt.Errorf("%w: actor %s via %s returned no body", ErrSourceUnavailable, actor, cred)
	}

	return body, nil
}
