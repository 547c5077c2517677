// Package source retrieves account profiles and their latest posts from the
// remote scraping service and normalizes them into cache records.
//
// The package owns no retry or rate-limit policy. Callers walk the
// credential pool with TryInOrder, which gives each credential exactly one
// attempt and stops at the first success.
package source

import (
	"context"
	"errors"

	"github.com/alvmarrod/fair/internal/storage"
)

var (
	// ErrSourceUnavailable marks a failed request for one credential
	ErrSourceUnavailable = errors.New("profile source unavailable")
	// ErrProfileNotFound is returned when the source has no data for a username
	ErrProfileNotFound = errors.New("profile not found")
)

// Credential is one entry of the pooled API tokens
type Credential struct {
	Name  string
	Token string
}

// String never exposes the token.
func (c Credential) String() string {
	return c.Name
}

// ProfileSource fetches raw account data
type ProfileSource interface {
	FetchProfile(ctx context.Context, username string, cred Credential) (*ProfileDetails, error)
	FetchPosts(ctx context.Context, username string, cred Credential, limit int) ([]PostDetails, error)
}

// ProfileDetails is the profile payload reported by the source
type ProfileDetails struct {
	FullName       string `json:"fullName"`
	Username       string `json:"username"`
	Biography      string `json:"biography"`
	Private        bool   `json:"private"`
	FollowersCount int    `json:"followersCount"`
	FollowsCount   int    `json:"followsCount"`
	PostsCount     int    `json:"postsCount"`
	Error          string `json:"error,omitempty"`
}

// PostDetails is a single post payload reported by the source
type PostDetails struct {
	ID             string           `json:"id"`
	Timestamp      storage.PostDate `json:"timestamp"`
	LocationName   string           `json:"locationName"`
	Mentions       []string         `json:"mentions"`
	TaggedUsers    []TaggedUser     `json:"taggedUsers"`
	LatestComments []Comment        `json:"latestComments"`
	LikesCount     int              `json:"likesCount"`
	Error          string           `json:"error,omitempty"`
}

// TaggedUser is an account tagged in a post
type TaggedUser struct {
	Username string `json:"username"`
}

// Comment is one of the latest comments on a post
type Comment struct {
	OwnerUsername string `json:"ownerUsername"`
}
