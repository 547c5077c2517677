package source

import (
	"sort"

	"github.com/alvmarrod/fair/internal/storage"
)

// ToProfileRecord maps a source profile onto a cache record (without posts)
func ToProfileRecord(d *ProfileDetails) *storage.ProfileRecord {
	if d == nil {
		return nil
	}

	accountType := storage.AccountPublic
	if d.Private {
		accountType = storage.AccountPrivate
	}

	return &storage.ProfileRecord{
		Username:    d.Username,
		FullName:    d.FullName,
		Biography:   d.Biography,
		AccountType: accountType,
		Followers:   nonNegative(d.FollowersCount),
		Following:   nonNegative(d.FollowsCount),
		Posts:       nonNegative(d.PostsCount),
	}
}

// ToPostRecords maps source posts onto cache records, preserving order.
// The result is never nil so that "loaded, but empty" stays distinguishable.
func ToPostRecords(posts []PostDetails) []storage.PostRecord {
	records := make([]storage.PostRecord, 0, len(posts))
	for _, p := range posts {
		tagged := make([]string, 0, len(p.TaggedUsers))
		for _, tag := range p.TaggedUsers {
			tagged = append(tagged, tag.Username)
		}

		mentions := make([]string, 0, len(p.Mentions))
		mentions = append(mentions, p.Mentions...)

		records = append(records, storage.PostRecord{
			PostID:       p.ID,
			Date:         p.Timestamp,
			Location:     p.LocationName,
			Mentions:     mentions,
			TaggedUsers:  tagged,
			Commenters:   commenters(p.LatestComments),
			Likes:        nonNegative(p.LikesCount),
			CommentCount: len(p.LatestComments),
		})
	}
	return records
}

// commenters returns the sorted set of non-empty comment owners
func commenters(comments []Comment) []string {
	seen := make(map[string]bool)
	owners := []string{}
	for _, c := range comments {
		if c.OwnerUsername == "" || seen[c.OwnerUsername] {
			continue
		}
		seen[c.OwnerUsername] = true
		owners = append(owners, c.OwnerUsername)
	}
	sort.Strings(owners)
	return owners
}

// The source reports -1 for hidden counters.
func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
