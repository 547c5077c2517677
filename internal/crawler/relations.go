package crawler

import (
	"github.com/alvmarrod/fair/internal/storage"
)

// Relation kinds, in the order they are walked within a post
const (
	RelationMention   = "mention"
	RelationTag       = "tag"
	RelationCommenter = "commenter"
)

// relationKinds fixes the walk order: mentions, then tags, then commenters
var relationKinds = []string{RelationMention, RelationTag, RelationCommenter}

// relationsOf returns the usernames of one kind referenced by a post
func relationsOf(post storage.PostRecord, kind string) []string {
	switch kind {
	case RelationMention:
		return post.Mentions
	case RelationTag:
		return post.TaggedUsers
	case RelationCommenter:
		return post.Commenters
	}
	return nil
}

// Relations lists the accounts username interacted with, in traversal order:
// post order, then mentions -> tags -> commenters, then list order.
// Empty names and self references are skipped; repeats are kept because
// every reference counts towards the node's count.
func Relations(username string, posts []storage.PostRecord) []string {
	var related []string
	for _, post := range posts {
		for _, kind := range relationKinds {
			for _, other := range relationsOf(post, kind) {
				if other == "" || other == username {
					continue
				}
				related = append(related, other)
			}
		}
	}
	return related
}
