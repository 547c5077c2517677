package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alvmarrod/fair/internal/config"
	"github.com/alvmarrod/fair/internal/memory"
	"github.com/alvmarrod/fair/internal/source"
	"github.com/alvmarrod/fair/internal/storage"
	"github.com/sirupsen/logrus"
)

// Progress is a delta of exploration counters reported to the metrics callback
type Progress struct {
	Explored   int
	Discovered int
	Edges      int
	Resolved   int
	CacheHits  int
	Failed     int
	FetchTime  time.Duration
}

// Explorer orchestrates the depth-first exploration of interacting accounts
type Explorer struct {
	cfg             *config.Config
	source          source.ProfileSource
	credentials     []source.Credential
	graph           *memory.InteractionGraph
	cache           *memory.ProfileCache
	explored        *ExploredSet
	unresolved      *ExploredSet
	metricsCallback func(Progress)
}

// NewExplorer creates a new explorer over shared graph, cache and explored set.
// A nil explored set starts empty.
func NewExplorer(cfg *config.Config, src source.ProfileSource, creds []source.Credential,
	graph *memory.InteractionGraph, cache *memory.ProfileCache, explored *ExploredSet,
	metricsCallback func(Progress)) *Explorer {
	if explored == nil {
		explored = NewExploredSet()
	}
	return &Explorer{
		cfg:             cfg,
		source:          src,
		credentials:     creds,
		graph:           graph,
		cache:           cache,
		explored:        explored,
		unresolved:      NewExploredSet(),
		metricsCallback: metricsCallback,
	}
}

// Explored returns the set of usernames visited so far
func (e *Explorer) Explored() *ExploredSet {
	return e.explored
}

// Unresolved returns the usernames no credential could resolve
func (e *Explorer) Unresolved() []string {
	return e.unresolved.Members()
}

// Run explores from root (depth 1) until the work-list drains.
// Source failures never surface here; only cache persistence failures and
// context cancellation do. Graph and cache keep whatever was reached.
//
// A related account is resolved before its node and edge are recorded, so
// accounts no credential can resolve never enter the graph. Accounts first
// reached past max_depth are never fetched and never recorded; a reference
// past max_depth to an account already in the graph still adds the edge.
func (e *Explorer) Run(ctx context.Context, root string) error {
	logrus.Infof("Starting exploration from %s (max_depth=%d, posts=%d, credentials=%d)",
		root, e.cfg.MaxDepth, e.cfg.Posts(), len(e.credentials))

	stack := NewStack()
	rootItem := storage.WorkItem{Username: root, Depth: 1}
	if e.claim(rootItem) {
		profile, err := e.resolve(ctx, root)
		if err != nil {
			return e.interrupted(stack, err)
		}
		if profile != nil {
			e.expand(stack, rootItem, profile)
		}
	}

	for !stack.IsEmpty() {
		if err := ctx.Err(); err != nil {
			return e.interrupted(stack, err)
		}

		frame := stack.Peek()
		related, ok := frame.Next()
		if !ok {
			stack.Pop()
			continue
		}

		next := storage.WorkItem{Username: related, Depth: frame.Item.Depth + 1}
		if !e.claim(next) {
			// Past max_depth or already explored: only accounts already in
			// the graph get the interaction recorded
			if e.graph.HasNode(related) {
				e.handleRelation(frame.Item, related)
			}
			continue
		}

		profile, err := e.resolve(ctx, related)
		if err != nil {
			return e.interrupted(stack, err)
		}
		if profile == nil {
			continue
		}

		e.handleRelation(frame.Item, related)
		e.expand(stack, next, profile)
	}

	nodes, edges := e.graph.GetStats()
	logrus.Infof("Exploration complete: %d explored, %d unresolved, %d nodes, %d edges",
		e.explored.Len(), e.unresolved.Len(), nodes, edges)
	return nil
}

// claim marks item explored if it is within depth and not yet visited
func (e *Explorer) claim(item storage.WorkItem) bool {
	if item.Depth > e.cfg.MaxDepth || e.explored.Contains(item.Username) {
		return false
	}
	// Mark before resolving so a relation pointing back here is a no-op
	e.explored.Add(item.Username)
	e.report(Progress{Explored: 1})
	return true
}

// expand records a resolved account and pushes a frame if it has relations
func (e *Explorer) expand(stack *Stack, item storage.WorkItem, profile *storage.ProfileRecord) {
	if profile.IsPrivate() {
		logrus.Debugf("Skipping %s (depth=%d): private account", item.Username, item.Depth)
		return
	}

	created, err := e.graph.UpsertNode(item.Username, profile.FullName, profile.Followers, profile.Following)
	if err != nil {
		logrus.Warnf("Failed to upsert node %s: %v", item.Username, err)
		return
	}
	if created {
		e.report(Progress{Discovered: 1})
	}

	if len(profile.LatestPosts) == 0 {
		return
	}

	relations := Relations(item.Username, profile.LatestPosts)
	logrus.Infof("Expanding %s (depth=%d, posts=%d, relations=%d)", item.Username, item.Depth, len(profile.LatestPosts), len(relations))
	stack.Push(item, relations)
}

// handleRelation records that source interacted with related
func (e *Explorer) handleRelation(src storage.WorkItem, related string) {
	created, err := e.graph.UpsertNode(related, related, 0, 0)
	if err != nil {
		logrus.Warnf("Failed to upsert related node %s: %v", related, err)
		return
	}
	if created {
		e.report(Progress{Discovered: 1})
	}

	created, err = e.graph.UpsertEdge(src.Username, related)
	if err != nil {
		logrus.Warnf("Failed to upsert edge %s -> %s: %v", src.Username, related, err)
		return
	}
	if created {
		e.report(Progress{Edges: 1})
		logrus.Debugf("Edge: %s -> %s (depth %d->%d)", src.Username, related, src.Depth, src.Depth+1)
	}
}

// resolve returns the profile of username from the cache or the source.
// A nil profile with nil error means no credential could resolve it.
func (e *Explorer) resolve(ctx context.Context, username string) (*storage.ProfileRecord, error) {
	if profile, ok := e.cache.Get(username); ok {
		e.report(Progress{CacheHits: 1})
		return profile, nil
	}

	start := time.Now()
	profile, failures, err := source.TryInOrder(ctx, e.credentials, e.cfg.RequestTimeout(),
		func(ctx context.Context, cred source.Credential) (*storage.ProfileRecord, error) {
			return e.fetch(ctx, username, cred)
		})
	elapsed := time.Since(start)

	for _, f := range failures {
		logrus.Debugf("Credential %s failed for %s: %v", f.Candidate, username, f.Err)
	}
	e.report(Progress{Failed: len(failures), FetchTime: elapsed})

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !errors.Is(err, source.ErrPoolExhausted) {
			logrus.Debugf("Unexpected resolution error for %s: %v", username, err)
		}
		e.unresolved.Add(username)
		logrus.Debugf("Skipping %s: profile unresolved", username)
		return nil, nil
	}

	// Persist before expanding so cycles met deeper see durable state
	if err := e.cache.Put(profile); err != nil {
		return nil, fmt.Errorf("failed to cache profile %s: %w", username, err)
	}
	e.report(Progress{Resolved: 1})

	return profile, nil
}

// fetch resolves a profile and its posts with a single credential
func (e *Explorer) fetch(ctx context.Context, username string, cred source.Credential) (*storage.ProfileRecord, error) {
	details, err := e.source.FetchProfile(ctx, username, cred)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, fmt.Errorf("%w: %s", source.ErrProfileNotFound, username)
	}

	posts, err := e.source.FetchPosts(ctx, username, cred, e.cfg.Posts())
	if err != nil {
		return nil, err
	}

	profile := source.ToProfileRecord(details)
	// Cache key and record must agree even if the source reports another spelling
	profile.Username = username
	profile.LatestPosts = source.ToPostRecords(posts)
	return profile, nil
}

func (e *Explorer) interrupted(stack *Stack, err error) error {
	pending := stack.GetAllEntries()
	logrus.Warnf("Exploration interrupted with %d frames pending: %v", len(pending), err)
	return err
}

func (e *Explorer) report(p Progress) {
	if e.metricsCallback != nil {
		e.metricsCallback(p)
	}
}
