package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Storage handles all database operations for the profile cache and the interaction graph
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	// Initialize schema
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		username TEXT PRIMARY KEY,
		full_name TEXT NOT NULL DEFAULT '',
		biography TEXT NOT NULL DEFAULT '',
		account_type TEXT NOT NULL DEFAULT 'Public',
		followers INTEGER DEFAULT 0,
		following INTEGER DEFAULT 0,
		posts INTEGER DEFAULT 0,
		posts_loaded INTEGER DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS posts (
		username TEXT NOT NULL,
		position INTEGER NOT NULL,
		post_id TEXT,
		date TEXT,
		location TEXT,
		mentions TEXT,
		tagged_users TEXT,
		commenters TEXT,
		likes INTEGER DEFAULT 0,
		comment_count INTEGER DEFAULT 0,
		FOREIGN KEY (username) REFERENCES profiles(username),
		PRIMARY KEY (username, position)
	);

	CREATE TABLE IF NOT EXISTS scores (
		username TEXT PRIMARY KEY,
		temporal_entropy REAL,
		name_entropy REAL,
		username_entropy REAL,
		burstiness REAL,
		engagement_score REAL,
		final_score REAL,
		FOREIGN KEY (username) REFERENCES profiles(username)
	);

	CREATE TABLE IF NOT EXISTS nodes (
		username TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		count INTEGER DEFAULT 1,
		full_name TEXT,
		followers INTEGER DEFAULT 0,
		following INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS edges (
		position INTEGER NOT NULL,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		FOREIGN KEY (source) REFERENCES nodes(username),
		FOREIGN KEY (target) REFERENCES nodes(username),
		UNIQUE(source, target)
	);

	CREATE TABLE IF NOT EXISTS graph_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		directed INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source);
	CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveProfile inserts or replaces a profile together with its posts and score
func (s *Storage) SaveProfile(p *ProfileRecord) error {
	if p == nil || p.Username == "" {
		return fmt.Errorf("failed to save profile: missing username")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO profiles (username, full_name, biography, account_type, followers, following, posts, posts_loaded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			biography = EXCLUDED.biography,
			account_type = EXCLUDED.account_type,
			followers = EXCLUDED.followers,
			following = EXCLUDED.following,
			posts = EXCLUDED.posts,
			posts_loaded = EXCLUDED.posts_loaded,
			updated_at = CURRENT_TIMESTAMP
	`, p.Username, p.FullName, p.Biography, p.AccountType, p.Followers, p.Following, p.Posts, p.HasPostData())
	if err != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", p.Username, err)
	}

	if _, err := tx.Exec("DELETE FROM posts WHERE username = ?", p.Username); err != nil {
		return fmt.Errorf("failed to clear posts for %s: %w", p.Username, err)
	}

	for i, post := range p.LatestPosts {
		mentions, err := encodeList(post.Mentions)
		if err != nil {
			return err
		}
		tagged, err := encodeList(post.TaggedUsers)
		if err != nil {
			return err
		}
		commenters, err := encodeList(post.Commenters)
		if err != nil {
			return err
		}

		_, err = tx.Exec(`
			INSERT INTO posts (username, position, post_id, date, location, mentions, tagged_users, commenters, likes, comment_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, p.Username, i, post.PostID, string(post.Date), post.Location, mentions, tagged, commenters, post.Likes, post.CommentCount)
		if err != nil {
			return fmt.Errorf("failed to insert post %d for %s: %w", i, p.Username, err)
		}
	}

	if p.SuspiciousScore == nil {
		if _, err := tx.Exec("DELETE FROM scores WHERE username = ?", p.Username); err != nil {
			return fmt.Errorf("failed to clear score for %s: %w", p.Username, err)
		}
	} else {
		sc := p.SuspiciousScore
		_, err = tx.Exec(`
			INSERT INTO scores (username, temporal_entropy, name_entropy, username_entropy, burstiness, engagement_score, final_score)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(username) DO UPDATE SET
				temporal_entropy = EXCLUDED.temporal_entropy,
				name_entropy = EXCLUDED.name_entropy,
				username_entropy = EXCLUDED.username_entropy,
				burstiness = EXCLUDED.burstiness,
				engagement_score = EXCLUDED.engagement_score,
				final_score = EXCLUDED.final_score
		`, p.Username, sc.TemporalEntropy, sc.NameEntropy, sc.UsernameEntropy, sc.Burstiness, sc.EngagementScore, sc.FinalScore)
		if err != nil {
			return fmt.Errorf("failed to upsert score for %s: %w", p.Username, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile %s: %w", p.Username, err)
	}
	return nil
}

// LoadProfiles returns every cached profile in insertion order
func (s *Storage) LoadProfiles() ([]*ProfileRecord, error) {
	rows, err := s.db.Query(`
		SELECT p.username, p.full_name, p.biography, p.account_type, p.followers, p.following, p.posts, p.posts_loaded,
			sc.temporal_entropy, sc.name_entropy, sc.username_entropy, sc.burstiness, sc.engagement_score, sc.final_score
		FROM profiles p
		LEFT JOIN scores sc ON sc.username = p.username
		ORDER BY p.rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*ProfileRecord
	byName := make(map[string]*ProfileRecord)
	for rows.Next() {
		var p ProfileRecord
		var postsLoaded bool
		var temporal, nameEnt, userEnt, burst, engage, final sql.NullFloat64
		if err := rows.Scan(&p.Username, &p.FullName, &p.Biography, &p.AccountType, &p.Followers, &p.Following, &p.Posts, &postsLoaded,
			&temporal, &nameEnt, &userEnt, &burst, &engage, &final); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		if postsLoaded {
			p.LatestPosts = []PostRecord{}
		}
		if final.Valid {
			p.SuspiciousScore = &ScoreBreakdown{
				TemporalEntropy: temporal.Float64,
				NameEntropy:     nameEnt.Float64,
				UsernameEntropy: userEnt.Float64,
				Burstiness:      burst.Float64,
				EngagementScore: engage.Float64,
				FinalScore:      final.Float64,
			}
		}
		profiles = append(profiles, &p)
		byName[p.Username] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	if err := s.loadPosts(byName); err != nil {
		return nil, err
	}

	return profiles, nil
}

// loadPosts attaches stored posts to the given profiles
func (s *Storage) loadPosts(byName map[string]*ProfileRecord) error {
	rows, err := s.db.Query(`
		SELECT username, post_id, date, location, mentions, tagged_users, commenters, likes, comment_count
		FROM posts
		ORDER BY username ASC, position ASC
	`)
	if err != nil {
		return fmt.Errorf("failed to load posts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var username, date, mentions, tagged, commenters string
		var post PostRecord
		if err := rows.Scan(&username, &post.PostID, &date, &post.Location, &mentions, &tagged, &commenters, &post.Likes, &post.CommentCount); err != nil {
			return fmt.Errorf("failed to scan post: %w", err)
		}
		post.Date = PostDate(date)
		if post.Mentions, err = decodeList(mentions); err != nil {
			return err
		}
		if post.TaggedUsers, err = decodeList(tagged); err != nil {
			return err
		}
		if post.Commenters, err = decodeList(commenters); err != nil {
			return err
		}

		profile, ok := byName[username]
		if !ok {
			continue
		}
		profile.LatestPosts = append(profile.LatestPosts, post)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating posts: %w", err)
	}
	return nil
}

// DeleteProfiles removes every cached profile, post and score
func (s *Storage) DeleteProfiles() error {
	_, err := s.db.Exec(`
		DELETE FROM scores;
		DELETE FROM posts;
		DELETE FROM profiles;
	`)
	if err != nil {
		return fmt.Errorf("failed to delete profiles: %w", err)
	}
	return nil
}

// SaveGraph replaces the persisted graph with the given nodes and edges
func (s *Storage) SaveGraph(nodes []Node, edges []Edge, directed bool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM edges; DELETE FROM nodes;"); err != nil {
		return fmt.Errorf("failed to clear graph: %w", err)
	}

	for i, n := range nodes {
		_, err := tx.Exec(`
			INSERT INTO nodes (username, position, count, full_name, followers, following)
			VALUES (?, ?, ?, ?, ?, ?)
		`, n.Username, i, n.Count, n.FullName, n.Followers, n.Following)
		if err != nil {
			return fmt.Errorf("failed to insert node %s: %w", n.Username, err)
		}
	}

	for i, e := range edges {
		_, err := tx.Exec(`
			INSERT INTO edges (position, source, target)
			VALUES (?, ?, ?)
			ON CONFLICT(source, target) DO NOTHING
		`, i, e.Source, e.Target)
		if err != nil {
			return fmt.Errorf("failed to insert edge %s -> %s: %w", e.Source, e.Target, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO graph_meta (id, directed) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET directed = EXCLUDED.directed
	`, directed)
	if err != nil {
		return fmt.Errorf("failed to save graph metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit graph: %w", err)
	}
	return nil
}

// LoadGraph returns the persisted nodes and edges in their saved order.
// A store that never saved a graph reports an empty directed graph.
func (s *Storage) LoadGraph() ([]Node, []Edge, bool, error) {
	directed := true
	err := s.db.QueryRow("SELECT directed FROM graph_meta WHERE id = 1").Scan(&directed)
	if err != nil && err != sql.ErrNoRows {
		return nil, nil, false, fmt.Errorf("failed to load graph metadata: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT username, count, full_name, followers, following
		FROM nodes
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to load nodes: %w", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.Username, &n.Count, &n.FullName, &n.Followers, &n.Following); err != nil {
			return nil, nil, false, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, false, fmt.Errorf("error iterating nodes: %w", err)
	}

	edgeRows, err := s.db.Query("SELECT source, target FROM edges ORDER BY position ASC")
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to load edges: %w", err)
	}
	defer edgeRows.Close()

	var edges []Edge
	for edgeRows.Next() {
		var e Edge
		if err := edgeRows.Scan(&e.Source, &e.Target); err != nil {
			return nil, nil, false, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, nil, false, fmt.Errorf("error iterating edges: %w", err)
	}

	return nodes, edges, directed, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// encodeList serializes a username list as JSON text
func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(data), nil
}

// decodeList parses a JSON username list, always returning a non-nil slice
func decodeList(raw string) ([]string, error) {
	values := []string{}
	if raw == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}
