// Package graph implements the embedded graph store holding travel entities
// and their relationships, plus the context fetcher used to ground chat
// answers.
package graph

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hybridchat/src/model"

	"github.com/bytedance/sonic"
	_ "modernc.org/sqlite"
)

const (
	// maxFactRows caps the rows scanned per fetch.
	maxFactRows = 100
	// maxFacts caps the facts returned to the prompt builder.
	maxFacts = 50
	// maxDescRunes truncates neighbor descriptions.
	maxDescRunes = 400

	defaultRelType = "RELATED_TO"
)

// Store is one connection pool to the graph database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the graph database at path.
func Open(path string, poolSize int) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph store: %w", err)
	}
	if poolSize > 0 {
		db.SetMaxOpenConns(poolSize)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return &Store{db: db}, nil
}

// EnsureSchema creates the node and edge tables and their indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL DEFAULT '',
			type        TEXT NOT NULL DEFAULT '',
			city        TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			tags        TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS edges (
			source_id TEXT NOT NULL,
			rel_type  TEXT NOT NULL,
			target_id TEXT NOT NULL,
			PRIMARY KEY (source_id, rel_type, target_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// UpsertNode merges a node by id.
func (s *Store) UpsertNode(ctx context.Context, node model.Node) error {
	if node.ID == "" {
		return fmt.Errorf("node id is required")
	}
	tags, err := sonic.Marshal(node.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	city := node.City
	if city == "" {
		city = node.Region
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, name, type, city, description, tags)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			city = excluded.city,
			description = excluded.description,
			tags = excluded.tags`,
		node.ID, node.Name, node.Type, city, node.Description, string(tags))
	if err != nil {
		return fmt.Errorf("failed to upsert node %s: %w", node.ID, err)
	}
	return nil
}

// CreateRelationship links source to the connection's target. Connections
// without a target are skipped; both endpoints must already exist.
func (s *Store) CreateRelationship(ctx context.Context, sourceID string, rel model.Connection) error {
	if rel.Target == "" {
		return nil
	}
	relType := rel.Relation
	if relType == "" {
		relType = defaultRelType
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO edges (source_id, rel_type, target_id)
		SELECT ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM nodes WHERE id = ?)
		  AND EXISTS (SELECT 1 FROM nodes WHERE id = ?)`,
		sourceID, relType, rel.Target, sourceID, rel.Target)
	if err != nil {
		return fmt.Errorf("failed to create relationship %s-[%s]->%s: %w", sourceID, relType, rel.Target, err)
	}
	return nil
}

// fetchQuery returns 1-hop neighbors of a seed node together with their own
// neighbors (2-hop), treating edges as undirected. The seed itself is
// excluded from the 2-hop column.
const fetchQuery = `
	SELECT e1.rel_type,
	       m.id, m.name, m.type, m.description,
	       e2.rel_type,
	       o.id, o.name, o.type, o.description
	FROM edges e1
	JOIN nodes m
	  ON m.id = CASE WHEN e1.source_id = ? THEN e1.target_id ELSE e1.source_id END
	LEFT JOIN edges e2
	  ON (e2.source_id = m.id OR e2.target_id = m.id)
	 AND CASE WHEN e2.source_id = m.id THEN e2.target_id ELSE e2.source_id END <> ?
	LEFT JOIN nodes o
	  ON o.id = CASE WHEN e2.source_id = m.id THEN e2.target_id ELSE e2.source_id END
	WHERE e1.source_id = ? OR e1.target_id = ?
	LIMIT ?`

// FetchContext returns 1- and 2-hop neighbor facts for the given node ids.
// The scan is capped at 100 rows and the result at 50 facts.
func (s *Store) FetchContext(ctx context.Context, nodeIDs []string) ([]model.GraphFact, error) {
	if len(nodeIDs) == 0 {
		return []model.GraphFact{}, nil
	}

	facts := make([]model.GraphFact, 0, maxFacts)
	budget := maxFactRows

	for _, nid := range nodeIDs {
		if budget <= 0 || len(facts) >= maxFacts {
			break
		}
		rows, err := s.db.QueryContext(ctx, fetchQuery, nid, nid, nid, nid, budget)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch graph context for %s: %w", nid, err)
		}

		for rows.Next() {
			budget--
			var rel, mID, mName, mType, mDesc string
			var rel2, oID, oName, oType, oDesc sql.NullString
			if err := rows.Scan(&rel, &mID, &mName, &mType, &mDesc,
				&rel2, &oID, &oName, &oType, &oDesc); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan graph row: %w", err)
			}

			facts = append(facts, model.GraphFact{
				Rel:        rel,
				TargetID:   mID,
				TargetName: mName,
				TargetDesc: truncate(mDesc, maxDescRunes),
				Labels:     labels(mType),
			})
			if rel2.Valid && oID.Valid {
				facts = append(facts, model.GraphFact{
					Source:     mID,
					Rel:        rel2.String,
					TargetID:   oID.String,
					TargetName: oName.String,
					TargetDesc: truncate(oDesc.String, maxDescRunes),
					Labels:     labels(oType.String),
				})
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to iterate graph rows: %w", err)
		}
		rows.Close()
	}

	if len(facts) > maxFacts {
		facts = facts[:maxFacts]
	}
	return facts, nil
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func labels(nodeType string) []string {
	nodeType = strings.TrimSpace(nodeType)
	if nodeType == "" {
		nodeType = "Unknown"
	}
	return []string{nodeType, "Entity"}
}
