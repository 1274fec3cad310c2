package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/mymy770/Clara/internal/logging"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS memory_items (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	kind       TEXT NOT NULL,
	content    TEXT NOT NULL,
	tags       TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memory_items_kind ON memory_items(kind);
CREATE INDEX IF NOT EXISTS idx_memory_items_id ON memory_items(id DESC);

CREATE TABLE IF NOT EXISTS preferences (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	scope      TEXT NOT NULL DEFAULT 'global',
	agent      TEXT,
	domain     TEXT,
	key        TEXT NOT NULL UNIQUE,
	value      TEXT NOT NULL,
	source     TEXT NOT NULL DEFAULT 'user',
	confidence REAL NOT NULL DEFAULT 1.0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// SQLiteStore implements Store using a SQLite database file. It is the
// default backend; the pure-Go driver keeps the build cgo-free.
type SQLiteStore struct {
	dbPath string
	tagger Tagger
	logger *logging.Logger

	mu sync.RWMutex // guards db, which is swapped on hard reset
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at dbPath and applies the
// schema. A nil tagger falls back to GenerateTags.
func NewSQLiteStore(dbPath string, tagger Tagger) (*SQLiteStore, error) {
	if tagger == nil {
		tagger = GenerateTags
	}
	s := &SQLiteStore{
		dbPath: dbPath,
		tagger: tagger,
		logger: logging.Get(),
	}
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	s.db = db
	s.logger.Info("Memory store initialized", "backend", "sqlite", "path", dbPath)
	return s, nil
}

func openSQLite(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (s *SQLiteStore) conn() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// SaveItem stores a new item, auto-tagging when tags is nil.
func (s *SQLiteStore) SaveItem(ctx context.Context, kind Kind, content string, tags []string) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if tags == nil {
		tags = s.tagger(content)
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return 0, fmt.Errorf("encode tags: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.conn().ExecContext(ctx,
		`INSERT INTO memory_items (kind, content, tags, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		string(kind), content, string(tagsJSON), now, now)
	if err != nil {
		return 0, fmt.Errorf("save item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save item: %w", err)
	}
	s.logger.Debug("Memory item saved", "kind", string(kind), "id", id)
	return id, nil
}

// GetItem retrieves one item by ID.
func (s *SQLiteStore) GetItem(ctx context.Context, id int64) (*Item, error) {
	row := s.conn().QueryRowContext(ctx,
		`SELECT id, kind, content, tags, created_at, updated_at FROM memory_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: item %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	return item, nil
}

// GetItems lists items newest-first, optionally filtered by kind.
func (s *SQLiteStore) GetItems(ctx context.Context, kind Kind, limit int) ([]Item, error) {
	query := `SELECT id, kind, content, tags, created_at, updated_at FROM memory_items`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryItems(ctx, query, args...)
}

// SearchItems matches a case-insensitive substring against item content.
func (s *SQLiteStore) SearchItems(ctx context.Context, query string, kind Kind) ([]Item, error) {
	sqlQuery := `SELECT id, kind, content, tags, created_at, updated_at FROM memory_items
		WHERE instr(lower(content), lower(?)) > 0`
	args := []any{query}
	if kind != "" {
		sqlQuery += ` AND kind = ?`
		args = append(args, string(kind))
	}
	sqlQuery += ` ORDER BY id DESC`
	return s.queryItems(ctx, sqlQuery, args...)
}

func (s *SQLiteStore) queryItems(ctx context.Context, query string, args ...any) ([]Item, error) {
	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem rewrites content and/or tags of an existing item.
func (s *SQLiteStore) UpdateItem(ctx context.Context, id int64, content *string, tags []string) (bool, error) {
	if content == nil && tags == nil {
		_, err := s.GetItem(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}

	sets := `updated_at = ?`
	args := []any{time.Now().UTC().Format(time.RFC3339Nano)}
	if content != nil {
		sets += `, content = ?`
		args = append(args, *content)
	}
	if tags != nil {
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return false, fmt.Errorf("encode tags: %w", err)
		}
		sets += `, tags = ?`
		args = append(args, string(tagsJSON))
	}
	args = append(args, id)

	res, err := s.conn().ExecContext(ctx, `UPDATE memory_items SET `+sets+` WHERE id = ?`, args...)
	if err != nil {
		return false, fmt.Errorf("update item %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update item %d: %w", id, err)
	}
	return n > 0, nil
}

// DeleteItem removes an item; missing IDs are a no-op.
func (s *SQLiteStore) DeleteItem(ctx context.Context, id int64) error {
	_, err := s.conn().ExecContext(ctx, `DELETE FROM memory_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	return nil
}

// SavePreference upserts a preference keyed on Key. Storage failures are
// logged and reported as false, never raised.
func (s *SQLiteStore) SavePreference(ctx context.Context, p Preference) bool {
	if err := s.savePreference(ctx, p); err != nil {
		s.logger.Error("Preference save failed", "key", p.Key, "error", err)
		return false
	}
	return true
}

func (s *SQLiteStore) savePreference(ctx context.Context, p Preference) error {
	if p.Key == "" {
		return fmt.Errorf("preference key cannot be empty")
	}
	if p.Scope == "" {
		p.Scope = ScopeGlobal
	}
	if p.Source == "" {
		p.Source = SourceUser
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.conn().ExecContext(ctx, `
		INSERT INTO preferences (scope, agent, domain, key, value, source, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			scope = excluded.scope,
			agent = excluded.agent,
			domain = excluded.domain,
			value = excluded.value,
			source = excluded.source,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at`,
		p.Scope, p.Agent, p.Domain, p.Key, p.Value, p.Source, p.Confidence, now, now)
	if err != nil {
		return fmt.Errorf("save preference %q: %w", p.Key, err)
	}
	s.logger.Debug("Preference saved", "key", p.Key)
	return nil
}

// GetPreferenceByKey returns the preference for a key, or nil.
func (s *SQLiteStore) GetPreferenceByKey(ctx context.Context, key string) (*Preference, error) {
	row := s.conn().QueryRowContext(ctx,
		`SELECT id, scope, agent, domain, key, value, source, confidence, created_at, updated_at
		 FROM preferences WHERE key = ?`, key)
	pref, err := scanPreference(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preference %q: %w", key, err)
	}
	return pref, nil
}

// ListPreferences returns all preferences ordered by key.
func (s *SQLiteStore) ListPreferences(ctx context.Context) ([]Preference, error) {
	return s.queryPreferences(ctx,
		`SELECT id, scope, agent, domain, key, value, source, confidence, created_at, updated_at
		 FROM preferences ORDER BY key`)
}

// SearchPreferences matches a substring over key, value and domain.
func (s *SQLiteStore) SearchPreferences(ctx context.Context, query string) ([]Preference, error) {
	return s.queryPreferences(ctx,
		`SELECT id, scope, agent, domain, key, value, source, confidence, created_at, updated_at
		 FROM preferences
		 WHERE instr(lower(key), lower(?)) > 0
		    OR instr(lower(value), lower(?)) > 0
		    OR instr(lower(coalesce(domain, '')), lower(?)) > 0
		 ORDER BY key`, query, query, query)
}

func (s *SQLiteStore) queryPreferences(ctx context.Context, query string, args ...any) ([]Preference, error) {
	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	prefs := make([]Preference, 0)
	for rows.Next() {
		pref, err := scanPreference(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		prefs = append(prefs, *pref)
	}
	return prefs, rows.Err()
}

// SaveContact stores a structured contact.
func (s *SQLiteStore) SaveContact(ctx context.Context, c Contact) (int64, error) {
	return saveContact(ctx, s, c)
}

// UpdateContact applies a sparse patch to an existing contact.
func (s *SQLiteStore) UpdateContact(ctx context.Context, id int64, updates map[string]any) (*Contact, error) {
	return updateContact(ctx, s, id, updates)
}

// FindContacts matches a query against contact identity fields.
func (s *SQLiteStore) FindContacts(ctx context.Context, query string) ([]Contact, error) {
	return findContacts(ctx, s, query)
}

// GetAllContacts lists contacts newest-first.
func (s *SQLiteStore) GetAllContacts(ctx context.Context, limit int) ([]Contact, error) {
	return getAllContacts(ctx, s, limit)
}

// Reset wipes the store. hard=true removes the database file and reopens
// from empty; hard=false truncates the tables in place.
func (s *SQLiteStore) Reset(ctx context.Context, hard bool) error {
	if !hard {
		for _, stmt := range []string{
			`DELETE FROM memory_items`,
			`DELETE FROM preferences`,
			`DELETE FROM sqlite_sequence WHERE name IN ('memory_items', 'preferences')`,
		} {
			if _, err := s.conn().ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("reset: %w", err)
			}
		}
		s.logger.Info("Memory store truncated")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("reset: close: %w", err)
		}
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(s.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("reset: remove db: %w", err)
		}
	}
	db, err := openSQLite(s.dbPath)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	s.db = db
	s.logger.Info("Memory store recreated", "path", s.dbPath)
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (*Item, error) {
	var (
		item               Item
		kind, tagsJSON     string
		createdAt, updated string
	)
	if err := sc.Scan(&item.ID, &kind, &item.Content, &tagsJSON, &createdAt, &updated); err != nil {
		return nil, err
	}
	item.Kind = Kind(kind)
	if err := json.Unmarshal([]byte(tagsJSON), &item.Tags); err != nil {
		item.Tags = []string{}
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	item.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	item.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &item, nil
}

func scanPreference(sc scanner) (*Preference, error) {
	var (
		pref               Preference
		agent, domain      sql.NullString
		createdAt, updated string
	)
	if err := sc.Scan(&pref.ID, &pref.Scope, &agent, &domain, &pref.Key, &pref.Value,
		&pref.Source, &pref.Confidence, &createdAt, &updated); err != nil {
		return nil, err
	}
	pref.Agent = agent.String
	pref.Domain = domain.String
	pref.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	pref.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &pref, nil
}
