package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mymy770/Clara/internal/logging"
)

// Environment variables for the PostgreSQL backend.
const (
	EnvPgConnStr      = "CLARA_PG_CN"
	EnvPgMaxConns     = "CLARA_PG_MAX_CONNS"
	EnvPgIdleConns    = "CLARA_PG_IDLE_CONNS"
	EnvPgConnLifetime = "CLARA_PG_CONN_LIFETIME"

	defaultPgMaxConns     = 10
	defaultPgIdleConns    = 5
	defaultPgConnLifetime = 3600 // seconds
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS memory_items (
	id         BIGSERIAL PRIMARY KEY,
	kind       TEXT NOT NULL,
	content    TEXT NOT NULL,
	tags       TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memory_items_kind ON memory_items(kind);

CREATE TABLE IF NOT EXISTS preferences (
	id         BIGSERIAL PRIMARY KEY,
	scope      TEXT NOT NULL DEFAULT 'global',
	agent      TEXT,
	domain     TEXT,
	key        TEXT NOT NULL UNIQUE,
	value      TEXT NOT NULL,
	source     TEXT NOT NULL DEFAULT 'user',
	confidence DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

// PgConfig holds PostgreSQL configuration options.
type PgConfig struct {
	ConnStr      string
	MaxConns     int
	IdleConns    int
	ConnLifetime time.Duration
}

// PgConfigFromEnv builds a PgConfig from environment variables. It fails when
// no connection string is configured.
func PgConfigFromEnv() (PgConfig, error) {
	connStr := os.Getenv(EnvPgConnStr)
	if connStr == "" {
		return PgConfig{}, fmt.Errorf("%s not set", EnvPgConnStr)
	}
	cfg := PgConfig{ConnStr: connStr}
	if v, err := strconv.Atoi(os.Getenv(EnvPgMaxConns)); err == nil && v > 0 {
		cfg.MaxConns = v
	}
	if v, err := strconv.Atoi(os.Getenv(EnvPgIdleConns)); err == nil && v > 0 {
		cfg.IdleConns = v
	}
	if v, err := strconv.Atoi(os.Getenv(EnvPgConnLifetime)); err == nil && v > 0 {
		cfg.ConnLifetime = time.Duration(v) * time.Second
	}
	return cfg, nil
}

// PgStore implements Store using PostgreSQL. It mirrors the SQLite backend
// behaviour; a hard reset drops and recreates the tables, since dropping the
// whole database is not the driver's call to make.
type PgStore struct {
	config PgConfig
	db     *sql.DB
	tagger Tagger
	logger *logging.Logger
}

// NewPgStore connects to PostgreSQL and applies the schema.
func NewPgStore(config PgConfig, tagger Tagger) (*PgStore, error) {
	if config.ConnStr == "" {
		return nil, errors.New("connection string cannot be empty")
	}
	if config.MaxConns <= 0 {
		config.MaxConns = defaultPgMaxConns
	}
	if config.IdleConns <= 0 {
		config.IdleConns = defaultPgIdleConns
	}
	if config.ConnLifetime <= 0 {
		config.ConnLifetime = defaultPgConnLifetime * time.Second
	}
	if tagger == nil {
		tagger = GenerateTags
	}

	db, err := sql.Open("postgres", config.ConnStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(config.MaxConns)
	db.SetMaxIdleConns(config.IdleConns)
	db.SetConnMaxLifetime(config.ConnLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(pgSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger := logging.Get()
	logger.Info("Memory store initialized", "backend", "postgres")

	return &PgStore{
		config: config,
		db:     db,
		tagger: tagger,
		logger: logger,
	}, nil
}

// Close closes the connection pool.
func (p *PgStore) Close() error {
	return p.db.Close()
}

// SaveItem stores a new item, auto-tagging when tags is nil.
func (p *PgStore) SaveItem(ctx context.Context, kind Kind, content string, tags []string) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if tags == nil {
		tags = p.tagger(content)
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return 0, fmt.Errorf("encode tags: %w", err)
	}

	now := time.Now().UTC()
	var id int64
	err = p.db.QueryRowContext(ctx,
		`INSERT INTO memory_items (kind, content, tags, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4) RETURNING id`,
		string(kind), content, string(tagsJSON), now).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save item: %w", err)
	}
	p.logger.Debug("Memory item saved", "kind", string(kind), "id", id)
	return id, nil
}

// GetItem retrieves one item by ID.
func (p *PgStore) GetItem(ctx context.Context, id int64) (*Item, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, kind, content, tags, created_at, updated_at FROM memory_items WHERE id = $1`, id)
	item, err := scanPgItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: item %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	return item, nil
}

// GetItems lists items newest-first, optionally filtered by kind.
func (p *PgStore) GetItems(ctx context.Context, kind Kind, limit int) ([]Item, error) {
	query := `SELECT id, kind, content, tags, created_at, updated_at FROM memory_items`
	var args []any
	if kind != "" {
		query += ` WHERE kind = $1`
		args = append(args, string(kind))
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}
	return p.queryItems(ctx, query, args...)
}

// SearchItems matches a case-insensitive substring against item content.
func (p *PgStore) SearchItems(ctx context.Context, query string, kind Kind) ([]Item, error) {
	sqlQuery := `SELECT id, kind, content, tags, created_at, updated_at FROM memory_items
		WHERE position(lower($1) in lower(content)) > 0`
	args := []any{query}
	if kind != "" {
		sqlQuery += ` AND kind = $2`
		args = append(args, string(kind))
	}
	sqlQuery += ` ORDER BY id DESC`
	return p.queryItems(ctx, sqlQuery, args...)
}

func (p *PgStore) queryItems(ctx context.Context, query string, args ...any) ([]Item, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		item, err := scanPgItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem rewrites content and/or tags of an existing item.
func (p *PgStore) UpdateItem(ctx context.Context, id int64, content *string, tags []string) (bool, error) {
	if content == nil && tags == nil {
		_, err := p.GetItem(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}

	sets := `updated_at = $1`
	args := []any{time.Now().UTC()}
	if content != nil {
		sets += fmt.Sprintf(`, content = $%d`, len(args)+1)
		args = append(args, *content)
	}
	if tags != nil {
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return false, fmt.Errorf("encode tags: %w", err)
		}
		sets += fmt.Sprintf(`, tags = $%d`, len(args)+1)
		args = append(args, string(tagsJSON))
	}
	args = append(args, id)

	res, err := p.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE memory_items SET %s WHERE id = $%d`, sets, len(args)), args...)
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
func (p *PgStore) DeleteItem(ctx context.Context, id int64) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM memory_items WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	return nil
}

// SavePreference upserts a preference keyed on Key. Storage failures are
// logged and reported as false, never raised.
func (p *PgStore) SavePreference(ctx context.Context, pref Preference) bool {
	if err := p.savePreference(ctx, pref); err != nil {
		p.logger.Error("Preference save failed", "key", pref.Key, "error", err)
		return false
	}
	return true
}

func (p *PgStore) savePreference(ctx context.Context, pref Preference) error {
	if pref.Key == "" {
		return errors.New("preference key cannot be empty")
	}
	if pref.Scope == "" {
		pref.Scope = ScopeGlobal
	}
	if pref.Source == "" {
		pref.Source = SourceUser
	}

	now := time.Now().UTC()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO preferences (scope, agent, domain, key, value, source, confidence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (key) DO UPDATE SET
			scope = EXCLUDED.scope,
			agent = EXCLUDED.agent,
			domain = EXCLUDED.domain,
			value = EXCLUDED.value,
			source = EXCLUDED.source,
			confidence = EXCLUDED.confidence,
			updated_at = EXCLUDED.updated_at`,
		pref.Scope, pref.Agent, pref.Domain, pref.Key, pref.Value, pref.Source, pref.Confidence, now)
	if err != nil {
		return fmt.Errorf("save preference %q: %w", pref.Key, err)
	}
	return nil
}

// GetPreferenceByKey returns the preference for a key, or nil.
func (p *PgStore) GetPreferenceByKey(ctx context.Context, key string) (*Preference, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, scope, agent, domain, key, value, source, confidence, created_at, updated_at
		 FROM preferences WHERE key = $1`, key)
	pref, err := scanPgPreference(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preference %q: %w", key, err)
	}
	return pref, nil
}

// ListPreferences returns all preferences ordered by key.
func (p *PgStore) ListPreferences(ctx context.Context) ([]Preference, error) {
	return p.queryPreferences(ctx,
		`SELECT id, scope, agent, domain, key, value, source, confidence, created_at, updated_at
		 FROM preferences ORDER BY key`)
}

// SearchPreferences matches a substring over key, value and domain.
func (p *PgStore) SearchPreferences(ctx context.Context, query string) ([]Preference, error) {
	return p.queryPreferences(ctx,
		`SELECT id, scope, agent, domain, key, value, source, confidence, created_at, updated_at
		 FROM preferences
		 WHERE position(lower($1) in lower(key)) > 0
		    OR position(lower($1) in lower(value)) > 0
		    OR position(lower($1) in lower(coalesce(domain, ''))) > 0
		 ORDER BY key`, query)
}

func (p *PgStore) queryPreferences(ctx context.Context, query string, args ...any) ([]Preference, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	prefs := make([]Preference, 0)
	for rows.Next() {
		pref, err := scanPgPreference(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		prefs = append(prefs, *pref)
	}
	return prefs, rows.Err()
}

// SaveContact stores a structured contact.
func (p *PgStore) SaveContact(ctx context.Context, c Contact) (int64, error) {
	return saveContact(ctx, p, c)
}

// UpdateContact applies a sparse patch to an existing contact.
func (p *PgStore) UpdateContact(ctx context.Context, id int64, updates map[string]any) (*Contact, error) {
	return updateContact(ctx, p, id, updates)
}

// FindContacts matches a query against contact identity fields.
func (p *PgStore) FindContacts(ctx context.Context, query string) ([]Contact, error) {
	return findContacts(ctx, p, query)
}

// GetAllContacts lists contacts newest-first.
func (p *PgStore) GetAllContacts(ctx context.Context, limit int) ([]Contact, error) {
	return getAllContacts(ctx, p, limit)
}

// Reset wipes the store. hard=true drops and recreates the tables;
// hard=false truncates them, preserving the schema.
func (p *PgStore) Reset(ctx context.Context, hard bool) error {
	if hard {
		if _, err := p.db.ExecContext(ctx, `DROP TABLE IF EXISTS memory_items, preferences`); err != nil {
			return fmt.Errorf("reset: drop: %w", err)
		}
		if _, err := p.db.ExecContext(ctx, pgSchema); err != nil {
			return fmt.Errorf("reset: migrate: %w", err)
		}
		p.logger.Info("Memory store recreated")
		return nil
	}
	if _, err := p.db.ExecContext(ctx,
		`TRUNCATE memory_items, preferences RESTART IDENTITY`); err != nil {
		return fmt.Errorf("reset: truncate: %w", err)
	}
	p.logger.Info("Memory store truncated")
	return nil
}

func scanPgItem(sc scanner) (*Item, error) {
	var (
		item     Item
		kind     string
		tagsJSON string
	)
	if err := sc.Scan(&item.ID, &kind, &item.Content, &tagsJSON, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.Kind = Kind(kind)
	if err := json.Unmarshal([]byte(tagsJSON), &item.Tags); err != nil || item.Tags == nil {
		item.Tags = []string{}
	}
	return &item, nil
}

func scanPgPreference(sc scanner) (*Preference, error) {
	var (
		pref          Preference
		agent, domain sql.NullString
	)
	if err := sc.Scan(&pref.ID, &pref.Scope, &agent, &domain, &pref.Key, &pref.Value,
		&pref.Source, &pref.Confidence, &pref.CreatedAt, &pref.UpdatedAt); err != nil {
		return nil, err
	}
	pref.Agent = agent.String
	pref.Domain = domain.String
	return &pref, nil
}
