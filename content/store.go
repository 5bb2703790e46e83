package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding content_records and global_urls.
type Store struct {
	db  *sql.DB
	log *zap.Logger
	now func() time.Time
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, unavailable("mkdir", err)
	}
	// busy_timeout and immediate transactions are per connection, so they go in
	// the DSN: overlapping expansion runs then queue on the write lock and the
	// slug constraint decides the winner.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, unavailable("open", err)
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, unavailable("pragma", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, unavailable("schema", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS content_records (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL,
    title TEXT NOT NULL,
    engine_id TEXT NOT NULL DEFAULT '',
    blueprint_id TEXT NOT NULL DEFAULT '',
    cluster_slug TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL,
    data TEXT NOT NULL DEFAULT '{}',
    dimensions TEXT NOT NULL DEFAULT '{}',
    link_tags TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_content_records_type ON content_records(type);
CREATE INDEX IF NOT EXISTS idx_content_records_blueprint ON content_records(blueprint_id);

CREATE TABLE IF NOT EXISTS global_urls (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL,
    slug TEXT NOT NULL,
    record_id TEXT REFERENCES content_records(id),
    source TEXT NOT NULL,
    word_count INTEGER NOT NULL DEFAULT 0,
    internal_links INTEGER,
    manual_review_passed INTEGER NOT NULL DEFAULT 0,
    is_indexed INTEGER NOT NULL DEFAULT 0,
    indexed_at TEXT,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_global_urls_indexed ON global_urls(is_indexed);
CREATE INDEX IF NOT EXISTS idx_global_urls_record ON global_urls(record_id);
`)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(`ALTER TABLE global_urls ADD COLUMN reviewed_at TEXT;`); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
			return nil
		}
		return err
	}
	return nil
}

const recordColumns = `r.id, r.slug, r.type, r.title, r.engine_id, r.blueprint_id, r.cluster_slug, r.source,
	r.data, r.dimensions, r.link_tags, r.created_at, r.updated_at,
	COALESCE(u.word_count, 0), COALESCE(u.is_indexed, 0), u.indexed_at`

const urlColumns = `id, url, type, slug, record_id, source, word_count, internal_links,
	manual_review_passed, is_indexed, indexed_at, reviewed_at, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		r                Record
		typ, source      string
		data, dims, tags string
		created, updated string
		indexed          int
		indexedAt        sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Slug, &typ, &r.Title, &r.EngineID, &r.BlueprintID, &r.ClusterSlug, &source,
		&data, &dims, &tags, &created, &updated, &r.WordCount, &indexed, &indexedAt); err != nil {
		return Record{}, err
	}
	r.Type = Type(typ)
	r.Source = Source(source)
	r.Indexed = indexed == 1
	r.CreatedAt = parseTime(created)
	r.UpdatedAt = parseTime(updated)
	r.IndexedAt = parseTime(indexedAt.String)
	if err := json.Unmarshal([]byte(data), &r.Data); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(dims), &r.Dimensions); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(tags), &r.LinkTags); err != nil {
		return Record{}, err
	}
	return r, nil
}

func scanURL(row scanner) (URL, error) {
	var (
		u                    URL
		typ, source, created string
		recordID             sql.NullString
		links                sql.NullInt64
		review, indexed      int
		indexedAt, reviewed  sql.NullString
	)
	if err := row.Scan(&u.ID, &u.URL, &typ, &u.Slug, &recordID, &source, &u.WordCount, &links,
		&review, &indexed, &indexedAt, &reviewed, &created); err != nil {
		return URL{}, err
	}
	u.Type = Type(typ)
	u.Source = Source(source)
	u.RecordID = recordID.String
	u.InternalLinks = int(links.Int64)
	u.LinksTracked = links.Valid
	u.ManualReviewPassed = review == 1
	u.Indexed = indexed == 1
	u.IndexedAt = parseTime(indexedAt.String)
	u.ReviewedAt = parseTime(reviewed.String)
	u.CreatedAt = parseTime(created)
	return u, nil
}

// FindBySlug returns the record with the given slug or ErrNotFound.
func (s *Store) FindBySlug(ctx context.Context, slug string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+`
		FROM content_records r LEFT JOIN global_urls u ON u.record_id = r.id
		WHERE r.slug = ?`, slug)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, unavailable("find by slug", err)
	}
	return r, nil
}

// Create inserts a record and its global_urls row in one transaction. A slug
// that already exists yields ErrDuplicateSlug. A legacy URL row with the same
// path is adopted by the new record rather than duplicated.
func (s *Store) Create(ctx context.Context, r Record) (Record, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Source == "" {
		r.Source = SourceCMS
	}
	if r.Data == nil {
		r.Data = map[string]any{}
	}
	if r.Dimensions == nil {
		r.Dimensions = map[string]string{}
	}
	if r.LinkTags == nil {
		r.LinkTags = []string{}
	}
	now := s.now()
	r.CreatedAt, r.UpdatedAt = now, now
	data, err := json.Marshal(r.Data)
	if err != nil {
		return Record{}, err
	}
	dims, err := json.Marshal(r.Dimensions)
	if err != nil {
		return Record{}, err
	}
	tags, err := json.Marshal(r.LinkTags)
	if err != nil {
		return Record{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, unavailable("begin", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO content_records
		(id, slug, type, title, engine_id, blueprint_id, cluster_slug, source, data, dimensions, link_tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Slug, string(r.Type), r.Title, r.EngineID, r.BlueprintID, r.ClusterSlug, string(r.Source),
		string(data), string(dims), string(tags), formatTime(now), formatTime(now))
	if isUniqueViolation(err) {
		return Record{}, ErrDuplicateSlug
	}
	if err != nil {
		return Record{}, unavailable("insert record", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO global_urls
		(id, url, type, slug, record_id, source, word_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET record_id = excluded.record_id, source = excluded.source
		WHERE global_urls.record_id IS NULL`,
		uuid.NewString(), r.URL(), string(r.Type), r.Slug, r.ID, string(r.Source), r.WordCount, formatTime(now))
	if err != nil {
		return Record{}, unavailable("insert url", err)
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return Record{}, ErrDuplicateSlug
		}
		return Record{}, unavailable("commit", err)
	}
	return r, nil
}

// UpdateFields applies patch to the record with the given slug.
func (s *Store) UpdateFields(ctx context.Context, slug string, p Patch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM content_records WHERE slug = ?`, slug).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return unavailable("update lookup", err)
	}
	now := formatTime(s.now())

	if p.recordChanged() {
		sets := []string{"updated_at = ?"}
		args := []any{now}
		if p.Title != nil {
			sets = append(sets, "title = ?")
			args = append(args, *p.Title)
		}
		if p.ClusterSlug != nil {
			sets = append(sets, "cluster_slug = ?")
			args = append(args, *p.ClusterSlug)
		}
		if p.Data != nil {
			data, err := json.Marshal(p.Data)
			if err != nil {
				return err
			}
			sets = append(sets, "data = ?")
			args = append(args, string(data))
		}
		args = append(args, id)
		if _, err := tx.ExecContext(ctx, `UPDATE content_records SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
			return unavailable("update record", err)
		}
	}

	if p.urlChanged() {
		var sets []string
		var args []any
		if p.WordCount != nil {
			sets = append(sets, "word_count = ?")
			args = append(args, *p.WordCount)
		}
		if p.InternalLinks != nil {
			sets = append(sets, "internal_links = ?")
			args = append(args, *p.InternalLinks)
		}
		args = append(args, id)
		if _, err := tx.ExecContext(ctx, `UPDATE global_urls SET `+strings.Join(sets, ", ")+` WHERE record_id = ?`, args...); err != nil {
			return unavailable("update url", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

// ListByType returns every record of type t ordered by slug.
func (s *Store) ListByType(ctx context.Context, t Type) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+`
		FROM content_records r LEFT JOIN global_urls u ON u.record_id = r.id
		WHERE r.type = ? ORDER BY r.slug`, string(t))
	if err != nil {
		return nil, unavailable("list by type", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, unavailable("scan record", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list by type", err)
	}
	return records, nil
}

// CountByBlueprint returns how many expansion-origin records exist per blueprint.
func (s *Store) CountByBlueprint(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT blueprint_id, COUNT(*) FROM content_records
		WHERE source = ? AND blueprint_id != '' GROUP BY blueprint_id`, string(SourceExpansion))
	if err != nil {
		return nil, unavailable("count by blueprint", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, unavailable("count by blueprint", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("count by blueprint", err)
	}
	return counts, nil
}

// ListUnindexedURLs returns every URL not yet flagged as indexed, ordered by path.
func (s *Store) ListUnindexedURLs(ctx context.Context) ([]URL, error) {
	return s.queryURLs(ctx, "list unindexed", `SELECT `+urlColumns+` FROM global_urls WHERE is_indexed = 0 ORDER BY url`)
}

// ListIndexedURLs returns indexed URLs, most recently indexed first.
func (s *Store) ListIndexedURLs(ctx context.Context) ([]URL, error) {
	return s.queryURLs(ctx, "list indexed", `SELECT `+urlColumns+` FROM global_urls WHERE is_indexed = 1 ORDER BY indexed_at DESC, url`)
}

// ListURLs returns the whole URL index ordered by path.
func (s *Store) ListURLs(ctx context.Context) ([]URL, error) {
	return s.queryURLs(ctx, "list urls", `SELECT `+urlColumns+` FROM global_urls ORDER BY url`)
}

func (s *Store) queryURLs(ctx context.Context, op, query string, args ...any) ([]URL, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	var urls []URL
	for rows.Next() {
		u, err := scanURL(rows)
		if err != nil {
			return nil, unavailable(op, err)
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return urls, nil
}

// GetURL returns a URL row by id.
func (s *Store) GetURL(ctx context.Context, id string) (URL, error) {
	u, err := scanURL(s.db.QueryRowContext(ctx, `SELECT `+urlColumns+` FROM global_urls WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return URL{}, ErrNotFound
	}
	if err != nil {
		return URL{}, unavailable("get url", err)
	}
	return u, nil
}

// SetManualReview stores the manual review verdict for a URL.
func (s *Store) SetManualReview(ctx context.Context, id string, passed bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE global_urls SET manual_review_passed = ?, reviewed_at = ? WHERE id = ?`,
		boolInt(passed), formatTime(s.now()), id)
	if err != nil {
		return unavailable("set manual review", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkIndexed flags a URL as indexed. It reports false when the URL was
// already indexed so callers can count real transitions only.
func (s *Store) MarkIndexed(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE global_urls SET is_indexed = 1, indexed_at = ? WHERE id = ? AND is_indexed = 0`,
		formatTime(s.now()), id)
	if err != nil {
		return false, unavailable("mark indexed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("mark indexed", err)
	}
	return n == 1, nil
}

// SyncURLs inserts URL rows that are not yet in the index and returns how
// many were added. Existing rows are never modified.
func (s *Store) SyncURLs(ctx context.Context, urls []URL) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, unavailable("begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO global_urls
		(id, url, type, slug, source, word_count, internal_links, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, unavailable("sync urls", err)
	}
	defer stmt.Close()

	now := formatTime(s.now())
	added := 0
	for _, u := range urls {
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if u.Source == "" {
			u.Source = SourceLegacy
		}
		var links any
		if u.LinksTracked {
			links = u.InternalLinks
		}
		res, err := stmt.ExecContext(ctx, u.ID, u.URL, string(u.Type), u.Slug, string(u.Source), u.WordCount, links, now)
		if err != nil {
			return 0, unavailable("sync urls", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, unavailable("commit", err)
	}
	if added > 0 {
		s.log.Info("synced legacy urls", zap.Int("added", added), zap.Int("total", len(urls)))
	}
	return added, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
