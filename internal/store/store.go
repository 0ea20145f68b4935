// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists extracted facts in SQLite. Every fact kind is an
// idempotent upsert, so re-running an ingest over the same dump converges
// to the same rows.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/golang/geo/s2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/wikiplace/pkg/types"
)

// cellLevel is the S2 level of the city cell index (cells of roughly 10 km).
const cellLevel = 10

// ErrClosed is returned when writing to a closed store.
var ErrClosed = errors.New("store is closed")

// Store is the SQLite fact sink. Write and Flush must be called from a
// single goroutine; queries may run concurrently with them.
type Store struct {
	db        *sql.DB
	batchSize int

	tx      *sql.Tx
	stmts   map[types.FactKind]*sql.Stmt
	pending int
	closed  bool
}

// Open opens or creates the database at cfg.Path and ensures the schema.
func Open(cfg types.StoreConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 5000
	}

	s := &Store{db: db, batchSize: batchSize}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close commits pending facts and releases the database.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	err := s.Flush(context.Background())
	s.closed = true
	return errors.Join(err, s.db.Close())
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS countries (
			id TEXT PRIMARY KEY,
			iso TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS territorial_entities (
			id TEXT PRIMARY KEY,
			is_second_level INTEGER NOT NULL,
			iso TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS territorial_entity_parents (
			id TEXT NOT NULL,
			parent_id TEXT NOT NULL,
			PRIMARY KEY (id, parent_id)
		)`,
		`CREATE TABLE IF NOT EXISTS object_languages (
			id TEXT NOT NULL,
			lang_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			PRIMARY KEY (id, lang_id)
		)`,
		`CREATE TABLE IF NOT EXISTS object_labels (
			id TEXT NOT NULL,
			lang TEXT NOT NULL,
			label TEXT NOT NULL,
			plain INTEGER NOT NULL DEFAULT 0,
			native_order INTEGER,
			PRIMARY KEY (id, lang, label)
		)`,
		`CREATE TABLE IF NOT EXISTS languages (
			id TEXT PRIMARY KEY,
			wikimedia_code TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS missing_country (
			id TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS city_countries (
			id TEXT NOT NULL,
			country_id TEXT NOT NULL,
			priority INTEGER NOT NULL,
			PRIMARY KEY (id, country_id)
		)`,
		`CREATE TABLE IF NOT EXISTS cities (
			id TEXT PRIMARY KEY,
			population INTEGER,
			lat REAL,
			lon REAL,
			s2_cell INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cities_s2_cell ON cities(s2_cell)`,
		`CREATE INDEX IF NOT EXISTS idx_parents_parent_id ON territorial_entity_parents(parent_id)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			state TEXT NOT NULL,
			lines INTEGER NOT NULL DEFAULT 0,
			records INTEGER NOT NULL DEFAULT 0,
			facts INTEGER NOT NULL DEFAULT 0,
			record_errors INTEGER NOT NULL DEFAULT 0,
			send_failures INTEGER NOT NULL DEFAULT 0
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	added, err := s.addColumn("object_labels", "plain", "INTEGER NOT NULL DEFAULT 0")
	if err != nil || !added {
		return err
	}
	if _, err := s.db.Exec(`UPDATE object_labels SET plain = 1 WHERE native_order IS NULL`); err != nil {
		return fmt.Errorf("backfilling object_labels.plain: %w", err)
	}
	return nil
}

// addColumn adds a column missing from a table created by an older schema
// and reports whether it did.
func (s *Store) addColumn(table, column, decl string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT count(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspecting %s: %w", table, err)
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl)); err != nil {
		return false, fmt.Errorf("adding %s.%s: %w", table, column, err)
	}
	return true, nil
}

// upserts holds one statement per fact kind. Lower priority, index and
// native order values are preferred by readers; they are stored as given.
// A label row can be plain and native at once when both share a text.
var upserts = map[types.FactKind]string{
	types.KindCountry: `INSERT INTO countries (id, iso) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET iso=excluded.iso`,
	types.KindTerritorialEntity: `INSERT INTO territorial_entities (id, is_second_level, iso) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET is_second_level=excluded.is_second_level, iso=excluded.iso`,
	types.KindTerritorialEntityParent: `INSERT OR IGNORE INTO territorial_entity_parents (id, parent_id) VALUES (?, ?)`,
	types.KindObjectLanguage: `INSERT INTO object_languages (id, lang_id, idx) VALUES (?, ?, ?)
		ON CONFLICT(id, lang_id) DO UPDATE SET idx=excluded.idx`,
	types.KindObjectLabel: `INSERT INTO object_labels (id, lang, label, plain, native_order) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id, lang, label) DO UPDATE SET
			plain=MAX(excluded.plain, object_labels.plain),
			native_order=COALESCE(excluded.native_order, object_labels.native_order)`,
	types.KindLanguage: `INSERT INTO languages (id, wikimedia_code) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET wikimedia_code=excluded.wikimedia_code`,
	types.KindMissingCountryProperty: `INSERT OR IGNORE INTO missing_country (id) VALUES (?)`,
	types.KindCityCountry: `INSERT INTO city_countries (id, country_id, priority) VALUES (?, ?, ?)
		ON CONFLICT(id, country_id) DO UPDATE SET priority=excluded.priority`,
	types.KindCity: `INSERT INTO cities (id, population, lat, lon, s2_cell) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET population=excluded.population,
			lat=excluded.lat, lon=excluded.lon, s2_cell=excluded.s2_cell`,
}

// Write upserts one fact. Facts are committed in batches; call Flush to
// commit the current batch.
func (s *Store) Write(ctx context.Context, f types.Fact) error {
	if s.closed {
		return ErrClosed
	}
	args, err := factArgs(f)
	if err != nil {
		return err
	}
	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		s.tx = tx
		s.stmts = make(map[types.FactKind]*sql.Stmt, len(upserts))
	}

	stmt, ok := s.stmts[f.Kind()]
	if !ok {
		stmt, err = s.tx.PrepareContext(ctx, upserts[f.Kind()])
		if err != nil {
			return s.abort(fmt.Errorf("preparing %s upsert: %w", f.Kind(), err))
		}
		s.stmts[f.Kind()] = stmt
	}
	if _, err := stmt.ExecContext(ctx, args...); err != nil {
		return s.abort(fmt.Errorf("writing %s %s: %w", f.Kind(), f.EntityID(), err))
	}

	s.pending++
	if s.pending >= s.batchSize {
		return s.Flush(ctx)
	}
	return nil
}

// Flush commits the facts written since the last commit.
func (s *Store) Flush(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	s.closeStmts()
	err := s.tx.Commit()
	s.tx, s.pending = nil, 0
	if err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

func (s *Store) abort(err error) error {
	s.closeStmts()
	s.tx.Rollback()
	s.tx, s.pending = nil, 0
	return err
}

func (s *Store) closeStmts() {
	for _, stmt := range s.stmts {
		stmt.Close()
	}
	s.stmts = nil
}

func factArgs(f types.Fact) ([]any, error) {
	switch f := f.(type) {
	case types.Country:
		return []any{f.ID, f.ISO}, nil
	case types.TerritorialEntity:
		return []any{f.ID, f.IsSecondLevel, nullString(f.ISO)}, nil
	case types.TerritorialEntityParent:
		return []any{f.ID, f.ParentID}, nil
	case types.ObjectLanguage:
		return []any{f.ID, f.LangID, f.Index}, nil
	case types.ObjectLabel:
		return []any{f.ID, f.Lang, f.Label, f.NativeOrder == nil, nullInt(f.NativeOrder)}, nil
	case types.Language:
		return []any{f.ID, f.WikimediaCode}, nil
	case types.MissingCountryProperty:
		return []any{f.ID}, nil
	case types.CityCountry:
		return []any{f.ID, f.CountryID, f.Priority}, nil
	case types.City:
		var pop sql.NullInt64
		if f.Population != nil && *f.Population <= math.MaxInt64 {
			pop = sql.NullInt64{Int64: int64(*f.Population), Valid: true}
		}
		var lat, lon sql.NullFloat64
		if f.Lat != nil && f.Lon != nil {
			lat = sql.NullFloat64{Float64: *f.Lat, Valid: true}
			lon = sql.NullFloat64{Float64: *f.Lon, Valid: true}
		}
		return []any{f.ID, pop, lat, lon, cityCell(f)}, nil
	default:
		return nil, fmt.Errorf("unsupported fact %T", f)
	}
}

// cityCell indexes a city with valid coordinates. Cell ids are stored as
// their int64 bit pattern; only equality is used on them.
func cityCell(c types.City) sql.NullInt64 {
	if c.Lat == nil || c.Lon == nil {
		return sql.NullInt64{}
	}
	ll := s2.LatLngFromDegrees(*c.Lat, *c.Lon)
	if !ll.IsValid() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(cellOf(ll)), Valid: true}
}

func cellOf(ll s2.LatLng) s2.CellID {
	return s2.CellIDFromLatLng(ll).Parent(cellLevel)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
