// Package player implements the uuid -> display-name registry with a hot
// in-memory cache of every identity touched since store startup.
package player

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/essencekit/essence/internal/database"
	"github.com/essencekit/essence/internal/domain"
	"github.com/gofrs/uuid/v5"
)

//go:embed schema.sql
var schema string

// Store is the player identity registry. A single lock serializes cache and
// backend access.
type Store struct {
	mu    sync.Mutex
	db    database.Database
	cache map[uuid.UUID]domain.PlayerIdentity
	now   func() time.Time
}

type Option func(*Store)

// WithClock overrides the wall clock, used by tests to make updated_at
// ordering deterministic.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open creates the registry backend at path, applies the schema and returns a
// ready store.
func Open(ctx context.Context, path string, logQueries bool, opts ...Option) (*Store, error) {
	db := database.New(path, schema, logQueries)
	if errConnect := db.Connect(ctx); errConnect != nil {
		return nil, errConnect
	}

	store := &Store{
		db:    db,
		cache: map[uuid.UUID]domain.PlayerIdentity{},
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

// Close releases the backend handle and clears the hot cache. Safe to call
// more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache = map[uuid.UUID]domain.PlayerIdentity{}

	return s.db.Close()
}

// upsertRow inserts or refreshes the identity row. Callers hold the lock.
func (s *Store) upsertRow(ctx context.Context, id uuid.UUID, name string, seen time.Time) error {
	_, errExec := s.db.Exec(ctx, `INSERT INTO players (uuid, name, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (uuid) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		id.String(), name, seen.Unix())

	return database.DBErr(errExec)
}

// Identify upserts the identity with a freshly observed display name and
// loads it into the hot cache. Idempotent, safe to call on every join.
func (s *Store) Identify(ctx context.Context, id uuid.UUID, observedName string) (domain.PlayerIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.identify(ctx, id, observedName)
}

// IdentifyID resolves an identity without a fresh observed name. The name
// comes from the cache, then the backend, then falls back to the stringified
// id for players never seen before.
func (s *Store) IdentifyID(ctx context.Context, id uuid.UUID) (domain.PlayerIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.identifyID(ctx, id)
}

func (s *Store) identify(ctx context.Context, id uuid.UUID, name string) (domain.PlayerIdentity, error) {
	seen := s.now()

	if errUpsert := s.upsertRow(ctx, id, name, seen); errUpsert != nil {
		return domain.PlayerIdentity{}, errUpsert
	}

	identity := domain.PlayerIdentity{ID: id, Name: name, UpdatedAt: seen}
	s.cache[id] = identity

	return identity, nil
}

func (s *Store) identifyID(ctx context.Context, id uuid.UUID) (domain.PlayerIdentity, error) {
	if cached, found := s.cache[id]; found {
		return s.identify(ctx, id, cached.Name)
	}

	var name string

	row, errRow := s.db.QueryRowBuilder(ctx, s.db.
		Builder().
		Select("name").
		From("players").
		Where(sq.Eq{"uuid": id.String()}))
	if errRow != nil {
		return domain.PlayerIdentity{}, database.DBErr(errRow)
	}

	if errScan := row.Scan(&name); errScan != nil {
		if !errors.Is(errScan, sql.ErrNoRows) {
			return domain.PlayerIdentity{}, database.DBErr(errScan)
		}

		name = id.String()
	}

	return s.identify(ctx, id, name)
}

// LookupByName finds an identity by case-insensitive exact name match, then
// routes through the identify path so the hot cache is refreshed.
func (s *Store) LookupByName(ctx context.Context, name string) (domain.PlayerIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rawID string

	row := s.db.QueryRow(ctx, `SELECT uuid FROM players WHERE name = ? COLLATE NOCASE LIMIT 1`, name)
	if errScan := row.Scan(&rawID); errScan != nil {
		return domain.PlayerIdentity{}, database.DBErr(errScan)
	}

	id, errParse := uuid.FromString(rawID)
	if errParse != nil {
		return domain.PlayerIdentity{}, errParse //nolint:wrapcheck
	}

	return s.identifyID(ctx, id)
}

func prefixPattern(prefix string) string {
	if prefix == "" {
		return "%"
	}

	return prefix + "%"
}

// CountByPrefix counts identities whose name starts with prefix,
// case-insensitive.
func (s *Store) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64

	row := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM players WHERE name LIKE ? COLLATE NOCASE`,
		prefixPattern(prefix))
	if errScan := row.Scan(&count); errScan != nil {
		return 0, database.DBErr(errScan)
	}

	return count, nil
}

// ListByPrefix pages through identities by case-insensitive name prefix, most
// recently updated first. Every row returned also refreshes the hot cache.
func (s *Store) ListByPrefix(ctx context.Context, prefix string, offset int, limit int) ([]domain.PlayerIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, errRows := s.db.Query(ctx, `SELECT uuid, name, updated_at FROM players
		WHERE name LIKE ? COLLATE NOCASE
		ORDER BY updated_at DESC, name COLLATE NOCASE ASC
		LIMIT ? OFFSET ?`,
		prefixPattern(prefix), limit, offset)
	if errRows != nil {
		return nil, database.DBErr(errRows)
	}

	defer rows.Close()

	return s.scanIdentities(rows)
}

// All scans the full registry, refreshing the hot cache along the way.
func (s *Store) All(ctx context.Context) ([]domain.PlayerIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, errRows := s.db.QueryBuilder(ctx, s.db.
		Builder().
		Select("uuid", "name", "updated_at").
		From("players"))
	if errRows != nil {
		return nil, database.DBErr(errRows)
	}

	defer rows.Close()

	return s.scanIdentities(rows)
}

func (s *Store) scanIdentities(rows *sql.Rows) ([]domain.PlayerIdentity, error) {
	var out []domain.PlayerIdentity

	for rows.Next() {
		var (
			rawID     string
			name      string
			updatedAt int64
		)

		if errScan := rows.Scan(&rawID, &name, &updatedAt); errScan != nil {
			return nil, database.DBErr(errScan)
		}

		id, errParse := uuid.FromString(rawID)
		if errParse != nil {
			return nil, errParse //nolint:wrapcheck
		}

		identity := domain.PlayerIdentity{ID: id, Name: name, UpdatedAt: time.Unix(updatedAt, 0)}
		s.cache[id] = identity
		out = append(out, identity)
	}

	if errRows := rows.Err(); errRows != nil {
		return nil, database.DBErr(errRows)
	}

	return out, nil
}

// Rename updates the stored display name without waiting for the player to be
// observed again.
func (s *Store) Rename(ctx context.Context, id uuid.UUID, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := s.now()

	if _, errExec := s.db.ExecUpdateBuilder(ctx, s.db.
		Builder().
		Update("players").
		SetMap(map[string]any{"name": newName, "updated_at": seen.Unix()}).
		Where(sq.Eq{"uuid": id.String()})); errExec != nil {
		return database.DBErr(errExec)
	}

	s.cache[id] = domain.PlayerIdentity{ID: id, Name: newName, UpdatedAt: seen}

	return nil
}

// ListOnline returns the current hot-cache contents: the identities touched
// since store startup, not a backend scan.
func (s *Store) ListOnline() []domain.PlayerIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.PlayerIdentity, 0, len(s.cache))
	for _, identity := range s.cache {
		out = append(out, identity)
	}

	return out
}
