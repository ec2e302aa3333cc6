// Package location implements the durable named-location store: per-player
// BACK/SPAWN/HOME entries plus the shared global WARP partition, backed by a
// per-owner write-through cache hydrated on first use.
package location

import (
	"context"
	_ "embed"
	"log/slog"
	"strings"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/essencekit/essence/internal/database"
	"github.com/essencekit/essence/internal/domain"
	"github.com/gofrs/uuid/v5"
)

//go:embed schema.sql
var schema string

// GlobalOwner is the sentinel owner of the shared WARP partition.
var GlobalOwner = uuid.Nil //nolint:gochecknoglobals

// Store is the location store. One coarse lock serializes every public
// operation so cache and backend can never be observed out of step.
type Store struct {
	mu    sync.Mutex
	db    database.Database
	cache map[uuid.UUID]ownerCache
}

// Open creates the store's backend at path, applies the schema and returns a
// ready store.
func Open(ctx context.Context, path string, logQueries bool) (*Store, error) {
	db := database.New(path, schema, logQueries)
	if errConnect := db.Connect(ctx); errConnect != nil {
		return nil, errConnect
	}

	return &Store{db: db, cache: map[uuid.UUID]ownerCache{}}, nil
}

// Close releases the backend handle and clears the cache. Safe to call more
// than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache = map[uuid.UUID]ownerCache{}

	return s.db.Close()
}

// normalizeKey maps blank keys onto the singleton sentinel slot.
func normalizeKey(key string) string {
	if strings.TrimSpace(key) == "" {
		return domain.SentinelKey
	}

	return key
}

// ensureLoaded returns the owner's cache partition, hydrating it from the
// backend with a single query when not yet loaded. Rows with an unknown type
// name are skipped. Callers must hold the store lock.
func (s *Store) ensureLoaded(ctx context.Context, owner uuid.UUID) (ownerCache, error) {
	if partition, loaded := s.cache[owner]; loaded {
		return partition, nil
	}

	rows, errRows := s.db.QueryBuilder(ctx, s.db.
		Builder().
		Select("type", "key", "world", "x", "y", "z", "yaw", "pitch").
		From("locations").
		Where(sq.Eq{"uuid": owner.String()}))
	if errRows != nil {
		return nil, database.DBErr(errRows)
	}

	defer rows.Close()

	partition := ownerCache{}

	for rows.Next() {
		var (
			typeName string
			key      string
			loc      domain.StoredLocation
		)

		if errScan := rows.Scan(&typeName, &key, &loc.WorldKey,
			&loc.X, &loc.Y, &loc.Z, &loc.Yaw, &loc.Pitch); errScan != nil {
			return nil, database.DBErr(errScan)
		}

		locType, errType := domain.ParseLocationType(typeName)
		if errType != nil {
			continue
		}

		partition.put(locType, key, loc)
	}

	if errRows := rows.Err(); errRows != nil {
		return nil, database.DBErr(errRows)
	}

	// An empty partition is still authoritative for owners with no rows yet.
	s.cache[owner] = partition

	return partition, nil
}

// Set writes the entry upsert-replace to the backend and, only on success,
// applies the same value into the owner's cache. On failure the cache is left
// untouched.
func (s *Store) Set(ctx context.Context, owner uuid.UUID, locType domain.LocationType, key string, loc domain.StoredLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = normalizeKey(key)

	_, errExec := s.db.Exec(ctx, `INSERT INTO locations (uuid, type, key, world, x, y, z, yaw, pitch)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (uuid, type, key) DO UPDATE SET
			world = excluded.world, x = excluded.x, y = excluded.y, z = excluded.z,
			yaw = excluded.yaw, pitch = excluded.pitch`,
		owner.String(), string(locType), key, loc.WorldKey, loc.X, loc.Y, loc.Z, loc.Yaw, loc.Pitch)
	if errExec != nil {
		slog.Warn("Failed to set location",
			slog.String("owner", owner.String()), slog.String("type", string(locType)),
			slog.String("key", key), slog.String("error", errExec.Error()))

		return database.DBErr(errExec)
	}

	partition, errLoad := s.ensureLoaded(ctx, owner)
	if errLoad != nil {
		return errLoad
	}

	partition.put(locType, key, loc)

	return nil
}

// Get returns the entry, or database.ErrNoResult. A cache miss after
// hydration is authoritative.
func (s *Store) Get(ctx context.Context, owner uuid.UUID, locType domain.LocationType, key string) (domain.StoredLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	partition, errLoad := s.ensureLoaded(ctx, owner)
	if errLoad != nil {
		return domain.StoredLocation{}, errLoad
	}

	loc, found := partition.get(locType, normalizeKey(key))
	if !found {
		return domain.StoredLocation{}, database.ErrNoResult
	}

	return loc, nil
}

// SetSingle writes the singleton slot for types like BACK and SPAWN.
func (s *Store) SetSingle(ctx context.Context, owner uuid.UUID, locType domain.LocationType, loc domain.StoredLocation) error {
	return s.Set(ctx, owner, locType, domain.SentinelKey, loc)
}

func (s *Store) GetSingle(ctx context.Context, owner uuid.UUID, locType domain.LocationType) (domain.StoredLocation, error) {
	return s.Get(ctx, owner, locType, domain.SentinelKey)
}

func (s *Store) DeleteSingle(ctx context.Context, owner uuid.UUID, locType domain.LocationType) (bool, error) {
	return s.Delete(ctx, owner, locType, domain.SentinelKey)
}

// List returns a defensive copy of the owner's entries of one type.
// Enumeration order is not guaranteed.
func (s *Store) List(ctx context.Context, owner uuid.UUID, locType domain.LocationType) (map[string]domain.StoredLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	partition, errLoad := s.ensureLoaded(ctx, owner)
	if errLoad != nil {
		return nil, errLoad
	}

	return partition.ofType(locType), nil
}

// ListAll returns a defensive full snapshot of the owner's partition.
func (s *Store) ListAll(ctx context.Context, owner uuid.UUID) (map[domain.LocationType]map[string]domain.StoredLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	partition, errLoad := s.ensureLoaded(ctx, owner)
	if errLoad != nil {
		return nil, errLoad
	}

	return partition.snapshot(), nil
}

// Delete removes the backend row first and reports whether one existed. The
// cache entry is removed regardless, so a stale cache cannot resurrect the row.
func (s *Store) Delete(ctx context.Context, owner uuid.UUID, locType domain.LocationType, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = normalizeKey(key)

	removed, errExec := s.db.ExecDeleteBuilder(ctx, s.db.
		Builder().
		Delete("locations").
		Where(sq.Eq{"uuid": owner.String(), "type": string(locType), "key": key}))
	if errExec != nil {
		return false, database.DBErr(errExec)
	}

	partition, errLoad := s.ensureLoaded(ctx, owner)
	if errLoad != nil {
		return removed > 0, errLoad
	}

	partition.remove(locType, key)

	return removed > 0, nil
}

// DeleteAllOfType bulk-removes every entry of one type for the owner and
// rebuilds the cached partition without it.
func (s *Store) DeleteAllOfType(ctx context.Context, owner uuid.UUID, locType domain.LocationType) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, errExec := s.db.ExecDeleteBuilder(ctx, s.db.
		Builder().
		Delete("locations").
		Where(sq.Eq{"uuid": owner.String(), "type": string(locType)}))
	if errExec != nil {
		return false, database.DBErr(errExec)
	}

	partition, errLoad := s.ensureLoaded(ctx, owner)
	if errLoad != nil {
		return removed > 0, errLoad
	}

	s.cache[owner] = partition.withoutType(locType)

	return removed > 0, nil
}

// SetWarp writes a named warp into the shared global partition.
func (s *Store) SetWarp(ctx context.Context, name string, loc domain.StoredLocation) error {
	return s.Set(ctx, GlobalOwner, domain.Warp, name, loc)
}

func (s *Store) GetWarp(ctx context.Context, name string) (domain.StoredLocation, error) {
	return s.Get(ctx, GlobalOwner, domain.Warp, name)
}

func (s *Store) DeleteWarp(ctx context.Context, name string) (bool, error) {
	return s.Delete(ctx, GlobalOwner, domain.Warp, name)
}

// Warps lists the global warp partition.
func (s *Store) Warps(ctx context.Context) (map[string]domain.StoredLocation, error) {
	return s.List(ctx, GlobalOwner, domain.Warp)
}
