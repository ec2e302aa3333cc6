// Package suspension implements the time-bounded sanction store: bans, mutes
// and jails per target, plus the named jail waypoints.
//
// Issuing never deactivates prior rows, so two rows can be simultaneously
// active for one target and kind; QueryActive reports only the newest while
// Revoke flips every active row. Mute and jail reads lazily deactivate
// records whose expiry has passed, under the same lock as the read.
package suspension

import (
	"context"
	_ "embed"
	"errors"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/essencekit/essence/internal/database"
	"github.com/essencekit/essence/internal/domain"
	"github.com/gofrs/uuid/v5"
)

//go:embed schema.sql
var schema string

// Store is the sanction store. One coarse lock serializes every public
// operation, including the expiry check and the deactivation write it
// triggers.
type Store struct {
	mu  sync.Mutex
	db  database.Database
	now func() time.Time
}

type Option func(*Store)

// WithClock overrides the wall clock used for created_at stamps and expiry
// checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open creates the sanction backend at path, applies the schema and returns a
// ready store.
func Open(ctx context.Context, path string, logQueries bool, opts ...Option) (*Store, error) {
	db := database.New(path, schema, logQueries)
	if errConnect := db.Connect(ctx); errConnect != nil {
		return nil, errConnect
	}

	store := &Store{db: db, now: time.Now}

	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

// Close releases the backend handle. Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Close()
}

func tableFor(kind domain.SanctionKind) (string, error) {
	switch kind {
	case domain.KindBan:
		return "bans", nil
	case domain.KindMute:
		return "mutes", nil
	case domain.KindJail:
		return "jails", nil
	default:
		return "", domain.ErrInvalidKind
	}
}

func encodeExpiry(expiresAt *time.Time) any {
	if expiresAt == nil {
		return nil
	}

	return expiresAt.Unix()
}

func decodeExpiry(value *int64) *time.Time {
	if value == nil || *value == 0 {
		return nil
	}

	expiry := time.Unix(*value, 0)

	return &expiry
}

// IssuePermanent inserts a new active sanction with no expiry. Only bans and
// mutes may be permanent.
func (s *Store) IssuePermanent(ctx context.Context, kind domain.SanctionKind, target uuid.UUID,
	issuer domain.Issuer, issuerName string, reason string,
) (domain.SanctionRecord, error) {
	if kind == domain.KindJail {
		return domain.SanctionRecord{}, domain.ErrPermanentJail
	}

	return s.issue(ctx, kind, target, issuer, issuerName, reason, nil)
}

// IssueTemporary inserts a new active ban or mute expiring at expiresAt.
// Jails carry a waypoint name and go through IssueJail instead.
func (s *Store) IssueTemporary(ctx context.Context, kind domain.SanctionKind, target uuid.UUID,
	issuer domain.Issuer, issuerName string, reason string, expiresAt time.Time,
) (domain.SanctionRecord, error) {
	if kind == domain.KindJail {
		return domain.SanctionRecord{}, domain.ErrInvalidKind
	}

	return s.issue(ctx, kind, target, issuer, issuerName, reason, &expiresAt)
}

func (s *Store) issue(ctx context.Context, kind domain.SanctionKind, target uuid.UUID,
	issuer domain.Issuer, issuerName string, reason string, expiresAt *time.Time,
) (domain.SanctionRecord, error) {
	table, errTable := tableFor(kind)
	if errTable != nil {
		return domain.SanctionRecord{}, errTable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := time.Unix(s.now().Unix(), 0)

	rowID, errExec := s.db.ExecInsertBuilder(ctx, s.db.
		Builder().
		Insert(table).
		Columns("player_uuid", "by_uuid", "by_name", "reason", "created_at", "expires_at", "active").
		Values(target.String(), issuer.Encode(), issuerName, reason, createdAt.Unix(), encodeExpiry(expiresAt), 1))
	if errExec != nil {
		return domain.SanctionRecord{}, database.DBErr(errExec)
	}

	return domain.SanctionRecord{
		ID:         rowID,
		Target:     target,
		Issuer:     issuer,
		IssuerName: issuerName,
		Reason:     reason,
		CreatedAt:  createdAt,
		ExpiresAt:  expiresAt,
		Active:     true,
	}, nil
}

// IssueJail inserts a new active jail record referencing a waypoint by name.
// Jails are never permanent; a zero expiry is rejected.
func (s *Store) IssueJail(ctx context.Context, target uuid.UUID, issuer domain.Issuer,
	issuerName string, jailName string, reason string, expiresAt time.Time,
) (domain.JailRecord, error) {
	if expiresAt.IsZero() {
		return domain.JailRecord{}, domain.ErrPermanentJail
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := time.Unix(s.now().Unix(), 0)

	rowID, errExec := s.db.ExecInsertBuilder(ctx, s.db.
		Builder().
		Insert("jails").
		Columns("player_uuid", "by_uuid", "by_name", "jail_name", "reason", "created_at", "expires_at", "active").
		Values(target.String(), issuer.Encode(), issuerName, jailName, reason, createdAt.Unix(), expiresAt.Unix(), 1))
	if errExec != nil {
		return domain.JailRecord{}, database.DBErr(errExec)
	}

	expiry := expiresAt

	return domain.JailRecord{
		SanctionRecord: domain.SanctionRecord{
			ID:         rowID,
			Target:     target,
			Issuer:     issuer,
			IssuerName: issuerName,
			Reason:     reason,
			CreatedAt:  createdAt,
			ExpiresAt:  &expiry,
			Active:     true,
		},
		JailName: jailName,
	}, nil
}

// Revoke deactivates every currently-active row for the target and kind, not
// just the most recent, and reports whether any row changed. Revoking an
// already-inactive target is a no-op returning false.
func (s *Store) Revoke(ctx context.Context, kind domain.SanctionKind, target uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.revoke(ctx, kind, target)
}

func (s *Store) revoke(ctx context.Context, kind domain.SanctionKind, target uuid.UUID) (bool, error) {
	table, errTable := tableFor(kind)
	if errTable != nil {
		return false, errTable
	}

	changed, errExec := s.db.ExecUpdateBuilder(ctx, s.db.
		Builder().
		Update(table).
		Set("active", 0).
		Where(sq.Eq{"player_uuid": target.String(), "active": 1}))
	if errExec != nil {
		return false, database.DBErr(errExec)
	}

	return changed > 0, nil
}

// QueryActive returns the most recently created active sanction for the
// target, or database.ErrNoResult. For mutes and jails an expired row is
// synchronously revoked before reporting absent; expired bans are returned
// as-is, their enforcement point owns that check.
func (s *Store) QueryActive(ctx context.Context, kind domain.SanctionKind, target uuid.UUID) (domain.SanctionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queryActive(ctx, kind, target)
}

func (s *Store) queryActive(ctx context.Context, kind domain.SanctionKind, target uuid.UUID) (domain.SanctionRecord, error) {
	table, errTable := tableFor(kind)
	if errTable != nil {
		return domain.SanctionRecord{}, errTable
	}

	row, errRow := s.db.QueryRowBuilder(ctx, s.db.
		Builder().
		Select("id", "by_uuid", "by_name", "reason", "created_at", "expires_at").
		From(table).
		Where(sq.Eq{"player_uuid": target.String(), "active": 1}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1))
	if errRow != nil {
		return domain.SanctionRecord{}, database.DBErr(errRow)
	}

	var (
		record    = domain.SanctionRecord{Target: target, Active: true}
		rawIssuer string
		createdAt int64
		expiresAt *int64
	)

	if errScan := row.Scan(&record.ID, &rawIssuer, &record.IssuerName,
		&record.Reason, &createdAt, &expiresAt); errScan != nil {
		return domain.SanctionRecord{}, database.DBErr(errScan)
	}

	issuer, errIssuer := domain.DecodeIssuer(rawIssuer)
	if errIssuer != nil {
		return domain.SanctionRecord{}, errIssuer
	}

	record.Issuer = issuer
	record.CreatedAt = time.Unix(createdAt, 0)
	record.ExpiresAt = decodeExpiry(expiresAt)

	if kind != domain.KindBan && record.Expired(s.now()) {
		if _, errRevoke := s.revoke(ctx, kind, target); errRevoke != nil {
			return domain.SanctionRecord{}, errRevoke
		}

		return domain.SanctionRecord{}, database.ErrNoResult
	}

	return record, nil
}

// ActiveJail returns the newest active jail record including its waypoint
// name, applying the same lazy expiry as QueryActive.
func (s *Store) ActiveJail(ctx context.Context, target uuid.UUID) (domain.JailRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, errRow := s.db.QueryRowBuilder(ctx, s.db.
		Builder().
		Select("id", "by_uuid", "by_name", "jail_name", "reason", "created_at", "expires_at").
		From("jails").
		Where(sq.Eq{"player_uuid": target.String(), "active": 1}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1))
	if errRow != nil {
		return domain.JailRecord{}, database.DBErr(errRow)
	}

	var (
		record    = domain.JailRecord{SanctionRecord: domain.SanctionRecord{Target: target, Active: true}}
		rawIssuer string
		createdAt int64
		expiresAt *int64
	)

	if errScan := row.Scan(&record.ID, &rawIssuer, &record.IssuerName, &record.JailName,
		&record.Reason, &createdAt, &expiresAt); errScan != nil {
		return domain.JailRecord{}, database.DBErr(errScan)
	}

	issuer, errIssuer := domain.DecodeIssuer(rawIssuer)
	if errIssuer != nil {
		return domain.JailRecord{}, errIssuer
	}

	record.Issuer = issuer
	record.CreatedAt = time.Unix(createdAt, 0)
	record.ExpiresAt = decodeExpiry(expiresAt)

	if record.Expired(s.now()) {
		if _, errRevoke := s.revoke(ctx, domain.KindJail, target); errRevoke != nil {
			return domain.JailRecord{}, errRevoke
		}

		return domain.JailRecord{}, database.ErrNoResult
	}

	return record, nil
}

// IsMuted reports whether the target currently has an unexpired active mute.
func (s *Store) IsMuted(ctx context.Context, target uuid.UUID) (bool, error) {
	return s.isActive(ctx, domain.KindMute, target)
}

// IsJailed reports whether the target currently has an unexpired active jail.
func (s *Store) IsJailed(ctx context.Context, target uuid.UUID) (bool, error) {
	return s.isActive(ctx, domain.KindJail, target)
}

func (s *Store) isActive(ctx context.Context, kind domain.SanctionKind, target uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, errQuery := s.queryActive(ctx, kind, target); errQuery != nil {
		if errors.Is(errQuery, database.ErrNoResult) {
			return false, nil
		}

		return false, errQuery
	}

	return true, nil
}

// ListActive returns active sanctions of one kind, newest first.
func (s *Store) ListActive(ctx context.Context, kind domain.SanctionKind, offset int, limit int) ([]domain.SanctionRecord, error) {
	table, errTable := tableFor(kind)
	if errTable != nil {
		return nil, errTable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, errRows := s.db.QueryBuilder(ctx, s.db.
		Builder().
		Select("id", "player_uuid", "by_uuid", "by_name", "reason", "created_at", "expires_at").
		From(table).
		Where(sq.Eq{"active": 1}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)). //nolint:gosec
		Offset(uint64(offset))) //nolint:gosec
	if errRows != nil {
		return nil, database.DBErr(errRows)
	}

	defer rows.Close()

	var out []domain.SanctionRecord

	for rows.Next() {
		var (
			record    = domain.SanctionRecord{Active: true}
			rawTarget string
			rawIssuer string
			createdAt int64
			expiresAt *int64
		)

		if errScan := rows.Scan(&record.ID, &rawTarget, &rawIssuer, &record.IssuerName,
			&record.Reason, &createdAt, &expiresAt); errScan != nil {
			return nil, database.DBErr(errScan)
		}

		target, errTarget := uuid.FromString(rawTarget)
		if errTarget != nil {
			return nil, errTarget //nolint:wrapcheck
		}

		issuer, errIssuer := domain.DecodeIssuer(rawIssuer)
		if errIssuer != nil {
			return nil, errIssuer
		}

		record.Target = target
		record.Issuer = issuer
		record.CreatedAt = time.Unix(createdAt, 0)
		record.ExpiresAt = decodeExpiry(expiresAt)

		out = append(out, record)
	}

	if errRows := rows.Err(); errRows != nil {
		return nil, database.DBErr(errRows)
	}

	return out, nil
}

// ListActiveJails returns active jail records with their waypoint names,
// newest first.
func (s *Store) ListActiveJails(ctx context.Context, offset int, limit int) ([]domain.JailRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, errRows := s.db.QueryBuilder(ctx, s.db.
		Builder().
		Select("id", "player_uuid", "by_uuid", "by_name", "jail_name", "reason", "created_at", "expires_at").
		From("jails").
		Where(sq.Eq{"active": 1}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)). //nolint:gosec
		Offset(uint64(offset))) //nolint:gosec
	if errRows != nil {
		return nil, database.DBErr(errRows)
	}

	defer rows.Close()

	var out []domain.JailRecord

	for rows.Next() {
		var (
			record    = domain.JailRecord{SanctionRecord: domain.SanctionRecord{Active: true}}
			rawTarget string
			rawIssuer string
			createdAt int64
			expiresAt *int64
		)

		if errScan := rows.Scan(&record.ID, &rawTarget, &rawIssuer, &record.IssuerName,
			&record.JailName, &record.Reason, &createdAt, &expiresAt); errScan != nil {
			return nil, database.DBErr(errScan)
		}

		target, errTarget := uuid.FromString(rawTarget)
		if errTarget != nil {
			return nil, errTarget //nolint:wrapcheck
		}

		issuer, errIssuer := domain.DecodeIssuer(rawIssuer)
		if errIssuer != nil {
			return nil, errIssuer
		}

		record.Target = target
		record.Issuer = issuer
		record.CreatedAt = time.Unix(createdAt, 0)
		record.ExpiresAt = decodeExpiry(expiresAt)

		out = append(out, record)
	}

	if errRows := rows.Err(); errRows != nil {
		return nil, database.DBErr(errRows)
	}

	return out, nil
}

// CountActive counts active rows of one kind.
func (s *Store) CountActive(ctx context.Context, kind domain.SanctionKind) (int64, error) {
	table, errTable := tableFor(kind)
	if errTable != nil {
		return 0, errTable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.GetCount(ctx, s.db.
		Builder().
		Select("COUNT(*)").
		From(table).
		Where(sq.Eq{"active": 1}))
}

// SetJail upserts a jail waypoint. Names are case-insensitive and stored
// lowercased.
func (s *Store) SetJail(ctx context.Context, name string, loc domain.StoredLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, errExec := s.db.Exec(ctx, `INSERT INTO jail_locations (name, world_key, x, y, z, yaw, pitch)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			world_key = excluded.world_key, x = excluded.x, y = excluded.y, z = excluded.z,
			yaw = excluded.yaw, pitch = excluded.pitch`,
		strings.ToLower(name), loc.WorldKey, loc.X, loc.Y, loc.Z, loc.Yaw, loc.Pitch)

	return database.DBErr(errExec)
}

// GetJail returns the waypoint by case-insensitive name, or
// database.ErrNoResult. Waypoints are independent of any player's jail record.
func (s *Store) GetJail(ctx context.Context, name string) (domain.StoredLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, errRow := s.db.QueryRowBuilder(ctx, s.db.
		Builder().
		Select("world_key", "x", "y", "z", "yaw", "pitch").
		From("jail_locations").
		Where(sq.Eq{"name": strings.ToLower(name)}))
	if errRow != nil {
		return domain.StoredLocation{}, database.DBErr(errRow)
	}

	var loc domain.StoredLocation

	if errScan := row.Scan(&loc.WorldKey, &loc.X, &loc.Y, &loc.Z, &loc.Yaw, &loc.Pitch); errScan != nil {
		return domain.StoredLocation{}, database.DBErr(errScan)
	}

	return loc, nil
}

// ListAllJails returns every jail waypoint keyed by name.
func (s *Store) ListAllJails(ctx context.Context) (map[string]domain.StoredLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, errRows := s.db.QueryBuilder(ctx, s.db.
		Builder().
		Select("name", "world_key", "x", "y", "z", "yaw", "pitch").
		From("jail_locations").
		OrderBy("name"))
	if errRows != nil {
		return nil, database.DBErr(errRows)
	}

	defer rows.Close()

	out := map[string]domain.StoredLocation{}

	for rows.Next() {
		var (
			name string
			loc  domain.StoredLocation
		)

		if errScan := rows.Scan(&name, &loc.WorldKey, &loc.X, &loc.Y, &loc.Z, &loc.Yaw, &loc.Pitch); errScan != nil {
			return nil, database.DBErr(errScan)
		}

		out[name] = loc
	}

	if errRows := rows.Err(); errRows != nil {
		return nil, database.DBErr(errRows)
	}

	return out, nil
}
