package domain

import (
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
)

var (
	ErrInvalidKind = errors.New("invalid sanction kind")
	// ErrPermanentJail is returned when a jail is issued without an expiry.
	ErrPermanentJail = errors.New("jails cannot be permanent")
	ErrInvalidIssuer = errors.New("invalid issuer encoding")
)

// SanctionKind selects one of the three sanction tables.
type SanctionKind string

const (
	KindBan  SanctionKind = "ban"
	KindMute SanctionKind = "mute"
	KindJail SanctionKind = "jail"
)

func (k SanctionKind) Valid() bool {
	return k == KindBan || k == KindMute || k == KindJail
}

// consoleIssuer is the by_uuid column value for console-issued sanctions.
const consoleIssuer = "CONSOLE"

// Issuer identifies who issued a sanction: either the console or a specific
// player. The zero value is the console.
type Issuer struct {
	player uuid.UUID
}

func ConsoleIssuer() Issuer {
	return Issuer{}
}

func PlayerIssuer(id uuid.UUID) Issuer {
	return Issuer{player: id}
}

func (i Issuer) Console() bool {
	return i.player == uuid.Nil
}

// Player returns the issuing player id, or false for the console.
func (i Issuer) Player() (uuid.UUID, bool) {
	if i.player == uuid.Nil {
		return uuid.Nil, false
	}

	return i.player, true
}

// Encode renders the issuer into its by_uuid column form.
func (i Issuer) Encode() string {
	if i.player == uuid.Nil {
		return consoleIssuer
	}

	return i.player.String()
}

// DecodeIssuer parses a by_uuid column value.
func DecodeIssuer(value string) (Issuer, error) {
	if value == consoleIssuer {
		return ConsoleIssuer(), nil
	}

	id, errParse := uuid.FromString(value)
	if errParse != nil {
		return Issuer{}, errors.Join(errParse, ErrInvalidIssuer)
	}

	return PlayerIssuer(id), nil
}

// SanctionRecord is the shared shape of ban and mute rows. A nil ExpiresAt
// means permanent, which is legal only for bans and mutes. Rows are never
// deleted, only flagged inactive.
type SanctionRecord struct {
	ID         int64
	Target     uuid.UUID
	Issuer     Issuer
	IssuerName string
	Reason     string
	CreatedAt  time.Time
	ExpiresAt  *time.Time
	Active     bool
}

// Permanent reports whether the sanction has no expiry.
func (r SanctionRecord) Permanent() bool {
	return r.ExpiresAt == nil
}

// Expired reports whether the sanction's expiry has passed at the given time.
// Permanent sanctions never expire.
func (r SanctionRecord) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

// JailRecord is a sanction row that additionally names the waypoint the
// player is confined to. Jails always carry an expiry.
type JailRecord struct {
	SanctionRecord
	JailName string
}
