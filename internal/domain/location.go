package domain

import "errors"

// SentinelKey is the reserved key used as the single default slot for
// singleton location types. Blank keys are normalized to it on write and read.
const SentinelKey = "_"

var ErrInvalidLocationType = errors.New("invalid location type")

// LocationType is the closed set of named-location categories. Values match
// the uppercase names stored in the locations table.
type LocationType string

const (
	// Back is the singleton "previous position" slot, written before teleports.
	Back LocationType = "BACK"
	// Spawn is the singleton spawn slot, used for both player and global spawns.
	Spawn LocationType = "SPAWN"
	// Warp is multi-key and global, owned by the shared GlobalOwner partition.
	Warp LocationType = "WARP"
	// Home is multi-key and scoped to a single player.
	Home LocationType = "HOME"
)

// ParseLocationType maps a stored type name back onto the enum. Rows holding
// an unknown name are skipped during hydration rather than surfaced.
func ParseLocationType(name string) (LocationType, error) {
	switch LocationType(name) {
	case Back, Spawn, Warp, Home:
		return LocationType(name), nil
	default:
		return "", ErrInvalidLocationType
	}
}

// Singleton reports whether the type uses the sentinel key as its only slot.
func (t LocationType) Singleton() bool {
	return t == Back || t == Spawn
}

// Global reports whether entries of this type live in the shared partition
// rather than under a specific player.
func (t LocationType) Global() bool {
	return t == Warp
}

// StoredLocation is an immutable position value. It has no identity of its
// own; it is always owned by a location entry or a jail waypoint.
type StoredLocation struct {
	WorldKey string
	X        float64
	Y        float64
	Z        float64
	Yaw      float32
	Pitch    float32
}
