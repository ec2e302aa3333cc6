package location

import "github.com/essencekit/essence/internal/domain"

// entryKey is the composite (type, key) identity of one entry inside an
// owner's partition.
type entryKey struct {
	Type domain.LocationType
	Key  string
}

// ownerCache holds every location row for one owner, hydrated in a single
// query. Once present in the store cache it is authoritative: a missing entry
// means the row does not exist.
type ownerCache map[entryKey]domain.StoredLocation

func (c ownerCache) put(locType domain.LocationType, key string, loc domain.StoredLocation) {
	c[entryKey{Type: locType, Key: key}] = loc
}

func (c ownerCache) get(locType domain.LocationType, key string) (domain.StoredLocation, bool) {
	loc, found := c[entryKey{Type: locType, Key: key}]

	return loc, found
}

func (c ownerCache) remove(locType domain.LocationType, key string) {
	delete(c, entryKey{Type: locType, Key: key})
}

// ofType returns a defensive copy of all entries of one type.
func (c ownerCache) ofType(locType domain.LocationType) map[string]domain.StoredLocation {
	out := map[string]domain.StoredLocation{}

	for key, loc := range c {
		if key.Type == locType {
			out[key.Key] = loc
		}
	}

	return out
}

// snapshot returns a defensive nested copy of the whole partition.
func (c ownerCache) snapshot() map[domain.LocationType]map[string]domain.StoredLocation {
	out := map[domain.LocationType]map[string]domain.StoredLocation{}

	for key, loc := range c {
		byKey, found := out[key.Type]
		if !found {
			byKey = map[string]domain.StoredLocation{}
			out[key.Type] = byKey
		}

		byKey[key.Key] = loc
	}

	return out
}

// withoutType rebuilds the partition excluding one type.
func (c ownerCache) withoutType(locType domain.LocationType) ownerCache {
	out := ownerCache{}

	for key, loc := range c {
		if key.Type != locType {
			out[key] = loc
		}
	}

	return out
}
