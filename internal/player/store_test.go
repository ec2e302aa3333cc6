package player_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/essencekit/essence/internal/database"
	"github.com/essencekit/essence/internal/player"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

// manualClock hands out a strictly advancing wall clock so updated_at
// ordering is deterministic at second granularity.
type manualClock struct {
	current time.Time
}

func newManualClock() *manualClock {
	return &manualClock{current: time.Unix(1700000000, 0)}
}

func (c *manualClock) Now() time.Time {
	return c.current
}

func (c *manualClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newStore(t *testing.T, clock *manualClock) *player.Store {
	t.Helper()

	store, errOpen := player.Open(context.Background(), filepath.Join(t.TempDir(), "players.db"), false,
		player.WithClock(clock.Now))
	require.NoError(t, errOpen)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

func TestIdentifyUpsert(t *testing.T) {
	clock := newManualClock()
	store := newStore(t, clock)
	id := uuid.Must(uuid.NewV4())

	identity, errIdentify := store.Identify(context.Background(), id, "Steve")
	require.NoError(t, errIdentify)
	require.Equal(t, "Steve", identity.Name)
	require.Equal(t, id, identity.ID)

	clock.Advance(time.Second)

	// A later observation with a new name replaces the old one.
	renamed, errRename := store.Identify(context.Background(), id, "Steven")
	require.NoError(t, errRename)
	require.Equal(t, "Steven", renamed.Name)
	require.True(t, renamed.UpdatedAt.After(identity.UpdatedAt))

	_, errOld := store.LookupByName(context.Background(), "Steve")
	require.ErrorIs(t, errOld, database.ErrNoResult)

	found, errNew := store.LookupByName(context.Background(), "Steven")
	require.NoError(t, errNew)
	require.Equal(t, id, found.ID)
}

func TestIdentifyIDUnknownFallsBackToStringifiedID(t *testing.T) {
	store := newStore(t, newManualClock())
	id := uuid.Must(uuid.NewV4())

	identity, errIdentify := store.IdentifyID(context.Background(), id)
	require.NoError(t, errIdentify)
	require.Equal(t, id.String(), identity.Name)
}

func TestIdentifyIDPrefersBackendName(t *testing.T) {
	clock := newManualClock()
	path := filepath.Join(t.TempDir(), "players.db")
	id := uuid.Must(uuid.NewV4())

	store, errOpen := player.Open(context.Background(), path, false, player.WithClock(clock.Now))
	require.NoError(t, errOpen)

	_, errIdentify := store.Identify(context.Background(), id, "Steve")
	require.NoError(t, errIdentify)
	require.NoError(t, store.Close())

	// A fresh store has an empty hot cache, so the name must come from the
	// backend rather than the stringified id.
	reopened, errReopen := player.Open(context.Background(), path, false, player.WithClock(clock.Now))
	require.NoError(t, errReopen)

	defer func() {
		require.NoError(t, reopened.Close())
	}()

	identity, errResolve := reopened.IdentifyID(context.Background(), id)
	require.NoError(t, errResolve)
	require.Equal(t, "Steve", identity.Name)
}

func TestLookupByNameCaseInsensitive(t *testing.T) {
	store := newStore(t, newManualClock())
	id := uuid.Must(uuid.NewV4())

	_, errIdentify := store.Identify(context.Background(), id, "Herobrine")
	require.NoError(t, errIdentify)

	found, errLookup := store.LookupByName(context.Background(), "hEROBRINE")
	require.NoError(t, errLookup)
	require.Equal(t, id, found.ID)

	_, errMissing := store.LookupByName(context.Background(), "nobody")
	require.ErrorIs(t, errMissing, database.ErrNoResult)
}

func TestPrefixSearch(t *testing.T) {
	clock := newManualClock()
	store := newStore(t, clock)

	names := []string{"Alpha", "alpine", "Beta", "ALVIN"}
	for _, name := range names {
		_, errIdentify := store.Identify(context.Background(), uuid.Must(uuid.NewV4()), name)
		require.NoError(t, errIdentify)
		clock.Advance(time.Second)
	}

	count, errCount := store.CountByPrefix(context.Background(), "al")
	require.NoError(t, errCount)
	require.EqualValues(t, 3, count)

	// Most recently updated first.
	page, errList := store.ListByPrefix(context.Background(), "al", 0, 10)
	require.NoError(t, errList)
	require.Len(t, page, 3)
	require.Equal(t, "ALVIN", page[0].Name)
	require.Equal(t, "alpine", page[1].Name)
	require.Equal(t, "Alpha", page[2].Name)

	// Concatenated pages cover every match exactly once.
	var paged []string

	for offset := 0; offset < 3; offset += 2 {
		chunk, errChunk := store.ListByPrefix(context.Background(), "al", offset, 2)
		require.NoError(t, errChunk)

		for _, identity := range chunk {
			paged = append(paged, identity.Name)
		}
	}

	require.Equal(t, []string{"ALVIN", "alpine", "Alpha"}, paged)

	all, errAll := store.CountByPrefix(context.Background(), "")
	require.NoError(t, errAll)
	require.EqualValues(t, 4, all)
}

func TestListOnlineReflectsHotCache(t *testing.T) {
	clock := newManualClock()
	path := filepath.Join(t.TempDir(), "players.db")

	store, errOpen := player.Open(context.Background(), path, false, player.WithClock(clock.Now))
	require.NoError(t, errOpen)

	first := uuid.Must(uuid.NewV4())
	second := uuid.Must(uuid.NewV4())

	_, errFirst := store.Identify(context.Background(), first, "First")
	require.NoError(t, errFirst)
	_, errSecond := store.Identify(context.Background(), second, "Second")
	require.NoError(t, errSecond)
	require.NoError(t, store.Close())

	reopened, errReopen := player.Open(context.Background(), path, false, player.WithClock(clock.Now))
	require.NoError(t, errReopen)

	defer func() {
		require.NoError(t, reopened.Close())
	}()

	// Nothing touched yet, so nobody is "online".
	require.Empty(t, reopened.ListOnline())

	_, errTouch := reopened.IdentifyID(context.Background(), first)
	require.NoError(t, errTouch)

	online := reopened.ListOnline()
	require.Len(t, online, 1)
	require.Equal(t, first, online[0].ID)

	// A full scan refreshes the cache with every known identity.
	everyone, errEveryone := reopened.All(context.Background())
	require.NoError(t, errEveryone)
	require.Len(t, everyone, 2)
	require.Len(t, reopened.ListOnline(), 2)
}

func TestRename(t *testing.T) {
	clock := newManualClock()
	store := newStore(t, clock)
	id := uuid.Must(uuid.NewV4())

	_, errIdentify := store.Identify(context.Background(), id, "Steve")
	require.NoError(t, errIdentify)

	clock.Advance(time.Second)
	require.NoError(t, store.Rename(context.Background(), id, "Alex"))

	found, errLookup := store.LookupByName(context.Background(), "Alex")
	require.NoError(t, errLookup)
	require.Equal(t, id, found.ID)
}
