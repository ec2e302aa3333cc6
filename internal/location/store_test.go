package location_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/essencekit/essence/internal/database"
	"github.com/essencekit/essence/internal/domain"
	"github.com/essencekit/essence/internal/location"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

func testLocation(world string, x float64) domain.StoredLocation {
	return domain.StoredLocation{WorldKey: world, X: x, Y: 64, Z: -12.5, Yaw: 90, Pitch: -5}
}

func newStore(t *testing.T) *location.Store {
	t.Helper()

	store, errOpen := location.Open(context.Background(), filepath.Join(t.TempDir(), "locations.db"), false)
	require.NoError(t, errOpen)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

func TestSetGetRoundTrip(t *testing.T) {
	store := newStore(t)
	owner := uuid.Must(uuid.NewV4())
	loc := testLocation("overworld", 100.25)

	require.NoError(t, store.Set(context.Background(), owner, domain.Home, "base", loc))

	fetched, errGet := store.Get(context.Background(), owner, domain.Home, "base")
	require.NoError(t, errGet)
	require.Equal(t, loc, fetched)
}

func TestSetReplacesNotDuplicates(t *testing.T) {
	store := newStore(t)
	owner := uuid.Must(uuid.NewV4())
	first := testLocation("overworld", 1)
	second := testLocation("nether", 2)

	require.NoError(t, store.Set(context.Background(), owner, domain.Home, "base", first))
	require.NoError(t, store.Set(context.Background(), owner, domain.Home, "base", second))

	fetched, errGet := store.Get(context.Background(), owner, domain.Home, "base")
	require.NoError(t, errGet)
	require.Equal(t, second, fetched)

	homes, errList := store.List(context.Background(), owner, domain.Home)
	require.NoError(t, errList)
	require.Len(t, homes, 1)
	require.Equal(t, second, homes["base"])
}

func TestDelete(t *testing.T) {
	store := newStore(t)
	owner := uuid.Must(uuid.NewV4())

	require.NoError(t, store.Set(context.Background(), owner, domain.Home, "base", testLocation("overworld", 1)))

	existed, errDelete := store.Delete(context.Background(), owner, domain.Home, "base")
	require.NoError(t, errDelete)
	require.True(t, existed)

	_, errGet := store.Get(context.Background(), owner, domain.Home, "base")
	require.ErrorIs(t, errGet, database.ErrNoResult)

	existed, errDelete = store.Delete(context.Background(), owner, domain.Home, "base")
	require.NoError(t, errDelete)
	require.False(t, existed)
}

func TestSingletonSentinelKey(t *testing.T) {
	store := newStore(t)
	owner := uuid.Must(uuid.NewV4())
	loc := testLocation("overworld", 7)

	// A blank key normalizes to the sentinel slot.
	require.NoError(t, store.Set(context.Background(), owner, domain.Spawn, "", loc))

	fetched, errGet := store.GetSingle(context.Background(), owner, domain.Spawn)
	require.NoError(t, errGet)
	require.Equal(t, loc, fetched)

	require.NoError(t, store.SetSingle(context.Background(), owner, domain.Back, testLocation("nether", 3)))

	existed, errDelete := store.DeleteSingle(context.Background(), owner, domain.Back)
	require.NoError(t, errDelete)
	require.True(t, existed)
}

func TestListReturnsDefensiveCopy(t *testing.T) {
	store := newStore(t)
	owner := uuid.Must(uuid.NewV4())
	loc := testLocation("overworld", 1)

	require.NoError(t, store.Set(context.Background(), owner, domain.Home, "base", loc))

	homes, errList := store.List(context.Background(), owner, domain.Home)
	require.NoError(t, errList)

	delete(homes, "base")
	homes["intruder"] = testLocation("end", 9)

	again, errAgain := store.List(context.Background(), owner, domain.Home)
	require.NoError(t, errAgain)
	require.Len(t, again, 1)
	require.Equal(t, loc, again["base"])

	snapshot, errSnapshot := store.ListAll(context.Background(), owner)
	require.NoError(t, errSnapshot)

	delete(snapshot[domain.Home], "base")

	final, errFinal := store.ListAll(context.Background(), owner)
	require.NoError(t, errFinal)
	require.Equal(t, loc, final[domain.Home]["base"])
}

func TestDeleteAllOfType(t *testing.T) {
	store := newStore(t)
	owner := uuid.Must(uuid.NewV4())

	require.NoError(t, store.Set(context.Background(), owner, domain.Home, "base", testLocation("overworld", 1)))
	require.NoError(t, store.Set(context.Background(), owner, domain.Home, "farm", testLocation("overworld", 2)))
	require.NoError(t, store.SetSingle(context.Background(), owner, domain.Spawn, testLocation("overworld", 3)))

	removed, errRemove := store.DeleteAllOfType(context.Background(), owner, domain.Home)
	require.NoError(t, errRemove)
	require.True(t, removed)

	homes, errList := store.List(context.Background(), owner, domain.Home)
	require.NoError(t, errList)
	require.Empty(t, homes)

	// Other types are untouched.
	_, errSpawn := store.GetSingle(context.Background(), owner, domain.Spawn)
	require.NoError(t, errSpawn)

	removed, errRemove = store.DeleteAllOfType(context.Background(), owner, domain.Home)
	require.NoError(t, errRemove)
	require.False(t, removed)
}

func TestWarpGlobalPartition(t *testing.T) {
	store := newStore(t)
	player := uuid.Must(uuid.NewV4())
	loc := testLocation("overworld", 50)

	require.NoError(t, store.SetWarp(context.Background(), "market", loc))

	fetched, errGet := store.GetWarp(context.Background(), "market")
	require.NoError(t, errGet)
	require.Equal(t, loc, fetched)

	warps, errWarps := store.Warps(context.Background())
	require.NoError(t, errWarps)
	require.Len(t, warps, 1)

	// Warps are not visible under any player-scoped partition.
	playerWarps, errList := store.List(context.Background(), player, domain.Warp)
	require.NoError(t, errList)
	require.Empty(t, playerWarps)

	existed, errDelete := store.DeleteWarp(context.Background(), "market")
	require.NoError(t, errDelete)
	require.True(t, existed)
}

func TestHydrationAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.db")
	owner := uuid.Must(uuid.NewV4())
	loc := testLocation("overworld", 12)

	store, errOpen := location.Open(context.Background(), path, false)
	require.NoError(t, errOpen)
	require.NoError(t, store.Set(context.Background(), owner, domain.Home, "base", loc))
	require.NoError(t, store.Close())

	reopened, errReopen := location.Open(context.Background(), path, false)
	require.NoError(t, errReopen)

	defer func() {
		require.NoError(t, reopened.Close())
	}()

	fetched, errGet := reopened.Get(context.Background(), owner, domain.Home, "base")
	require.NoError(t, errGet)
	require.Equal(t, loc, fetched)
}

func TestMissAfterHydrationIsAuthoritative(t *testing.T) {
	store := newStore(t)
	owner := uuid.Must(uuid.NewV4())

	_, errGet := store.Get(context.Background(), owner, domain.Home, "nowhere")
	require.ErrorIs(t, errGet, database.ErrNoResult)
}

func TestCloseIsIdempotent(t *testing.T) {
	store, errOpen := location.Open(context.Background(), filepath.Join(t.TempDir(), "locations.db"), false)
	require.NoError(t, errOpen)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
