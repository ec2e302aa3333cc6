package domain_test

import (
	"testing"
	"time"

	"github.com/essencekit/essence/internal/domain"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

func TestIssuerEncoding(t *testing.T) {
	id := uuid.Must(uuid.NewV4())

	require.Equal(t, "CONSOLE", domain.ConsoleIssuer().Encode())
	require.Equal(t, id.String(), domain.PlayerIssuer(id).Encode())

	console, errConsole := domain.DecodeIssuer("CONSOLE")
	require.NoError(t, errConsole)
	require.True(t, console.Console())

	player, errPlayer := domain.DecodeIssuer(id.String())
	require.NoError(t, errPlayer)

	decoded, isPlayer := player.Player()
	require.True(t, isPlayer)
	require.Equal(t, id, decoded)

	_, errBad := domain.DecodeIssuer("not-a-uuid")
	require.ErrorIs(t, errBad, domain.ErrInvalidIssuer)
}

func TestSanctionExpiry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	expiry := now.Add(time.Hour)

	permanent := domain.SanctionRecord{}
	require.True(t, permanent.Permanent())
	require.False(t, permanent.Expired(now.Add(1000*time.Hour)))

	temporary := domain.SanctionRecord{ExpiresAt: &expiry}
	require.False(t, temporary.Permanent())
	require.False(t, temporary.Expired(now))
	require.False(t, temporary.Expired(expiry))
	require.True(t, temporary.Expired(expiry.Add(time.Second)))
}

func TestLocationTypeClassification(t *testing.T) {
	require.True(t, domain.Back.Singleton())
	require.True(t, domain.Spawn.Singleton())
	require.False(t, domain.Warp.Singleton())
	require.False(t, domain.Home.Singleton())

	require.True(t, domain.Warp.Global())
	require.False(t, domain.Home.Global())

	parsed, errParse := domain.ParseLocationType("HOME")
	require.NoError(t, errParse)
	require.Equal(t, domain.Home, parsed)

	_, errUnknown := domain.ParseLocationType("PORTAL")
	require.ErrorIs(t, errUnknown, domain.ErrInvalidLocationType)
}
