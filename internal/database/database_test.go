package database

import (
	"context"
	"errors"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestMigratePostgres_RejectsBadInput(t *testing.T) {
	require.Error(t, MigratePostgres("", "up"))
	for _, dir := range []string{"", "UP", "sideways"} {
		err := MigratePostgres("postgres://localhost/sessions", dir)
		require.ErrorContains(t, err, "direction must be up or down")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationFS.ReadDir("migrations")
	require.NoError(t, err)
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name()] = true
	}
	require.True(t, names["000001_create_sessions.up.sql"])
	require.True(t, names["000001_create_sessions.down.sql"])
}

func TestConnectPostgres_EmptyDSN(t *testing.T) {
	_, err := ConnectPostgres(context.Background(), "", time.Second)
	require.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client, err := ConnectRedis(context.Background(), RedisOptions{Addr: m.Addr()}, time.Second)
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := m.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}

func TestConnectRedis_Unreachable(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	addr := m.Addr()
	m.Close()

	_, err = ConnectRedis(context.Background(), RedisOptions{Addr: addr}, 200*time.Millisecond)
	require.Error(t, err)
}

func TestRetry(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), "flaky", 3, time.Millisecond, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("not yet")
		}
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, got)
	require.Equal(t, 3, calls)

	calls = 0
	_, err = Retry(context.Background(), "down", 2, time.Millisecond, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("refused")
	})
	require.EqualError(t, err, "refused")
	require.Equal(t, 2, calls)
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Retry(ctx, "cancelled", 5, time.Hour, func(context.Context) (string, error) {
		return "", errors.New("refused")
	})
	require.ErrorIs(t, err, context.Canceled)
}
