package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/moodlens/moodlens/backend/session-service/internal/config"
)

func TestRun_PostgresIgnoresSelectedStore(t *testing.T) {
	// the service default store is mongo; its settings are irrelevant here
	t.Setenv("SESSION_STORE", "mongo")
	t.Setenv("MONGODB_URI", "")
	t.Setenv("POSTGRES_URL", "")

	err := run(context.Background(), config.Load(), "postgres", "up")
	require.ErrorContains(t, err, "POSTGRES_URL")
	require.NotContains(t, err.Error(), "MONGODB_URI")
}

func TestRun_PostgresRejectsDirection(t *testing.T) {
	cfg := &config.Config{}
	cfg.Postgres.URL = "postgres://localhost/sessions"
	err := run(context.Background(), cfg, "postgres", "sideways")
	require.ErrorContains(t, err, "direction must be up or down")
}

func TestRun_MongoNeedsURI(t *testing.T) {
	err := run(context.Background(), &config.Config{}, "mongo", "up")
	require.ErrorContains(t, err, "MONGODB_URI")
}

func TestRun_UnknownTarget(t *testing.T) {
	err := run(context.Background(), &config.Config{}, "cassandra", "up")
	require.ErrorIs(t, err, errUsage)
}
