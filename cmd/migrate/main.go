// migrate prepares the session schema: Postgres migrations from embedded SQL,
// or the Mongo session indexes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/moodlens/moodlens/backend/session-service/internal/config"
	"github.com/moodlens/moodlens/backend/session-service/internal/database"
	"github.com/moodlens/moodlens/backend/session-service/internal/sessions"
)

var errUsage = errors.New("usage")

func main() {
	target := flag.String("target", "postgres", "Schema target: postgres or mongo")
	direction := flag.String("direction", "up", "Migration direction for postgres: up or down")
	flag.Parse()

	if err := run(context.Background(), config.Load(), *target, *direction); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// run migrates one target. Only the settings of that target are required,
// whatever SESSION_STORE selects for the service.
func run(ctx context.Context, cfg *config.Config, target, direction string) error {
	switch target {
	case "postgres":
		if cfg.Postgres.URL == "" {
			return errors.New("migrate: POSTGRES_URL is required for -target=postgres")
		}
		if err := database.MigratePostgres(cfg.Postgres.URL, direction); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		return nil
	case "mongo":
		if cfg.MongoDB.URI == "" {
			return errors.New("mongo: MONGODB_URI is required for -target=mongo")
		}
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err != nil {
			return fmt.Errorf("mongo: %w", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		repo := sessions.NewMongoRepository(client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection))
		if err := repo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("indexes: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown target %q (want postgres or mongo)", errUsage, target)
	}
}
