package sessions

import (
	"context"
	"os"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/moodlens/moodlens/backend/session-service/internal/database"
	"github.com/moodlens/moodlens/backend/session-service/internal/tokens"
)

func newRecord(t *testing.T, userID string, created time.Time, ttl time.Duration) *Session {
	t.Helper()
	tok, err := tokens.NewGenerator().Generate()
	require.NoError(t, err)
	created = created.UTC().Truncate(time.Millisecond)
	return &Session{
		ID:           uuid.NewString(),
		Token:        tok,
		UserID:       userID,
		Username:     "name-" + userID,
		Email:        userID + "@example.com",
		CreatedAt:    created,
		ExpiresAt:    created.Add(ttl),
		LastAccessed: created,
	}
}

// repositoryContract is the behaviour every backend must share.
func repositoryContract(t *testing.T, repo Repository) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)
	// unique per run so shared databases do not interfere
	u1 := "u1-" + uuid.NewString()
	u2 := "u2-" + uuid.NewString()

	t.Run("InsertGet", func(t *testing.T) {
		s := newRecord(t, u1, base, time.Hour)
		require.NoError(t, repo.Insert(ctx, s))
		got, err := repo.GetByToken(ctx, s.Token)
		require.NoError(t, err)
		require.Equal(t, s.ID, got.ID)
		require.Equal(t, s.UserID, got.UserID)
		require.Equal(t, s.Username, got.Username)
		require.Equal(t, s.Email, got.Email)
		require.True(t, s.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", s.CreatedAt, got.CreatedAt)
		require.True(t, s.ExpiresAt.Equal(got.ExpiresAt), "expires_at %v != %v", s.ExpiresAt, got.ExpiresAt)
		require.NoError(t, repo.DeleteByToken(ctx, s.Token))
	})

	t.Run("DuplicateTokenIsCollision", func(t *testing.T) {
		s := newRecord(t, u1, base, time.Hour)
		require.NoError(t, repo.Insert(ctx, s))
		dup := *s
		dup.ID = uuid.NewString()
		dup.UserID = u2
		require.ErrorIs(t, repo.Insert(ctx, &dup), ErrTokenCollision)
		// original untouched
		got, err := repo.GetByToken(ctx, s.Token)
		require.NoError(t, err)
		require.Equal(t, u1, got.UserID)
		require.NoError(t, repo.DeleteByToken(ctx, s.Token))
	})

	t.Run("MissingIsNotFound", func(t *testing.T) {
		tok, _ := tokens.NewGenerator().Generate()
		_, err := repo.GetByToken(ctx, tok)
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, repo.Touch(ctx, tok, base), ErrNotFound)
		// idempotent delete
		require.NoError(t, repo.DeleteByToken(ctx, tok))
	})

	t.Run("TouchIsMonotonic", func(t *testing.T) {
		s := newRecord(t, u1, base, time.Hour)
		require.NoError(t, repo.Insert(ctx, s))
		later := base.Add(10 * time.Minute)
		require.NoError(t, repo.Touch(ctx, s.Token, later))
		require.NoError(t, repo.Touch(ctx, s.Token, base.Add(time.Minute)))
		got, err := repo.GetByToken(ctx, s.Token)
		require.NoError(t, err)
		require.True(t, later.Equal(got.LastAccessed), "last_accessed %v, want %v", got.LastAccessed, later)
		require.NoError(t, repo.DeleteByToken(ctx, s.Token))
	})

	t.Run("DeleteByUser", func(t *testing.T) {
		a := newRecord(t, u1, base, time.Hour)
		b := newRecord(t, u1, base, time.Hour)
		other := newRecord(t, u2, base, time.Hour)
		for _, s := range []*Session{a, b, other} {
			require.NoError(t, repo.Insert(ctx, s))
		}
		n, err := repo.CountByUser(ctx, u1)
		require.NoError(t, err)
		require.Equal(t, int64(2), n)

		removed, err := repo.DeleteByUser(ctx, u1)
		require.NoError(t, err)
		require.Equal(t, int64(2), removed)

		n, err = repo.CountByUser(ctx, u1)
		require.NoError(t, err)
		require.Zero(t, n)
		_, err = repo.GetByToken(ctx, a.Token)
		require.ErrorIs(t, err, ErrNotFound)

		got, err := repo.GetByToken(ctx, other.Token)
		require.NoError(t, err)
		require.Equal(t, u2, got.UserID)
		require.NoError(t, repo.DeleteByToken(ctx, other.Token))
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		short := newRecord(t, u1, base, time.Hour)
		long := newRecord(t, u1, base, 3*time.Hour)
		require.NoError(t, repo.Insert(ctx, short))
		require.NoError(t, repo.Insert(ctx, long))

		n, err := repo.DeleteExpired(ctx, base.Add(2*time.Hour))
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, int64(1))

		_, err = repo.GetByToken(ctx, short.Token)
		require.ErrorIs(t, err, ErrNotFound)
		_, err = repo.GetByToken(ctx, long.Token)
		require.NoError(t, err)
		require.NoError(t, repo.DeleteByToken(ctx, long.Token))
	})

	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, repo.Ping(ctx))
	})
}

func TestMemoryRepository_Contract(t *testing.T) {
	repositoryContract(t, NewMemoryRepository())
}

func TestRedisRepository_Contract(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repositoryContract(t, NewRedisRepository(client, "test:session:"))
}

func TestMongoRepository_Contract(t *testing.T) {
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(context.Background()) }()

	col := client.Database("moodlens_test").Collection("sessions")
	repo := NewMongoRepository(col)
	require.NoError(t, repo.EnsureIndexes(ctx))
	repositoryContract(t, repo)
}

func TestPostgresRepository_Contract(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}
	require.NoError(t, database.MigratePostgres(dsn, "up"))

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	defer pool.Close()
	repositoryContract(t, NewPostgresRepository(pool))
}
