package sessions

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository implements Repository using Redis as the backing store.
// Each session is a hash under "<prefix><token>" expiring at expires_at; the
// tokens of a user are kept in the set "<prefix>user:<userID>".
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-based session repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(token string) string {
	return r.prefix + token
}

func (r *RedisRepository) userKey(userID string) string {
	return r.prefix + "user:" + userID
}

// insertScript refuses to overwrite an existing token.
var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1],
  'id', ARGV[1], 'token', ARGV[2], 'user_id', ARGV[3], 'username', ARGV[4], 'email', ARGV[5],
  'created_at', ARGV[6], 'expires_at', ARGV[7], 'last_accessed', ARGV[8])
redis.call('PEXPIREAT', KEYS[1], ARGV[7])
redis.call('SADD', KEYS[2], ARGV[2])
return 1
`)

// touchScript only moves last_accessed forward.
var touchScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'last_accessed')
if not cur then
  return 0
end
if tonumber(ARGV[1]) > tonumber(cur) then
  redis.call('HSET', KEYS[1], 'last_accessed', ARGV[1])
end
return 1
`)

func (r *RedisRepository) Insert(ctx context.Context, s *Session) error {
	ok, err := insertScript.Run(ctx, r.client,
		[]string{r.key(s.Token), r.userKey(s.UserID)},
		s.ID, s.Token, s.UserID, s.Username, s.Email,
		s.CreatedAt.UnixMilli(), s.ExpiresAt.UnixMilli(), s.LastAccessed.UnixMilli(),
	).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return ErrTokenCollision
	}
	return nil
}

func (r *RedisRepository) GetByToken(ctx context.Context, token string) (*Session, error) {
	m, err := r.client.HGetAll(ctx, r.key(token)).Result()
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, ErrNotFound
	}
	return decodeRedisSession(m)
}

func (r *RedisRepository) Touch(ctx context.Context, token string, at time.Time) error {
	ok, err := touchScript.Run(ctx, r.client, []string{r.key(token)}, at.UnixMilli()).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisRepository) DeleteByToken(ctx context.Context, token string) error {
	userID, err := r.client.HGet(ctx, r.key(token), "user_id").Result()
	if err != nil && err != redis.Nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.key(token))
		if userID != "" {
			p.SRem(ctx, r.userKey(userID), token)
		}
		return nil
	})
	return err
}

func (r *RedisRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	toks, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return 0, err
	}
	if len(toks) == 0 {
		return 0, nil
	}
	keys := make([]string, 0, len(toks))
	for _, t := range toks {
		keys = append(keys, r.key(t))
	}
	var del *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		del = p.Del(ctx, keys...)
		p.SRem(ctx, r.userKey(userID), stringsToArgs(toks)...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return del.Val(), nil
}

// CountByUser counts live records only; set members whose hash already
// expired in Redis are ignored.
func (r *RedisRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	toks, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return 0, err
	}
	if len(toks) == 0 {
		return 0, nil
	}
	keys := make([]string, 0, len(toks))
	for _, t := range toks {
		keys = append(keys, r.key(t))
	}
	return r.client.Exists(ctx, keys...).Result()
}

// DeleteExpired walks the per-user sets, removing records that are past
// expiry and pruning members whose hash Redis already evicted.
func (r *RedisRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	iter := r.client.Scan(ctx, 0, r.prefix+"user:*", 100).Iterator()
	for iter.Next(ctx) {
		setKey := iter.Val()
		toks, err := r.client.SMembers(ctx, setKey).Result()
		if err != nil {
			return removed, err
		}
		for _, tok := range toks {
			raw, err := r.client.HGet(ctx, r.key(tok), "expires_at").Result()
			if err == redis.Nil {
				if err := r.client.SRem(ctx, setKey, tok).Err(); err != nil {
					return removed, err
				}
				continue
			}
			if err != nil {
				return removed, err
			}
			ms, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return removed, fmt.Errorf("session %s: bad expires_at: %w", r.key(tok), err)
			}
			if ms > now.UnixMilli() {
				continue
			}
			if _, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Del(ctx, r.key(tok))
				p.SRem(ctx, setKey, tok)
				return nil
			}); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, iter.Err()
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func decodeRedisSession(m map[string]string) (*Session, error) {
	s := &Session{
		ID:       m["id"],
		Token:    m["token"],
		UserID:   m["user_id"],
		Username: m["username"],
		Email:    m["email"],
	}
	for field, dst := range map[string]*time.Time{
		"created_at":    &s.CreatedAt,
		"expires_at":    &s.ExpiresAt,
		"last_accessed": &s.LastAccessed,
	} {
		ms, err := strconv.ParseInt(m[field], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode session field %s: %w", field, err)
		}
		*dst = time.UnixMilli(ms).UTC()
	}
	return s, nil
}

func stringsToArgs(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
