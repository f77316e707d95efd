package shared

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// expiredRetention keeps a share resolvable for a while past its expiry so
// callers see "expired" rather than "not found". Redis reaps it afterwards.
const expiredRetention = 72 * time.Hour

// RedisRepository implements Repository on Redis. Shares live as JSON under
// "share:<token>" with TTL; comment order is a list, comment bodies a hash,
// so insertion order survives resolution updates.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func shareKey(token string) string    { return "share:" + token }
func shareIDKey(id string) string     { return "share:id:" + id }
func draftKey(draftID string) string  { return "share:draft:" + draftID }
func orderKey(shareID string) string  { return "comments:" + shareID + ":order" }
func bodiesKey(shareID string) string { return "comments:" + shareID }
func commentKey(id string) string     { return "comment:" + id }

func (r *RedisRepository) ttl(s *Share) time.Duration {
	d := time.Until(s.ExpiresAt) + expiredRetention
	if d <= 0 {
		d = time.Second
	}
	return d
}

func (r *RedisRepository) CreateShare(ctx context.Context, s *Share) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ttl := r.ttl(s)
	if err := r.client.Set(ctx, shareKey(s.AccessToken), b, ttl).Err(); err != nil {
		return err
	}
	if err := r.client.Set(ctx, shareIDKey(s.ID), s.AccessToken, ttl).Err(); err != nil {
		return err
	}
	return r.client.Set(ctx, draftKey(s.DraftID), s.AccessToken, ttl).Err()
}

func (r *RedisRepository) GetShareByID(ctx context.Context, id string) (*Share, error) {
	token, err := r.client.Get(ctx, shareIDKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return r.GetByToken(ctx, token)
}

func (r *RedisRepository) GetByToken(ctx context.Context, token string) (*Share, error) {
	b, err := r.client.Get(ctx, shareKey(token)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	var s Share
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisRepository) GetActiveByDraft(ctx context.Context, draftID string, now time.Time) (*Share, error) {
	token, err := r.client.Get(ctx, draftKey(draftID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	s, err := r.GetByToken(ctx, token)
	if err != nil {
		if err == ErrTokenNotFound {
			return nil, nil
		}
		return nil, err
	}
	if s.State != ShareActive || !s.ExpiresAt.After(now) {
		return nil, nil
	}
	return s, nil
}

func (r *RedisRepository) UpdateShare(ctx context.Context, s *Share) error {
	if _, err := r.GetByToken(ctx, s.AccessToken); err != nil {
		return err
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, shareKey(s.AccessToken), b, r.ttl(s)).Err()
}

// DeleteExpired is a no-op here: key TTLs already reap expired shares.
func (r *RedisRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (r *RedisRepository) AddComment(ctx context.Context, c *Comment) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, orderKey(c.SharedDraftID), c.ID)
	pipe.HSet(ctx, bodiesKey(c.SharedDraftID), c.ID, b)
	pipe.Set(ctx, commentKey(c.ID), c.SharedDraftID, 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisRepository) GetComment(ctx context.Context, id string) (*Comment, error) {
	shareID, err := r.client.Get(ctx, commentKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	b, err := r.client.HGet(ctx, bodiesKey(shareID), id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	var c Comment
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *RedisRepository) ListComments(ctx context.Context, sharedDraftID string) ([]*Comment, error) {
	ids, err := r.client.LRange(ctx, orderKey(sharedDraftID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Comment, 0, len(ids))
	for _, id := range ids {
		b, err := r.client.HGet(ctx, bodiesKey(sharedDraftID), id).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, err
		}
		var c Comment
		if err := json.Unmarshal(b, &c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, nil
}

func (r *RedisRepository) UpdateComment(ctx context.Context, c *Comment) error {
	exists, err := r.client.HExists(ctx, bodiesKey(c.SharedDraftID), c.ID).Result()
	if err != nil {
		return err
	}
	if !exists {
		return ErrCommentNotFound
	}
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, bodiesKey(c.SharedDraftID), c.ID, b).Err()
}
