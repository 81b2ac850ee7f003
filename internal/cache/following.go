package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// FollowingCachePrefix is the key prefix for a user's followee-id set.
	FollowingCachePrefix = "following:user:"
	// FollowingGenPrefix is the key prefix for a user's invalidation counter.
	FollowingGenPrefix = "following:gen:"

	// DefaultFollowingTTL bounds staleness if an invalidation is lost.
	DefaultFollowingTTL = 10 * time.Minute

	// presenceMember marks a cached (possibly empty) set. No user has id 0.
	presenceMember = "0"

	// generationTTL must outlive any read-through in flight.
	generationTTL = 24 * time.Hour
)

// ErrStaleFollowing is returned by Set when the user was invalidated after
// the caller read the generation.
var ErrStaleFollowing = errors.New("following cache generation moved")

// FollowingCache caches the set of ids a user follows so the feed does
// not hit the edge table on every request.
//
// A read-through takes Generation before loading from the database and
// passes it to Set, which refuses to write once Invalidate has bumped it.
type FollowingCache interface {
	// Get returns (ids, true) on a hit and (nil, false) on a miss.
	Get(ctx context.Context, userID int64) ([]int64, bool, error)
	Generation(ctx context.Context, userID int64) (int64, error)
	Set(ctx context.Context, userID, gen int64, followeeIDs []int64) error
	Invalidate(ctx context.Context, userIDs ...int64) error
}

// RedisFollowingCache stores each user's followees as a Redis SET.
type RedisFollowingCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFollowingCache(client *redis.Client, ttl time.Duration) FollowingCache {
	if ttl <= 0 {
		ttl = DefaultFollowingTTL
	}
	return &RedisFollowingCache{client: client, ttl: ttl}
}

func followingKey(userID int64) string {
	return fmt.Sprintf("%s%d", FollowingCachePrefix, userID)
}

func generationKey(userID int64) string {
	return fmt.Sprintf("%s%d", FollowingGenPrefix, userID)
}

func readGeneration(ctx context.Context, cmd redis.Cmdable, userID int64) (int64, error) {
	gen, err := cmd.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get following generation: %w", err)
	}
	return gen, nil
}

func (c *RedisFollowingCache) Get(ctx context.Context, userID int64) ([]int64, bool, error) {
	members, err := c.client.SMembers(ctx, followingKey(userID)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("smembers following: %w", err)
	}
	if len(members) == 0 {
		return nil, false, nil
	}

	ids := make([]int64, 0, len(members)-1)
	for _, m := range members {
		if m == presenceMember {
			continue
		}
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, false, fmt.Errorf("parse cached followee id %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	return ids, true, nil
}

func (c *RedisFollowingCache) Generation(ctx context.Context, userID int64) (int64, error) {
	return readGeneration(ctx, c.client, userID)
}

// Set replaces the cached set atomically: DEL + SADD + EXPIRE in one MULTI,
// executed only while the generation key still holds gen.
func (c *RedisFollowingCache) Set(ctx context.Context, userID, gen int64, followeeIDs []int64) error {
	key := followingKey(userID)
	members := make([]interface{}, 0, len(followeeIDs)+1)
	members = append(members, presenceMember)
	for _, id := range followeeIDs {
		members = append(members, strconv.FormatInt(id, 10))
	}

	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx, userID)
		if err != nil {
			return err
		}
		if current != gen {
			return ErrStaleFollowing
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SAdd(ctx, key, members...)
			pipe.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, generationKey(userID))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleFollowing), errors.Is(err, redis.TxFailedErr):
		return ErrStaleFollowing
	default:
		return fmt.Errorf("set following cache: %w", err)
	}
}

// Invalidate drops each cached set and bumps its generation so that a
// read-through started earlier cannot write it back.
func (c *RedisFollowingCache) Invalidate(ctx context.Context, userIDs ...int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, generationKey(id))
			pipe.Expire(ctx, generationKey(id), generationTTL)
			pipe.Del(ctx, followingKey(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate following cache: %w", err)
	}
	return nil
}
