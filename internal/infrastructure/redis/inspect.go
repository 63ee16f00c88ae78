package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Bucket is one live fixed-window counter.
type Bucket struct {
	Key   string
	Count int
	TTL   time.Duration
}

// ScanBuckets walks every key matching pattern and reports its counter.
// Keys that expire between SCAN and GET are skipped.
func (c *Client) ScanBuckets(ctx context.Context, pattern string, count int64, fn func(Bucket) error) error {
	if pattern == "" {
		pattern = "rl:*"
	}
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, count).Result()
		if err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		for _, k := range keys {
			val, err := c.rdb.Get(ctx, k).Result()
			if err == goredis.Nil {
				continue
			}
			if err != nil {
				return fmt.Errorf("get %s: %w", k, err)
			}
			ttl, err := c.rdb.PTTL(ctx, k).Result()
			if err != nil {
				return fmt.Errorf("pttl %s: %w", k, err)
			}
			n, _ := strconv.Atoi(val)
			if err := fn(Bucket{Key: k, Count: n, TTL: ttl}); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// DeleteKeys removes the given keys and returns how many existed.
func (c *Client) DeleteKeys(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return c.rdb.Del(ctx, keys...).Result()
}
