package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gwillem/premaid/pkg/protocol"
)

// BatteryTTL is how long a battery reading stays valid in the cache.
const BatteryTTL = 5 * time.Minute

// StateTTL is how long the state hash outlives the last update.
const StateTTL = 24 * time.Hour

// redisClient is the subset of *redis.Client the sink uses.
type redisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Close() error
}

// Key returns the Redis key for one kind of doll data, e.g.
// "premaid:maid:battery".
func Key(doll, kind string) string {
	return fmt.Sprintf("premaid:%s:%s", doll, kind)
}

// RedisSink keeps the latest battery level and playback state of a doll.
type RedisSink struct {
	client redisClient
	doll   string
}

// DialRedis connects to a Redis server and checks it answers.
func DialRedis(ctx context.Context, addr, doll string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}
	return NewRedisSink(client, doll), nil
}

// NewRedisSink wraps an existing client.
func NewRedisSink(client redisClient, doll string) *RedisSink {
	return &RedisSink{client: client, doll: doll}
}

// PublishFrame records the last frame received.
func (s *RedisSink) PublishFrame(ctx context.Context, f protocol.Frame) error {
	return s.client.HSet(ctx, Key(s.doll, "state"), "last_frame", f.Hex()).Err()
}

func (s *RedisSink) PublishBattery(ctx context.Context, b protocol.Battery) error {
	volts := strconv.FormatFloat(b.Volts, 'f', 2, 64)
	return s.client.Set(ctx, Key(s.doll, "battery"), volts, BatteryTTL).Err()
}

func (s *RedisSink) PublishStatus(ctx context.Context, st Status) error {
	key := Key(s.doll, "state")
	err := s.client.HSet(ctx, key,
		"file", st.File,
		"tick", st.Tick,
		"total_ticks", st.TotalTicks,
		"playing", st.Playing,
		"ts", st.Time.Unix(),
	).Err()
	if err != nil {
		return err
	}
	return s.client.Expire(ctx, key, StateTTL).Err()
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
