package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"sp-service/configs"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix   = "spservice:calls:"
	pingTimeout = 3 * time.Second

	FieldTotal         = "total"
	FieldDurationMs    = "duration_ms_total"
	FieldLastOutcome   = "last_outcome"
	FieldLastCalledAt  = "last_called_at"
	OutcomeFieldPrefix = "outcome:"
)

type Redisdb struct {
	client *redis.Client
}

func NewRedis(ctx context.Context, conf configs.RedisConfig) (*Redisdb, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", conf.Addr, err)
	}
	return &Redisdb{client: rdb}, nil
}

// StatsKey is the hash holding the counters of one procedure.
func StatsKey(procedure string) string {
	return keyPrefix + procedure
}

// RecordCall bumps the counters of procedure in a single round trip.
func (r *Redisdb) RecordCall(ctx context.Context, procedure, outcome string, took time.Duration, at time.Time) error {
	key := StatsKey(procedure)

	pipe := r.client.TxPipeline()
	pipe.HIncrBy(ctx, key, FieldTotal, 1)
	pipe.HIncrBy(ctx, key, OutcomeFieldPrefix+outcome, 1)
	pipe.HIncrBy(ctx, key, FieldDurationMs, took.Milliseconds())
	pipe.HSet(ctx, key,
		FieldLastOutcome, outcome,
		FieldLastCalledAt, strconv.FormatInt(at.Unix(), 10),
	)
	_, err := pipe.Exec(ctx)
	return err
}

// CallStats returns the raw counters of procedure; empty when it was never called.
func (r *Redisdb) CallStats(ctx context.Context, procedure string) (map[string]string, error) {
	return r.client.HGetAll(ctx, StatsKey(procedure)).Result()
}

func (r *Redisdb) Close() error {
	return r.client.Close()
}
