package redis

import (
	"context"
	"testing"
	"time"

	"sp-service/configs"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redisdb, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb, err := NewRedis(context.Background(), configs.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestRecordCallAccumulates(t *testing.T) {
	rdb, mr := newTestRedis(t)
	ctx := context.Background()

	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, rdb.RecordCall(ctx, "dbo.GetUsers", "ok", 120*time.Millisecond, first))
	require.NoError(t, rdb.RecordCall(ctx, "dbo.GetUsers", "error", 30*time.Millisecond, first.Add(time.Minute)))

	key := StatsKey("dbo.GetUsers")
	assert.Equal(t, "spservice:calls:dbo.GetUsers", key)
	assert.Equal(t, "2", mr.HGet(key, FieldTotal))
	assert.Equal(t, "1", mr.HGet(key, OutcomeFieldPrefix+"ok"))
	assert.Equal(t, "1", mr.HGet(key, OutcomeFieldPrefix+"error"))
	assert.Equal(t, "150", mr.HGet(key, FieldDurationMs))

	stats, err := rdb.CallStats(ctx, "dbo.GetUsers")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		FieldTotal:                   "2",
		OutcomeFieldPrefix + "ok":    "1",
		OutcomeFieldPrefix + "error": "1",
		FieldDurationMs:              "150",
		FieldLastOutcome:             "error",
		FieldLastCalledAt:            "1709287260",
	}, stats)
}

func TestCallStatsUnknownProcedure(t *testing.T) {
	rdb, _ := newTestRedis(t)

	stats, err := rdb.CallStats(context.Background(), "dbo.NeverCalled")
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestRecordCallKeepsProceduresApart(t *testing.T) {
	rdb, mr := newTestRedis(t)
	ctx := context.Background()
	at := time.Unix(1700000000, 0)

	require.NoError(t, rdb.RecordCall(ctx, "dbo.A", "ok", time.Millisecond, at))
	require.NoError(t, rdb.RecordCall(ctx, "dbo.B", "ok", time.Millisecond, at))

	assert.Equal(t, []string{StatsKey("dbo.A"), StatsKey("dbo.B")}, mr.Keys())
}

func TestRecordCallServerError(t *testing.T) {
	rdb, mr := newTestRedis(t)

	mr.SetError("LOADING dataset in memory")
	err := rdb.RecordCall(context.Background(), "dbo.GetUsers", "ok", time.Millisecond, time.Now())
	assert.Error(t, err)

	mr.SetError("")
	assert.NoError(t, rdb.RecordCall(context.Background(), "dbo.GetUsers", "ok", time.Millisecond, time.Now()))
}

func TestNewRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	rdb, err := NewRedis(context.Background(), configs.RedisConfig{Addr: addr})
	require.Error(t, err)
	assert.Nil(t, rdb)
	assert.Contains(t, err.Error(), addr)
}
