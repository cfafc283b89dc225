package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
environment: production
upstream:
  base_url: http://stats.internal
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, SourceHTTP, c.Source.Type)
	assert.Equal(t, CacheMemory, c.Cache.Type)
	assert.Equal(t, 5*time.Minute, c.Cache.TTL)
	assert.Equal(t, uint32(5), c.Upstream.Breaker.MaxFailures)
	assert.Equal(t, "kolstats.stats-updated", c.Kafka.UpdatesTopic)
	assert.Equal(t, 20.0, c.RateLimit.RPS)
	assert.False(t, c.WarnUnknownTimeframe())
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: development
upstream:
  base_url: http://stats.internal
  timeout: 2s
cache:
  type: layered
resolver:
  warn_unknown_timeframe: false
`))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, c.Upstream.Timeout)
	assert.Equal(t, CacheLayered, c.Cache.Type)
	assert.True(t, c.UsesRedis())
	assert.False(t, c.WarnUnknownTimeframe())
}

func TestWarnUnknownTimeframeFollowsEnvironment(t *testing.T) {
	c, err := Parse([]byte("environment: development\nupstream:\n  base_url: http://x\n"))
	require.NoError(t, err)
	assert.True(t, c.WarnUnknownTimeframe())
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"missing base url": "environment: production\n",
		"bad source":       "source:\n  type: csv\n",
		"bad cache":        minimal + "cache:\n  type: disk\n",
		"kafka no brokers": minimal + "kafka:\n  enabled: true\n",
		"bad port":         minimal + "server:\n  port: 70000\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := decode([]byte(minimal))
	require.NoError(t, err)

	env := map[string]string{
		"STATS_SOURCE":  "clickhouse",
		"KAFKA_BROKERS": "k1:9092, k2:9092,",
		"REDIS_ADDR":    "redis:6379",
		"LOG_LEVEL":     "debug",
	}
	c.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, SourceClickHouse, c.Source.Type)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.Equal(t, "debug", c.Log.Level)
	require.NoError(t, c.Validate())
}

func TestLoadWithEnvReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o600))
	t.Setenv("UPSTREAM_BASE_URL", "http://override")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "http://override", c.Upstream.BaseURL)
}

func TestShippedConfigParses(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)

	assert.True(t, c.IsDevelopment())
	assert.True(t, c.WarnUnknownTimeframe())
	assert.Equal(t, time.Second, c.Metrics.SlowRequest)
	assert.Equal(t, 30*time.Second, c.Queue.LockTTL)
	assert.False(t, c.UsesRedis())
	assert.False(t, c.UsesClickHouse())
}

func TestUsesClickHouse(t *testing.T) {
	c, err := Parse([]byte(minimal + `
clickhouse:
  archive: true
`))
	require.NoError(t, err)
	assert.True(t, c.UsesClickHouse())

	c, err = Parse([]byte(`
environment: production
source:
  type: clickhouse
`))
	require.NoError(t, err)
	assert.True(t, c.UsesClickHouse())
}
