package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 100, cfg.History.Capacity)
	assert.False(t, cfg.Persistence.Enabled)
	assert.Equal(t, time.Second, cfg.Persistence.RetryDelay)
	assert.Equal(t, 5*time.Minute, cfg.QueryCache.TTL)
	assert.Equal(t, "./exports", cfg.Exports.StorageDir)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestOverridesFromEnvironment(t *testing.T) {
	t.Setenv("HISTORY_CAPACITY", "7")
	t.Setenv("ENABLE_QUERY_CACHE", "true")
	t.Setenv("QUERY_CACHE_TTL", "90s")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, 7, cfg.History.Capacity)
	assert.True(t, cfg.QueryCache.Enabled)
	assert.Equal(t, 90*time.Second, cfg.QueryCache.TTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Hour, parseDuration("2h", time.Minute))
}
