package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Equal(t, 10.0, cfg.SearchDefaultMaxDistanceKm)
	assert.Empty(t, cfg.SearchDefaultType)
	assert.Empty(t, cfg.SearchDefaultStatus, "status filter defaults to all statuses")
	assert.Equal(t, 50, cfg.CapacityListDefaultLimit)
	assert.Equal(t, 10*time.Second, cfg.LocationTimeout)
	assert.Equal(t, 12.2958, cfg.FallbackLatitude)
	assert.Equal(t, 76.6394, cfg.FallbackLongitude)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("SEARCH_DEFAULT_MAX_DISTANCE_KM", "25.5")
	t.Setenv("SEARCH_DEFAULT_STATUS", "open")
	t.Setenv("SEARCH_CACHE_TTL", "0s")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 25.5, cfg.SearchDefaultMaxDistanceKm)
	assert.Equal(t, "open", cfg.SearchDefaultStatus)
	assert.Equal(t, time.Duration(0), cfg.SearchCacheTTL)
	assert.Equal(t, 0, cfg.RedisDB)
}

func TestLoadConfig_PostgresRequiresDatabaseAndSecret(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/relief")
	_, err = LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "secret")
	_, err = LoadConfig()
	require.NoError(t, err)
}

func TestValidate_RejectsUnknownDriver(t *testing.T) {
	cfg := &Config{StorageDriver: "sqlite", SearchDefaultMaxDistanceKm: 10, CapacityListDefaultLimit: 50, CapacityListMaxLimit: 200}
	assert.Error(t, cfg.Validate())
}
