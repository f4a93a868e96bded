package postgres

import (
	"testing"
	"time"

	"github.com/ogurasousui/codex-employee-api/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPoolConfig(t *testing.T) {
	t.Parallel()

	dbCfg := config.DatabaseConfig{
		Driver:          config.DriverPostgres,
		Host:            "localhost",
		Port:            15432,
		User:            "user",
		Password:        "p@ss",
		Name:            "employees",
		SSLMode:         "disable",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}

	poolCfg, err := BuildPoolConfig(dbCfg)
	require.NoError(t, err)

	assert.EqualValues(t, 20, poolCfg.MaxConns)
	assert.EqualValues(t, 5, poolCfg.MinConns)
	assert.Equal(t, 30*time.Minute, poolCfg.MaxConnLifetime)
	assert.Equal(t, 10*time.Minute, poolCfg.MaxConnIdleTime)
	assert.Equal(t, healthCheckPeriod, poolCfg.HealthCheckPeriod)
	assert.Equal(t, connectTimeout, poolCfg.ConnConfig.ConnectTimeout)
	assert.Equal(t, "employees", poolCfg.ConnConfig.Database)
	assert.Equal(t, "p@ss", poolCfg.ConnConfig.Password)
}

func TestBuildPoolConfig_KeepsPgxDefaults(t *testing.T) {
	t.Parallel()

	poolCfg, err := BuildPoolConfig(config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "user",
		Password: "pass",
		Name:     "employees",
		SSLMode:  "disable",
	})
	require.NoError(t, err)

	assert.Positive(t, poolCfg.MaxConns)
	assert.EqualValues(t, 0, poolCfg.MinConns)
}
