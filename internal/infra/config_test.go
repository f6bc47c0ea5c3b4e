package infra

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// Файла в тестовом каталоге нет: конфиг собирается из дефолтов
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Monitor.PollInterval)
	assert.Equal(t, 8*time.Second, cfg.Monitor.ProbeTimeout)
	assert.Equal(t, uint32(25), cfg.Monitor.CBFailureThreshold)
	assert.Equal(t, 60*time.Second, cfg.Monitor.CBResetTimeout)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestMemoryOnly(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.MemoryOnly())

	cfg.Database.URL = "postgres://localhost/fleetmon"
	assert.False(t, cfg.MemoryOnly())
}
