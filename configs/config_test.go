package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := source{}.load()

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 15, cfg.DefaultPrepTimeMinutes)
	assert.Equal(t, 3, cfg.ConflictRetries)
	assert.Equal(t, 30*time.Second, cfg.OverdueScanInterval)
	assert.Equal(t, 64, cfg.WSSendBuffer)
	assert.Equal(t, 10*time.Minute, cfg.IdempotencyTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestFileOverlayAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_driver: postgres
order_conflict_retries: 5
overdue_scan_interval: 10s
cors_origins:
  - http://a.example
  - http://b.example
`), 0o600))

	file, err := readFile(path)
	require.NoError(t, err)

	t.Setenv("ORDER_CONFLICT_RETRIES", "7")
	t.Setenv("WS_SEND_BUFFER", "not-a-number")
	cfg := source{file: file}.load()

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 7, cfg.ConflictRetries)
	assert.Equal(t, 10*time.Second, cfg.OverdueScanInterval)
	assert.Equal(t, 64, cfg.WSSendBuffer)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSOrigins)
}

func TestDurationSeconds(t *testing.T) {
	t.Setenv("JWT_TTL", "90")
	assert.Equal(t, 90*time.Second, source{}.load().JWTTTL)
}

func TestDurationRejectsNonPositive(t *testing.T) {
	for _, v := range []string{"0", "0s", "-5s", "-3"} {
		t.Setenv("OVERDUE_SCAN_INTERVAL", v)
		assert.Equal(t, 30*time.Second, source{}.load().OverdueScanInterval, v)
	}
}
