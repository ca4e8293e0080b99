package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatMoney(t *testing.T) {
	require.Equal(t, "0 XOF", FormatMoney(0, "XOF"))
	require.Equal(t, "950 XOF", FormatMoney(950, "XOF"))
	require.Equal(t, "12 500 XOF", FormatMoney(12500, "XOF"))
	require.Equal(t, "1 000 000 XOF", FormatMoney(1000000, "XOF"))
}

func TestTruncateContent(t *testing.T) {
	require.Equal(t, "short", TruncateContent("short", 10))
	require.Equal(t, "abc...", TruncateContent("abcdef", 3))
}

func TestGenerateTrackingCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := GenerateTrackingCode()
		require.True(t, strings.HasPrefix(code, "DLV-"))
		require.Len(t, code, 14)
		require.False(t, seen[code])
		seen[code] = true
	}
	require.True(t, strings.HasPrefix(GenerateOrderReference(), "ORD-"))
}

func TestValidateConfig(t *testing.T) {
	valid := Config{
		StoreDriver:        StoreDriverPostgres,
		DatabaseURL:        "postgres://localhost/dispatch",
		RedisServerAddress: "localhost:6379",
		Currency:           "XOF",
		JekoWebhookSecret:  "secret",
	}
	require.NoError(t, validateConfig(valid))

	noDB := valid
	noDB.DatabaseURL = ""
	require.Error(t, validateConfig(noDB))

	memory := noDB
	memory.StoreDriver = StoreDriverMemory
	require.NoError(t, validateConfig(memory))

	unknown := valid
	unknown.StoreDriver = "sqlite"
	require.Error(t, validateConfig(unknown))
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.env")
	content := strings.Join([]string{
		"STORE_DRIVER=memory",
		"REDIS_SERVER_ADDRESS=localhost:6379",
		"JEKO_WEBHOOK_SECRET=whsec",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, StoreDriverMemory, config.StoreDriver)
	require.Equal(t, "XOF", config.Currency)
	require.Equal(t, "0.0.0.0:8080", config.HTTPServerAddress)
	require.True(t, config.SchedulerEnabled)
}
