package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, "chat_logs.enc", c.AuditFile)
	assert.Empty(t, c.DatabaseDSN)
	assert.Empty(t, c.S3Bucket)
	assert.Equal(t, time.Second, c.AuditFlushInterval)
	assert.Equal(t, 256, c.SessionQueueSize)
	assert.Zero(t, c.IdleTimeout)
	assert.Equal(t, "slog", c.LogBackend)
}

func TestLoad_NoArgsGivesDefaults(t *testing.T) {
	c, err := Load(nil)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(defaults(), c))
}

func TestLoad_Flags(t *testing.T) {
	c, err := Load([]string{
		"-a", "127.0.0.1:9090", "-s", "secret", "-l", "/var/log/relay.jsonl",
		"-d", "postgres://x", "-u", "user", "-p", "password", "-b", "bucket",
		"-g", "eu-west-1", "-e", "http://minio:9000", "-n", "10", "-q", "32",
		"-f", "250ms", "-r", "5", "-o", "8", "-i", "2m", "-v", "debug", "-k", "zerolog",
		"-unrelated", "x",
	})
	require.NoError(t, err)

	want := &Config{
		EndpointAddrGRPC:   "127.0.0.1:9090",
		AdminSecret:        "secret",
		AuditFile:          "/var/log/relay.jsonl",
		DatabaseDSN:        "postgres://x",
		S3RootUser:         "user",
		S3RootPassword:     "password",
		S3Bucket:           "bucket",
		S3Region:           "eu-west-1",
		S3BaseEndpoint:     "http://minio:9000",
		S3BatchSize:        10,
		AuditQueueSize:     32,
		AuditFlushInterval: 250 * time.Millisecond,
		AuditRetryAttempts: 5,
		SessionQueueSize:   8,
		IdleTimeout:        2 * time.Minute,
		LogLevel:           "debug",
		LogBackend:         "zerolog",
	}
	assert.Empty(t, cmp.Diff(want, c))
}

func TestLoad_BadFlagValue(t *testing.T) {
	_, err := Load([]string{"-q", "many"})
	assert.Error(t, err)
}

func TestLoad_JSONFile(t *testing.T) {
	path := writeFile(t, "relay.json", `{
		"endpoint_addr_grpc": ":7000",
		"database_dsn": "postgres://db",
		"audit_flush_interval": "3s",
		"idle_timeout": 60000000000,
		"session_queue_size": 16
	}`)

	c, err := Load([]string{"-c", path})
	require.NoError(t, err)

	want := defaults()
	want.EndpointAddrGRPC = ":7000"
	want.DatabaseDSN = "postgres://db"
	want.AuditFlushInterval = 3 * time.Second
	want.IdleTimeout = time.Minute
	want.SessionQueueSize = 16
	assert.Empty(t, cmp.Diff(want, c))
}

func TestLoad_TOMLFile(t *testing.T) {
	path := writeFile(t, "relay.toml", `
endpoint_addr_grpc = ":7100"
s3_bucket = "audit"
s3_base_endpoint = "http://127.0.0.1:9000"
audit_flush_interval = "500ms"
log_backend = "zerolog"
`)

	c, err := Load([]string{"-config", path})
	require.NoError(t, err)

	want := defaults()
	want.EndpointAddrGRPC = ":7100"
	want.S3Bucket = "audit"
	want.S3BaseEndpoint = "http://127.0.0.1:9000"
	want.AuditFlushInterval = 500 * time.Millisecond
	want.LogBackend = "zerolog"
	assert.Empty(t, cmp.Diff(want, c))
}

func TestLoad_FileEmptyValueDisablesSink(t *testing.T) {
	for _, name := range []string{"relay.json", "relay.toml"} {
		t.Run(name, func(t *testing.T) {
			body := `{"audit_file": "", "database_dsn": "postgres://db"}`
			if filepath.Ext(name) == ".toml" {
				body = "audit_file = \"\"\ndatabase_dsn = \"postgres://db\"\n"
			}
			c, err := Load([]string{"-c", writeFile(t, name, body)})
			require.NoError(t, err)
			assert.Empty(t, c.AuditFile)
			assert.Equal(t, "postgres://db", c.DatabaseDSN)
		})
	}
}

func TestLoad_FileOmittedValueKeepsDefault(t *testing.T) {
	c, err := Load([]string{"-c", writeFile(t, "relay.json", `{"log_level": "warn"}`)})
	require.NoError(t, err)
	assert.Equal(t, "chat_logs.enc", c.AuditFile)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "relay.json", `{"endpoint_addr_grpc": ":7000", "log_level": "warn"}`)

	c, err := Load([]string{"-c", path, "-a", ":8000"})
	require.NoError(t, err)
	assert.Equal(t, ":8000", c.EndpointAddrGRPC)
	assert.Equal(t, "warn", c.LogLevel)
}

func TestLoad_FileErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := Load([]string{"-c", filepath.Join(t.TempDir(), "nope.json")})
		assert.ErrorContains(t, err, "read config")
	})
	t.Run("bad json", func(t *testing.T) {
		_, err := Load([]string{"-c", writeFile(t, "bad.json", `{ not json`)})
		assert.ErrorContains(t, err, "parse config")
	})
	t.Run("bad toml duration", func(t *testing.T) {
		_, err := Load([]string{"-c", writeFile(t, "bad.toml", `idle_timeout = "forever"`)})
		assert.ErrorContains(t, err, "parse config")
	})
}
