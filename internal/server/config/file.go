package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/dmitrijs2005/cipherrelay/internal/flagx"
	"github.com/dmitrijs2005/cipherrelay/internal/timex"
)

// FileConfig is the on-disk shape of a config file. Durations accept "1s"
// style strings (and integer nanoseconds in JSON). The sink settings are
// pointers so an explicit "" in the file switches a sink off.
type FileConfig struct {
	EndpointAddrGRPC   string         `json:"endpoint_addr_grpc" toml:"endpoint_addr_grpc"`
	AdminSecret        string         `json:"admin_secret" toml:"admin_secret"`
	AuditFile          *string        `json:"audit_file" toml:"audit_file"`
	DatabaseDSN        *string        `json:"database_dsn" toml:"database_dsn"`
	S3RootUser         string         `json:"s3_root_user" toml:"s3_root_user"`
	S3RootPassword     string         `json:"s3_root_password" toml:"s3_root_password"`
	S3Bucket           *string        `json:"s3_bucket" toml:"s3_bucket"`
	S3Region           string         `json:"s3_region" toml:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint" toml:"s3_base_endpoint"`
	S3BatchSize        int            `json:"s3_batch_size" toml:"s3_batch_size"`
	AuditQueueSize     int            `json:"audit_queue_size" toml:"audit_queue_size"`
	AuditFlushInterval timex.Duration `json:"audit_flush_interval" toml:"audit_flush_interval"`
	AuditRetryAttempts int            `json:"audit_retry_attempts" toml:"audit_retry_attempts"`
	SessionQueueSize   int            `json:"session_queue_size" toml:"session_queue_size"`
	IdleTimeout        timex.Duration `json:"idle_timeout" toml:"idle_timeout"`
	LogLevel           string         `json:"log_level" toml:"log_level"`
	LogBackend         string         `json:"log_backend" toml:"log_backend"`
}

// parseFile overlays the file named by -c/-config onto config. Only values
// present in the file replace what is already set.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	fc, err := decodeFile(path, data)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	fc.apply(config)
	return nil
}

func decodeFile(path string, data []byte) (*FileConfig, error) {
	fc := &FileConfig{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), fc); err != nil {
			return nil, err
		}
		return fc, nil
	}
	if err := json.Unmarshal(data, fc); err != nil {
		return nil, err
	}
	return fc, nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.EndpointAddrGRPC, fc.EndpointAddrGRPC)
	setString(&c.AdminSecret, fc.AdminSecret)
	setPresent(&c.AuditFile, fc.AuditFile)
	setPresent(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.S3RootUser, fc.S3RootUser)
	setString(&c.S3RootPassword, fc.S3RootPassword)
	setPresent(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogBackend, fc.LogBackend)

	setInt(&c.S3BatchSize, fc.S3BatchSize)
	setInt(&c.AuditQueueSize, fc.AuditQueueSize)
	setInt(&c.AuditRetryAttempts, fc.AuditRetryAttempts)
	setInt(&c.SessionQueueSize, fc.SessionQueueSize)

	if fc.AuditFlushInterval.Duration > 0 {
		c.AuditFlushInterval = fc.AuditFlushInterval.Duration
	}
	if fc.IdleTimeout.Duration > 0 {
		c.IdleTimeout = fc.IdleTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// setPresent copies v even when empty, as long as the file had the key.
func setPresent(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
