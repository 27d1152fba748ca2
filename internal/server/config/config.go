// Package config assembles relay settings from defaults, an optional config
// file (JSON or TOML) and command-line flags, in that order of precedence.
package config

import (
	"time"

	"github.com/dmitrijs2005/cipherrelay/internal/common"
)

// Config holds runtime settings for the relay server.
//
// An empty AuditFile, DatabaseDSN or S3Bucket disables that audit sink.
// IdleTimeout of zero keeps idle connections open forever.
type Config struct {
	EndpointAddrGRPC string
	AdminSecret      string

	AuditFile          string
	DatabaseDSN        string
	S3RootUser         string
	S3RootPassword     string
	S3Bucket           string
	S3Region           string
	S3BaseEndpoint     string
	S3BatchSize        int
	AuditQueueSize     int
	AuditFlushInterval time.Duration
	AuditRetryAttempts int

	SessionQueueSize int
	IdleTimeout      time.Duration

	LogLevel   string
	LogBackend string
}

// LoadDefaults fills c with development defaults. AdminSecret is insecure
// and must be overridden in production.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.AdminSecret = "secretKey"
	c.AuditFile = common.DefaultAuditLogFile
	c.S3Region = "us-east-1"
	c.S3BatchSize = 100
	c.AuditQueueSize = 1024
	c.AuditFlushInterval = time.Second
	c.AuditRetryAttempts = 3
	c.SessionQueueSize = 256
	c.LogLevel = "info"
	c.LogBackend = "slog"
}

// Load builds a Config from args (usually os.Args[1:]).
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
