package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/cipherrelay/internal/flagx"
)

var knownFlags = []string{
	"-a", "-s", "-l", "-d", "-u", "-p", "-b", "-g", "-e",
	"-n", "-q", "-f", "-r", "-o", "-i", "-v", "-k",
}

// parseFlags overlays short command-line flags onto config.
//
//	-a string    gRPC bind address
//	-s string    admin JWT secret
//	-l string    audit log file ("" disables)
//	-d string    PostgreSQL DSN ("" disables)
//	-u, -p       S3 user and password
//	-b string    S3 bucket ("" disables)
//	-g, -e       S3 region and endpoint
//	-n int       S3 records per object
//	-q int       audit queue size per sink
//	-f duration  audit flush interval
//	-r int       audit retry attempts
//	-o int       outbound queue size per session
//	-i duration  idle connection timeout (0 disables)
//	-v string    log level
//	-k string    log backend (slog, zerolog)
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.AdminSecret, "s", config.AdminSecret, "admin token secret")
	fs.StringVar(&config.AuditFile, "l", config.AuditFile, "audit log file")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.IntVar(&config.S3BatchSize, "n", config.S3BatchSize, "S3 batch size")
	fs.IntVar(&config.AuditQueueSize, "q", config.AuditQueueSize, "audit queue size")
	fs.DurationVar(&config.AuditFlushInterval, "f", config.AuditFlushInterval, "audit flush interval")
	fs.IntVar(&config.AuditRetryAttempts, "r", config.AuditRetryAttempts, "audit retry attempts")
	fs.IntVar(&config.SessionQueueSize, "o", config.SessionQueueSize, "session queue size")
	fs.DurationVar(&config.IdleTimeout, "i", config.IdleTimeout, "idle timeout")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")
	fs.StringVar(&config.LogBackend, "k", config.LogBackend, "log backend")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
