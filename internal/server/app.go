// Package server assembles the relay: configuration, logging, audit sinks,
// the session hub and the gRPC endpoint, with graceful shutdown on signals.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/cipherrelay/internal/logging"
	"github.com/dmitrijs2005/cipherrelay/internal/server/audit"
	"github.com/dmitrijs2005/cipherrelay/internal/server/config"
	"github.com/dmitrijs2005/cipherrelay/internal/server/hub"
	"github.com/dmitrijs2005/cipherrelay/internal/server/registry"
	"github.com/dmitrijs2005/cipherrelay/internal/server/repositories/repomanager"

	gs "github.com/dmitrijs2005/cipherrelay/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

// openPostgres and newS3Client are test seams.
var (
	openPostgres = repomanager.OpenPostgres
	newS3Client  = audit.NewS3Client
)

type App struct {
	config *config.Config
	logger logging.Logger
	hub    *hub.Hub
	queues []*audit.Queue
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, c.LogLevel, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	queues, err := openAuditQueues(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	recorders := make(audit.Fanout, 0, len(queues))
	for _, q := range queues {
		recorders = append(recorders, q)
	}
	if len(queues) == 0 {
		logger.Warn(ctx, "no audit sink configured, traffic is not logged")
	}

	h := hub.New(registry.New(), recorders, logger, c.SessionQueueSize)

	return &App{config: c, logger: logger, hub: h, queues: queues}, nil
}

func openAuditQueues(ctx context.Context, c *config.Config, l logging.Logger) ([]*audit.Queue, error) {
	qo := audit.QueueOptions{
		Size:          c.AuditQueueSize,
		FlushInterval: c.AuditFlushInterval,
		RetryAttempts: uint64(max(c.AuditRetryAttempts, 0)),
	}

	var queues []*audit.Queue
	fail := func(err error) ([]*audit.Queue, error) {
		closeQueues(ctx, l, queues)
		return nil, err
	}

	if c.AuditFile != "" {
		fs, err := audit.OpenFileSink(c.AuditFile)
		if err != nil {
			return fail(fmt.Errorf("audit file init error: %w", err))
		}
		queues = append(queues, audit.NewQueue("file", fs, l, qo))
	}

	if c.DatabaseDSN != "" {
		m := repomanager.NewPostgresRepositoryManager()
		db, err := openPostgres(ctx, c.DatabaseDSN, m)
		if err != nil {
			return fail(fmt.Errorf("db init error: %w", err))
		}
		queues = append(queues, audit.NewQueue("postgres", audit.NewPostgresSink(db, m), l, qo))
	}

	if c.S3Bucket != "" {
		so := audit.S3Options{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BatchSize:    c.S3BatchSize,
		}
		client, err := newS3Client(ctx, so)
		if err != nil {
			return fail(fmt.Errorf("s3 init error: %w", err))
		}
		queues = append(queues, audit.NewQueue("s3", audit.NewS3Sink(client, so), l, qo))
	}

	return queues, nil
}

func closeQueues(ctx context.Context, l logging.Logger, queues []*audit.Queue) {
	for _, q := range queues {
		if err := q.Close(ctx); err != nil {
			l.Error(ctx, "audit sink close error", "sink", q.Stats().Name, "error", err)
		}
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	stats := make([]gs.AuditStatser, 0, len(app.queues))
	for _, q := range app.queues {
		stats = append(stats, q)
	}

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.hub, app.config.AdminSecret, app.config.IdleTimeout, stats...)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// drains the audit queues.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	closeQueues(shutdownCtx, app.logger, app.queues)

	for _, q := range app.queues {
		st := q.Stats()
		app.logger.Info(shutdownCtx, "audit sink closed", "sink", st.Name, "written", st.Written, "failed", st.Failed, "dropped", st.Dropped)
	}
	app.logger.Info(shutdownCtx, "App stopped")
}
