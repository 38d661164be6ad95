// Package daemon owns the long-running process: it enforces single-instance
// execution and supervises the store, worker pool, notification hub, and
// HTTP API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"subtide/internal/api"
	"subtide/internal/config"
	"subtide/internal/download"
	"subtide/internal/logging"
	"subtide/internal/notify"
	"subtide/internal/store"
	"subtide/internal/transcribe"
	"subtide/internal/translate"
	"subtide/internal/worker"
)

// Daemon coordinates the background services.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	hub    *notify.Hub
	pool   *worker.Pool
	server *api.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	errCh   chan error
}

// New constructs the daemon and wires the pipeline from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	recordStore, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	hub := notify.NewHub(time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second, logger)

	downloader := download.New(download.Config{
		Binary:       cfg.Downloader.Binary,
		FFmpegBinary: cfg.Downloader.FFmpegBinary,
		UserAgent:    cfg.Downloader.UserAgent,
		WorkDir:      cfg.Paths.TempDir,
		Timeout:      time.Duration(cfg.Downloader.TimeoutSeconds) * time.Second,
	}, logger)

	recognizer := transcribe.NewWhisperRecognizer(transcribe.WhisperConfig{
		Binary:    cfg.Whisper.Binary,
		ModelPath: cfg.Whisper.ModelPath,
		WorkDir:   cfg.Paths.TempDir,
	})
	chunker := transcribe.NewChunker(recognizer, transcribe.ChunkerConfig{
		ChunkSeconds:    cfg.Whisper.ChunkSeconds,
		MinChunkSeconds: cfg.Whisper.MinChunkSeconds,
		BeamSize:        cfg.Whisper.BeamSize,
		Temperature:     cfg.Whisper.Temperature,
		ConfidenceWarn:  cfg.Whisper.ConfidenceWarn,
		VADSensitivity:  cfg.Whisper.VADSensitivity,
	}, logger)

	translator := translate.NewClient(translate.Config{
		APIKey:  cfg.Translate.APIKey,
		BaseURL: cfg.Translate.BaseURL,
		Timeout: time.Duration(cfg.Translate.TimeoutSeconds) * time.Second,
	}, logger)

	processor := worker.NewProcessor(downloader, chunker, translator, recordStore, hub, logger)
	pool := worker.NewPool(processor, cfg.Workflow.Workers, cfg.Workflow.QueueCapacity, logger)
	server := api.NewServer(cfg.Paths.APIBind, pool, recordStore, processor, hub, logger)

	lockPath := filepath.Join(cfg.Paths.DataDir, "subtided.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    recordStore,
		hub:      hub,
		pool:     pool,
		server:   server,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		errCh:    make(chan error, 1),
	}, nil
}

// Start acquires the instance lock and launches all services.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another subtide daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.pool.Start(runCtx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.hub.Run(runCtx)
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.server.Start(runCtx); err != nil {
			select {
			case d.errCh <- err:
			default:
			}
			cancel()
		}
	}()

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("bind", d.cfg.Paths.APIBind),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Wait blocks until the daemon stops, returning the first fatal error.
func (d *Daemon) Wait() error {
	d.wg.Wait()
	select {
	case err := <-d.errCh:
		return err
	default:
		return nil
	}
}

// Stop cancels background services and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.pool.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// LockPath returns the instance lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}
