package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/services"
	"github.com/desertthunder/lapx/internal/shared"
)

// Uploader sends a payload to the cloud store.
type Uploader interface {
	Upload(ctx context.Context, kind models.TransferKind, payload []byte, onProgress func(float64)) (services.UploadResult, error)
}

// BackupUploader is an [Uploader] that can also report reachability.
type BackupUploader interface {
	Uploader
	Reachable(ctx context.Context) bool
}

// BackupScheduler periodically uploads the live chart text as a backup.
//
// After Start it waits delay, uploads, then uploads again every interval until stopped.
// Reachability is checked once, when the loop starts.
type BackupScheduler struct {
	uploader  BackupUploader
	workspace *models.Workspace
	delay     time.Duration
	interval  time.Duration
	logger    *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewBackupScheduler creates a stopped scheduler.
func NewBackupScheduler(uploader BackupUploader, ws *models.Workspace, delay, interval time.Duration, logger *log.Logger) *BackupScheduler {
	return &BackupScheduler{
		uploader:  uploader,
		workspace: ws,
		delay:     delay,
		interval:  interval,
		logger:    shared.WithLogger(logger, "component", "backup"),
	}
}

// Start stops any running loop and starts a new one bound to ctx.
//
// Returns false, leaving no loop running, when the network is unreachable.
func (b *BackupScheduler) Start(ctx context.Context) bool {
	b.Stop()

	if !b.uploader.Reachable(ctx) {
		b.logger.Info("network unreachable, backup loop not started")
		return false
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	b.mu.Lock()
	b.cancel = cancel
	b.done = done
	b.mu.Unlock()

	go b.loop(loopCtx, done)
	b.logger.Info("backup loop started", "delay", b.delay, "interval", b.interval)
	return true
}

// Stop ends the running loop, if any, and waits for it to exit.
func (b *BackupScheduler) Stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether a loop is active.
func (b *BackupScheduler) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done == nil {
		return false
	}
	select {
	case <-b.done:
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the current loop exits, or nil when none is running.
func (b *BackupScheduler) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

func (b *BackupScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(b.delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		b.backup(ctx)
		timer.Reset(b.interval)
	}
}

func (b *BackupScheduler) backup(ctx context.Context) {
	text := b.workspace.Session().ChartText()
	result, err := b.uploader.Upload(ctx, models.TransferBackup, []byte(text), nil)
	switch {
	case err != nil:
		b.logger.Warn("backup upload failed", "error", err)
	case !result.Sent:
		b.logger.Debug("backup skipped, another upload is in flight")
	default:
		b.logger.Info("chart backed up", "bytes", result.Bytes)
	}
}
