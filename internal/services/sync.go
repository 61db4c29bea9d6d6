package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/shared"
	"github.com/spf13/afero"
	"golang.org/x/sync/semaphore"
)

// UnsupportedUserID is the device id that the cloud service refuses.
const UnsupportedUserID = "n/a"

// Status is the precondition every sync operation checks first.
type Status int

const (
	StatusReady Status = iota
	StatusUnsupportedUserID
	StatusNetworkUnreachable
	StatusNoProjectLoaded
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusUnsupportedUserID:
		return "unsupported_user_id"
	case StatusNetworkUnreachable:
		return "network_unreachable"
	case StatusNoProjectLoaded:
		return "no_project_loaded"
	default:
		return "unknown"
	}
}

// MessageKey returns the localization key describing s.
func (s Status) MessageKey() string {
	switch s {
	case StatusUnsupportedUserID:
		return "Cloud_UnsupportedUserId"
	case StatusNetworkUnreachable:
		return "Cloud_NetworkUnreachable"
	case StatusNoProjectLoaded:
		return "Cloud_NoProjectLoaded"
	default:
		return "Cloud_Ready"
	}
}

// StatusError reports that an operation was skipped because the client is not ready.
type StatusError struct {
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cloud sync unavailable: %s", e.Status)
}

func (e *StatusError) Unwrap() error {
	if e.Status == StatusNetworkUnreachable {
		return shared.ErrNetwork
	}
	return shared.ErrState
}

// Reachability reports whether the network is usable.
type Reachability interface {
	Reachable(ctx context.Context) bool
}

// DialReachability dials a TCP address to decide reachability.
type DialReachability struct {
	Address string
	Timeout time.Duration
}

// Reachable reports whether a TCP connection to Address can be opened.
func (d DialReachability) Reachable(ctx context.Context) bool {
	if d.Address == "" {
		return true
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", d.Address)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// TransferRecorder keeps a log of cloud transfers.
type TransferRecorder interface {
	Create(rec *models.TransferRecord) error
}

// UploadResult describes one call to [SyncClient.Upload].
type UploadResult struct {
	Sent         bool
	Bytes        int
	LastModified LastModified
}

// SyncClient backs up and restores the live chart through a [CloudClient].
//
// It reads the live project and session from a [models.Workspace] and never mutates them.
type SyncClient struct {
	cloud     *CloudClient
	workspace *models.Workspace
	userID    string
	reach     Reachability
	recorder  TransferRecorder
	logger    *log.Logger

	uploading *semaphore.Weighted

	mu           sync.Mutex
	lastModified map[models.TransferKind]LastModified
}

// NewSyncClient wires a sync client. reach and recorder may be nil.
func NewSyncClient(cloud *CloudClient, ws *models.Workspace, userID string, reach Reachability, recorder TransferRecorder, logger *log.Logger) *SyncClient {
	return &SyncClient{
		cloud:        cloud,
		workspace:    ws,
		userID:       userID,
		reach:        reach,
		recorder:     recorder,
		logger:       shared.WithLogger(logger, "component", "sync"),
		uploading:    semaphore.NewWeighted(1),
		lastModified: make(map[models.TransferKind]LastModified),
	}
}

// UserID returns the device id sent with every request.
func (s *SyncClient) UserID() string { return s.userID }

// Reachable reports network reachability right now.
func (s *SyncClient) Reachable(ctx context.Context) bool {
	return s.reach == nil || s.reach.Reachable(ctx)
}

// Status derives the current precondition: user id, then reachability, then a loaded session.
func (s *SyncClient) Status(ctx context.Context) Status {
	if s.userID == "" || s.userID == UnsupportedUserID {
		return StatusUnsupportedUserID
	}
	if !s.Reachable(ctx) {
		return StatusNetworkUnreachable
	}
	if s.workspace == nil || s.workspace.Session() == nil {
		return StatusNoProjectLoaded
	}
	return StatusReady
}

func (s *SyncClient) ready(ctx context.Context) error {
	if status := s.Status(ctx); status != StatusReady {
		return &StatusError{Status: status}
	}
	return nil
}

func (s *SyncClient) form(kind models.TransferKind) CloudForm {
	project, _ := s.workspace.Project()
	name := ""
	if project != nil {
		name = project.Name
	}
	return CloudForm{UserID: s.userID, FileName: kind.FileName(), ProjectName: name}
}

// QueryLastModified asks the store when kind was last uploaded for the live project.
func (s *SyncClient) QueryLastModified(ctx context.Context, kind models.TransferKind) (LastModified, error) {
	if err := s.ready(ctx); err != nil {
		return LastModified{}, err
	}

	lm, err := s.cloud.GetLastModified(ctx, s.form(kind))
	if err != nil {
		s.logger.Warn("last-modified query failed", "kind", kind, "error", err)
		return LastModified{}, err
	}

	s.mu.Lock()
	s.lastModified[kind] = lm
	s.mu.Unlock()
	return lm, nil
}

// LastKnownModified returns the most recent last-modified answer for kind, if any.
func (s *SyncClient) LastKnownModified(kind models.TransferKind) (LastModified, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lm, ok := s.lastModified[kind]
	return lm, ok
}

// Upload sends payload as kind. Only one upload runs at a time; a call made while
// another is in flight returns immediately with Sent == false and sends nothing.
//
// When the upload finishes, successfully or not, the last-modified value for kind is refreshed.
func (s *SyncClient) Upload(ctx context.Context, kind models.TransferKind, payload []byte, onProgress func(float64)) (UploadResult, error) {
	if err := s.ready(ctx); err != nil {
		return UploadResult{}, err
	}
	if !s.uploading.TryAcquire(1) {
		s.logger.Debug("upload already in flight, dropping request", "kind", kind)
		return UploadResult{}, nil
	}
	defer s.uploading.Release(1)

	form := s.form(kind)
	err := s.cloud.Upload(ctx, form, payload, onProgress)
	s.record(models.DirectionUpload, kind, form.ProjectName, int64(len(payload)), err, true)
	if err != nil {
		s.logger.Warn("upload failed", "kind", kind, "error", err)
	}

	result := UploadResult{Sent: true, Bytes: len(payload)}
	if lm, lmErr := s.QueryLastModified(ctx, kind); lmErr == nil {
		result.LastModified = lm
	}
	return result, err
}

// Download fetches kind for the live project. found is false when the store has no such file.
func (s *SyncClient) Download(ctx context.Context, kind models.TransferKind) (text string, found bool, err error) {
	if err := s.ready(ctx); err != nil {
		return "", false, err
	}

	form := s.form(kind)
	data, found, err := s.cloud.Download(ctx, form)
	s.record(models.DirectionDownload, kind, form.ProjectName, int64(len(data)), err, found)
	if err != nil {
		s.logger.Warn("download failed", "kind", kind, "error", err)
		return "", false, err
	}
	return string(data), found, nil
}

func (s *SyncClient) record(dir models.TransferDirection, kind models.TransferKind, project string, size int64, err error, found bool) {
	if s.recorder == nil {
		return
	}

	outcome := models.OutcomeSucceeded
	switch {
	case err != nil:
		outcome = models.OutcomeFailed
	case !found:
		outcome = models.OutcomeNotFound
	}

	if recErr := s.recorder.Create(models.NewTransferRecord(dir, kind, project, size, outcome, err)); recErr != nil {
		s.logger.Warn("failed to record transfer", "error", recErr)
	}
}

// ChartFilePath forces the .txt extension on a downloaded chart destination.
func ChartFilePath(path string) string {
	if !strings.HasSuffix(path, ".txt") {
		return path + ".txt"
	}
	return path
}

// WriteChart saves downloaded chart text to path (with a .txt suffix) and returns the final path.
func WriteChart(fsys afero.Fs, path, text string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: chart destination", shared.ErrMissingArgument)
	}
	path = ChartFilePath(path)
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create chart folder: %w", err)
	}
	if err := afero.WriteFile(fsys, path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write chart: %w", err)
	}
	return path, nil
}

// IsStatusError reports whether err is a [StatusError] and returns its status.
func IsStatusError(err error) (Status, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status, true
	}
	return StatusReady, false
}
