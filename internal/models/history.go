package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/lapx/internal/shared"
)

// RecentProject is a project that was opened successfully, keyed by its .lap path.
type RecentProject struct {
	id        string
	lapPath   string
	name      string
	designer  string
	bgaCount  int
	openedAt  time.Time
	createdAt time.Time
	updatedAt time.Time
}

// NewRecentProject records p opened from lapPath at openedAt.
func NewRecentProject(lapPath string, p *Project, openedAt time.Time) *RecentProject {
	return &RecentProject{
		lapPath:   lapPath,
		name:      p.Name,
		designer:  p.Designer,
		bgaCount:  p.BGACount(),
		openedAt:  openedAt,
		createdAt: openedAt,
		updatedAt: openedAt,
	}
}

// RestoreRecentProject rebuilds a row read from storage.
func RestoreRecentProject(id, lapPath, name, designer string, bgaCount int, openedAt, createdAt, updatedAt time.Time) *RecentProject {
	return &RecentProject{
		id: id, lapPath: lapPath, name: name, designer: designer, bgaCount: bgaCount,
		openedAt: openedAt, createdAt: createdAt, updatedAt: updatedAt,
	}
}

func (r *RecentProject) ID() string              { return r.id }
func (r *RecentProject) SetID(id string)         { r.id = id }
func (r *RecentProject) LapPath() string         { return r.lapPath }
func (r *RecentProject) Name() string            { return r.name }
func (r *RecentProject) Designer() string        { return r.designer }
func (r *RecentProject) BGACount() int           { return r.bgaCount }
func (r *RecentProject) OpenedAt() time.Time     { return r.openedAt }
func (r *RecentProject) CreatedAt() time.Time    { return r.createdAt }
func (r *RecentProject) UpdatedAt() time.Time    { return r.updatedAt }
func (r *RecentProject) SetUpdatedAt(t time.Time) { r.updatedAt = t }

// Validate checks required fields.
func (r *RecentProject) Validate() error {
	if r.lapPath == "" {
		return fmt.Errorf("%w: lap path is required", shared.ErrValidation)
	}
	if r.name == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	return nil
}

// TransferDirection distinguishes uploads from downloads in the transfer log.
type TransferDirection string

const (
	DirectionUpload   TransferDirection = "upload"
	DirectionDownload TransferDirection = "download"
)

// TransferOutcome is how a logged transfer ended.
type TransferOutcome string

const (
	OutcomeSucceeded TransferOutcome = "succeeded"
	OutcomeFailed    TransferOutcome = "failed"
	OutcomeNotFound  TransferOutcome = "not_found"
)

// TransferRecord is one entry of the cloud transfer log.
type TransferRecord struct {
	id          string
	sequence    int
	direction   TransferDirection
	kind        TransferKind
	projectName string
	bytes       int64
	outcome     TransferOutcome
	errMsg      string
	createdAt   time.Time
	updatedAt   time.Time
}

// NewTransferRecord builds a log entry. err may be nil.
func NewTransferRecord(direction TransferDirection, kind TransferKind, projectName string, size int64, outcome TransferOutcome, err error) *TransferRecord {
	now := time.Now()
	rec := &TransferRecord{
		direction:   direction,
		kind:        kind,
		projectName: projectName,
		bytes:       size,
		outcome:     outcome,
		createdAt:   now,
		updatedAt:   now,
	}
	if err != nil {
		rec.errMsg = err.Error()
	}
	return rec
}

// RestoreTransferRecord rebuilds a row read from storage.
func RestoreTransferRecord(id string, sequence int, direction TransferDirection, kind TransferKind, projectName string, size int64, outcome TransferOutcome, errMsg string, createdAt, updatedAt time.Time) *TransferRecord {
	return &TransferRecord{
		id: id, sequence: sequence, direction: direction, kind: kind, projectName: projectName,
		bytes: size, outcome: outcome, errMsg: errMsg, createdAt: createdAt, updatedAt: updatedAt,
	}
}

func (t *TransferRecord) ID() string                   { return t.id }
func (t *TransferRecord) SetID(id string)              { t.id = id }
func (t *TransferRecord) Sequence() int                { return t.sequence }
func (t *TransferRecord) SetSequence(n int)            { t.sequence = n }
func (t *TransferRecord) Direction() TransferDirection { return t.direction }
func (t *TransferRecord) Kind() TransferKind           { return t.kind }
func (t *TransferRecord) ProjectName() string          { return t.projectName }
func (t *TransferRecord) Bytes() int64                 { return t.bytes }
func (t *TransferRecord) Outcome() TransferOutcome     { return t.outcome }
func (t *TransferRecord) Error() string                { return t.errMsg }
func (t *TransferRecord) CreatedAt() time.Time         { return t.createdAt }
func (t *TransferRecord) UpdatedAt() time.Time         { return t.updatedAt }

// Validate checks required fields.
func (t *TransferRecord) Validate() error {
	if t.direction != DirectionUpload && t.direction != DirectionDownload {
		return fmt.Errorf("%w: unknown direction %q", shared.ErrValidation, t.direction)
	}
	if t.kind.FileName() == "" {
		return fmt.Errorf("%w: unknown transfer kind", shared.ErrValidation)
	}
	if t.outcome == "" {
		return fmt.Errorf("%w: outcome is required", shared.ErrValidation)
	}
	return nil
}
