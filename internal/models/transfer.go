package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/lapx/internal/shared"
)

// TransferKind selects which remote file a cloud transfer targets.
type TransferKind int

const (
	TransferChart TransferKind = iota
	TransferMusic
	TransferBackup
)

func (k TransferKind) String() string {
	switch k {
	case TransferChart:
		return "chart"
	case TransferMusic:
		return "music"
	case TransferBackup:
		return "backup"
	default:
		return "unknown"
	}
}

// FileName returns the remote file name for k.
func (k TransferKind) FileName() string {
	switch k {
	case TransferChart:
		return "chart.txt"
	case TransferMusic:
		return "music.ogg"
	case TransferBackup:
		return "backup.txt"
	default:
		return ""
	}
}

// ParseTransferKind parses "chart", "music" or "backup".
func ParseTransferKind(s string) (TransferKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "chart":
		return TransferChart, nil
	case "music":
		return TransferMusic, nil
	case "backup":
		return TransferBackup, nil
	}
	return 0, fmt.Errorf("%w: unknown transfer kind %q", shared.ErrInvalidArgument, s)
}

// TransferRequest is one upload: what to store and the bytes to store.
type TransferRequest struct {
	Kind    TransferKind
	Payload []byte
}
