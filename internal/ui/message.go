package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgLoadComplete
)

// loadOutcome is the payload of [MsgLoadComplete].
type loadOutcome struct {
	session *models.Session
	err     error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// loadCompleteMsg is the constructor for [MsgLoadComplete]
func loadCompleteMsg(session *models.Session, err error) Msg {
	return Msg{kind: MsgLoadComplete, data: loadOutcome{session: session, err: err}}
}
