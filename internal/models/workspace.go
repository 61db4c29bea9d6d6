package models

import "sync"

// Workspace holds the single live project and session.
//
// The pipeline commits into it; the sync client and savers only read from it.
type Workspace struct {
	mu            sync.RWMutex
	project       *Project
	lapPath       string
	session       *Session
	chartLocation string
}

// NewWorkspace returns an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{}
}

// Project returns the live project and the .lap path it was read from.
func (w *Workspace) Project() (*Project, string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.project, w.lapPath
}

// Session returns the live session, or nil when nothing is loaded.
func (w *Workspace) Session() *Session {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.session
}

// ChartLocation returns where the live chart is saved.
func (w *Workspace) ChartLocation() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chartLocation
}

// SetChartLocation changes where the live chart is saved (save-as).
func (w *Workspace) SetChartLocation(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chartLocation = path
	if w.project != nil {
		w.project.ChartPath = path
	}
}

// Commit installs project and session as live and releases the session it replaces.
func (w *Workspace) Commit(project *Project, lapPath string, session *Session) {
	w.mu.Lock()
	previous := w.session
	w.project = project
	w.lapPath = lapPath
	w.session = session
	w.chartLocation = session.Property.ChartPath
	w.mu.Unlock()

	if previous != nil && previous != session {
		previous.Release()
	}
}
