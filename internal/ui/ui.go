package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	RecentListView ViewState = iota
	LoadingView
	ResultView
)

// OpenFunc opens the project at lapPath, reporting progress on the channel. It must not close the channel.
type OpenFunc func(ctx context.Context, lapPath string, progress chan<- tasks.ProgressUpdate) (*models.Session, error)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	open         OpenFunc
	width        int
	height       int
	recentList   list.Model
	selected     *models.RecentProject
	progressChan chan tasks.ProgressUpdate
	doneChan     chan loadOutcome
	progress     tasks.ProgressUpdate
	bar          progress.Model
	spinner      spinner.Model
	session      *models.Session
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates the picker over recent projects; choosing one runs open.
func NewModel(ctx context.Context, recent []*models.RecentProject, open OpenFunc) *Model {
	recentList := list.New(recentItems(recent, time.Now()), list.NewDefaultDelegate(), 0, 0)
	recentList.Title = "Recent Projects"

	return &Model{
		ctx:        ctx,
		view:       RecentListView,
		open:       open,
		recentList: recentList,
		bar:        progress.New(progress.WithGradient(styles.barFrom, styles.barTo)),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.title.UnsetMarginBottom())),
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// ViewState returns the current view.
func (m *Model) ViewState() ViewState { return m.view }

// Session returns the session opened by the last successful load, if any.
func (m *Model) Session() *models.Session { return m.session }

// Err returns the error of the last failed load, if any.
func (m *Model) Err() error { return m.err }

// Init implements [tea.Model].
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recentList.SetSize(msg.Width-4, msg.Height-8)
		m.bar.Width = min(max(msg.Width-8, 10), 80)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case RecentListView:
			return m.handleRecentListKeys(msg)
		case LoadingView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != LoadingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.progress = msg.data.(tasks.ProgressUpdate)
			return m, m.waitForProgress()
		case MsgLoadComplete:
			outcome := msg.data.(loadOutcome)
			m.session = outcome.session
			m.err = outcome.err
			m.view = ResultView
			m.progressChan = nil
			m.doneChan = nil
			return m, nil
		}
	}

	if m.view == RecentListView {
		var cmd tea.Cmd
		m.recentList, cmd = m.recentList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case RecentListView:
		return m.renderRecentList()
	case LoadingView:
		return m.renderLoading()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleRecentListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.recentList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.recentList, cmd = m.recentList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.open):
		if item, ok := m.recentList.SelectedItem().(recentItem); ok {
			m.selected = item.project
			m.view = LoadingView
			return m, tea.Batch(m.startLoad(item.project.LapPath()), m.spinner.Tick)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.recentList, cmd = m.recentList.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = RecentListView
		m.selected = nil
		m.progress = tasks.ProgressUpdate{}
		m.err = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) startLoad(lapPath string) tea.Cmd {
	progressChan := make(chan tasks.ProgressUpdate, 50)
	doneChan := make(chan loadOutcome, 1)
	m.progressChan = progressChan
	m.doneChan = doneChan
	m.progress = tasks.ProgressUpdate{}

	go func() {
		session, err := m.open(m.ctx, lapPath, progressChan)
		doneChan <- loadOutcome{session: session, err: err}
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan, doneChan := m.progressChan, m.doneChan
	return func() tea.Msg {
		if progressChan == nil {
			return loadCompleteMsg(nil, errors.New("no load in progress"))
		}

		update, ok := <-progressChan
		if !ok {
			outcome := <-doneChan
			return loadCompleteMsg(outcome.session, outcome.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderRecentList() string {
	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	return fmt.Sprintf("%s\n\n%s", m.recentList.View(), helpView)
}

func (m *Model) renderLoading() string {
	name := ""
	if m.selected != nil {
		name = m.selected.Name()
	}
	title := styles.title.Render(fmt.Sprintf("Opening %s", name))

	stage := m.progress.Message
	if stage == "" {
		stage = "Starting..."
	}

	return fmt.Sprintf("%s\n\n%s %s\n\n%s\n\n%s",
		title,
		m.spinner.View(), stage,
		m.bar.ViewAs(m.progress.Progress),
		m.help.ShortHelpView([]key.Binding{m.keys.quit}),
	)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})

	if m.err != nil {
		message := m.err.Error()
		var stageErr *tasks.StageError
		if errors.As(m.err, &stageErr) {
			message = fmt.Sprintf("%s (%s)", stageErr.Message, stageErr.Stage)
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("Load failed: "+message), helpView)
	}

	if m.session == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No session available"), helpView)
	}

	title := styles.ok.Render("✓ Project opened")
	var lines []string
	check := func(label string, ok bool) {
		mark := styles.warn.Render("–")
		if ok {
			mark = styles.ok.Render("✓")
		}
		lines = append(lines, fmt.Sprintf("  %s %s", mark, label))
	}

	result := m.session.Result
	check("chart", result.ChartLoaded())
	check("background", result.BackgroundLoaded())
	check("background (gray)", result.BackgroundGrayLoaded())
	check("background (linear)", result.BackgroundLinearLoaded())
	check("music", result.MusicLoaded())
	check("video", result.VideoDetected())

	return fmt.Sprintf("%s\n%s\n\n%s", title, strings.Join(lines, "\n"), helpView)
}
