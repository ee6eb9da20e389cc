// Package tui is a terminal front end for an upload coordinator.
//
// It renders the coordinator's item snapshots, lets the user add files by
// path and issues delete, retry, clear and capacity intents from the
// keyboard. All state lives in the coordinator; the model only keeps the
// latest snapshot and the cursor.
package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/uploader/internal/uploader"
)

type mode int

const (
	modeList mode = iota
	modeInput
)

// Model is the Bubble Tea model of the upload widget.
type Model struct {
	coord   *uploader.Coordinator
	updates <-chan []uploader.View
	stop    func()

	items    []uploader.View
	capacity int
	cursor   int
	closed   bool

	mode    mode
	input   textinput.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	status    string
	statusErr bool
	width     int
}

// New creates a model subscribed to coord. The subscription is released
// when the program quits.
func New(coord *uploader.Coordinator) Model {
	updates, stop := coord.Subscribe()

	in := textinput.New()
	in.Placeholder = "path/to/file.pdf another.png"
	in.Prompt = "Add: "
	in.CharLimit = 4096

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	opts := coord.Options()
	return Model{
		coord:    coord,
		updates:  updates,
		stop:     stop,
		capacity: opts.MaxFiles,
		input:    in,
		spinner:  sp,
		help:     help.New(),
		keys:     defaultKeyMap(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForViews(m.updates), m.spinner.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewsMsg:
		m.items = msg
		m.capacity = m.coord.State().Capacity
		m.clampCursor()
		return m, waitForViews(m.updates)

	case closedMsg:
		m.closed = true
		m.items = nil
		return m.setStatus("Uploader closed", true), nil

	case DoneMsg:
		return m.setStatus(string(msg), false), nil

	case ErrMsg:
		return m.setStatus(errorStatus(msg.Err), true), nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.mode == modeInput {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.stop()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Add):
		if m.closed {
			return m, nil
		}
		m.mode = modeInput
		m.input.SetValue("")
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Delete):
		if name, ok := m.selected(); ok {
			return m, deleteCmd(m.coord, name)
		}

	case key.Matches(msg, m.keys.Retry):
		if name, ok := m.selected(); ok {
			return m, retryCmd(m.coord, name)
		}

	case key.Matches(msg, m.keys.Clear):
		return m, clearCmd(m.coord)

	case key.Matches(msg, m.keys.More):
		return m, capacityCmd(m.coord, m.capacity+1)

	case key.Matches(msg, m.keys.Fewer):
		if m.capacity > 1 {
			return m, capacityCmd(m.coord, m.capacity-1)
		}
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeList
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		paths := splitPaths(m.input.Value())
		m.mode = modeList
		m.input.Blur()
		if len(paths) == 0 {
			return m, nil
		}
		return m, addCmd(m.coord, paths)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) selected() (string, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return "", false
	}
	return m.items[m.cursor].Name, true
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// errorStatus prefers the mapped user message over the raw error.
func errorStatus(err error) string {
	if uploader.IsUserFacing(err) {
		return uploader.FormatUserError(err)
	}
	return "Error: " + err.Error()
}

func (m Model) setStatus(s string, isErr bool) Model {
	m.status = s
	m.statusErr = isErr
	return m
}
