package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/uploader/internal/uploader"
)

// DoneMsg reports a finished action to the status line.
type DoneMsg string

// ErrMsg reports a failed action to the status line.
type ErrMsg struct {
	Err error
}

type viewsMsg []uploader.View

type closedMsg struct{}

// waitForViews blocks for the next coordinator snapshot.
func waitForViews(ch <-chan []uploader.View) tea.Cmd {
	return func() tea.Msg {
		views, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return viewsMsg(views)
	}
}

// addCmd opens each path from disk and offers them as one batch.
func addCmd(coord *uploader.Coordinator, paths []string) tea.Cmd {
	return func() tea.Msg {
		files := make([]uploader.File, 0, len(paths))
		var errs []error
		for _, p := range paths {
			f, err := uploader.NewDiskFile(p)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			files = append(files, f)
		}
		if len(errs) > 0 {
			return ErrMsg{Err: errors.Join(errs...)}
		}

		res, err := coord.AddFiles(files...)
		if err != nil {
			return ErrMsg{Err: err}
		}
		if res.CapacityExceeded {
			return ErrMsg{Err: uploader.ErrCapacityExceeded}
		}

		var parts []string
		if n := len(res.Added); n > 0 {
			parts = append(parts, fmt.Sprintf("%d added", n))
		}
		if len(res.Duplicates) > 0 {
			parts = append(parts, "already added: "+strings.Join(res.Duplicates, ", "))
		}
		if len(res.Disallowed) > 0 {
			parts = append(parts, "type not allowed: "+strings.Join(res.Disallowed, ", "))
		}
		if len(parts) == 0 {
			return DoneMsg("Nothing added")
		}
		return DoneMsg(strings.Join(parts, "; "))
	}
}

func deleteCmd(coord *uploader.Coordinator, name string) tea.Cmd {
	return func() tea.Msg {
		if err := coord.DeleteFile(name); err != nil {
			return ErrMsg{Err: err}
		}
		return DoneMsg("Deleting " + name)
	}
}

func retryCmd(coord *uploader.Coordinator, name string) tea.Cmd {
	return func() tea.Msg {
		if err := coord.RetryFile(name); err != nil {
			return ErrMsg{Err: err}
		}
		return DoneMsg("Retrying " + name)
	}
}

func clearCmd(coord *uploader.Coordinator) tea.Cmd {
	return func() tea.Msg {
		coord.Clear()
		return DoneMsg("Cleared")
	}
}

func capacityCmd(coord *uploader.Coordinator, n int) tea.Cmd {
	return func() tea.Msg {
		coord.SetCapacity(n)
		return DoneMsg(fmt.Sprintf("Capacity set to %d", n))
	}
}

// splitPaths splits typed input on whitespace and commas.
func splitPaths(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}
