package views

import tea "github.com/charmbracelet/bubbletea"

// Messages that cross view boundaries. The root model consumes these;
// defining them here keeps views importable without a cycle.

// FocusTaskRequest asks the root model to open a task in the focus view.
type FocusTaskRequest struct {
	TaskID string
}

// BackToListMsg asks the root model to return to the list view.
type BackToListMsg struct{}

// Notice carries a transient status line for the footer.
type Notice struct {
	Message string
}

// ErrorNotice carries an error for the footer.
type ErrorNotice struct {
	Err error
}

func notify(message string) tea.Cmd {
	return func() tea.Msg { return Notice{Message: message} }
}

func notifyErr(err error) tea.Cmd {
	return func() tea.Msg { return ErrorNotice{Err: err} }
}
