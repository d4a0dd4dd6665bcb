package ui

// View represents the current active view
type View int

const (
	ViewList View = iota
	ViewBoard
	ViewFocus
	ViewStats
)

// String returns the display name for a view
func (v View) String() string {
	switch v {
	case ViewList:
		return "List"
	case ViewBoard:
		return "Board"
	case ViewFocus:
		return "Focus"
	case ViewStats:
		return "Stats"
	default:
		return "Unknown"
	}
}

// Messages for inter-component communication

// ErrorMsg contains an error to display
type ErrorMsg struct {
	Err error
}

// StatusMsg contains a status message to display
type StatusMsg struct {
	Message string
}

// ThemeChangedMsg indicates the theme was changed
type ThemeChangedMsg struct {
	ThemeName string
}
