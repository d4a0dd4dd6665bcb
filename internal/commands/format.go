package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/okvist/skein/internal/model"
)

// shortID returns the prefix used to reference tasks on the CLI. FindTask
// resolves these prefixes back to full ids.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// statusBadge maps a derived status to its list marker.
func statusBadge(s model.Status) string {
	switch s {
	case model.StatusDone:
		return "[x]"
	case model.StatusBlocked:
		return "[-]"
	case model.StatusInProgress:
		return "[>]"
	default:
		return "[ ]"
	}
}

func formatDuration(d time.Duration) string {
	if d.Hours() >= 1 {
		return fmt.Sprintf("%.1fh", d.Hours())
	} else if d.Minutes() >= 1 {
		return fmt.Sprintf("%.0fm", d.Minutes())
	} else {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
}

func formatSeconds(secs int) string {
	return formatDuration(time.Duration(secs) * time.Second)
}

func formatHours(h float64) string {
	s := fmt.Sprintf("%.1f", h)
	s = strings.TrimSuffix(s, ".0")
	return s + "h"
}

// tagNames renders a task's tags with their @ prefixes.
func tagNames(tags []model.Tag) string {
	names := make([]string, 0, len(tags))
	for i := range tags {
		names = append(names, tags[i].DisplayName())
	}
	return strings.Join(names, ", ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
