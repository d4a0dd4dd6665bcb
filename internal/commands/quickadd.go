package commands

import (
	"strings"
	"time"

	"github.com/okvist/skein/internal/model"
)

// quickAdd holds the fields recognized in quick-add text.
type quickAdd struct {
	Title    string
	Priority model.Priority
	DueDate  *time.Time
	Estimate *int // seconds
	Tags     []string
	Project  string
}

// parseQuickAdd splits quick-add text into a title and metadata. Words it
// cannot interpret stay in the title rather than being dropped.
//
//	@tag       context tag (repeatable)
//	#project   project name
//	!high      priority (low, medium, high, urgent)
//	due:fri    due date (today, tomorrow, weekday, nextweek, 2026-01-15)
//	est:2h     effort estimate (time.ParseDuration syntax)
func parseQuickAdd(text string) quickAdd {
	task := quickAdd{Priority: model.PriorityMedium}

	words := strings.Fields(text)
	var titleParts []string

	for _, word := range words {
		switch {
		case strings.HasPrefix(word, "@") && len(word) > 1:
			task.Tags = append(task.Tags, word)

		case strings.HasPrefix(word, "#") && len(word) > 1:
			task.Project = strings.TrimPrefix(word, "#")

		case strings.HasPrefix(word, "!"):
			priority := strings.ToLower(strings.TrimPrefix(word, "!"))
			switch priority {
			case "low", "l":
				task.Priority = model.PriorityLow
			case "medium", "med", "m":
				task.Priority = model.PriorityMedium
			case "high", "hi", "h":
				task.Priority = model.PriorityHigh
			case "urgent", "u":
				task.Priority = model.PriorityUrgent
			default:
				titleParts = append(titleParts, word)
			}

		case strings.HasPrefix(strings.ToLower(word), "due:"):
			dateStr := strings.TrimPrefix(strings.ToLower(word), "due:")
			if parsed := parseNaturalDate(dateStr); parsed != nil {
				task.DueDate = parsed
			} else {
				titleParts = append(titleParts, word)
			}

		case strings.HasPrefix(strings.ToLower(word), "est:"):
			durStr := strings.TrimPrefix(strings.ToLower(word), "est:")
			if d, err := time.ParseDuration(durStr); err == nil && d > 0 {
				secs := int(d.Seconds())
				task.Estimate = &secs
			} else {
				titleParts = append(titleParts, word)
			}

		default:
			titleParts = append(titleParts, word)
		}
	}

	task.Title = strings.Join(titleParts, " ")
	return task
}

func parseNaturalDate(s string) *time.Time {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())

	switch strings.ToLower(s) {
	case "today":
		return &today
	case "tomorrow", "tom":
		t := today.AddDate(0, 0, 1)
		return &t
	case "monday", "mon":
		return nextWeekday(time.Monday)
	case "tuesday", "tue":
		return nextWeekday(time.Tuesday)
	case "wednesday", "wed":
		return nextWeekday(time.Wednesday)
	case "thursday", "thu":
		return nextWeekday(time.Thursday)
	case "friday", "fri":
		return nextWeekday(time.Friday)
	case "saturday", "sat":
		return nextWeekday(time.Saturday)
	case "sunday", "sun":
		return nextWeekday(time.Sunday)
	case "nextweek":
		t := today.AddDate(0, 0, 7)
		return &t
	}

	// Try parsing as date
	formats := []string{
		"2006-01-02",
		"01/02/2006",
		"01-02-2006",
		"Jan 2",
		"Jan 2, 2006",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			// If no year, use current year
			if t.Year() == 0 {
				t = time.Date(now.Year(), t.Month(), t.Day(), 23, 59, 59, 0, now.Location())
			}
			return &t
		}
	}

	return nil
}

func nextWeekday(day time.Weekday) *time.Time {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())

	daysUntil := int(day - now.Weekday())
	if daysUntil <= 0 {
		daysUntil += 7
	}

	t := today.AddDate(0, 0, daysUntil)
	return &t
}

func formatDueDate(t time.Time) string {
	now := time.Now()

	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return "today"
	}

	tomorrow := now.AddDate(0, 0, 1)
	if t.Year() == tomorrow.Year() && t.YearDay() == tomorrow.YearDay() {
		return "tomorrow"
	}

	if t.Year() == now.Year() {
		return t.Format("Mon, Jan 2")
	}

	return t.Format("Jan 2, 2006")
}
