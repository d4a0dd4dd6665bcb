package commands

import (
	"testing"
	"time"

	"github.com/okvist/skein/internal/model"
)

func TestParseQuickAdd_Metadata(t *testing.T) {
	got := parseQuickAdd("Pour footings @site #cabin !high due:tomorrow est:6h")

	if got.Title != "Pour footings" {
		t.Errorf("title = %q, want %q", got.Title, "Pour footings")
	}
	if len(got.Tags) != 1 || got.Tags[0] != "@site" {
		t.Errorf("tags = %v, want [@site]", got.Tags)
	}
	if got.Project != "cabin" {
		t.Errorf("project = %q, want cabin", got.Project)
	}
	if got.Priority != model.PriorityHigh {
		t.Errorf("priority = %q, want high", got.Priority)
	}
	if got.DueDate == nil {
		t.Fatal("due date not parsed")
	}
	wantDue := time.Now().AddDate(0, 0, 1)
	if got.DueDate.YearDay() != wantDue.YearDay() {
		t.Errorf("due = %v, want tomorrow", got.DueDate)
	}
	if got.Estimate == nil || *got.Estimate != 6*3600 {
		t.Errorf("estimate = %v, want 21600", got.Estimate)
	}
}

func TestParseQuickAdd_UnknownTokensStayInTitle(t *testing.T) {
	got := parseQuickAdd("Fix bug !someday due:whenever est:long")

	if got.Title != "Fix bug !someday due:whenever est:long" {
		t.Errorf("title = %q, unparseable tokens should stay", got.Title)
	}
	if got.Priority != model.PriorityMedium {
		t.Errorf("priority = %q, want default medium", got.Priority)
	}
	if got.DueDate != nil || got.Estimate != nil {
		t.Error("unparseable due/est should be ignored")
	}
}

func TestParseQuickAdd_BareSigilsAreTitle(t *testing.T) {
	// A lone @ or # carries no name and stays in the title.
	got := parseQuickAdd("Ping @ about # plans")

	if got.Title != "Ping @ about # plans" {
		t.Errorf("title = %q", got.Title)
	}
	if len(got.Tags) != 0 || got.Project != "" {
		t.Errorf("tags = %v project = %q, want none", got.Tags, got.Project)
	}
}

func TestParseNaturalDate_Weekday(t *testing.T) {
	got := parseNaturalDate("friday")
	if got == nil {
		t.Fatal("friday not parsed")
	}
	if got.Weekday() != time.Friday {
		t.Errorf("weekday = %v, want Friday", got.Weekday())
	}
	if !got.After(time.Now()) {
		t.Error("next friday should be in the future")
	}
}

func TestParseNaturalDate_ISO(t *testing.T) {
	got := parseNaturalDate("2026-03-15")
	if got == nil {
		t.Fatal("ISO date not parsed")
	}
	if got.Year() != 2026 || got.Month() != time.March || got.Day() != 15 {
		t.Errorf("got %v", got)
	}
}
