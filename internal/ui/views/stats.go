package views

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/okvist/skein/internal/app"
	"github.com/okvist/skein/internal/model"
	"github.com/okvist/skein/internal/ui/theme"
)

// TimePeriod represents a time range for stats
type TimePeriod int

const (
	PeriodWeek TimePeriod = iota
	PeriodMonth
	PeriodYear
)

// bottleneck is a task holding up others, with how many it blocks.
type bottleneck struct {
	title  string
	blocks int
}

// projectTime is logged time attributed to one project.
type projectTime struct {
	name    string
	seconds int
}

// StatsView summarizes the graph: derived-status counts, the tasks
// blocking the most work, and where logged time went.
type StatsView struct {
	app    *app.App
	width  int
	height int

	period TimePeriod

	counts       map[model.Status]int
	bottlenecks  []bottleneck
	projectTime  []projectTime
	dailyDone    []int
	totalSeconds int

	err     error
	loading bool
}

type statsLoadedMsg struct {
	counts       map[model.Status]int
	bottlenecks  []bottleneck
	projectTime  []projectTime
	dailyDone    []int
	totalSeconds int
	err          error
}

// NewStatsView creates a new stats view
func NewStatsView(application *app.App) StatsView {
	return StatsView{
		app:     application,
		period:  PeriodWeek,
		loading: true,
	}
}

// Init initializes the stats view
func (v StatsView) Init() tea.Cmd {
	return v.loadStats()
}

// SetSize sets the view dimensions
func (v StatsView) SetSize(width, height int) StatsView {
	v.width = width
	v.height = height
	return v
}

// IsInputMode returns whether the view is in input mode
func (v StatsView) IsInputMode() bool {
	return false
}

// loadStats rebuilds the graph and derives every number fresh. Status
// counts cannot come from the store: status is never persisted.
func (v StatsView) loadStats() tea.Cmd {
	application := v.app
	period := v.period
	return func() tea.Msg {
		eng, err := application.LoadEngine()
		if err != nil {
			return statsLoadedMsg{err: err}
		}

		now := time.Now()
		var since time.Time
		switch period {
		case PeriodMonth:
			since = now.AddDate(0, -1, 0)
		case PeriodYear:
			since = now.AddDate(-1, 0, 0)
		default:
			since = now.AddDate(0, 0, -7)
		}

		counts := make(map[model.Status]int)
		var bottlenecks []bottleneck
		for _, t := range eng.Tasks() {
			counts[eng.Status(t.ID)]++
			if !t.Done {
				if n := len(eng.Dependents(t.ID)); n > 0 {
					bottlenecks = append(bottlenecks, bottleneck{title: t.Title, blocks: n})
				}
			}
		}
		sort.Slice(bottlenecks, func(i, j int) bool {
			if bottlenecks[i].blocks != bottlenecks[j].blocks {
				return bottlenecks[i].blocks > bottlenecks[j].blocks
			}
			return bottlenecks[i].title < bottlenecks[j].title
		})
		if len(bottlenecks) > 5 {
			bottlenecks = bottlenecks[:5]
		}

		// Logged time per task, rolled up to projects through the graph.
		logged, err := application.DB.TimeLoggedSince(since)
		if err != nil {
			return statsLoadedMsg{err: err}
		}
		projects, err := application.DB.GetProjects()
		if err != nil {
			return statsLoadedMsg{err: err}
		}
		projectNames := make(map[string]string, len(projects))
		for _, p := range projects {
			projectNames[p.ID] = p.Name
		}

		total := 0
		perProject := make(map[string]int)
		for taskID, seconds := range logged {
			total += seconds
			task, ok := eng.Task(taskID)
			if !ok {
				continue
			}
			name := "No project"
			if task.ProjectID != nil {
				if n, ok := projectNames[*task.ProjectID]; ok {
					name = n
				}
			}
			perProject[name] += seconds
		}
		byProject := make([]projectTime, 0, len(perProject))
		for name, seconds := range perProject {
			byProject = append(byProject, projectTime{name: name, seconds: seconds})
		}
		sort.Slice(byProject, func(i, j int) bool {
			if byProject[i].seconds != byProject[j].seconds {
				return byProject[i].seconds > byProject[j].seconds
			}
			return byProject[i].name < byProject[j].name
		})

		// Completions per day, last 7 days.
		daily := make([]int, 7)
		weekAgo := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -6)
		for _, t := range eng.Tasks() {
			if t.CompletedAt == nil {
				continue
			}
			c := *t.CompletedAt
			day := time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, c.Location())
			idx := int(day.Sub(weekAgo).Hours() / 24)
			if idx >= 0 && idx < 7 {
				daily[idx]++
			}
		}

		return statsLoadedMsg{
			counts:       counts,
			bottlenecks:  bottlenecks,
			projectTime:  byProject,
			dailyDone:    daily,
			totalSeconds: total,
		}
	}
}

// Update handles messages
func (v StatsView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statsLoadedMsg:
		v.loading = false
		if msg.err != nil {
			v.err = msg.err
			return v, nil
		}
		v.err = nil
		v.counts = msg.counts
		v.bottlenecks = msg.bottlenecks
		v.projectTime = msg.projectTime
		v.dailyDone = msg.dailyDone
		v.totalSeconds = msg.totalSeconds
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "w":
			v.period = PeriodWeek
			return v, v.loadStats()
		case "m":
			v.period = PeriodMonth
			return v, v.loadStats()
		case "y":
			v.period = PeriodYear
			return v, v.loadStats()
		case "r":
			return v, v.loadStats()
		}
	}

	return v, nil
}

// View renders the stats view
func (v StatsView) View() string {
	if v.width == 0 || v.height == 0 {
		return "Loading..."
	}

	styles := theme.Current.Styles
	t := theme.Current.Theme

	if v.loading {
		return styles.Placeholder.Render("Loading...")
	}
	if v.err != nil {
		return lipgloss.NewStyle().Foreground(t.Error).Render(fmt.Sprintf("Error: %v", v.err))
	}

	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	periodLabels := []string{"Week", "Month", "Year"}
	sections = append(sections, titleStyle.Render(fmt.Sprintf("Statistics ─ %s", periodLabels[v.period])))
	sections = append(sections, "")

	sections = append(sections, v.renderStatusCards())

	logged := lipgloss.NewStyle().Foreground(t.Subtle).Render(
		fmt.Sprintf("logged %s in this period", formatDuration(v.totalSeconds)))
	sections = append(sections, logged)
	sections = append(sections, "")

	sections = append(sections, v.renderActivityChart())

	if len(v.bottlenecks) > 0 {
		sections = append(sections, "")
		sections = append(sections, v.renderBottlenecks())
	}

	if len(v.projectTime) > 0 {
		sections = append(sections, "")
		sections = append(sections, v.renderProjectTime())
	}

	return strings.Join(sections, "\n")
}

// renderStatusCards renders one card per derived status
func (v StatsView) renderStatusCards() string {
	t := theme.Current.Theme

	cardStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 2).
		Width(16)

	labelStyle := lipgloss.NewStyle().Foreground(t.Subtle)

	var cards []string
	for _, status := range boardColumns {
		valueStyle := lipgloss.NewStyle().Bold(true).Foreground(statusColor(status))
		cards = append(cards, cardStyle.Render(
			valueStyle.Render(fmt.Sprintf("%s %d", statusGlyph(status), v.counts[status]))+"\n"+
				labelStyle.Render(statusLabel(status)),
		))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// renderBottlenecks lists the unfinished tasks holding up the most work
func (v StatsView) renderBottlenecks() string {
	t := theme.Current.Theme

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(t.Secondary)

	var lines []string
	lines = append(lines, headerStyle.Render("Bottlenecks"))
	for _, b := range v.bottlenecks {
		count := lipgloss.NewStyle().Foreground(t.StatusBlocked).Bold(true).
			Render(fmt.Sprintf("blocks %d", b.blocks))
		lines = append(lines, fmt.Sprintf("  %s  %s", count, truncate(b.title, v.width-20)))
	}

	return strings.Join(lines, "\n")
}

// renderActivityChart renders the 7-day completion chart
func (v StatsView) renderActivityChart() string {
	t := theme.Current.Theme

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(t.Secondary)

	var lines []string
	lines = append(lines, headerStyle.Render("Completed (Last 7 Days)"))

	maxCount := 1
	for _, count := range v.dailyDone {
		if count > maxCount {
			maxCount = count
		}
	}

	chartHeight := 5
	barWidth := 4
	now := time.Now()

	for row := chartHeight; row >= 1; row-- {
		var rowStr strings.Builder
		threshold := float64(row) / float64(chartHeight)

		for i, count := range v.dailyDone {
			ratio := float64(count) / float64(maxCount)

			var block string
			if ratio >= threshold {
				block = lipgloss.NewStyle().Foreground(t.StatusDone).Render(strings.Repeat("█", barWidth))
			} else if ratio >= threshold-0.2 && ratio > 0 {
				block = lipgloss.NewStyle().Foreground(t.Info).Render(strings.Repeat("▄", barWidth))
			} else {
				block = strings.Repeat(" ", barWidth)
			}

			rowStr.WriteString(block)
			if i < len(v.dailyDone)-1 {
				rowStr.WriteString(" ")
			}
		}
		lines = append(lines, rowStr.String())
	}

	// Day labels, oldest first, ending today
	var labelStr strings.Builder
	for i := range v.dailyDone {
		day := now.AddDate(0, 0, i-6)
		label := day.Format("Mon")
		labelStr.WriteString(lipgloss.NewStyle().Foreground(t.Subtle).Width(barWidth).Align(lipgloss.Center).Render(label))
		if i < len(v.dailyDone)-1 {
			labelStr.WriteString(" ")
		}
	}
	lines = append(lines, labelStr.String())

	var countStr strings.Builder
	for i, count := range v.dailyDone {
		countStr.WriteString(lipgloss.NewStyle().Foreground(t.Foreground).Width(barWidth).Align(lipgloss.Center).Render(fmt.Sprintf("%d", count)))
		if i < len(v.dailyDone)-1 {
			countStr.WriteString(" ")
		}
	}
	lines = append(lines, countStr.String())

	return strings.Join(lines, "\n")
}

// renderProjectTime renders time tracked per project
func (v StatsView) renderProjectTime() string {
	t := theme.Current.Theme

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(t.Secondary)

	var lines []string
	lines = append(lines, headerStyle.Render("Time by Project"))

	maxSeconds := 1
	for _, pt := range v.projectTime {
		if pt.seconds > maxSeconds {
			maxSeconds = pt.seconds
		}
	}

	barMaxWidth := 30
	for _, pt := range v.projectTime {
		ratio := float64(pt.seconds) / float64(maxSeconds)
		barWidth := int(ratio * float64(barMaxWidth))
		if barWidth < 1 && pt.seconds > 0 {
			barWidth = 1
		}

		bar := lipgloss.NewStyle().Foreground(t.Info).Render(strings.Repeat("█", barWidth))
		lines = append(lines, fmt.Sprintf("%-15s %s %s", truncate(pt.name, 15), bar, formatDuration(pt.seconds)))
	}

	return strings.Join(lines, "\n")
}
