// Package ui renders batch assembly progress in the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"fasmgo/internal/buildpipeline"
)

// phase is where a job is in its assemble call.
type phase uint8

const (
	phaseQueued phase = iota
	phaseLoading
	phaseAssembling
	phaseGrowing
	phaseTranslating
	phaseDone
	phaseFailed
	phaseSkipped
)

// weight is the share of a job counted by the progress bar.
var phases = [...]struct {
	label  string
	weight float64
	color  lipgloss.Color
}{
	phaseQueued:      {"queued", 0, "7"},
	phaseLoading:     {"loading", 0.2, "6"},
	phaseAssembling:  {"assembling", 0.6, "6"},
	phaseGrowing:     {"growing", 0.6, "3"},
	phaseTranslating: {"translating", 0.9, "6"},
	phaseDone:        {"done", 1, "2"},
	phaseFailed:      {"failed", 1, "1"},
	phaseSkipped:     {"skipped", 1, "8"},
}

func (p phase) String() string { return phases[p].label }

func (p phase) finished() bool { return p >= phaseDone }

func phaseOf(ev buildpipeline.Event) (phase, bool) {
	switch ev.Status {
	case buildpipeline.StatusQueued:
		return phaseQueued, true
	case buildpipeline.StatusDone:
		return phaseDone, true
	case buildpipeline.StatusError:
		// ошибка на уровне batch для задачи = задача не запускалась
		if ev.Stage == buildpipeline.StageBatch {
			return phaseSkipped, true
		}
		return phaseFailed, true
	}
	switch ev.Stage {
	case buildpipeline.StageLoad:
		return phaseLoading, true
	case buildpipeline.StageAssemble:
		return phaseAssembling, true
	case buildpipeline.StageGrow:
		return phaseGrowing, true
	case buildpipeline.StageTranslate:
		return phaseTranslating, true
	}
	return 0, false
}

type jobRow struct {
	name    string
	phase   phase
	grown   int
	elapsed time.Duration
	note    string
}

type progressModel struct {
	title    string
	events   <-chan buildpipeline.Event
	spinner  spinner.Model
	bar      progress.Model
	rows     []jobRow
	byName   map[string]int
	width    int
	running  bool
	finished bool
	batchErr error
}

type eventMsg buildpipeline.Event
type closedMsg struct{}

// NewProgressModel returns a Bubble Tea model showing one row per job. It
// quits when events is closed.
func NewProgressModel(title string, jobs []string, events <-chan buildpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		rows:    make([]jobRow, len(jobs)),
		byName:  make(map[string]int, len(jobs)),
		width:   80,
	}
	for i, name := range jobs {
		m.rows[i] = jobRow{name: name}
		m.byName[name] = i
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.applyEvent(buildpipeline.Event(msg)), m.next())
	case closedMsg:
		m.finished = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
	case spinner.TickMsg:
		if !m.finished {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) applyEvent(ev buildpipeline.Event) tea.Cmd {
	if ev.File == "" {
		switch ev.Status {
		case buildpipeline.StatusWorking:
			m.running = true
		case buildpipeline.StatusDone, buildpipeline.StatusError:
			m.running = false
			m.batchErr = ev.Err
		}
		return nil
	}
	idx, ok := m.byName[ev.File]
	if !ok {
		return nil
	}
	row := &m.rows[idx]
	if p, ok := phaseOf(ev); ok {
		row.phase = p
	}
	if ev.Stage == buildpipeline.StageGrow && ev.Status == buildpipeline.StatusWorking {
		row.grown++
	}
	if ev.Elapsed > 0 {
		row.elapsed = ev.Elapsed
	}
	if ev.Status == buildpipeline.StatusError && ev.Err != nil {
		row.note = ev.Err.Error()
	}
	return m.bar.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.rows) == 0 {
		return 0
	}
	var sum float64
	for _, row := range m.rows {
		sum += phases[row.phase].weight
	}
	return sum / float64(len(m.rows))
}

// counts returns finished jobs and how many of them failed or were skipped.
func (m *progressModel) counts() (finished, failed, skipped int) {
	for _, row := range m.rows {
		switch row.phase {
		case phaseFailed:
			failed++
		case phaseSkipped:
			skipped++
		}
		if row.phase.finished() {
			finished++
		}
	}
	return finished, failed, skipped
}

func (m *progressModel) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	finished, failed, skipped := m.counts()
	header := fmt.Sprintf("%s %d/%d", m.title, finished, len(m.rows))
	if m.finished {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")).Render(header))
	b.WriteString("\n\n")

	const labelWidth = 11
	nameWidth := max(m.width-labelWidth-16, 20)
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	for _, row := range m.rows {
		label := lipgloss.NewStyle().Foreground(phases[row.phase].color).Render(fmt.Sprintf("%*s", labelWidth, row.phase))
		fmt.Fprintf(&b, "  %s %s", label, shortenPath(row.name, nameWidth))
		if row.grown > 0 {
			b.WriteString(dim.Render(fmt.Sprintf(" grew ×%d", row.grown)))
		}
		if row.phase.finished() && row.elapsed > 0 {
			b.WriteString(dim.Render(" " + row.elapsed.Round(time.Microsecond*100).String()))
		}
		b.WriteString("\n")
		if row.note != "" {
			b.WriteString(strings.Repeat(" ", labelWidth+3))
			b.WriteString(dim.Render(shortenPath(row.note, nameWidth)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.finished {
		b.WriteString(m.bar.ViewAs(m.percent()))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	if failed+skipped > 0 {
		b.WriteString(dim.Render(fmt.Sprintf("%d failed, %d skipped", failed, skipped)))
		b.WriteString("\n")
	}
	return b.String()
}

// shortenPath keeps the end of value, where the file name is, within width
// cells.
func shortenPath(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	const ellipsis = "..."
	budget := width - len(ellipsis)
	if budget <= 0 {
		return runewidth.Truncate(value, width, "")
	}
	runes := []rune(value)
	used, start := 0, len(runes)
	for start > 0 {
		w := runewidth.RuneWidth(runes[start-1])
		if used+w > budget {
			break
		}
		used += w
		start--
	}
	return ellipsis + string(runes[start:])
}
