package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/slayer-suite/internal/eventbridge"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	redoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// renderHistoryPanel lists the newest undo entries. The current entry is
// highlighted and entries that redo would re-apply are dimmed.
func (a *App) renderHistoryPanel(width int) string {
	labels := a.suite.History.Labels()
	current := a.suite.History.Index()
	title := titleStyle.Render(fmt.Sprintf("History (%d)", len(labels)))
	if len(labels) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, noteStyle.Render("Nothing recorded yet."))
	}
	start := max(0, len(labels)-historyPanelSize)
	rows := make([]string, 0, len(labels)-start)
	for i := start; i < len(labels); i++ {
		switch {
		case i == current:
			rows = append(rows, currentStyle.Render("› "+labels[i]))
		case i > current:
			rows = append(rows, redoStyle.Render("  "+labels[i]))
		default:
			rows = append(rows, "  "+labels[i])
		}
	}
	body := lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(rows, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

func (a *App) renderEventsPanel(width int) string {
	title := titleStyle.Render("Events")
	if len(a.recent) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, noteStyle.Render("Waiting for module activity."))
	}
	rows := make([]string, len(a.recent))
	for i, event := range a.recent {
		rows[i] = describeEvent(event)
	}
	body := detailStyle.Width(max(20, width)).Render(strings.Join(rows, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

func describeEvent(event eventbridge.Event) string {
	line := fmt.Sprintf("%s %s", event.Timestamp.Format("15:04:05"), event.Type)
	payload, _ := event.Payload.(map[string]any)
	source := event.Source
	// Store changes are relayed by the bridge on behalf of the writer.
	if origin, ok := payload["sourceModule"].(string); ok && origin != "" {
		source = origin
	}
	if source != "" {
		line += " ← " + source
	}
	if payload != nil {
		for _, field := range []string{"name", "key", "code", "id"} {
			if value, ok := payload[field].(string); ok && value != "" {
				line += " · " + value
				break
			}
		}
	}
	return line
}

func (a *App) renderLogPanel() string {
	lb := a.suite.Logbook
	if lb == nil {
		return ""
	}
	entries, total := lb.Tail(logPanelSize)
	if len(entries) == 0 {
		return ""
	}
	fileName := filepath.Base(lb.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = entry.String()
	}
	head := titleStyle.Render(fmt.Sprintf("LOG · %s (%d)", fileName, total))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return panelStyle.Render(fmt.Sprintf("%s\n%s", head, body))
}

func titleCase(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	lower := strings.ToLower(value)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
