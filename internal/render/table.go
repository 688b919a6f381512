// Package render formats console state as terminal tables.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/harunnryd/cortex/internal/blueprint"
	"github.com/harunnryd/cortex/internal/domain"
	"github.com/harunnryd/cortex/internal/governance"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

type TableFormatter struct {
	headerStyle  lipgloss.Style
	cellStyle    lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
	gateStyles   map[governance.GateStatus]lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return &TableFormatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		cellStyle: lipgloss.NewStyle().
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(purple),
		gateStyles: map[governance.GateStatus]lipgloss.Style{
			governance.GateHealthy:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Padding(0, 1),
			governance.GateDegraded: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Padding(0, 1),
			governance.GateBlocked:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true).Padding(0, 1),
		},
	}
}

func (f *TableFormatter) striped(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		}).
		Headers(headers...)
}

// FormatReadiness renders the gate checks followed by any blockers.
func (f *TableFormatter) FormatReadiness(snap governance.ReadinessSnapshot, mode string) string {
	checks := snap.Checks(mode)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return f.headerStyle
			}
			if col == 1 && row >= 0 && row < len(checks) {
				return f.gateStyles[checks[row].Status]
			}
			return f.cellStyle
		}).
		Headers("Gate", "Status")

	for _, c := range checks {
		t.Row(c.Label, string(c.Status))
	}

	var b strings.Builder
	b.WriteString(t.String())
	if snap.Ready() {
		b.WriteString("\nReady to launch.")
		return b.String()
	}
	b.WriteString("\nBlocked:")
	for _, blocker := range snap.Blockers {
		b.WriteString("\n  - ")
		b.WriteString(blocker)
	}
	return b.String()
}

func (f *TableFormatter) FormatApprovals(approvals []domain.PendingApproval) string {
	if len(approvals) == 0 {
		return "No pending approvals"
	}

	t := f.striped("ID", "Agent", "Team", "Reason", "Age")
	now := time.Now()
	for _, a := range approvals {
		t.Row(
			a.ID,
			a.SourceAgent,
			a.TeamID,
			truncateString(a.Reason, 40),
			formatAge(now, a.Timestamp),
		)
	}
	return t.String()
}

func (f *TableFormatter) FormatMissions(missions []domain.Mission) string {
	if len(missions) == 0 {
		return "No missions"
	}

	t := f.striped("ID", "Intent", "Status", "Teams", "Agents")
	for _, m := range missions {
		t.Row(
			m.ID,
			truncateString(m.Intent, 40),
			string(m.Status),
			fmt.Sprint(m.Teams),
			fmt.Sprint(m.Agents),
		)
	}
	return t.String()
}

// FormatGraph lists the nodes and then the edges of g.
func (f *TableFormatter) FormatGraph(g blueprint.Graph) string {
	if len(g.Nodes) == 0 {
		return "Empty graph"
	}

	nodes := f.striped("Node", "Kind", "Label", "Status", "Position")
	for _, n := range g.Nodes {
		label := n.Data.Label
		if n.Data.IsThinking {
			label += " (thinking)"
		}
		nodes.Row(
			n.ID,
			string(n.Kind),
			truncateString(label, 30),
			string(n.Data.Status),
			fmt.Sprintf("%.0f,%.0f", n.Position.X, n.Position.Y),
		)
	}

	if len(g.Edges) == 0 {
		return nodes.String() + "\nNo edges"
	}
	edges := f.striped("Source", "Target", "Topic")
	for _, e := range g.Edges {
		edges.Row(e.Source, e.Target, e.Topic)
	}
	return nodes.String() + "\n" + edges.String()
}

func formatAge(now, t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t).Round(time.Second)
	if d < 0 {
		d = 0
	}
	return d.String()
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
