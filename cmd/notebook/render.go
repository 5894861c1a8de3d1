package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gopherai-notebook/internal/model"
)

const barWidth = 30

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#74c7ec")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6adc8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true)
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#b4befe")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#fab387")).Bold(true)
	barFill        = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	barEmpty       = lipgloss.NewStyle().Foreground(lipgloss.Color("#45475a"))
)

func progressBar(value int) string {
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	filled := value * barWidth / 100
	return barFill.Render(strings.Repeat("█", filled)) +
		barEmpty.Render(strings.Repeat("░", barWidth-filled)) +
		fmt.Sprintf(" %3d%%", value)
}

func notebookLine(nb model.Notebook) string {
	local := ""
	if nb.Local {
		local = mutedStyle.Render(" (local)")
	}
	return fmt.Sprintf("%s  %s%s\n    %s",
		titleStyle.Render(nb.Title),
		mutedStyle.Render(nb.ID),
		local,
		mutedStyle.Render(fmt.Sprintf("[%s] %s · %d sources", nb.IconRef, nb.DisplayDate, nb.SourceCount)),
	)
}

func resultLines(result *model.SubmissionResult) []string {
	if result == nil {
		return nil
	}
	lines := make([]string, 0, len(result.SuccessfulDocuments)+len(result.FailedDocuments))
	for _, doc := range result.SuccessfulDocuments {
		lines = append(lines, okStyle.Render("  ✓ ")+doc.Path)
	}
	for _, doc := range result.FailedDocuments {
		lines = append(lines, errorStyle.Render("  ✗ ")+doc.Ref.Path+mutedStyle.Render(": "+doc.ErrorReason))
	}
	return lines
}

func messageLine(msg model.Message) string {
	switch msg.Role {
	case model.RoleUser:
		return userStyle.Render("you") + "  " + msg.Content
	default:
		content := msg.Content
		if msg.Pending {
			content = mutedStyle.Render("…")
		}
		return assistantStyle.Render("notebook") + "  " + content
	}
}
