package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/evanschultz/aplan/internal/domain"
	"github.com/evanschultz/aplan/internal/render"
)

var (
	statsBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	statsHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))
	statsBehindStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	statsAheadStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
)

// statsTable renders the earned-value figures of a project as a bordered table.
func statsTable(name string, m domain.EarnedValue) string {
	rows := [][]string{
		{"planned value", render.FormatAmount(m.PlannedValue)},
		{"actual cost", render.FormatAmount(m.ActualCost)},
		{"completion", fmt.Sprintf("%s%% (%d/%d leaves)", render.FormatAmount(m.CompletionPercentage*100), m.DoneCount, m.LeafCount)},
		{"earned value", render.FormatAmount(m.EarnedValue)},
		{"spi", render.FormatAmount(m.SPI)},
		{"sv", render.FormatAmount(m.SV)},
		{"cpi", render.FormatAmount(m.CPI)},
		{"cv", render.FormatAmount(m.CV)},
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(statsBorderStyle).
		Headers(name, "value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return statsHeaderStyle
			}
			if col == 1 && row >= 0 && row < len(rows) {
				return varianceStyle(rows[row][0], m)
			}
			return lipgloss.NewStyle()
		})
	return t.Render()
}

// varianceStyle colors variance rows by sign.
func varianceStyle(metric string, m domain.EarnedValue) lipgloss.Style {
	var v float64
	switch metric {
	case "sv":
		v = m.SV
	case "cv":
		v = m.CV
	default:
		return lipgloss.NewStyle()
	}
	switch {
	case v < 0:
		return statsBehindStyle
	case v > 0:
		return statsAheadStyle
	default:
		return lipgloss.NewStyle()
	}
}

// renderMarkdown renders markdown as ANSI-styled terminal text wrapped at width.
func renderMarkdown(markdown string, width int) (string, error) {
	if width < 24 {
		width = 24
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.TrimRight(rendered, "\n"), nil
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
