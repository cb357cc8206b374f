// Package viz renders simulation output in the terminal: static asciigraph
// plots of stored series and a bubbletea live view of a running community.
package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/microsim/internal/sim"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	legendStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	statStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// PlotSeries renders every channel of a series into one terminal graph.
func PlotSeries(s sim.Series, width, height int) string {
	if s.Len() == 0 {
		return legendStyle.Render("(no samples)")
	}

	data := make([][]float64, len(s.Labels))
	for j := range s.Labels {
		data[j] = s.Column(j)
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(s.Name))
	b.WriteString("\n")
	b.WriteString(legendStyle.Render("channels: " + strings.Join(s.Labels, ", ")))
	b.WriteString("\n")

	graph := asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("t = %.2f .. %.2f (%d samples)",
			s.Times[0], s.Times[s.Len()-1], s.Len())),
	)
	b.WriteString(graphStyle.Render(graph))
	b.WriteString("\n")
	return b.String()
}

// Summary renders the final sample of each channel.
func Summary(s sim.Series) string {
	if s.Len() == 0 {
		return ""
	}
	last := s.Values[s.Len()-1]
	parts := make([]string, len(s.Labels))
	for j, label := range s.Labels {
		parts[j] = fmt.Sprintf("%s=%.4f", label, last[j])
	}
	return statStyle.Render(strings.Join(parts, "  "))
}
