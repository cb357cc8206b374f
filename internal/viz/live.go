package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/microsim/internal/sim"
)

const (
	liveWidth       = 80
	liveHeight      = 16
	historyCapacity = 600
	stepsPerTick    = 25
)

var helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)

type TickMsg time.Time

// LiveModel steps a simulation in the foreground and graphs the community as
// it evolves. Noise is not applied here; the live view is a deterministic
// preview, full runs go through sim.Simulator.
type LiveModel struct {
	sys    sim.System
	integ  sim.Integrator
	layout sim.StateLayout

	state sim.State
	t     float64
	dt    float64
	tEnd  float64

	speciesNames  []string
	resourceNames []string

	speciesHist  [][]float64
	resourceHist [][]float64

	showResources bool
	running       bool
	done          bool
}

func NewLiveModel(sys sim.System, integ sim.Integrator, x0 sim.State, dt, tEnd float64, speciesNames, resourceNames []string) LiveModel {
	layout := sys.Layout()
	return LiveModel{
		sys:           sys,
		integ:         integ,
		layout:        layout,
		state:         x0.Clone(),
		dt:            dt,
		tEnd:          tEnd,
		speciesNames:  speciesNames,
		resourceNames: resourceNames,
		speciesHist:   make([][]float64, layout.NSpecies),
		resourceHist:  make([][]float64, layout.NResources),
		running:       true,
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m LiveModel) Init() tea.Cmd {
	return tick()
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.showResources = !m.showResources
		}
		return m, nil

	case TickMsg:
		if m.running && !m.done {
			for i := 0; i < stepsPerTick && m.t < m.tEnd; i++ {
				m.state = m.integ.Step(m.sys, m.state, m.t, m.dt)
				m.t += m.dt
				m.state.Clamp()
				if !m.state.IsValid() {
					m.done = true
					break
				}
			}
			m.record()
			if m.t >= m.tEnd {
				m.done = true
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m *LiveModel) record() {
	for i, v := range m.layout.Species(m.state) {
		m.speciesHist[i] = appendCapped(m.speciesHist[i], v)
	}
	for j, v := range m.layout.Resources(m.state) {
		m.resourceHist[j] = appendCapped(m.resourceHist[j], v)
	}
}

func appendCapped(hist []float64, v float64) []float64 {
	hist = append(hist, v)
	if len(hist) > historyCapacity {
		hist = hist[len(hist)-historyCapacity:]
	}
	return hist
}

func (m LiveModel) View() string {
	var b strings.Builder

	title := "species abundances"
	hist := m.speciesHist
	labels := m.speciesNames
	if m.showResources {
		title = "resource concentrations"
		hist = m.resourceHist
		labels = m.resourceNames
	}

	b.WriteString(headerStyle.Render("microsim live: " + title))
	b.WriteString("\n")
	b.WriteString(legendStyle.Render(strings.Join(labels, ", ")))
	b.WriteString("\n")

	if len(hist) > 0 && len(hist[0]) > 1 {
		graph := asciigraph.PlotMany(hist,
			asciigraph.Height(liveHeight),
			asciigraph.Width(liveWidth),
		)
		b.WriteString(graphStyle.Render(graph))
		b.WriteString("\n")
	}

	status := fmt.Sprintf("t=%.2f / %.2f   volume=%.3f", m.t, m.tEnd, m.layout.Volume(m.state))
	if m.done {
		status += "   [finished]"
	} else if !m.running {
		status += "   [paused]"
	}
	b.WriteString(statStyle.Render(status))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("SP:Pause R:Species/Resources Q:Quit"))
	b.WriteString("\n")
	return b.String()
}
