package viz

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/magsim/internal/dynamo"
)

const (
	historyCapacity = 400
	frameInterval   = time.Second / 30
	stepsPerFrame   = 20
)

type TickMsg time.Time

// Model steps a system on every tick and keeps a rolling history of the
// average magnetization.
type Model struct {
	name       string
	sys        dynamo.System
	integrator dynamo.Integrator
	cfg        dynamo.Config

	state, initial dynamo.State
	t, dt          float64
	steps          int
	rejected       int
	running        bool
	err            error

	history [3][]float64

	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	selected      int
}

func NewModel(name string, sys dynamo.System, integ dynamo.Integrator, x0 dynamo.State, cfg dynamo.Config) Model {
	params := make(map[string]float64)
	initialParams := make(map[string]float64)
	if c, ok := sys.(dynamo.Configurable); ok {
		for k, v := range c.GetParams() {
			params[k] = v
			initialParams[k] = v
		}
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	m := Model{
		name:          name,
		sys:           sys,
		integrator:    integ,
		cfg:           cfg,
		initial:       x0.Clone(),
		params:        params,
		initialParams: initialParams,
		paramKeys:     keys,
	}
	m.reset()
	return m
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.err == nil && !m.Done() {
				m.running = !m.running
			}
		case "r":
			m.reset()
			for k, v := range m.initialParams {
				m.setParam(k, v)
			}
		case "tab":
			if len(m.paramKeys) > 0 {
				m.selected = (m.selected + 1) % len(m.paramKeys)
			}
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		}
	case TickMsg:
		if m.running {
			for i := 0; i < stepsPerFrame && m.running; i++ {
				m.step()
			}
		}
		return m, tick()
	}
	return m, nil
}

// Done reports whether the configured duration has been reached.
func (m Model) Done() bool { return m.t >= m.cfg.Duration }

func (m Model) Time() float64 { return m.t }

func (m Model) State() dynamo.State { return m.state }

func (m Model) Err() error { return m.err }

func (m *Model) reset() {
	if r, ok := m.sys.(dynamo.Rewindable); ok {
		r.Rewind()
	}
	m.state = m.initial.Clone()
	m.t = 0
	m.dt = m.cfg.Dt
	m.steps = 0
	m.rejected = 0
	m.err = nil
	m.running = true
	for i := range m.history {
		m.history[i] = m.history[i][:0]
	}
	m.record()
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	m.setParam(key, m.params[key]*factor)
}

func (m *Model) setParam(key string, v float64) {
	c, ok := m.sys.(dynamo.Configurable)
	if !ok {
		return
	}
	if err := c.SetParam(key, v); err == nil {
		m.params[key] = v
	}
}

func (m *Model) step() {
	if m.Done() {
		m.running = false
		return
	}

	h := math.Min(m.dt, m.cfg.Duration-m.t)
	var next dynamo.State

	if adaptive, ok := m.integrator.(dynamo.AdaptiveIntegrator); ok && m.cfg.Adaptive {
		x, proposed, err := adaptive.StepAdaptive(m.sys, m.state, m.t, h, m.cfg.Tolerance)
		if errors.Is(err, dynamo.ErrStepRejected) {
			m.rejected++
			if proposed < m.cfg.MinDt {
				m.fail(dynamo.ErrStepTooSmall)
			}
			m.dt = proposed
			return
		}
		next = x
		m.dt = proposed
		if m.cfg.MaxDt > 0 {
			m.dt = math.Min(m.dt, m.cfg.MaxDt)
		}
	} else {
		next = m.integrator.Step(m.sys, m.state, m.t, h)
	}

	if m.cfg.Renormalize {
		dynamo.Normalize(next, 1)
	}
	if !next.IsValid() {
		m.fail(&dynamo.SimulationError{Step: m.steps, Time: m.t, State: m.state.Clone(), Wrapped: dynamo.ErrInvalidState})
		return
	}

	m.state = next
	m.t += h
	m.steps++
	m.record()
}

func (m *Model) fail(err error) {
	m.err = err
	m.running = false
}

func (m *Model) record() {
	avg := dynamo.Average(m.state)
	for i := range m.history {
		m.history[i] = append(m.history[i], avg[i])
		if len(m.history[i]) > historyCapacity {
			m.history[i] = m.history[i][1:]
		}
	}
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return StatusError.Render("ERROR: " + m.err.Error())
	case m.Done():
		return StatusPaused.Render("DONE")
	case !m.running:
		return StatusPaused.Render("PAUSED")
	}
	return StatusRunning.Render("RUNNING")
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(HeaderStyle.Render(strings.ToUpper(m.name)) + "\n")
	s.WriteString(m.status() + "\n\n")

	progress := 0.0
	if m.cfg.Duration > 0 {
		progress = m.t / m.cfg.Duration
	}
	s.WriteString(ProgressBar(progress, 40) + "\n\n")

	s.WriteString(MetricLabel.Render("time") + MetricValue.Render(fmt.Sprintf("%.4g ns", m.t*1e9)) + "\n")
	s.WriteString(MetricLabel.Render("dt") + MetricValue.Render(fmt.Sprintf("%.3g s", m.dt)) + "\n")
	s.WriteString(MetricLabel.Render("steps") + MetricValue.Render(fmt.Sprintf("%d (%d rejected)", m.steps, m.rejected)) + "\n")
	for i, label := range []string{"<mx>", "<my>", "<mz>"} {
		hist := m.history[i]
		v := hist[len(hist)-1]
		s.WriteString(MetricLabel.Render(label) + MetricValue.Render(fmt.Sprintf("%+.4f ", v)) + Sparkline(hist, 30) + "\n")
	}

	if len(m.history[2]) > 1 {
		chart := asciigraph.PlotMany(m.history[:],
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.LowerBound(-1),
			asciigraph.UpperBound(1),
			asciigraph.SeriesColors(asciigraph.Red, asciigraph.Green, asciigraph.Blue),
			asciigraph.Caption("<m> (x red, y green, z blue)"),
		)
		s.WriteString("\n" + chart + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	if len(m.paramKeys) == 0 {
		s.WriteString(Subtle.Render("  (none)") + "\n")
	}
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-8s %.4g", k, m.params[k])
		if i == m.selected {
			s.WriteString(ActiveParam.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + Subtle.Render(line) + "\n")
		}
	}

	help := KeyHint.Render("SP:Pause  R:Reset  Tab/↑↓:Tune  Q:Quit")
	return lipgloss.JoinVertical(lipgloss.Left, panelStyle.Render(s.String()), help)
}

// Run starts the live view and blocks until the user quits.
func Run(m Model) (Model, error) {
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return m, err
	}
	return final.(Model), nil
}
