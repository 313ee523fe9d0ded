package viz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/simhost/internal/debugdraw"
	"github.com/san-kum/simhost/internal/scene"
	"github.com/san-kum/simhost/internal/session"
)

const (
	width           = 60
	height          = 20
	historyCapacity = 600
	maxListed       = 8
	timeScaleStep   = 0.1
)

// Controls is the part of the simulation the console drives. It must be
// safe to call from the console goroutine.
type Controls interface {
	PauseSimulation()
	UnpauseSimulation()
	IsPaused() bool
	SetTimeScale(x float64)
	TimeScale() float64
}

type FrameMsg session.Frame

type DoneMsg struct {
	Result *session.Result
	Err    error
}

// Feed carries frames from the render loop to the console. Frames are
// dropped when the console falls behind.
type Feed struct {
	frames chan session.Frame
	done   chan DoneMsg
}

func NewFeed() *Feed {
	return &Feed{
		frames: make(chan session.Frame, 8),
		done:   make(chan DoneMsg, 1),
	}
}

// Observe is a session frame observer.
func (f *Feed) Observe(fr session.Frame) {
	select {
	case f.frames <- fr:
	default:
	}
}

func (f *Feed) Finish(res *session.Result, err error) {
	f.done <- DoneMsg{Result: res, Err: err}
}

func (f *Feed) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case fr := <-f.frames:
			return FrameMsg(fr)
		default:
		}
		select {
		case fr := <-f.frames:
			return FrameMsg(fr)
		case d := <-f.done:
			return d
		}
	}
}

type Model struct {
	title    string
	duration float64
	ctrl     Controls
	feed     *Feed
	geometry func() *debugdraw.Frame

	frame    session.Frame
	names    []string
	tracked  int
	heights  []float64
	canvas   *Canvas
	view     TopDown
	done     bool
	result   *session.Result
	err      error
	showHelp bool
}

func NewModel(title string, duration float64, ctrl Controls, feed *Feed) Model {
	return Model{
		title:    title,
		duration: duration,
		ctrl:     ctrl,
		feed:     feed,
		heights:  make([]float64, 0, historyCapacity),
		canvas:   NewCanvas(width, height),
		view:     TopDown{Extent: 10},
	}
}

// WithGeometry draws the solver's debug geometry instead of entity markers.
func (m Model) WithGeometry(fn func() *debugdraw.Frame) Model {
	m.geometry = fn
	return m
}

func (m Model) Init() tea.Cmd {
	if m.feed == nil {
		return nil
	}
	return m.feed.wait()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.ctrl.IsPaused() {
				m.ctrl.UnpauseSimulation()
			} else {
				m.ctrl.PauseSimulation()
			}
		case "+", "=":
			m.ctrl.SetTimeScale(m.ctrl.TimeScale() + timeScaleStep)
		case "-", "_":
			m.ctrl.SetTimeScale(m.ctrl.TimeScale() - timeScaleStep)
		case "tab":
			if len(m.names) > 0 {
				m.tracked = (m.tracked + 1) % len(m.names)
				m.heights = m.heights[:0]
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case FrameMsg:
		m.observe(session.Frame(msg))
		if m.feed != nil {
			return m, m.feed.wait()
		}
	case DoneMsg:
		m.done = true
		m.result, m.err = msg.Result, msg.Err
	}
	return m, nil
}

func (m *Model) observe(f session.Frame) {
	m.frame = f
	if len(m.names) == 0 {
		for _, s := range f.Samples {
			if s.Name != scene.GroundName {
				m.names = append(m.names, s.Name)
			}
		}
	}
	name := m.Tracked()
	for _, s := range f.Samples {
		if s.Name == name {
			m.heights = append(m.heights, s.Position[1])
			break
		}
	}
	if len(m.heights) > historyCapacity {
		m.heights = m.heights[1:]
	}
}

// Tracked is the name of the entity in the height plot.
func (m Model) Tracked() string {
	if len(m.names) == 0 {
		return ""
	}
	return m.names[m.tracked]
}

func (m Model) Heights() []float64 { return m.heights }

func (m Model) Done() bool { return m.done }

func (m Model) draw() {
	m.canvas.Clear()
	if m.geometry != nil {
		if f := m.geometry(); f != nil {
			for _, l := range f.Lines {
				m.view.Line(m.canvas, l.From, l.To)
			}
			return
		}
	}
	for _, s := range m.frame.Samples {
		if s.Name != scene.GroundName {
			m.view.Marker(m.canvas, s.Position)
		}
	}
}

func (m Model) status() string {
	switch {
	case m.done && m.err != nil && !errors.Is(m.err, context.Canceled):
		return statusDone.Render("FAILED: " + m.err.Error())
	case m.done:
		return statusDone.Render("FINISHED")
	case m.ctrl.IsPaused():
		return statusPaused.Render("PAUSED")
	}
	return statusRunning.Render("RUNNING")
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status() + "\n")
	if m.duration > 0 {
		s.WriteString(ProgressBar(m.frame.Time/m.duration, 30) + "\n")
	}
	s.WriteString("\n")

	if len(m.heights) > 1 {
		chart := asciigraph.Plot(m.heights,
			asciigraph.Height(5),
			asciigraph.Width(30),
			asciigraph.Caption(m.Tracked()+" height"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	stats := m.frame.Stats
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.frame.Time))
	row("Simulated", fmt.Sprintf("%.2fs", stats.SimulatedTime))
	row("Steps", fmt.Sprintf("%d", stats.Steps))
	row("Errors", fmt.Sprintf("%d", stats.StepErrors))
	row("Scale", fmt.Sprintf("%.1fx", m.ctrl.TimeScale()))

	s.WriteString("\nENTITIES\n")
	listed := 0
	for _, sample := range m.frame.Samples {
		if sample.Name == scene.GroundName {
			continue
		}
		if listed == maxListed {
			s.WriteString(labelStyle.Render("  ...") + "\n")
			break
		}
		line := fmt.Sprintf("%-10s %6.2f %6.2f %6.2f", sample.Name, sample.Position[0], sample.Position[1], sample.Position[2])
		if sample.Name == m.Tracked() {
			s.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + valueStyle.Render(line) + "\n")
		}
		listed++
	}

	s.WriteString(helpStyle.Render("SP:Pause +/-:Scale TAB:Track ?:Help Q:Quit"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return `
  Space   pause / resume the simulation
  + / -   change the time scale by 0.1
  Tab     track the next entity
  ?       toggle this help
  Q       quit
` + "\n" + mainView
	}
	return mainView
}

// Run shows the console while sess runs and returns the session's result.
// The session must have been created with feed.Observe as a frame observer.
// Quitting the console cancels the session.
func Run(ctx context.Context, title string, sess *session.Session, feed *Feed, geometry func() *debugdraw.Frame) (*session.Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan DoneMsg, 1)
	go func() {
		res, err := sess.Run(runCtx)
		out <- DoneMsg{Result: res, Err: err}
		feed.Finish(res, err)
	}()

	m := NewModel(title, sess.Duration(), sess.System(), feed).WithGeometry(geometry)
	_, uiErr := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	cancel()

	d := <-out
	if errors.Is(d.Err, context.Canceled) && ctx.Err() == nil {
		d.Err = nil
	}
	if d.Err == nil && uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		d.Err = uiErr
	}
	return d.Result, d.Err
}
