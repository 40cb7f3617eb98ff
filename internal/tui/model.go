// Package tui provides the Bubble Tea drill interface.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tmparker/opendrill/internal/catalog"
	"github.com/tmparker/opendrill/internal/model"
	"github.com/tmparker/opendrill/internal/session"
)

type phase int

const (
	phasePlaying phase = iota
	phaseFeedback
	phaseDone
)

const (
	tickInterval = 100 * time.Millisecond

	hintTipDelay       = 4 * time.Second
	hintMoveDelay      = 8 * time.Second
	timedHintTipDelay  = 8 * time.Second
	timedHintMoveDelay = 14 * time.Second
)

var (
	titleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	promptStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	fenStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	hintStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#68B8D8"))
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5A9060")).Bold(true)
	wrongStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	explanationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C8B898"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	timerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#D4A850"))
)

type tickMsg time.Time

// Model implements the Bubble Tea drill UI over a session.
type Model struct {
	sess *session.Session

	input  textinput.Model
	width  int
	height int

	phase       phase
	pos         catalog.Position
	roundStart  time.Time
	timeLeft    time.Duration
	hintLevel   int
	lastCorrect bool

	record    model.SessionRecord
	newHigh   bool
	highScore int
}

// NewModel constructs a drill model. The session must be idle; the
// model starts it on Init.
func NewModel(sess *session.Session, highScore int) *Model {
	input := textinput.New()
	input.Placeholder = "your move"
	input.CharLimit = 12
	input.Width = 20
	input.Focus()
	return &Model{
		sess:      sess,
		input:     input,
		highScore: highScore,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	pos, ok := m.sess.Start(context.Background(), time.Now())
	if !ok {
		m.finish()
		return nil
	}
	m.serve(pos)
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		return m.handleTick()
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleTick() (tea.Model, tea.Cmd) {
	if m.phase != phasePlaying {
		return m, tick()
	}
	elapsed := time.Since(m.roundStart)
	tipDelay, moveDelay := hintTipDelay, hintMoveDelay
	if m.sess.Mode() == model.ModeTimed {
		tipDelay, moveDelay = timedHintTipDelay, timedHintMoveDelay
	}
	switch {
	case m.hintLevel < 2 && elapsed >= moveDelay:
		m.hintLevel = 2
	case m.hintLevel < 1 && elapsed >= tipDelay:
		m.hintLevel = 1
	}
	if m.sess.Mode() == model.ModeTimed {
		m.timeLeft = m.sess.RoundTime() - elapsed
		if m.timeLeft <= 0 {
			m.timeLeft = 0
			m.resolve(false)
		}
	}
	return m, tick()
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		if m.phase != phaseDone {
			m.finish()
			return m, nil
		}
		return m, tea.Quit
	}

	switch m.phase {
	case phasePlaying:
		if msg.Type == tea.KeyEnter {
			answer := m.input.Value()
			if strings.TrimSpace(answer) == "" {
				return m, nil
			}
			m.resolve(MatchSAN(answer, m.pos.SAN))
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case phaseFeedback:
		if m.sess.Mode() == model.ModeReview {
			grade, ok := gradeForKey(msg.String())
			if !ok {
				return m, nil
			}
			m.sess.Grade(context.Background(), grade, time.Now())
			m.next()
			return m, nil
		}
		if msg.Type == tea.KeyEnter || msg.Type == tea.KeySpace {
			m.next()
		}
		return m, nil

	case phaseDone:
		if msg.String() == "q" || msg.Type == tea.KeyEnter {
			return m, tea.Quit
		}
		return m, nil
	}
	return m, nil
}

func gradeForKey(key string) (model.Grade, bool) {
	switch key {
	case "1":
		return model.GradeForgot, true
	case "2":
		return model.GradeHard, true
	case "3":
		return model.GradeGood, true
	case "4":
		return model.GradeEasy, true
	}
	return 0, false
}

// resolve records the answer outcome and moves to the feedback screen.
func (m *Model) resolve(correct bool) {
	m.lastCorrect = correct
	res := session.Result{TimeLeft: m.timeLeft, Hints: m.hintLevel}
	m.sess.Answer(context.Background(), correct, res, time.Now())
	m.phase = phaseFeedback
}

// next advances past the feedback screen to the following position, or
// to the game-over screen when the session is out of rounds.
func (m *Model) next() {
	pos, ok := m.sess.Advance()
	if !ok {
		m.finish()
		return
	}
	m.serve(pos)
}

func (m *Model) serve(pos catalog.Position) {
	m.pos = pos
	m.phase = phasePlaying
	m.hintLevel = 0
	m.roundStart = time.Now()
	m.timeLeft = m.sess.RoundTime()
	m.input.Reset()
}

func (m *Model) finish() {
	rec, err := m.sess.Finish(context.Background(), time.Now())
	if err != nil {
		logErrf("failed to save session: %v\n", err)
	}
	m.record = rec
	if rec.Mode == model.ModeTimed && rec.Score > m.highScore {
		m.newHigh = true
	}
	m.phase = phaseDone
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch m.phase {
	case phasePlaying:
		content = m.viewPlaying()
	case phaseFeedback:
		content = m.viewFeedback()
	case phaseDone:
		content = m.viewDone()
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) viewPlaying() string {
	lines := []string{
		titleStyle.Render(m.pos.Opening),
		"",
		promptStyle.Render(m.wrap(m.pos.Prompt)),
		fenStyle.Render(m.pos.FEN),
		"",
	}
	if m.sess.Mode() == model.ModeTimed {
		lines = append(lines, timerStyle.Render(fmt.Sprintf("%4.1fs", m.timeLeft.Seconds())), "")
	}
	switch m.hintLevel {
	case 1:
		lines = append(lines, hintStyle.Render(m.wrap(m.pos.ShortTip)), "")
	case 2:
		lines = append(lines, hintStyle.Render(m.wrap(m.pos.ShortTip)),
			hintStyle.Render("Hint: "+m.pos.MoveNotation), "")
	}
	lines = append(lines, m.input.View())
	return strings.Join(lines, "\n")
}

func (m *Model) viewFeedback() string {
	verdict := correctStyle.Render("Correct!")
	if !m.lastCorrect {
		verdict = wrongStyle.Render(fmt.Sprintf("Wrong — the move was %s", m.pos.SAN))
	}
	lines := []string{
		verdict,
		"",
		titleStyle.Render(fmt.Sprintf("%s  %s", m.pos.Opening, m.pos.SAN)),
		fenStyle.Render(m.pos.MoveNotation),
		"",
		explanationStyle.Render(m.wrap(m.pos.Explanation)),
		"",
	}
	if m.sess.Mode() == model.ModeReview {
		lines = append(lines, footerStyle.Render("How well did you know this?  1 forgot · 2 hard · 3 good · 4 easy"))
	} else {
		lines = append(lines, footerStyle.Render("enter to continue"))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) viewDone() string {
	label := "Session complete"
	switch m.record.Mode {
	case model.ModeTimed:
		label = "Challenge complete"
	case model.ModeReview:
		label = "Review complete"
	}
	lines := []string{
		titleStyle.Render(label),
		"",
		fmt.Sprintf("Positions: %d   Correct: %d   Wrong: %d", m.record.Rounds, m.record.Correct, m.record.Wrong),
		fmt.Sprintf("Best streak: %d", m.record.BestStreak),
	}
	if m.record.Mode == model.ModeTimed {
		score := fmt.Sprintf("Score: %d", m.record.Score)
		if m.newHigh {
			score += "   New high score!"
		}
		lines = append(lines, score)
	}
	lines = append(lines, "", footerStyle.Render("q to quit"))
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	if m.phase == phaseDone {
		return ""
	}
	segments := []string{fmt.Sprintf("Round %d", m.sess.Answered()+1)}
	if m.sess.Mode() == model.ModeTimed {
		segments[0] = fmt.Sprintf("Round %d/%d", m.sess.Answered()+1, m.sess.Rounds())
		segments = append(segments, fmt.Sprintf("Score %d", m.sess.Score()))
	}
	segments = append(segments, fmt.Sprintf("Streak %d", m.sess.Streak()))
	return footerStyle.Render(strings.Join(segments, "  "))
}

func (m *Model) wrap(text string) string {
	width := 60
	if m.width > 0 {
		width = int(float64(m.width) * 0.70)
		if width < 20 {
			width = 20
		}
	}
	return wrapText(text, width)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
