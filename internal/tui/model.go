package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"document-qa/internal/models"
)

// Asker is the TUI-facing subset of a session.
type Asker interface {
	Ask(ctx context.Context, question string) ([]models.Turn, error)
	Messages() []models.Message
}

// answeredMsg carries the outcome of one question.
type answeredMsg struct {
	question string
	err      error
}

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	ctx      context.Context
	session  Asker
	input    textinput.Model
	viewport viewport.Model
	messages []models.Message
	summary  string
	status   string
	busy     bool
	ready    bool
}

// New creates a chat screen over an already processed session.
func New(ctx context.Context, session Asker, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about the processed documents"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		session:  session,
		input:    ti,
		viewport: vp,
		messages: session.Messages(),
		summary:  summary,
		status:   "Documents processed. Ask away.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := questionBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, summary, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.viewport.SetContent(m.renderTranscript())
		return m, nil
	case answeredMsg:
		m.busy = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Error (%s): %v", models.KindOf(msg.err), msg.err)
			return m, nil
		}
		m.messages = m.session.Messages()
		m.status = fmt.Sprintf("Answered %q", msg.question)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "Thinking..."
			m.input.Reset()
			return m, m.ask(q)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask runs the question off the UI loop.
func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.session.Ask(m.ctx, q)
		return answeredMsg{question: q, err: err}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Inquiries of multiple PDF documents")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := questionBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + input + "\n" + transcript + "\n" + status
}

// renderTranscript lists messages newest first.
func (m Model) renderTranscript() string {
	if len(m.messages) == 0 {
		return "No questions yet."
	}
	w := max(10, m.viewport.Width-4)
	blocks := make([]string, len(m.messages))
	for i, msg := range m.messages {
		label, style := "Bot", botStyle
		if msg.Role == models.RoleUser {
			label, style = "You", userStyle
		}
		blocks[i] = style.Render(label+":") + " " + lipgloss.NewStyle().Width(w).Render(msg.Content)
	}
	return strings.Join(blocks, "\n\n")
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)
