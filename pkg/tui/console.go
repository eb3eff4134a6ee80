// Package tui is the interactive console: prompts go to the orchestrator
// through the gateway client, outcomes render per tool.
package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NaveenPalisetti/meetingmcp/pkg/client"
)

var (
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	serverStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	inputStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type Message struct {
	Role    string
	Content string
}

type SendFunc func(input string) (string, error)

type Model struct {
	messages []Message
	input    string
	sendFn   SendFunc
	width    int
	height   int
	scroll   int
	waiting  bool
	err      error
}

func NewModel(sendFn SendFunc) Model {
	return Model{
		sendFn: sendFn,
	}
}

type responseMsg struct {
	content string
	err     error
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.waiting || strings.TrimSpace(m.input) == "" {
				return m, nil
			}
			return m.submitInput()
		case "backspace":
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
		case "pgup":
			if m.scroll > 0 {
				m.scroll--
			}
		case "pgdown":
			m.scroll++
		default:
			if len(msg.String()) == 1 || msg.String() == " " {
				m.input += msg.String()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case responseMsg:
		m.waiting = false
		if msg.err != nil {
			m.err = msg.err
			m.messages = append(m.messages, Message{
				Role:    "error",
				Content: msg.err.Error(),
			})
		} else {
			m.messages = append(m.messages, Message{
				Role:    "server",
				Content: msg.content,
			})
		}
	}

	return m, nil
}

func (m Model) submitInput() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input)
	m.messages = append(m.messages, Message{Role: "user", Content: text})
	m.input = ""
	m.waiting = true

	sendFn := m.sendFn
	return m, func() tea.Msg {
		resp, err := sendFn(text)
		return responseMsg{content: resp, err: err}
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	header := dimStyle.Render("meetingmcp console (Ctrl+C to quit)")
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n\n")

	for _, msg := range m.messages {
		switch msg.Role {
		case "user":
			b.WriteString(userStyle.Render("You: "))
			b.WriteString(msg.Content)
		case "server":
			b.WriteString(serverStyle.Render("mcp: "))
			b.WriteString(msg.Content)
		case "error":
			b.WriteString(errStyle.Render("Error: "))
			b.WriteString(msg.Content)
		}
		b.WriteString("\n\n")
	}

	if m.waiting {
		b.WriteString(dimStyle.Render("Orchestrating..."))
		b.WriteString("\n\n")
	}

	b.WriteString(dimStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")
	prompt := inputStyle.Render("> " + m.input)
	if !m.waiting {
		prompt += dimStyle.Render("█")
	}
	b.WriteString(prompt)

	return b.String()
}

func Run(sendFn SendFunc) error {
	p := tea.NewProgram(NewModel(sendFn), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RunWithClient drives the console against a gateway. One session spans the
// whole console run so orchestrations share it.
func RunWithClient(c *client.Client) error {
	ctx := context.Background()

	sessionID, err := c.CreateSession(ctx, "console")
	if err != nil {
		// Without a session every prompt still works over ephemeral ones.
		sessionID = ""
	}
	defer func() {
		if sessionID != "" {
			c.EndSession(ctx, sessionID)
		}
	}()

	return Run(func(input string) (string, error) {
		out := c.Orchestrate(ctx, input, nil, sessionID)
		if out.Intent == "error" {
			if msg, ok := out.Results["error"].(string); ok {
				return "", errors.New(msg)
			}
		}
		return renderOutcome(out), nil
	})
}

// renderOutcome flattens an orchestration outcome for the console: the
// intent, then one block per tool. Summaries print as text, everything else
// as indented JSON.
func renderOutcome(out *client.Outcome) string {
	var b strings.Builder
	b.WriteString("intent: " + out.Intent)

	ids := make([]string, 0, len(out.Results))
	for id := range out.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		b.WriteString("\n\n" + id + ":\n")
		b.WriteString(renderResult(out.Results[id]))
	}
	return b.String()
}

func renderResult(v any) string {
	if res, ok := v.(map[string]any); ok {
		if summary, ok := res["summary"].(map[string]any); ok {
			if text, ok := summary["summary"].(string); ok && text != "" {
				items := ""
				if n := actionItemCount(summary["action_items"]); n > 0 {
					items = fmt.Sprintf("\n(%d action items)", n)
				}
				return text + items
			}
		}
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func actionItemCount(v any) int {
	if items, ok := v.([]any); ok {
		return len(items)
	}
	return 0
}
