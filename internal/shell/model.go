package shell

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"

	"github.com/zarlcorp/zident/internal/display"
)

const maxRecall = 100

// execDoneMsg carries the output of a finished command.
type execDoneMsg struct {
	out string
	err error
}

// Model is the interactive Bubble Tea front end for a Shell.
type Model struct {
	ctx     context.Context
	shell   *Shell
	version string
	color   bool

	input   textinput.Model
	banner  string
	output  []string // rendered command output, oldest first
	recall  []string // previously entered lines
	recallN int      // position in recall while browsing; len(recall) when not

	running bool
	cancel  context.CancelFunc

	width  int
	height int
}

// NewModel returns the interactive model. Commands run under ctx; color
// false renders everything unstyled.
func NewModel(ctx context.Context, sh *Shell, version string, color bool) Model {
	ti := textinput.New()
	ti.Prompt = "zident> "
	ti.Placeholder = "generate --count 2 --country US --save"
	if color {
		ti.PromptStyle = lipgloss.NewStyle().Foreground(zstyle.ZburnAccent).Bold(true)
	} else {
		ti.PlaceholderStyle = lipgloss.NewStyle()
	}
	ti.CharLimit = 512
	ti.Focus()

	var buf bytes.Buffer
	p := display.New(&buf, color)
	p.Banner(version)
	p.Help()

	return Model{
		ctx:     ctx,
		shell:   sh,
		version: version,
		color:   color,
		input:   ti,
		banner:  strings.TrimRight(buf.String(), "\n"),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-len(m.input.Prompt)-2, 10)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case execDoneMsg:
		return m.handleDone(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			m.cancel()
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		return m.submit()

	case tea.KeyUp:
		if m.recallN > 0 {
			m.recallN--
			m.input.SetValue(m.recall[m.recallN])
			m.input.CursorEnd()
		}
		return m, nil

	case tea.KeyDown:
		if m.recallN < len(m.recall)-1 {
			m.recallN++
			m.input.SetValue(m.recall[m.recallN])
			m.input.CursorEnd()
		} else {
			m.recallN = len(m.recall)
			m.input.SetValue("")
		}
		return m, nil
	}

	if m.running {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if line == "" {
		return m, nil
	}

	m.recall = append(m.recall, line)
	if len(m.recall) > maxRecall {
		m.recall = m.recall[len(m.recall)-maxRecall:]
	}
	m.recallN = len(m.recall)

	m.output = append(m.output, m.render(zstyle.MutedText, m.input.Prompt+line))
	m.running = true

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	sh, color := m.shell, m.color

	return m, func() tea.Msg {
		defer cancel()
		var buf bytes.Buffer
		err := sh.Exec(ctx, line, display.New(&buf, color))
		return execDoneMsg{out: buf.String(), err: err}
	}
}

func (m Model) handleDone(msg execDoneMsg) (tea.Model, tea.Cmd) {
	m.running = false
	m.cancel = nil

	if out := strings.TrimRight(msg.out, "\n"); out != "" {
		m.output = append(m.output, out)
	}

	switch {
	case msg.err == nil:
	case errors.Is(msg.err, ErrStop):
		return m, tea.Quit
	case errors.Is(msg.err, ErrClear):
		m.output = nil
	case errors.Is(msg.err, context.Canceled):
		m.output = append(m.output, m.render(zstyle.StatusWarn, "cancelled"))
	default:
		m.output = append(m.output, m.render(zstyle.StatusErr, "Error: "+msg.err.Error()))
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.banner)
	b.WriteString("\n")
	if m.color {
		b.WriteString(zstyle.RenderSeparator(m.width))
	} else {
		b.WriteString(strings.Repeat("-", max(m.width, 40)))
	}
	b.WriteString("\n")

	body := strings.Join(m.output, "\n")
	if body != "" {
		b.WriteString(m.tail(body))
		b.WriteString("\n")
	}

	if m.running {
		b.WriteString(m.render(zstyle.MutedText, "  working... ctrl+c to cancel"))
	} else {
		b.WriteString(m.input.View())
	}
	b.WriteString("\n\n")
	b.WriteString(m.footer())
	b.WriteString("\n")
	return b.String()
}

var footerKeys = []zstyle.HelpPair{
	{Key: "enter", Desc: "run"},
	{Key: "up/down", Desc: "history"},
	{Key: "ctrl+c", Desc: "cancel/quit"},
}

func (m Model) footer() string {
	if m.color {
		return zstyle.RenderFooter(footerKeys)
	}
	parts := make([]string, len(footerKeys))
	for i, k := range footerKeys {
		parts[i] = k.Key + " " + k.Desc
	}
	return "  " + strings.Join(parts, "  ")
}

func (m Model) render(s lipgloss.Style, text string) string {
	if !m.color {
		return text
	}
	return s.Render(text)
}

// tail keeps the last lines of s that fit below the banner.
func (m Model) tail(s string) string {
	if m.height == 0 {
		return s
	}
	room := m.height - lipgloss.Height(m.banner) - 6
	if room < 1 {
		room = 1
	}
	lines := strings.Split(s, "\n")
	if len(lines) > room {
		lines = lines[len(lines)-room:]
	}
	return strings.Join(lines, "\n")
}
