// Package display renders identities and command feedback for the terminal.
// Styling is applied only when color is enabled; otherwise output is plain.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"

	"github.com/zarlcorp/zident/internal/identity"
	"github.com/zarlcorp/zident/internal/inbox"
)

const ruleWidth = 60

// Command is one entry of the command summary.
type Command struct {
	Name string
	Desc string
}

// Commands lists the interactive verbs in display order.
var Commands = []Command{
	{"generate", "Generate identities with specified parameters"},
	{"check-inbox", "Check email inbox for verification code or link"},
	{"decrypt", "Decrypt a saved JSON/YAML export"},
	{"clean", "Clear recent command output"},
	{"help", "Show this list"},
	{"stop", "Quit the program"},
}

// Printer writes formatted output to w.
type Printer struct {
	w     io.Writer
	color bool
}

// New returns a Printer. color selects styled output.
func New(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

func (p *Printer) render(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *Printer) line(s string) {
	fmt.Fprintln(p.w, s)
}

// Banner prints the logo and tool name.
func (p *Printer) Banner(version string) {
	if p.color {
		indent := lipgloss.NewStyle().MarginLeft(2)
		p.line("")
		p.line(indent.Render(zstyle.StyledLogo(lipgloss.NewStyle().Foreground(zstyle.ZburnAccent))))
		p.line(indent.Render(zstyle.Title.Render("zident") + " " + zstyle.MutedText.Render(version)))
		p.line(indent.Render(zstyle.MutedText.Render("synthetic identities for testing")))
		return
	}
	p.line("zident " + version)
	p.line("synthetic identities for testing")
}

// Help prints the command summary.
func (p *Printer) Help() {
	p.line("")
	p.line(p.render(zstyle.Subtitle, "Available Commands:"))
	for _, c := range Commands {
		p.line(fmt.Sprintf("  %s %s", p.render(zstyle.Highlight, fmt.Sprintf("%-12s", c.Name)), c.Desc))
	}
}

// Identity prints every field of r, nesting the address. Records carrying a
// mailbox token are followed by a check-inbox hint.
func (p *Printer) Identity(r identity.Record) {
	rule := strings.Repeat("=", ruleWidth)

	p.line(p.render(zstyle.Title, rule))
	p.line(p.render(zstyle.Title, "GENERATED IDENTITY"))
	p.line(p.render(zstyle.Title, rule))
	for _, f := range r {
		if nested, ok := f.Value.(identity.Record); ok {
			p.line(p.render(zstyle.MutedText, label(f.Key)+":"))
			for _, sub := range nested {
				p.line(fmt.Sprintf("  %s %v", p.render(zstyle.MutedText, label(sub.Key)+":"), sub.Value))
			}
			continue
		}
		p.line(fmt.Sprintf("%s %v", p.render(zstyle.MutedText, label(f.Key)+":"), f.Value))
	}
	p.line(p.render(zstyle.Title, rule))

	if token := r.String("email_token"); token != "" {
		p.line(p.render(zstyle.Highlight, fmt.Sprintf(
			"To retrieve a verification code or link from the inbox, run: check-inbox %s [--code-pattern <pattern>] [--link-pattern <pattern>]",
			token)))
	}
}

// InboxResult reports the outcome of an inbox poll.
func (p *Printer) InboxResult(res inbox.Result) {
	switch {
	case res.Code != "":
		p.OK("Retrieved Verification Code: " + res.Code)
	case res.Link != "":
		p.OK("Retrieved Confirmation Link: " + res.Link)
		p.Warn("Please open the link in a browser to confirm.")
	default:
		p.Err("No verification code or link found after polling.")
	}
}

// OK prints a success line.
func (p *Printer) OK(msg string) { p.line(p.render(zstyle.StatusOK, msg)) }

// Warn prints a warning line.
func (p *Printer) Warn(msg string) { p.line(p.render(zstyle.StatusWarn, msg)) }

// Err prints an error line.
func (p *Printer) Err(msg string) { p.line(p.render(zstyle.StatusErr, msg)) }

// Text prints msg unstyled.
func (p *Printer) Text(msg string) { p.line(msg) }

// label turns snake_case into Title Case.
func label(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
