// Package cli runs a single zident command from the process arguments.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/zarlcorp/zident/internal/display"
	"github.com/zarlcorp/zident/internal/shell"
)

// Exit codes returned by Run.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// PasswordReader reads a secret after printing prompt to w.
type PasswordReader func(prompt string, w io.Writer) (string, error)

// Runner executes one-shot commands.
type Runner struct {
	shell    *shell.Shell
	out      io.Writer
	errOut   io.Writer
	color    bool
	password PasswordReader // nil disables prompting
}

// Option configures a Runner.
type Option func(*Runner)

// WithColor styles output.
func WithColor(on bool) Option {
	return func(r *Runner) { r.color = on }
}

// WithPasswordPrompt lets decrypt ask for a missing --password.
func WithPasswordPrompt(read PasswordReader) Option {
	return func(r *Runner) { r.password = read }
}

// New returns a Runner writing command output to out and errors to errOut.
func New(sh *shell.Shell, out, errOut io.Writer, opts ...Option) *Runner {
	r := &Runner{shell: sh, out: out, errOut: errOut}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes args as one shell command and returns the process exit code.
func (r *Runner) Run(ctx context.Context, args []string) int {
	if len(args) > 0 && strings.EqualFold(args[0], "decrypt") && !hasFlag(args, "--password") && r.password != nil {
		pass, err := r.password("password: ", r.errOut)
		if err != nil {
			fmt.Fprintf(r.errOut, "zident: %v\n", err)
			return ExitError
		}
		args = append(args, "--password="+pass)
	}

	err := r.shell.ExecArgs(ctx, args, display.New(r.out, r.color))
	switch {
	case err == nil, errors.Is(err, shell.ErrStop), errors.Is(err, shell.ErrClear):
		return ExitOK
	case errors.Is(err, shell.ErrUsage):
		fmt.Fprintf(r.errOut, "zident: %v\n", err)
		return ExitUsage
	default:
		fmt.Fprintf(r.errOut, "zident: %v\n", err)
		return ExitError
	}
}

// ReadPassword prompts for a password on w and reads it from the terminal
// without echo.
func ReadPassword(prompt string, w io.Writer) (string, error) {
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// hasFlag reports whether args carry flag, either bare or as flag=value.
func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if strings.EqualFold(a, flag) || strings.HasPrefix(strings.ToLower(a), flag+"=") {
			return true
		}
	}
	return false
}
