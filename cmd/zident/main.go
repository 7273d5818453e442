package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zapp"
	"github.com/zarlcorp/core/pkg/zfilesystem"

	"github.com/zarlcorp/zident/internal/cli"
	"github.com/zarlcorp/zident/internal/config"
	"github.com/zarlcorp/zident/internal/display"
	"github.com/zarlcorp/zident/internal/export"
	"github.com/zarlcorp/zident/internal/inbox"
	"github.com/zarlcorp/zident/internal/logging"
	"github.com/zarlcorp/zident/internal/mailtm"
	"github.com/zarlcorp/zident/internal/shell"
	"github.com/zarlcorp/zident/internal/tables"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	app := zapp.New(zapp.WithName("zident"))
	defer func() {
		if err := app.Close(); err != nil {
			slog.Error("shutdown", "err", err)
		}
	}()

	ctx, cancel := zapp.SignalContext(context.Background())
	defer cancel()

	args := os.Args[1:]
	if len(args) == 1 && args[0] == "version" {
		fmt.Printf("zident %s\n", version)
		return cli.ExitOK
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "zident: %v\n", err)
		return cli.ExitError
	}

	log, closer, err := logging.New(cfg.LogLevel, cfg.LogPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "zident: %v\n", err)
		return cli.ExitError
	}
	defer closer.Close()

	tty := cli.IsTerminal(os.Stdout)
	color := !cfg.NoColor && tty
	sh := newShell(cfg, log, display.New(os.Stderr, color))

	if len(args) > 0 {
		opts := []cli.Option{cli.WithColor(color)}
		if cli.IsTerminal(os.Stdin) {
			opts = append(opts, cli.WithPasswordPrompt(cli.ReadPassword))
		}
		return cli.New(sh, os.Stdout, os.Stderr, opts...).Run(ctx, args)
	}

	if tty && cli.IsTerminal(os.Stdin) {
		if err := runTUI(ctx, sh, color); err != nil {
			log.Error("tui", "err", err)
			fmt.Fprintf(os.Stderr, "zident: %v\n", err)
			return cli.ExitError
		}
		return cli.ExitOK
	}

	if err := shell.RunLines(ctx, sh, os.Stdin, os.Stdout, color, version); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "zident: %v\n", err)
		return cli.ExitError
	}
	return cli.ExitOK
}

// newShell wires the shell to the Mail.tm client, the lookup tables in the
// config directory and an export writer rooted at the home directory.
// Table load problems are reported on warn.
func newShell(cfg config.Config, log *slog.Logger, warn *display.Printer) *shell.Shell {
	t, errs := tables.Load(zfilesystem.NewOSFileSystem(cfg.ConfigDir))
	for _, e := range errs {
		log.Warn("lookup table", "table", e.Table, "err", e.Err)
		warn.Warn(e.Error())
	}

	api := mailtm.NewClient(mailtm.Config{BaseURL: cfg.MailTMURL, Timeout: cfg.HTTPTimeout})

	return shell.New(shell.Config{
		Tables:      t,
		Provisioner: inbox.NewProvisioner(api, inbox.WithLogger(log)),
		Poller:      inbox.NewPoller(api, log),
		Files:       export.NewWriter(zfilesystem.NewOSFileSystem(cfg.Home), export.WithLogger(log)),
		Log:         log,
	})
}

func runTUI(ctx context.Context, sh *shell.Shell, color bool) error {
	p := tea.NewProgram(shell.NewModel(ctx, sh, version, color), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
