// Package shell dispatches zident's interactive commands. Each line is split
// on whitespace; the first word selects the verb and the rest are parsed as
// that verb's flags.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/zarlcorp/zident/internal/batch"
	"github.com/zarlcorp/zident/internal/display"
	"github.com/zarlcorp/zident/internal/export"
	"github.com/zarlcorp/zident/internal/identity"
	"github.com/zarlcorp/zident/internal/inbox"
	"github.com/zarlcorp/zident/internal/tables"
)

var (
	// ErrStop is returned by the stop verb.
	ErrStop = errors.New("stop")

	// ErrClear is returned by the clean verb; the caller clears its output.
	ErrClear = errors.New("clear")

	// ErrUsage wraps every argument error.
	ErrUsage = errors.New("invalid arguments")
)

var genders = []string{"male", "female", "neutral", "any"}

// Provisioner creates disposable mailboxes.
type Provisioner interface {
	Provision(ctx context.Context) (inbox.Mailbox, bool)
}

// Poller checks a mailbox for codes and links.
type Poller interface {
	Poll(ctx context.Context, token string, opts inbox.PollOptions) (inbox.Result, error)
}

// Config wires a Shell to its collaborators.
type Config struct {
	Tables      *tables.Tables
	Provisioner Provisioner
	Poller      Poller
	Files       *export.Writer
	Log         *slog.Logger
	Clock       func() time.Time // nil uses time.Now
}

// Shell runs commands against a fixed set of collaborators.
type Shell struct {
	cfg Config
}

// New returns a Shell.
func New(cfg Config) *Shell {
	if cfg.Log == nil {
		cfg.Log = slog.New(slog.DiscardHandler)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Shell{cfg: cfg}
}

// Exec runs one command line, writing its output to p. Blank lines do
// nothing. ErrStop and ErrClear signal the caller; any other error is a
// one-line message for the user.
func (s *Shell) Exec(ctx context.Context, line string, p *display.Printer) error {
	return s.ExecArgs(ctx, strings.Fields(line), p)
}

// ExecArgs runs a command already split into words.
func (s *Shell) ExecArgs(ctx context.Context, args []string, p *display.Printer) error {
	if len(args) == 0 {
		return nil
	}

	verb, rest := strings.ToLower(args[0]), args[1:]
	s.cfg.Log.Debug("command", "verb", verb)

	switch verb {
	case "stop", "exit", "quit":
		p.Text("Exiting program.")
		return ErrStop
	case "clean", "clear":
		return ErrClear
	case "help":
		p.Help()
		return nil
	case "generate":
		return s.generate(ctx, rest, p)
	case "check-inbox":
		return s.checkInbox(ctx, rest, p)
	case "decrypt":
		return s.decrypt(rest, p)
	}
	return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
}

type generateArgs struct {
	save         bool
	saveLog      bool
	country      string
	gender       string
	format       string
	count        int
	fields       []string
	noPreview    bool
	minAge       int
	maxAge       int
	useTempEmail bool
	manualEmail  string
	encrypt      string
}

func parseGenerate(args []string) (generateArgs, error) {
	var a generateArgs

	fs := newFlagSet("generate")
	fs.BoolVar(&a.save, "save", false, "save generated identities to a file")
	fs.BoolVar(&a.saveLog, "save-log", false, "save detailed identity info to a log file")
	fs.StringVar(&a.country, "country", tables.DefaultCountry, "country format for identity")
	fs.StringVar(&a.gender, "gender", "any", "gender for name selection (male, female, neutral, any)")
	fs.StringVar(&a.format, "format", string(export.JSON), "output file format (json, csv, yaml)")
	fs.IntVar(&a.count, "count", 1, "number of identities to generate")
	fs.StringSliceVar(&a.fields, "fields", nil, "fields to include")
	fs.BoolVar(&a.noPreview, "no-preview", false, "show identities after the batch instead of as generated")
	fs.IntVar(&a.minAge, "min-age", 18, "minimum age")
	fs.IntVar(&a.maxAge, "max-age", 65, "maximum age")
	fs.BoolVar(&a.useTempEmail, "use-temp-email", false, "provision a Mail.tm inbox")
	fs.StringVar(&a.manualEmail, "manual-email", "", "use this email address")
	fs.StringVar(&a.encrypt, "encrypt", "", "password to encrypt saved JSON/YAML files")

	if err := fs.Parse(joinFields(args)); err != nil {
		return a, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return a, fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}

	a.gender = strings.ToLower(a.gender)
	if !slices.Contains(genders, a.gender) {
		return a, fmt.Errorf("%w: invalid gender %q (choose from %s)", ErrUsage, a.gender, strings.Join(genders, ", "))
	}
	return a, nil
}

func (a generateArgs) request() (batch.Request, error) {
	f, err := export.ParseFormat(a.format)
	if err != nil {
		return batch.Request{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	opts := identity.Options{
		Country: a.country,
		Gender:  a.gender,
		MinAge:  a.minAge,
		MaxAge:  a.maxAge,
	}
	switch {
	case a.useTempEmail:
		opts.EmailMode = identity.EmailProvisioned
	case a.manualEmail != "":
		opts.EmailMode = identity.EmailManual
		opts.ManualEmail = a.manualEmail
	}

	req := batch.Request{
		Count:    a.count,
		Identity: opts,
		Fields:   a.fields,
		Preview:  !a.noPreview,
		Save:     a.save,
		Format:   f,
		Password: a.encrypt,
		SaveLog:  a.saveLog,
	}

	err = req.Validate()
	if errors.Is(err, batch.ErrCount) || errors.Is(err, batch.ErrAgeRange) {
		return req, err
	}
	if a.useTempEmail && a.manualEmail != "" {
		return req, fmt.Errorf("%w: cannot use both --use-temp-email and --manual-email", ErrUsage)
	}
	return req, err
}

func (s *Shell) generate(ctx context.Context, args []string, p *display.Printer) error {
	a, err := parseGenerate(args)
	if err != nil {
		return err
	}
	req, err := a.request()
	if err != nil {
		return err
	}

	var prov identity.Provisioner
	if s.cfg.Provisioner != nil {
		prov = reportingProvisioner{s.cfg.Provisioner, p}
	}
	gen := identity.New(s.cfg.Tables, identity.WithProvisioner(prov), identity.WithClock(s.cfg.Clock))
	runner := batch.NewRunner(gen, s.cfg.Files, p, s.cfg.Log)

	res, err := runner.Run(ctx, req)
	if res.Path != "" {
		p.OK("Identities saved to " + res.Path)
	}
	for _, path := range res.Logs {
		p.OK("Identity log saved to " + path)
	}
	return err
}

// reportingProvisioner tells the user when provisioning gave up.
type reportingProvisioner struct {
	Provisioner
	p *display.Printer
}

func (r reportingProvisioner) Provision(ctx context.Context) (inbox.Mailbox, bool) {
	mb, ok := r.Provisioner.Provision(ctx)
	if !ok {
		r.p.Err(fmt.Sprintf("Failed to create Mail.tm account after %d attempts.", inbox.ProvisionAttempts))
	}
	return mb, ok
}

func parseCheckInbox(args []string) (string, inbox.PollOptions, error) {
	opts := inbox.DefaultPollOptions()
	interval := opts.Interval.Seconds()

	fs := newFlagSet("check-inbox")
	fs.StringVar(&opts.CodePattern, "code-pattern", opts.CodePattern, `regex for the verification code, or "auto"`)
	fs.StringVar(&opts.LinkPattern, "link-pattern", opts.LinkPattern, "regex for the confirmation link")
	fs.IntVar(&opts.Attempts, "poll-attempts", opts.Attempts, "number of times to check the inbox")
	fs.Float64Var(&interval, "poll-interval", interval, "seconds between checks")

	if err := fs.Parse(args); err != nil {
		return "", opts, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() != 1 {
		return "", opts, fmt.Errorf("%w: usage: check-inbox <token> [--code-pattern p] [--link-pattern p] [--poll-attempts n] [--poll-interval s]", ErrUsage)
	}
	if opts.Attempts < 1 {
		return "", opts, fmt.Errorf("%w: poll attempts must be positive", ErrUsage)
	}
	if interval < 0 {
		return "", opts, fmt.Errorf("%w: poll interval must not be negative", ErrUsage)
	}

	opts.Interval = time.Duration(interval * float64(time.Second))
	return fs.Arg(0), opts, nil
}

func (s *Shell) checkInbox(ctx context.Context, args []string, p *display.Printer) error {
	token, opts, err := parseCheckInbox(args)
	if err != nil {
		return err
	}

	p.Text(fmt.Sprintf("Checking inbox (%d attempts, %s apart)...", opts.Attempts, opts.Interval))
	res, err := s.cfg.Poller.Poll(ctx, token, opts)
	if err != nil {
		return err
	}
	p.InboxResult(res)
	return nil
}

func (s *Shell) decrypt(args []string, p *display.Printer) error {
	var password string

	fs := newFlagSet("decrypt")
	fs.StringVar(&password, "password", "", "password the file was encrypted with")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() != 1 || password == "" {
		return fmt.Errorf("%w: usage: decrypt <file> --password <password>", ErrUsage)
	}

	plain, err := s.cfg.Files.ReadDecrypted(fs.Arg(0), password)
	if err != nil {
		return err
	}
	p.Text(string(plain))
	return nil
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false
	return fs
}

// joinFields rewrites "--fields a b c" into "--fields=a,b,c" so the
// space-separated form reaches pflag as one value.
func joinFields(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if args[i] != "--fields" {
			out = append(out, args[i])
			continue
		}

		var vals []string
		for i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			vals = append(vals, args[i])
		}
		if len(vals) == 0 {
			out = append(out, args[i])
			continue
		}
		out = append(out, "--fields="+strings.Join(vals, ","))
	}
	return out
}
