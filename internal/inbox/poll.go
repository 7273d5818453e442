package inbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/zarlcorp/zident/internal/extract"
	"github.com/zarlcorp/zident/internal/mailtm"
)

// PollOptions bounds an inbox check.
type PollOptions struct {
	CodePattern string // regexp, or extract.Auto
	LinkPattern string
	Attempts    int
	Interval    time.Duration
}

// DefaultPollOptions returns 5 attempts two seconds apart with the default
// six-digit code and http(s) link patterns.
func DefaultPollOptions() PollOptions {
	return PollOptions{
		CodePattern: extract.DefaultCodePattern,
		LinkPattern: extract.DefaultLinkPattern,
		Attempts:    5,
		Interval:    2 * time.Second,
	}
}

// Result is the outcome of a poll. At most one of Code and Link is set.
type Result struct {
	Code string
	Link string
}

// Found reports whether anything was extracted.
func (r Result) Found() bool { return r.Code != "" || r.Link != "" }

// MessageService is the part of the Mail.tm API needed to read an inbox.
type MessageService interface {
	Messages(ctx context.Context, token string) ([]mailtm.MessageSummary, error)
	Message(ctx context.Context, token, id string) (*mailtm.Message, error)
}

var _ MessageService = (*mailtm.Client)(nil)

// Poller checks an inbox repeatedly until a code or link shows up.
type Poller struct {
	api   MessageService
	log   *slog.Logger
	sleep func(context.Context, time.Duration) error
}

// NewPoller returns a Poller backed by api. A nil logger discards.
func NewPoller(api MessageService, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Poller{api: api, log: log, sleep: sleepCtx}
}

// Poll looks through every message in the inbox once per attempt, sleeping
// opts.Interval between attempts. Within a message a code beats a link. API
// failures are logged and end the attempt. The only errors returned are an
// invalid pattern, reported before any request, and ctx cancellation.
func (p *Poller) Poll(ctx context.Context, token string, opts PollOptions) (Result, error) {
	m, err := extract.NewMatcher(opts.CodePattern, opts.LinkPattern)
	if err != nil {
		return Result{}, err
	}

	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, opts.Interval); err != nil {
				return Result{}, err
			}
		}

		res, err := p.scan(ctx, token, m)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			p.log.Error("inbox check attempt failed", "attempt", attempt, "error", err)
			continue
		}
		if res.Found() {
			return res, nil
		}
	}

	p.log.Warn("no verification code or link found after polling", "attempts", opts.Attempts)
	return Result{}, nil
}

func (p *Poller) scan(ctx context.Context, token string, m *extract.Matcher) (Result, error) {
	msgs, err := p.api.Messages(ctx, token)
	if err != nil {
		return Result{}, err
	}

	for _, summary := range msgs {
		msg, err := p.api.Message(ctx, token, summary.ID)
		if err != nil {
			return Result{}, err
		}

		match, ok := m.Find(msg.Text)
		if !ok {
			continue
		}
		if match.Code != "" {
			p.log.Info("found verification code", "message", msg.ID)
		} else {
			p.log.Info("found confirmation link", "message", msg.ID)
		}
		return Result{Code: match.Code, Link: match.Link}, nil
	}
	return Result{}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
