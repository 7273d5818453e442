// Package inbox provisions disposable Mail.tm mailboxes and polls them for
// verification codes and confirmation links.
package inbox

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/zarlcorp/zident/internal/mailtm"
)

const (
	// ProvisionAttempts is the number of create-account tries before giving up.
	ProvisionAttempts = 3

	localPartLen = 10
	passwordLen  = 12

	localChars = "abcdefghijklmnopqrstuvwxyz0123456789"
	passChars  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" +
		"!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

var errNoDomains = errors.New("no domains available from Mail.tm")

// Mailbox is a provisioned disposable inbox. Token grants read access.
type Mailbox struct {
	Address string
	Token   string
}

// AccountService is the part of the Mail.tm API needed to create mailboxes.
type AccountService interface {
	Domains(ctx context.Context) ([]string, error)
	CreateAccount(ctx context.Context, address, password string) error
	Token(ctx context.Context, address, password string) (string, error)
}

var _ AccountService = (*mailtm.Client)(nil)

// Provisioner creates mailboxes, retrying failed attempts with exponential
// backoff of 1s then 2s.
type Provisioner struct {
	api   AccountService
	log   *slog.Logger
	timer backoff.Timer
}

// ProvisionerOption configures a Provisioner.
type ProvisionerOption func(*Provisioner)

// WithLogger sets the logger failures are reported to.
func WithLogger(l *slog.Logger) ProvisionerOption {
	return func(p *Provisioner) { p.log = l }
}

// WithTimer replaces the timer used to wait between attempts.
func WithTimer(t backoff.Timer) ProvisionerOption {
	return func(p *Provisioner) { p.timer = t }
}

// NewProvisioner returns a Provisioner backed by api.
func NewProvisioner(api AccountService, opts ...ProvisionerOption) *Provisioner {
	p := &Provisioner{api: api, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provision creates a mailbox on a random Mail.tm domain. ok is false when
// every attempt failed, the domain list was empty, or ctx was cancelled.
func (p *Provisioner) Provision(ctx context.Context) (mb Mailbox, ok bool) {
	attempt := 0
	op := func() error {
		attempt++
		got, err := p.attempt(ctx)
		if err != nil {
			p.log.Error("mail.tm attempt failed", "attempt", attempt, "error", err)
			if errors.Is(err, errNoDomains) {
				return backoff.Permanent(err)
			}
			return err
		}
		mb = got
		return nil
	}

	if err := backoff.RetryNotifyWithTimer(op, p.policy(ctx), nil, p.timer); err != nil {
		p.log.Error("mail.tm provisioning gave up", "attempts", attempt, "error", err)
		return Mailbox{}, false
	}

	p.log.Info("created mail.tm account", "address", mb.Address)
	return mb, true
}

func (p *Provisioner) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, ProvisionAttempts-1), ctx)
}

func (p *Provisioner) attempt(ctx context.Context) (Mailbox, error) {
	domains, err := p.api.Domains(ctx)
	if err != nil {
		return Mailbox{}, err
	}
	if len(domains) == 0 {
		return Mailbox{}, errNoDomains
	}

	address := randomString(localChars, localPartLen) + "@" + domains[randIntn(len(domains))]
	password := randomString(passChars, passwordLen)

	if err := p.api.CreateAccount(ctx, address, password); err != nil {
		return Mailbox{}, err
	}

	token, err := p.api.Token(ctx, address, password)
	if err != nil {
		return Mailbox{}, err
	}

	return Mailbox{Address: address, Token: token}, nil
}

func randomString(alphabet string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[randIntn(len(alphabet))]
	}
	return string(b)
}

func randIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("crypto/rand: " + err.Error())
	}
	return int(v.Int64())
}
