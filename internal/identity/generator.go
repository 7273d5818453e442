package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/zarlcorp/core/pkg/zcrypto"
	"github.com/zarlcorp/zident/internal/inbox"
	"github.com/zarlcorp/zident/internal/tables"
)

// password alphabet: ASCII letters, digits and punctuation
const (
	letterChars  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars   = "0123456789"
	punctChars   = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
	allPassChars = letterChars + digitChars + punctChars

	passwordLen = 12
	ageLimit    = 120
)

// EmailMode selects where an identity's email address comes from.
type EmailMode int

const (
	EmailGenerated   EmailMode = iota // firstname.lastnameNNN@domain
	EmailManual                       // Options.ManualEmail verbatim
	EmailProvisioned                  // disposable mailbox, generated on failure
)

// Provisioner creates disposable mailboxes. ok is false when no mailbox
// could be created.
type Provisioner interface {
	Provision(ctx context.Context) (mb inbox.Mailbox, ok bool)
}

// Options controls a single identity.
type Options struct {
	Country     string
	Gender      string // male, female, neutral or any
	EmailMode   EmailMode
	ManualEmail string
	MinAge      int
	MaxAge      int
}

// DefaultOptions returns the options used when the caller sets nothing.
func DefaultOptions() Options {
	return Options{
		Country: tables.DefaultCountry,
		Gender:  "any",
		MinAge:  18,
		MaxAge:  65,
	}
}

// Generator produces random identity data using crypto/rand.
type Generator struct {
	tables *tables.Tables
	mail   Provisioner
	now    func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithProvisioner enables EmailProvisioned mode.
func WithProvisioner(p Provisioner) Option {
	return func(g *Generator) { g.mail = p }
}

// WithClock overrides the time source used for birth years and timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New creates a generator drawing from t. A nil t uses the built-in tables.
func New(t *tables.Tables, opts ...Option) *Generator {
	if t == nil {
		t = tables.Defaults()
	}
	g := &Generator{tables: t, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces a complete random identity.
func (g *Generator) Generate(ctx context.Context, opts Options) Identity {
	first, last := g.Name(opts.Gender, opts.Country)

	var email, token string
	switch opts.EmailMode {
	case EmailManual:
		email = opts.ManualEmail
	case EmailProvisioned:
		if g.mail != nil {
			if mb, ok := g.mail.Provision(ctx); ok {
				email, token = mb.Address, mb.Token
			}
		}
	}
	if email == "" {
		email = g.Email(first, last)
	}

	return Identity{
		FirstName:  first,
		LastName:   last,
		Email:      email,
		Phone:      g.Phone(opts.Country),
		Address:    g.Address(opts.Country),
		Username:   g.Username(first, last),
		Birthdate:  g.Birthdate(opts.MinAge, opts.MaxAge),
		Password:   g.Password(),
		Created:    g.now(),
		EmailToken: token,
	}
}

// Name picks a first name from the gender bucket and a last name for the
// country. "any" or an empty gender picks a bucket uniformly; an unknown
// bucket uses neutral names.
func (g *Generator) Name(gender, country string) (first, last string) {
	gender = strings.ToLower(gender)
	if gender == "" || gender == "any" {
		gender = pick(tables.Genders)
	}

	first = pick(tables.Lookup(g.tables.FirstNames, gender, tables.DefaultGender))
	last = pick(tables.Lookup(g.tables.LastNames, country, tables.DefaultCountry))
	return first, last
}

// Email builds firstname.lastnameN@domain, lowercased, with N in [0, 1000).
func (g *Generator) Email(first, last string) string {
	domain := pick(g.tables.Domains)
	local := fmt.Sprintf("%s.%s%d", first, last, randIntn(1000))
	return strings.ToLower(local + "@" + domain)
}

// Phone fills the country's template, replacing each '#' with a digit.
func (g *Generator) Phone(country string) string {
	tmpl := tables.Lookup(g.tables.PhoneFormats, country, tables.DefaultCountry)

	var b strings.Builder
	for _, r := range tmpl {
		if r == '#' {
			b.WriteByte(pickByte(digitChars))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Address draws a state of the country, a city of that state and a street
// of the country. Unknown countries use the default country; states without
// cities use the default state's cities.
func (g *Generator) Address(country string) Address {
	key := tables.Resolve(g.tables.States, country, tables.DefaultCountry)
	state := pick(tables.Lookup(g.tables.States, key, tables.DefaultCountry))
	street := pick(tables.Lookup(g.tables.Streets, key, tables.DefaultCountry))
	city := pick(tables.Lookup(g.tables.Cities, state, tables.DefaultState))

	return Address{
		Street:  fmt.Sprintf("%d %s", randIntn(1000), street),
		City:    city,
		State:   state,
		Country: key,
	}
}

// Username is firstnamelastname plus four hex characters.
func (g *Generator) Username(first, last string) string {
	b, err := zcrypto.RandBytes(2)
	if err != nil {
		panic("crypto/rand: " + err.Error())
	}
	return strings.ToLower(first+last) + hex.EncodeToString(b)
}

// Birthdate picks a year within the age range, a month and a day in 1..28.
// Days stop at 28 so every month is valid. Ages are clamped to 0..120 with
// minAge <= maxAge.
func (g *Generator) Birthdate(minAge, maxAge int) time.Time {
	maxAge = min(max(maxAge, 0), ageLimit)
	minAge = min(max(minAge, 0), maxAge)

	year := g.now().Year()
	start := year - maxAge
	end := year - minAge

	y := start + randIntn(end-start+1)
	m := time.Month(randIntn(12) + 1)
	d := randIntn(28) + 1
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Password returns 12 characters drawn from letters, digits and punctuation.
func (g *Generator) Password() string {
	buf := make([]byte, passwordLen)
	for i := range buf {
		buf[i] = pickByte(allPassChars)
	}
	return string(buf)
}

// pick returns a random element from a string slice.
func pick(s []string) string {
	return s[randIntn(len(s))]
}

// pickByte returns a random byte from a string.
func pickByte(s string) byte {
	return s[randIntn(len(s))]
}

// randIntn returns a cryptographically random int in [0, n).
func randIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand failure is unrecoverable
		panic("crypto/rand: " + err.Error())
	}
	return int(v.Int64())
}
