// Package extract finds verification codes and confirmation links in message
// bodies.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Default patterns used when the caller leaves them empty.
const (
	DefaultCodePattern = `\b\d{6}\b`
	DefaultLinkPattern = `https?://[^\s]+`

	// Auto selects keyword-proximity scoring instead of a code regex.
	Auto = "auto"
)

// Match is what was found in one body. At most one field is set.
type Match struct {
	Code string
	Link string
}

// Matcher searches text for a code first and a link second.
type Matcher struct {
	code *regexp.Regexp // nil in auto mode
	link *regexp.Regexp
}

// NewMatcher compiles the code and link patterns. An empty pattern uses the
// default; codePattern "auto" uses Best.
func NewMatcher(codePattern, linkPattern string) (*Matcher, error) {
	if linkPattern == "" {
		linkPattern = DefaultLinkPattern
	}
	link, err := regexp.Compile(linkPattern)
	if err != nil {
		return nil, fmt.Errorf("link pattern: %w", err)
	}

	m := &Matcher{link: link}

	switch codePattern {
	case Auto:
	case "":
		m.code = regexp.MustCompile(DefaultCodePattern)
	default:
		if m.code, err = regexp.Compile(codePattern); err != nil {
			return nil, fmt.Errorf("code pattern: %w", err)
		}
	}
	return m, nil
}

// Find returns the first code in text, or failing that the first link.
func (m *Matcher) Find(text string) (Match, bool) {
	if code := m.findCode(text); code != "" {
		return Match{Code: code}, true
	}
	if link := m.link.FindString(text); link != "" {
		return Match{Link: link}, true
	}
	return Match{}, false
}

func (m *Matcher) findCode(text string) string {
	if m.code == nil {
		return Best(text)
	}
	return m.code.FindString(text)
}

// words that mark a nearby token as a verification code
var keywords = []string{
	"verification", "code", "otp", "one-time", "confirm",
	"pin", "2fa", "authenticate", "verify", "passcode",
}

var (
	tokenRe = regexp.MustCompile(`\b(\d{4}|\d{6}|\d{8}|[A-Za-z0-9]{6})\b`)
	urlRe   = regexp.MustCompile(`https?://\S+`)
	mailRe  = regexp.MustCompile(`\S+@\S+\.\S+`)
	yearRe  = regexp.MustCompile(`^(19|20)\d{2}$`)
)

// Best returns the token in text most likely to be a verification code, or
// "" when nothing qualifies. Numeric codes of 4, 6 or 8 digits and mixed
// 6-character alphanumeric codes are considered; tokens near words like
// "code" or "verify" rank highest.
func Best(text string) string {
	// blank out urls and addresses so digits inside them are not candidates
	text = urlRe.ReplaceAllStringFunc(text, blank)
	text = mailRe.ReplaceAllStringFunc(text, blank)
	lower := strings.ToLower(text)

	best, bestScore := "", -1
	for _, loc := range tokenRe.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		tok := text[start:end]

		if !isCandidate(text, lower, tok, start, end) {
			continue
		}
		if s := rank(lower, tok, start, end); s > bestScore {
			best, bestScore = tok, s
		}
	}
	return best
}

func blank(s string) string { return strings.Repeat(" ", len(s)) }

func isCandidate(text, lower, tok string, start, end int) bool {
	numeric := isDigits(tok)
	if !numeric {
		// six letters is a word, six digits was matched above
		return hasLetter(tok) && hasDigit(tok)
	}

	before := byteAt(text, start-1)
	after := byteAt(text, end)

	switch {
	case before == '$' || byteAt(text, start-2) == '$':
		return false // price
	case before == ':' || after == ':':
		return false // clock time
	case after == '.' && isDigitByte(byteAt(text, end+1)):
		return false // decimal
	case before == '.' && isDigitByte(byteAt(text, start-2)):
		return false
	case before == '-' && isDigitByte(byteAt(text, start-2)):
		return false // phone segment
	case after == '-' && isDigitByte(byteAt(text, end+1)):
		return false
	}

	if len(tok) == 4 && yearRe.MatchString(tok) && !keywordNear(lower, start, end, 60) {
		return false
	}
	return true
}

func rank(lower, tok string, start, end int) int {
	s := 0
	switch {
	case len(tok) == 6 && isDigits(tok):
		s += 30
	case len(tok) == 8:
		s += 20
	case len(tok) == 4:
		s += 15
	default:
		s += 10
	}

	if keywordNear(lower, start, end, 60) {
		s += 50
	}

	prefix := strings.TrimRight(lower[max(0, start-10):start], " ")
	if strings.HasSuffix(prefix, ":") || strings.HasSuffix(prefix, "is") || strings.HasSuffix(prefix, "-") {
		s += 20
	}

	if isSpace(byteAt(lower, start-1)) && isSpace(byteAt(lower, end)) {
		s += 10
	}
	return s
}

func keywordNear(lower string, start, end, radius int) bool {
	window := lower[max(0, start-radius):min(len(lower), end+radius)]
	for _, kw := range keywords {
		if strings.Contains(window, kw) {
			return true
		}
	}
	return false
}

// byteAt returns s[i], or 0 outside the string.
func byteAt(s string, i int) byte {
	if i < 0 || i >= len(s) {
		return 0
	}
	return s[i]
}

func isSpace(b byte) bool {
	return b == 0 || b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

func isDigitByte(b byte) bool { return b >= '0' && b <= '9' }

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func hasLetter(s string) bool { return strings.IndexFunc(s, unicode.IsLetter) >= 0 }

func hasDigit(s string) bool { return strings.IndexFunc(s, unicode.IsDigit) >= 0 }
