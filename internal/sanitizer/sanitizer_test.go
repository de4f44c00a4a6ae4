package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newPlain() *Sanitizer {
	return New(Config{Language: "en", EnableNER: false})
}

func TestCleanRedactsEmail(t *testing.T) {
	s := newPlain()

	out := s.Clean("Contact jane.doe+cv@example.com for details", "en")

	assert.NotContains(t, out, "jane.doe")
	assert.NotContains(t, out, "example.com")
	assert.Contains(t, out, EmailToken)
	assert.Contains(t, out, "Contact")
	assert.Contains(t, out, "for details")
}

func TestCleanRedactsURL(t *testing.T) {
	s := newPlain()

	out := s.Clean("Portfolio: https://portfolio.dev/work and www.mysite.org", "en")

	assert.NotContains(t, out, "portfolio.dev")
	assert.NotContains(t, out, "mysite.org")
	assert.Contains(t, out, LinkToken)
}

func TestCleanRedactsPhone(t *testing.T) {
	s := newPlain()

	out := s.Clean("Call +1 555 123 4567 anytime", "en")

	assert.NotContains(t, out, "555")
	assert.Contains(t, out, PhoneToken)
}

func TestCleanRedactsIPAddress(t *testing.T) {
	s := newPlain()

	out := s.Clean("Deployed services on 192.168.10.14 in production", "en")

	assert.NotContains(t, out, "192.168.10.14")
	assert.Contains(t, out, IPToken)
}

func TestCleanRedactsCreditCard(t *testing.T) {
	s := newPlain()

	out := s.Clean("Card number 4111 1111 1111 1111 on file", "en")

	assert.NotContains(t, out, "4111")
	assert.Contains(t, out, CreditCardToken)
}

func TestCleanRedactsIBAN(t *testing.T) {
	s := newPlain()

	out := s.Clean("Account DE89370400440532013000 listed", "en")

	assert.NotContains(t, out, "DE8937")
	assert.Contains(t, out, IBANToken)
}

func TestCleanRedactsDates(t *testing.T) {
	s := newPlain()

	out := s.Clean("Born 03/15/1990, graduated June 2014", "en")

	assert.NotContains(t, out, "1990")
	assert.NotContains(t, out, "2014")
	assert.Contains(t, out, DateToken)
}

func TestCleanNormalizesWhitespace(t *testing.T) {
	s := newPlain()

	out := s.Clean("  Senior\t\tEngineer\n\n  with   Go  ", "en")

	assert.Equal(t, "Senior Engineer with Go", out)
}

func TestCleanStripsDisallowedCharacters(t *testing.T) {
	s := newPlain()

	out := s.Clean("Go•Python•Rust", "en")

	assert.NotContains(t, out, "•")
	assert.Contains(t, out, "Go")
	assert.Contains(t, out, "Python")
	assert.Contains(t, out, "Rust")
}

func TestCleanPreservesTechnicalContent(t *testing.T) {
	s := newPlain()

	in := "Built REST APIs in Go (fiber), used PostgreSQL & Redis; 99.9% uptime"
	out := s.Clean(in, "en")

	assert.Contains(t, out, "REST APIs in Go (fiber)")
	assert.Contains(t, out, "PostgreSQL & Redis")
	assert.Contains(t, out, "99.9% uptime")
}

func TestCleanIsIdempotent(t *testing.T) {
	s := newPlain()

	inputs := []string{
		"Reach me at jane@corp.io or +44 20 7946 0958",
		"See https://example.com, card 4111 1111 1111 1111",
		"Plain text with no PII at all",
		"Server 10.0.0.1, born 01/02/1993",
	}

	for _, in := range inputs {
		once := s.Clean(in, "en")
		twice := s.Clean(once, "en")
		assert.Equal(t, once, twice, "input: %s", in)
	}
}

func TestCleanEmptyInput(t *testing.T) {
	s := newPlain()

	assert.Equal(t, "", s.Clean("", "en"))
	assert.Equal(t, "", s.Clean("   \n\t ", "en"))
}

func TestCleanDefaultsLanguage(t *testing.T) {
	s := New(Config{})

	out := s.Clean("Email me: someone@host.net", "")

	assert.Contains(t, out, EmailToken)
}

func TestCleanNERRedactsEntities(t *testing.T) {
	s := New(Config{Language: "en", EnableNER: true})

	in := "John Smith relocated from London to lead the payments platform."
	out := s.Clean(in, "en")

	assert.Contains(t, out, LocationToken)
	assert.NotContains(t, out, "London")
	assert.Contains(t, out, "payments platform")
}

func TestCleanNERSkipsRedactedSpans(t *testing.T) {
	s := New(Config{Language: "en", EnableNER: true})

	inputs := []string{
		"John Smith relocated from London to lead the payments platform.",
		"Maria Lopez ran the Berlin office, reachable at maria@corp.io.",
		"Experienced engineer working with distributed systems",
	}
	for _, in := range inputs {
		once := s.Clean(in, "en")
		twice := s.Clean(once, "en")
		assert.Equal(t, once, twice, "input: %s", in)
	}
}
