// Package sanitizer removes personally identifying content from raw text
// before it reaches the chunker or either index. Redaction runs a fixed
// ordered set of high-precision patterns first, then an optional NLP
// entity-recognition pass for names and locations.
package sanitizer

import (
	"regexp"
	"strings"

	prose "github.com/jdkato/prose/v2"
)

// Redaction tokens, one per PII category. Tokens contain no digits or
// letters matched by the patterns below, which keeps Clean idempotent.
const (
	EmailToken      = "<EMAIL_REDACTED>"
	PhoneToken      = "<PHONE_REDACTED>"
	LinkToken       = "<LINK_REDACTED>"
	NameToken       = "<NAME_REDACTED>"
	LocationToken   = "<LOCATION_REDACTED>"
	CreditCardToken = "<CREDIT_CARD_REDACTED>"
	IBANToken       = "<IBAN_REDACTED>"
	IPToken         = "<IP_REDACTED>"
	DateToken       = "<DATE_REDACTED>"
)

// patterns run in order; earlier categories consume text that would
// otherwise be claimed by a looser later pattern (credit cards before
// phones, IPs before numeric dates).
var patterns = []struct {
	re    *regexp.Regexp
	token string
}{
	{regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]*\w`), EmailToken},
	{regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"']+`), LinkToken},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), IPToken},
	{regexp.MustCompile(`\b(?:\d{4}[ -]){3}\d{4}\b`), CreditCardToken},
	{regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`), IBANToken},
	{regexp.MustCompile(`(?:\+\d{1,3}[ .-]?)?(?:\(\d{1,4}\)[ .-]?)?\d{2,4}(?:[ .-]\d{2,4}){2,4}|\+\d{9,13}\b`), PhoneToken},
	{regexp.MustCompile(`\b\d{1,2}[./]\d{1,2}[./]\d{2,4}\b|(?i)\b(?:january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\.? \d{4}\b`), DateToken},
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// Allow word characters in any script plus a fixed punctuation set.
	// Everything else breaks tokenization and is replaced with a space.
	disallowedRe = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:()\-"'/&%$#@*+=<>\[\]{}]`)
)

// Config controls the optional entity-recognition pass. The regex
// categories always run.
type Config struct {
	// Language is the default locale used when Clean is called with an
	// empty language code.
	Language string
	// EnableNER turns on person/location detection. The underlying model
	// is English-only; other locales fall back to regex categories.
	EnableNER bool
}

// Sanitizer is a pure function of its inputs plus locale data. It is safe
// for concurrent use.
type Sanitizer struct {
	cfg Config
}

func New(cfg Config) *Sanitizer {
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	return &Sanitizer{cfg: cfg}
}

// Clean redacts PII spans, collapses whitespace runs, strips characters
// outside the allow-list, and trims. Cleaning already-clean text is a
// no-op beyond whitespace normalization.
func (s *Sanitizer) Clean(text, language string) string {
	if text == "" {
		return ""
	}
	if language == "" {
		language = s.cfg.Language
	}

	for _, p := range patterns {
		text = p.re.ReplaceAllString(text, p.token)
	}

	if s.cfg.EnableNER && language == "en" {
		text = s.redactEntities(text)
	}

	text = whitespaceRe.ReplaceAllString(text, " ")
	text = disallowedRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// redactEntities replaces person and location spans found by the NLP
// model. Spans that touch an existing redaction token are skipped so a
// second pass cannot change the output.
func (s *Sanitizer) redactEntities(text string) string {
	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return text
	}

	for _, ent := range doc.Entities() {
		span := strings.TrimSpace(ent.Text)
		if len(span) < 3 || strings.Contains(span, "REDACTED") || strings.ContainsAny(span, "<>") {
			continue
		}
		switch ent.Label {
		case "PERSON":
			text = strings.ReplaceAll(text, span, NameToken)
		case "GPE":
			text = strings.ReplaceAll(text, span, LocationToken)
		}
	}
	return text
}
