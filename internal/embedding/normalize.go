package embedding

import (
	"strings"
	"unicode"
)

// Normalizer cleans text before it reaches a generator so trivially
// different inputs embed identically.
type Normalizer struct {
	TrimSpace      bool
	CollapseSpaces bool
	StripFormat    bool
	Lowercase      bool
}

// NewNormalizer returns the recommended settings: trim, collapse runs of
// whitespace, and drop zero-width format characters. Case is preserved.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		TrimSpace:      true,
		CollapseSpaces: true,
		StripFormat:    true,
	}
}

// Normalize applies the configured steps in a fixed order.
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return text
	}
	if n.StripFormat {
		text = stripFormatRunes(text)
	}
	if n.CollapseSpaces {
		text = strings.Join(strings.Fields(text), " ")
	}
	if n.TrimSpace {
		text = strings.TrimSpace(text)
	}
	if n.Lowercase {
		text = strings.ToLower(text)
	}
	return text
}

// stripFormatRunes removes Unicode format characters, zero-width joiners
// included, that carry no content.
func stripFormatRunes(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, text)
}
