// Package lang holds the two supported languages and the text normalization
// used when comparing learner answers.
package lang

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Language is a supported content language
type Language string

const (
	English Language = "en"
	Hindi   Language = "hi"
)

var matcher = language.NewMatcher([]language.Tag{language.English, language.Hindi})

// Parse maps a BCP 47 string or Accept-Language header to a supported
// language, falling back to English.
func Parse(s string) Language {
	if s == "" {
		return English
	}
	tags, _, err := language.ParseAcceptLanguage(s)
	if err != nil || len(tags) == 0 {
		return English
	}
	_, idx, _ := matcher.Match(tags...)
	if idx == 1 {
		return Hindi
	}
	return English
}

// Tag returns the x/text language tag
func (l Language) Tag() language.Tag {
	if l == Hindi {
		return language.Hindi
	}
	return language.English
}

// SpeechLocale is the locale handed to the speech synthesizer
func (l Language) SpeechLocale() string {
	if l == Hindi {
		return "hi-IN"
	}
	return "en-IN"
}

// Valid reports whether l is one of the supported languages
func (l Language) Valid() bool {
	return l == English || l == Hindi
}

const devanagariZero = '०'

// ToArabicDigits rewrites Devanagari digits (०-९) as ASCII digits
func ToArabicDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= devanagariZero && r <= devanagariZero+9 {
			return '0' + (r - devanagariZero)
		}
		return r
	}, s)
}

// ToDevanagariDigits rewrites ASCII digits as Devanagari digits
func ToDevanagariDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return devanagariZero + (r - '0')
		}
		return r
	}, s)
}

// LocalizeDigits renders digits for display in l
func LocalizeDigits(s string, l Language) string {
	if l == Hindi {
		return ToDevanagariDigits(s)
	}
	return s
}

// Normalize prepares a value for answer comparison: NFC, trimmed, with
// Arabic digits.
func Normalize(s string) string {
	return ToArabicDigits(norm.NFC.String(strings.TrimSpace(s)))
}

// Equal compares two answer values after normalization
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
