// Package lang implements a small heuristic language classifier for reply
// text. It is deliberately not an ML detector: the bot only needs to pick a
// text-to-speech voice, and a script/diacritic scan is enough for that.
package lang

import (
	"unicode"

	"golang.org/x/text/language"
)

// Supported tags. Default is what everything falls back to when no rule
// matches, including the empty string.
var (
	Persian = language.Persian
	Turkish = language.Turkish
	English = language.English

	Default = Persian
)

// Characters specific to Turkish orthography. Plain Latin letters shared
// with English are intentionally absent.
const turkishDiacritics = "çğıöşüÇĞİÖŞÜ"

// Detect maps free text to a language tag. Rule order is significant:
// Arabic-script presence wins over Turkish diacritics, which win over
// generic Latin presence. The function is pure and total over all input.
func Detect(text string) language.Tag {
	hasTurkish := false
	hasLatin := false

	for _, r := range text {
		if unicode.In(r, unicode.Arabic) {
			return Persian
		}
		if !hasTurkish {
			for _, d := range turkishDiacritics {
				if r == d {
					hasTurkish = true
					break
				}
			}
		}
		if !hasLatin && unicode.In(r, unicode.Latin) {
			hasLatin = true
		}
	}

	switch {
	case hasTurkish:
		return Turkish
	case hasLatin:
		return English
	default:
		return Default
	}
}
