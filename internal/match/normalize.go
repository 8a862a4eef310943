package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var annotationPattern = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]|\{[^}]*\}`)

// stopWords are short function words across the languages commonly found in release names.
var stopWords = map[string]bool{
	// en
	"a": true, "an": true, "the": true, "and": true, "of": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "by": true, "with": true, "from": true, "is": true,
	"or": true, "feat": true, "ft": true, "vs": true,
	// es / pt
	"el": true, "la": true, "los": true, "las": true, "un": true, "una": true, "y": true,
	"de": true, "del": true, "en": true, "con": true, "por": true, "o": true, "os": true,
	"as": true, "e": true, "do": true, "da": true, "no": true, "na": true, "um": true,
	// fr
	"le": true, "les": true, "une": true, "des": true, "du": true, "et": true, "au": true,
	"aux": true, "l": true, "d": true,
	// de
	"der": true, "die": true, "das": true, "ein": true, "eine": true, "und": true,
	"im": true, "mit": true, "von": true, "zu": true,
	// it
	"il": true, "lo": true, "gli": true, "i": true, "di": true, "della": true, "nel": true,
}

// formatLabels are container, codec and release-packaging tokens that say nothing about a title.
var formatLabels = map[string]bool{
	"mp3": true, "flac": true, "wav": true, "m4a": true, "aac": true, "ogg": true,
	"opus": true, "alac": true, "ape": true, "wma": true, "aiff": true, "kbps": true,
	"24bit": true, "16bit": true, "cd": true, "cd1": true, "cd2": true, "disc": true,
	"disk": true, "cue": true, "log": true, "vbr": true, "cbr": true, "web": true,
	"lossless": true, "khz": true, "320": true,
}

// Normalize lowercases text, strips diacritics, drops bracketed annotations and apostrophes, turns
// any other punctuation into spaces and collapses whitespace.
//
// Normalize is idempotent.
func Normalize(text string) string {
	s := strings.ToLower(text)

	// Transformers carry state, so each call builds its own chain.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}

	s = annotationPattern.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\'' || r == '’' || r == '`' || r == 'ʼ':
			return -1
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return r
		default:
			return ' '
		}
	}, s)

	return strings.Join(strings.Fields(s), " ")
}

// SignificantWords returns the distinct tokens of the normalized text in order of appearance,
// without stop words, pure numbers and format labels.
func SignificantWords(text string) []string {
	tokens := strings.Fields(Normalize(text))
	words := make([]string, 0, len(tokens))
	seen := make(map[string]bool, len(tokens))

	for _, tok := range tokens {
		if seen[tok] || stopWords[tok] || formatLabels[tok] || isNumber(tok) {
			continue
		}
		seen[tok] = true
		words = append(words, tok)
	}
	return words
}

func isNumber(tok string) bool {
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return tok != ""
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
