package match

import (
	"math"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/albumsync/internal/models"
)

var audioExtensions = map[string]bool{
	".mp3": true, ".flac": true, ".wav": true, ".m4a": true, ".aac": true, ".ogg": true,
	".opus": true, ".alac": true, ".ape": true, ".wma": true, ".aiff": true, ".aif": true,
	".wv": true, ".dsf": true,
}

// IsAudioFile reports whether name carries an audio container extension.
func IsAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(path.Ext(name))]
}

// Stem removes a trailing audio extension from a filename. Other dots are kept so that titles like
// "Mr. Brightside" survive.
func Stem(name string) string {
	if IsAudioFile(name) {
		return strings.TrimSuffix(name, path.Ext(name))
	}
	return name
}

// Match reports whether candidate (a filename or path) plausibly names the track title.
//
// Any one rule suffices:
//   - normalized containment in either direction, when the shorter side is longer than 3 characters
//   - every significant word of the title appears in the candidate
//   - the title has 4 or more significant words and at least 3 appear
//   - the candidate has 2 or more significant words and at least 80% of them (min 2) appear in the title
func Match(candidate, title string) bool {
	nc, nt := Normalize(candidate), Normalize(title)
	if nc == "" || nt == "" {
		return false
	}

	if min(utf8.RuneCountInString(nc), utf8.RuneCountInString(nt)) > 3 &&
		(strings.Contains(nc, nt) || strings.Contains(nt, nc)) {
		return true
	}

	titleWords := SignificantWords(title)
	candidateTokens := wordSet(strings.Fields(nc))
	if n := len(titleWords); n > 0 {
		present := 0
		for _, w := range titleWords {
			if candidateTokens[w] {
				present++
			}
		}
		if present == n || (n >= 4 && present >= 3) {
			return true
		}
	}

	candidateWords := SignificantWords(candidate)
	if n := len(candidateWords); n >= 2 {
		titleTokens := wordSet(strings.Fields(nt))
		overlap := 0
		for _, w := range candidateWords {
			if titleTokens[w] {
				overlap++
			}
		}
		need := max(2, int(math.Ceil(0.8*float64(n))))
		if overlap >= need {
			return true
		}
	}

	return false
}

// MatchFile applies [Match] to the file's name, without its audio extension, and then to its path.
func MatchFile(file models.CandidateFile, title string) bool {
	return Match(Stem(file.Filename), title) || (file.Path != "" && Match(file.Path, title))
}

// Score estimates how well filename names title, in [0, 1].
//
// An exact normalized match scores 1.0 and containment 0.9. Otherwise the score is the number of
// shared significant words over the size of the larger word set.
func Score(title, filename string) float64 {
	if title != "" && title == filename {
		return 1
	}

	nt := Normalize(title)
	nf := Normalize(Stem(filename))
	if nt == "" || nf == "" {
		return 0
	}
	if nt == nf || nt == Normalize(filename) {
		return 1
	}
	if strings.Contains(nf, nt) || strings.Contains(nt, nf) {
		return 0.9
	}

	tw := SignificantWords(title)
	fw := SignificantWords(Stem(filename))
	if len(tw) == 0 || len(fw) == 0 {
		return 0
	}

	fset := wordSet(fw)
	overlap := 0
	for _, w := range tw {
		if fset[w] {
			overlap++
		}
	}
	return clamp(float64(overlap) / float64(max(len(tw), len(fw))))
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
