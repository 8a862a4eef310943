package match

import "github.com/desertthunder/albumsync/internal/models"

// FindFile picks the best unclaimed file for title.
//
// Files whose name matches outrank files that only match through their path; within a tier the higher
// [Score] wins and remaining ties go to the earlier file. Claimed may be nil.
func FindFile(files []models.CandidateFile, title string, claimed map[string]bool) (models.CandidateFile, float64, bool) {
	var (
		best      models.CandidateFile
		bestScore float64
		bestTier  int
		found     bool
	)

	for _, f := range files {
		if claimed[f.ID] {
			continue
		}

		tier := 0
		switch {
		case Match(Stem(f.Filename), title):
			tier = 2
		case MatchFile(f, title):
			tier = 1
		default:
			continue
		}

		score := Score(title, f.Filename)
		if !found || tier > bestTier || (tier == bestTier && score > bestScore) {
			best, bestScore, bestTier, found = f, score, tier, true
		}
	}

	return best, bestScore, found
}

// PairAll assigns files to tracks greedily in track order. A file is given to at most one track;
// tracks left without a file get an empty FileID and zero confidence.
func PairAll(tracks []models.CanonicalTrack, files []models.CandidateFile) []models.TrackMatch {
	claimed := make(map[string]bool, len(files))
	matches := make([]models.TrackMatch, 0, len(tracks))

	for _, t := range tracks {
		m := models.TrackMatch{TrackID: t.ID, Status: models.TrackStatusPending}
		if f, score, ok := FindFile(files, t.Title, claimed); ok {
			claimed[f.ID] = true
			m.FileID = f.ID
			m.Confidence = score
		}
		matches = append(matches, m)
	}

	return matches
}
