package fuzzy

import "strings"

const (
	// TitleExactBonus is added when query and title contain each other.
	TitleExactBonus = 0.5
	// ArtistMatchBonus is added when query and artist contain each other.
	ArtistMatchBonus = 0.3

	titleFuzzyWeight    = 0.4
	artistFuzzyWeight   = 0.2
	combinedFuzzyWeight = 0.3
)

// Scorer computes bounded relevance scores between a free-text query and a
// candidate's title/artist pair.
type Scorer struct {
	normalizer *Normalizer
}

func NewScorer() *Scorer {
	return &Scorer{normalizer: NewNormalizer()}
}

// Score returns a relevance score in [0.0, 1.0]. Exact substring containment
// of the query in the title or artist (or vice versa) is rewarded heavily;
// three fuzzy ratios provide graceful degradation for typos and queries that
// span both fields ("bohemian rhapsody queen").
func (s *Scorer) Score(query, title, artist string) float64 {
	queryClean := s.normalizer.Normalize(query)
	titleClean := s.normalizer.Normalize(title)
	artistClean := s.normalizer.Normalize(artist)

	titleExact := contains(queryClean, titleClean)
	artistMatch := contains(queryClean, artistClean)

	titleFuzzy := s.normalizer.Similarity(queryClean, titleClean)
	artistFuzzy := s.normalizer.Similarity(queryClean, artistClean)
	combinedFuzzy := s.normalizer.Similarity(queryClean, titleClean+" "+artistClean)

	score := 0.0
	if titleExact {
		score += TitleExactBonus
	}
	if artistMatch {
		score += ArtistMatchBonus
	}

	score += titleFuzzy*titleFuzzyWeight + artistFuzzy*artistFuzzyWeight + combinedFuzzy*combinedFuzzyWeight

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// contains reports substring containment in either direction.
func contains(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}
