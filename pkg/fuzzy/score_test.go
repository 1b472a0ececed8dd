package fuzzy

import "testing"

func TestScorer_Score_Bounds(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name   string
		query  string
		title  string
		artist string
	}{
		{name: "All empty", query: "", title: "", artist: ""},
		{name: "Empty query", query: "", title: "Bohemian Rhapsody", artist: "Queen"},
		{name: "Empty candidate", query: "bohemian", title: "", artist: ""},
		{name: "Exact match everything", query: "Bohemian Rhapsody", title: "Bohemian Rhapsody", artist: "Bohemian Rhapsody"},
		{name: "Unicode input", query: "björk", title: "Jóga", artist: "Björk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := scorer.Score(tt.query, tt.title, tt.artist)
			if score < 0.0 || score > 1.0 {
				t.Errorf("Score(%q, %q, %q) = %v, outside [0, 1]", tt.query, tt.title, tt.artist, score)
			}
		})
	}
}

func TestScorer_Score_ExactTitle(t *testing.T) {
	scorer := NewScorer()

	score := scorer.Score("Bohemian Rhapsody", "Bohemian Rhapsody", "Queen")
	if score < 0.8 {
		t.Errorf("exact title should score at least 0.8, got %v", score)
	}
}

func TestScorer_Score_NoOverlap(t *testing.T) {
	scorer := NewScorer()

	score := scorer.Score("xyz123", "Bohemian Rhapsody", "Queen")
	if score >= 0.3 {
		t.Errorf("unrelated query should score below 0.3, got %v", score)
	}
}

func TestScorer_Score_QuerySpansTitleAndArtist(t *testing.T) {
	scorer := NewScorer()

	combined := scorer.Score("bohemian rhapsody queen", "Bohemian Rhapsody", "Queen")
	unrelated := scorer.Score("bohemian rhapsody queen", "Something Else", "Nobody")

	if combined <= unrelated {
		t.Errorf("combined-field query should outrank unrelated candidate: %v <= %v", combined, unrelated)
	}
}

func TestScorer_Score_FeatAnnotationIgnored(t *testing.T) {
	scorer := NewScorer()

	plain := scorer.Score("Song", "Song", "Artist")
	annotated := scorer.Score("Song", "Song (feat. Someone)", "Artist")

	if plain != annotated {
		t.Errorf("feat annotation should not affect score: %v != %v", plain, annotated)
	}
}
