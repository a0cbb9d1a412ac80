package scoring

import (
	"fmt"
	"strings"
)

const (
	neutralScore = 50.0

	minScore = 10.0
	maxScore = 100.0

	positiveBoost   = 8.0
	negativePenalty = 10.0

	confidencePerSignal = 15.0
)

// TextScore is the outcome of scoring one free-text value against one
// dimension.
type TextScore struct {
	Dimension    string  `json:"dimension"`
	Score        float64 `json:"score"`
	Confidence   float64 `json:"confidence"`
	PositiveHits int     `json:"positive_hits"`
	NegativeHits int     `json:"negative_hits"`
}

// ScoreText scores text against one named dimension. It is a pure function
// of its inputs.
//
// Signals are case-insensitive substring occurrence counts, so repeated
// mentions compound. Negative evidence weighs heavier than positive: the
// score drops by 10 per negative hit but rises only 8 per positive hit.
// Empty or null-like text is not an error; it yields the neutral score with
// zero confidence.
func ScoreText(text, dimension string) (TextScore, error) {
	dim, ok := LookupDimension(dimension)
	if !ok {
		return TextScore{}, fmt.Errorf("unknown dimension %q", dimension)
	}

	ts := TextScore{Dimension: dimension, Score: neutralScore}
	if IsNullLike(text) {
		return ts, nil
	}

	lower := strings.ToLower(text)
	for _, kw := range dim.Positive {
		ts.PositiveHits += strings.Count(lower, strings.ToLower(kw))
	}
	for _, kw := range dim.Negative {
		ts.NegativeHits += strings.Count(lower, strings.ToLower(kw))
	}

	ts.Score = clamp(neutralScore+positiveBoost*float64(ts.PositiveHits)-negativePenalty*float64(ts.NegativeHits), minScore, maxScore)
	ts.Confidence = min(confidencePerSignal*float64(ts.PositiveHits+ts.NegativeHits), 100)
	return ts, nil
}

// ScoreTextAll scores text against the given dimensions, or against every
// dimension when dims is empty.
func ScoreTextAll(text string, dims []string) (map[string]TextScore, error) {
	if len(dims) == 0 {
		dims = Dimensions()
	}
	scores := make(map[string]TextScore, len(dims))
	for _, name := range dims {
		ts, err := ScoreText(text, name)
		if err != nil {
			return nil, err
		}
		scores[name] = ts
	}
	return scores, nil
}

// IsNullLike reports whether a cell value carries no usable signal.
func IsNullLike(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "nan", "null", "none":
		return true
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
