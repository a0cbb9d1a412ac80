package scoring

// CombineOptions tunes the hybrid blend without changing its contract.
type CombineOptions struct {
	// TextMix is the base share of the composite taken from text analysis.
	// Zero means the default of 0.6. The effective mix shifts toward text
	// when quantitative coverage is thin.
	TextMix float64
}

const defaultTextMix = 0.6

// Composite is the body of one result record before persistence.
type Composite struct {
	Score      float64
	Grade      string
	GradeLabel string
	Percentile float64
	Confidence float64
	TextScore  float64
	QuantScore float64
}

type gradeBucket struct {
	threshold float64
	grade     string
	label     string
}

// Grade thresholds for the composite score, highest first.
var gradeBuckets = []gradeBucket{
	{95, "OK★★★", "최우수 등급 (TOP 1%)"},
	{90, "OK★★", "우수 등급 (TOP 5%)"},
	{85, "OK★", "우수+ 등급 (TOP 10%)"},
	{80, "OK A", "양호 등급 (TOP 20%)"},
	{75, "OK B+", "양호- 등급 (TOP 30%)"},
	{70, "OK B", "보통 등급 (TOP 40%)"},
	{60, "OK C", "개선필요 등급 (TOP 60%)"},
	{0, "OK D", "집중개선 등급 (하위 40%)"},
}

// Combine merges one record's dimension scores and quantitative sub-score
// into a composite. priorScores are the composite scores of the results the
// job has already produced, in append order; the new score is ranked against
// them. Identical inputs always produce identical outputs.
//
// The percentile is a running rank: it reflects only the records seen so
// far, so early records carry provisional values (the very first gets the
// midpoint). Callers wanting stable percentiles re-rank once the job is
// complete.
func Combine(text map[string]TextScore, quant QuantResult, priorScores []float64, opts CombineOptions) Composite {
	textOverall, meanConfidence := weighTextScores(text)

	mix := opts.TextMix
	if mix == 0 {
		mix = defaultTextMix
	}
	// Thin quantitative evidence shifts the blend toward text.
	switch quant.Coverage {
	case CoverageNone:
		mix += 0.2
	case CoverageLow:
		mix += 0.1
	}
	mix = clamp(mix, 0, 1)

	score := textOverall*mix + quant.Overall*(1-mix)

	confidence := 0.7*meanConfidence + 0.3*quant.Confidence
	confidence = clamp(confidence-5*float64(quant.Fallbacks), 0, 100)

	grade, label := gradeFor(score)

	return Composite{
		Score:      round1(score),
		Grade:      grade,
		GradeLabel: label,
		Percentile: RankPercentile(score, priorScores),
		Confidence: round1(confidence),
		TextScore:  round1(textOverall),
		QuantScore: round1(quant.Overall),
	}
}

// RankPercentile ranks score against peers: the share of peers it beats,
// with ties split. With no peers the midpoint stands in as a provisional
// value.
func RankPercentile(score float64, peers []float64) float64 {
	if len(peers) == 0 {
		return neutralScore
	}
	var below, equal float64
	for _, p := range peers {
		switch {
		case p < score:
			below++
		case p == score:
			equal++
		}
	}
	return round1(100 * (below + 0.5*equal) / float64(len(peers)))
}

func weighTextScores(text map[string]TextScore) (overall, meanConfidence float64) {
	var weightSum, scoreSum, confSum float64
	for name, ts := range text {
		dim, ok := LookupDimension(name)
		if !ok {
			continue
		}
		weightSum += dim.Weight
		scoreSum += dim.Weight * ts.Score
		confSum += ts.Confidence
	}
	if weightSum == 0 {
		return neutralScore, 0
	}
	// Weights are renormalized over the configured subset so partial
	// dimension selections still average to the same scale.
	return scoreSum / weightSum, confSum / float64(len(text))
}

func gradeFor(score float64) (string, string) {
	for _, b := range gradeBuckets {
		if score >= b.threshold {
			return b.grade, b.label
		}
	}
	last := gradeBuckets[len(gradeBuckets)-1]
	return last.grade, last.label
}

func round1(v float64) float64 {
	if v < 0 {
		return float64(int(v*10-0.5)) / 10
	}
	return float64(int(v*10+0.5)) / 10
}
