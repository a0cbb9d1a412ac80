package scoring

import (
	"strconv"
	"strings"
)

// FieldKind is the declared semantic of a quantitative column.
type FieldKind string

const (
	FieldKindGrade   FieldKind = "grade"
	FieldKindScore   FieldKind = "score"
	FieldKindRate    FieldKind = "rate"
	FieldKindCount   FieldKind = "count"
	FieldKindUnknown FieldKind = "unknown"
)

// Per-kind blending weights: an explicit grade is the strongest signal, a
// raw count the weakest.
var fieldKindWeights = map[FieldKind]float64{
	FieldKindGrade: 0.4,
	FieldKindScore: 0.3,
	FieldKindRate:  0.2,
	FieldKindCount: 0.1,
}

// Coverage describes how much quantitative evidence a record carried.
type Coverage string

const (
	CoverageNone   Coverage = "none"
	CoverageLow    Coverage = "low"
	CoverageMedium Coverage = "medium"
	CoverageHigh   Coverage = "high"
)

// QuantResult aggregates the normalized quantitative fields of one record.
type QuantResult struct {
	Overall    float64            `json:"overall"`
	Fields     map[string]float64 `json:"fields,omitempty"`
	Coverage   Coverage           `json:"coverage"`
	Confidence float64            `json:"confidence"`
	Fallbacks  int                `json:"fallbacks"`
}

// ClassifyColumn infers the field semantic from the column name, matching
// the vocabulary the upload collaborator uses.
func ClassifyColumn(name string) FieldKind {
	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, "등급", "grade", "평가", "level"):
		return FieldKindGrade
	case containsAny(lower, "점수", "score", "평점", "rating"):
		return FieldKindScore
	case containsAny(lower, "달성률", "비율", "rate", "%", "percent"):
		return FieldKindRate
	case containsAny(lower, "횟수", "건수", "count", "회", "번"):
		return FieldKindCount
	default:
		return FieldKindUnknown
	}
}

// AnalyzeQuantitative normalizes every configured quantitative column of a
// row onto the 0-100 scale and blends them into one sub-score. Malformed
// cells never fail the record: they fall back to the neutral default and
// only depress the confidence.
func AnalyzeQuantitative(row map[string]string, columns []string) QuantResult {
	res := QuantResult{Fields: map[string]float64{}, Coverage: CoverageNone}

	var totalScore, totalWeight float64
	for _, col := range columns {
		value, ok := row[col]
		if !ok || IsNullLike(value) {
			continue
		}

		kind := ClassifyColumn(col)
		if kind == FieldKindUnknown {
			// Untyped numeric columns count as raw scores.
			kind = FieldKindScore
		}

		score, parsed := normalizeField(kind, value)
		if !parsed {
			res.Fallbacks++
		}

		weight := fieldKindWeights[kind]
		res.Fields[col] = score
		totalScore += score * weight
		totalWeight += weight
	}

	if totalWeight > 0 {
		res.Overall = totalScore / totalWeight
		res.Confidence = min(totalWeight*20, 100)
	} else {
		res.Overall = neutralScore
	}
	res.Confidence = max(0, res.Confidence-confidencePerSignal*float64(res.Fallbacks))
	res.Coverage = assessCoverage(len(res.Fields))
	return res
}

func normalizeField(kind FieldKind, value string) (float64, bool) {
	switch kind {
	case FieldKindGrade:
		return NormalizeGrade(value)
	case FieldKindRate:
		return NormalizeRate(value)
	case FieldKindCount:
		return NormalizeCount(value)
	default:
		return NormalizeScore(value)
	}
}

// gradeBands maps letter and descriptive grades onto fixed score bands.
var gradeBands = map[string]float64{
	"S": 100,
	"A+": 100, "A": 95, "A-": 90,
	"B+": 85, "B": 80, "B-": 75,
	"C+": 70, "C": 65, "C-": 60,
	"D+": 55, "D": 50, "D-": 45,
	"F": 30,
	"1": 100, "2": 80, "3": 60, "4": 40, "5": 20,
	"우수": 90, "양호": 75, "보통": 60, "미흡": 45, "부족": 30,
	"최우수": 100, "상": 85, "중": 65, "하": 45,
}

// NormalizeGrade maps a letter, numeric-scale, or descriptive grade onto
// 0-100. Unrecognized literals yield the neutral default and ok=false.
func NormalizeGrade(value string) (float64, bool) {
	grade := strings.ToUpper(strings.TrimSpace(value))
	if grade == "" {
		return neutralScore, false
	}
	if score, ok := gradeBands[grade]; ok {
		return score, true
	}
	if score, err := strconv.ParseFloat(grade, 64); err == nil && score >= 0 && score <= 100 {
		return score, true
	}
	return neutralScore, false
}

// NormalizeScore rescales a raw numeric score of unknown range onto 0-100:
// 0-1 ratios, 1-5 rating scales, 0-10 scales and plain 0-100 values are all
// recognized; anything else is clamped.
func NormalizeScore(value string) (float64, bool) {
	cleaned := strings.NewReplacer("%", "", "점", "").Replace(strings.TrimSpace(value))
	score, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return neutralScore, false
	}

	switch {
	case score >= 0 && score <= 1:
		return score * 100, true
	case score >= 0 && score <= 5:
		return (score - 1) * 25, true
	case score >= 0 && score <= 10:
		return score * 10, true
	case score >= 0 && score <= 100:
		return score, true
	default:
		return clamp(score, 0, 100), true
	}
}

// NormalizeRate parses a percentage value and clamps it to [0,100].
// Out-of-range achievements (e.g. 120%) clamp rather than fail.
func NormalizeRate(value string) (float64, bool) {
	cleaned := strings.NewReplacer("%", "", "퍼센트", "").Replace(strings.TrimSpace(value))
	percent, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return neutralScore, false
	}
	if percent >= 0 && percent <= 1 {
		return percent * 100, true
	}
	return clamp(percent, 0, 100), true
}

// NormalizeCount buckets an occurrence count onto the score scale.
func NormalizeCount(value string) (float64, bool) {
	cleaned := strings.NewReplacer("회", "", "건", "", "번", "").Replace(strings.TrimSpace(value))
	count, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return neutralScore, false
	}
	switch {
	case count <= 0:
		return 30, true
	case count <= 2:
		return 50, true
	case count <= 5:
		return 70, true
	case count <= 10:
		return 85, true
	default:
		return 95, true
	}
}

func assessCoverage(fieldCount int) Coverage {
	switch {
	case fieldCount >= 5:
		return CoverageHigh
	case fieldCount >= 3:
		return CoverageMedium
	case fieldCount >= 1:
		return CoverageLow
	default:
		return CoverageNone
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
