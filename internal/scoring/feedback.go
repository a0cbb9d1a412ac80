package scoring

import "fmt"

// Feedback is the optional qualitative commentary attached to a result when
// the job's feedback toggle is on.
type Feedback struct {
	Strengths       []string `json:"strengths,omitempty"`
	Improvements    []string `json:"improvements,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

const (
	strongDimensionThreshold = 80.0
	weakDimensionThreshold   = 60.0
)

// GenerateFeedback derives strengths and improvement areas from the
// per-dimension scores and the text/quant balance. Deterministic: dimensions
// are visited in their fixed order.
func GenerateFeedback(c Composite, text map[string]TextScore) Feedback {
	var fb Feedback

	if c.Score >= strongDimensionThreshold {
		fb.Strengths = append(fb.Strengths, "전반적으로 우수한 성과를 보이고 있습니다")
	}

	for _, name := range Dimensions() {
		ts, ok := text[name]
		if !ok {
			continue
		}
		switch {
		case ts.Score >= strongDimensionThreshold:
			fb.Strengths = append(fb.Strengths, fmt.Sprintf("%s 영역에서 뛰어난 역량을 보입니다", name))
		case ts.Score < weakDimensionThreshold:
			fb.Improvements = append(fb.Improvements, fmt.Sprintf("%s 영역의 개선이 필요합니다", name))
		}
	}

	switch {
	case c.TextScore > c.QuantScore:
		fb.Recommendations = append(fb.Recommendations, "정성적 평가가 우수하므로 실제 성과로 연결시키는 노력이 필요합니다")
	case c.QuantScore > c.TextScore:
		fb.Recommendations = append(fb.Recommendations, "정량적 성과는 우수하나 소프트 스킬 강화가 필요합니다")
	}

	return fb
}
