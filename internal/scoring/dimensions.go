package scoring

// Dimension is one evaluation category scored independently from free text.
// Weights across all dimensions sum to 1.0.
//
// Keyword sets derive from the production evaluation vocabulary. Entries that
// were substrings of one another within the same polarity (e.g. 성과 inside
// 성과가) were collapsed so occurrence counting does not count one piece of
// evidence twice.
type Dimension struct {
	Name     string
	Weight   float64
	Positive []string
	Negative []string
}

var dimensions = []Dimension{
	{
		Name:   "업무성과",
		Weight: 0.25,
		Positive: []string{
			"우수", "탁월", "뛰어남", "달성", "완료", "성공", "생산적",
			"효율적", "품질", "신속", "완벽", "전문적", "체계적", "완성도", "만족도",
		},
		Negative: []string{
			"부족", "미흡", "지연", "실패", "문제", "오류", "늦음", "비효율",
			"목표미달", "품질저하", "부정확", "미완성", "부실",
		},
	},
	{
		Name:   "KPI달성",
		Weight: 0.20,
		Positive: []string{
			"KPI달성", "지표달성", "목표초과", "성과우수", "실적우수", "매출증가",
			"효율향상", "생산성향상", "수치달성", "성장", "달성률", "초과",
		},
		Negative: []string{
			"KPI미달", "목표미달", "실적부진", "매출감소", "효율저하",
			"생산성저하", "수치부족", "하락", "퇴보", "미달",
		},
	},
	{
		Name:   "태도마인드",
		Weight: 0.15,
		Positive: []string{
			"적극적", "긍정적", "열정", "성실", "책임감", "진취적", "협조적",
			"성장지향", "학습의지", "도전정신", "주인의식", "헌신", "열심히", "노력",
		},
		Negative: []string{
			"소극적", "부정적", "무관심", "불성실", "회피", "냉소적",
			"비협조적", "안주", "현상유지", "수동적",
		},
	},
	{
		Name:   "커뮤니케이션",
		Weight: 0.15,
		Positive: []string{
			"명확", "경청", "소통", "전달력", "이해", "설득",
			"협의", "조율", "공유", "투명", "개방적", "의사소통", "원활",
		},
		Negative: []string{
			"불명확", "무시", "오해", "단절", "침묵",
			"독단", "일방적", "폐쇄적", "소통부족",
		},
	},
	{
		Name:   "리더십협업",
		Weight: 0.10,
		Positive: []string{
			"리더십", "팀워크", "협업", "지원", "멘토링", "동기부여",
			"화합", "팀빌딩", "위임", "코칭", "영향력", "협력", "팀플레이",
		},
		Negative: []string{
			"독단", "갈등", "비협조", "소외", "분열", "대립", "이기주의",
			"방해", "고립", "개인주의",
		},
	},
	{
		Name:   "전문성학습",
		Weight: 0.08,
		Positive: []string{
			"전문성", "숙련", "기술", "지식", "학습", "발전", "역량",
			"향상", "습득", "개발", "노하우", "스킬", "경험",
		},
		Negative: []string{
			"미숙", "낙후", "무지", "정체", "무능력",
			"기초부족", "역량부족", "실력부족",
		},
	},
	{
		Name:   "창의혁신",
		Weight: 0.05,
		Positive: []string{
			"창의", "혁신", "아이디어", "효율화", "최적화", "새로운",
			"도전", "변화", "발상", "독창적", "창조적",
		},
		Negative: []string{
			"보수적", "경직", "틀에박힌", "변화거부", "기존방식", "관습적",
			"고정적", "변화없이",
		},
	},
	{
		Name:   "조직적응",
		Weight: 0.02,
		Positive: []string{
			"적응", "융화", "조화", "규칙준수", "윤리", "신뢰",
			"안정", "일관성", "성실성",
		},
		Negative: []string{
			"부적응", "갈등", "위반", "비윤리", "불신", "일탈",
			"문제행동", "규정위반",
		},
	},
}

var dimensionIndex = func() map[string]Dimension {
	idx := make(map[string]Dimension, len(dimensions))
	for _, d := range dimensions {
		idx[d.Name] = d
	}
	return idx
}()

// Dimensions returns the dimension names in their fixed order.
func Dimensions() []string {
	names := make([]string, len(dimensions))
	for i, d := range dimensions {
		names[i] = d.Name
	}
	return names
}

// LookupDimension returns the dimension definition by name.
func LookupDimension(name string) (Dimension, bool) {
	d, ok := dimensionIndex[name]
	return d, ok
}
