// Package slip computes and draws the attention payroll slip.
package slip

// Grade is the letter grade awarded for a watched percentage.
type Grade string

// Grades from best to worst.
const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeE Grade = "E"
)

// GradeInfo is the job title and description printed for a grade.
type GradeInfo struct {
	Title string
	Lines []string
}

var gradeInfo = map[Grade]GradeInfo{
	GradeA: {
		Title: "榮譽終身奴隸",
		Lines: []string{"你就是一台會呼吸的印鈔機！", "你的血汗淚，剛好夠我買下私人飛機～✈️✈️"},
	},
	GradeB: {
		Title: "過勞模範員工",
		Lines: []string{"你的視網膜已經過熱，但請繼續保持，", "老闆的新跑車靠你了！"},
	},
	GradeC: {
		Title: "責任制社畜",
		Lines: []string{"表現平庸，乖乖貢獻眼球，", "就是你這種人撐起了我們的股價。"},
	},
	GradeD: {
		Title: "免洗實習生",
		Lines: []string{"隨用隨丟，你的注意力", "比便利商店的塑膠袋還廉價。"},
	},
	GradeE: {
		Title: "試用期淘汰者",
		Lines: []string{"連被我們利用的價值都沒有，滾吧。"},
	},
}

// GradeFor maps a watched percentage to a grade. Boundaries are inclusive:
// 80 is an A, 79.99 is a B.
func GradeFor(percent float64) Grade {
	switch {
	case percent >= 80:
		return GradeA
	case percent >= 60:
		return GradeB
	case percent >= 40:
		return GradeC
	case percent >= 20:
		return GradeD
	default:
		return GradeE
	}
}

// Info returns the title and description lines for g.
// Unknown grades get the E entry.
func (g Grade) Info() GradeInfo {
	if info, ok := gradeInfo[g]; ok {
		return info
	}
	return gradeInfo[GradeE]
}
