package slip

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Rates applied to the attention inputs.
const (
	SecondRate = 1000
	BonusBase  = 10000
)

// Slip is the input of one payroll slip.
type Slip struct {
	Name           string
	WatchSeconds   int
	WatchedPercent float64
	PrintedAt      time.Time
}

// Amounts are the money lines of a slip.
type Amounts struct {
	TimeIncome int64
	Bonus      int64
	Subtotal   int64
	Deduction  int64
	Net        int64
}

// Compute derives the money lines. The platform deducts the whole subtotal,
// so Net is always zero. Seconds outside the int32 range and percentages
// outside [0, 100] count as zero.
func Compute(watchSeconds int, watchedPercent float64) Amounts {
	if watchSeconds > math.MaxInt32 || watchSeconds < math.MinInt32 {
		watchSeconds = 0
	}
	if !(watchedPercent >= 0 && watchedPercent <= 100) {
		watchedPercent = 0
	}

	a := Amounts{
		TimeIncome: int64(watchSeconds) * SecondRate,
		// truncation toward zero
		Bonus: int64(BonusBase * watchedPercent / 100),
	}
	a.Subtotal = a.TimeIncome + a.Bonus
	a.Deduction = a.Subtotal
	a.Net = a.Subtotal - a.Deduction
	return a
}

// Grade returns the grade for the slip's watched percentage.
func (s Slip) Grade() Grade {
	return GradeFor(s.WatchedPercent)
}

// Amounts returns the computed money lines for the slip.
func (s Slip) Amounts() Amounts {
	return Compute(s.WatchSeconds, s.WatchedPercent)
}

// Money formats n as "$  1,234".
func Money(n int64) string {
	return "$  " + humanize.Comma(n)
}

// Percent formats p the way the slip prints it: whole numbers keep one
// decimal ("50.0"), others print their shortest form ("33.25").
func Percent(p float64) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
