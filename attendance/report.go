package attendance

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// REPORT - Statistics over one reconciled day
// =============================================================================

// Report summarizes a day. Total counts every listed entry, including
// students with no record yet; Rate is present/total*100, 0 for an empty day.
type Report struct {
	Date    Date
	Total   int
	Present int
	Absent  int
	Unset   int
	Rate    decimal.Decimal
	Entries []Entry
}

var hundred = decimal.NewFromInt(100)

// BuildReport counts statuses over entries.
func BuildReport(d Date, entries []Entry) Report {
	rep := Report{Date: d, Total: len(entries), Entries: entries}
	for _, e := range entries {
		switch e.Status {
		case StatusPresent:
			rep.Present++
		case StatusAbsent:
			rep.Absent++
		default:
			rep.Unset++
		}
	}
	rep.Rate = AttendanceRate(rep.Present, rep.Total)
	return rep
}

// AttendanceRate returns present/total*100 rounded to two places.
func AttendanceRate(present, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(present)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}

// RateFloat is Rate as a float64 for JSON and display.
func (r Report) RateFloat() float64 {
	f, _ := r.Rate.Float64()
	return f
}
