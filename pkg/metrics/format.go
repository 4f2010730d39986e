package metrics

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/dustin/go-humanize"
)

// FormatLines renders a line count compactly: 950, 1.2K, 3.4M. Tooltips
// keep one decimal and an upper-case K, which humanize.SI does not produce.
func FormatLines(n uint64) string {
	switch {
	case n >= 1_000_000:
		return strconv.FormatFloat(float64(n)/1_000_000, 'f', 1, 64) + "M"
	case n >= 1_000:
		return strconv.FormatFloat(float64(n)/1_000, 'f', 1, 64) + "K"
	}
	return strconv.FormatUint(n, 10)
}

// FormatLinesExact renders a line count with thousands separators.
func FormatLinesExact(n uint64) string {
	if n > math.MaxInt64 {
		return humanize.BigComma(new(big.Int).SetUint64(n))
	}
	return humanize.Comma(int64(n))
}

// FormatAge renders an age in days as whole years, months or days.
func FormatAge(days uint64) string {
	switch {
	case days >= 365:
		return plural(days/365, "year")
	case days >= 30:
		return plural(days/30, "month")
	}
	return plural(days, "day")
}

func plural(n uint64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Summary is a one-line description of a record for tooltips and logs.
func Summary(r Record) string {
	s := fmt.Sprintf("%s · %s lines · %s", r.Name, FormatLines(r.TotalLines), FormatAge(r.AgeDays))
	if lang, ok := r.Primary(); ok {
		s += fmt.Sprintf(" · %s %.0f%%", lang.Name, lang.Percentage)
	}
	return s
}
