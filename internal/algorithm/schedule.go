package algorithm

import (
	"time"

	"github.com/rxtech-lab/argo-options/internal/types"
)

// DateRule selects the dates a scheduled callback fires on.
type DateRule struct {
	Dates []time.Time
}

// OnDate returns a rule firing on a single calendar date.
func OnDate(year int, month time.Month, day int) DateRule {
	return DateRule{
		Dates: []time.Time{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)},
	}
}

// TimeRule selects the time of day a scheduled callback fires at.
// MarketOpenOffset-based rules are resolved against the host's configured
// market open for the rule's symbol.
type TimeRule struct {
	// Symbol anchors market-open relative rules. Zero value for fixed times.
	Symbol types.Symbol
	// AfterMarketOpen is the offset from market open. Only meaningful if
	// RelativeToOpen is true.
	AfterMarketOpen time.Duration
	RelativeToOpen  bool
	// TimeOfDay is the fixed fire time for absolute rules.
	TimeOfDay time.Duration
}

// AfterMarketOpen returns a rule firing the given duration after the
// symbol's market opens.
func AfterMarketOpen(symbol types.Symbol, offset time.Duration) TimeRule {
	return TimeRule{
		Symbol:          symbol,
		AfterMarketOpen: offset,
		RelativeToOpen:  true,
	}
}

// AtTime returns a rule firing at a fixed time of day.
func AtTime(hour, minute int) TimeRule {
	return TimeRule{
		TimeOfDay: time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute,
	}
}

// FireTimes resolves the concrete fire instants for the rule pair.
// marketOpen is the host's configured market open as an offset from
// midnight UTC.
func FireTimes(dateRule DateRule, timeRule TimeRule, marketOpen time.Duration) []time.Time {
	offset := timeRule.TimeOfDay
	if timeRule.RelativeToOpen {
		offset = marketOpen + timeRule.AfterMarketOpen
	}

	times := make([]time.Time, 0, len(dateRule.Dates))
	for _, date := range dateRule.Dates {
		times = append(times, date.Add(offset))
	}

	return times
}
