package types

import "time"

// Slice groups everything the host delivers for one simulated instant:
// the bars of every symbol that traded at that time and any delisting
// notifications that became due.
type Slice struct {
	Time       time.Time
	Bars       map[string]MarketData
	Delistings map[string]Delisting
}

// NewSlice creates an empty slice for the given simulated time.
func NewSlice(t time.Time) Slice {
	return Slice{
		Time:       t,
		Bars:       make(map[string]MarketData),
		Delistings: make(map[string]Delisting),
	}
}

// Bar returns the bar for the given symbol, if present.
func (s Slice) Bar(symbol Symbol) (MarketData, bool) {
	bar, ok := s.Bars[symbol.ID()]

	return bar, ok
}
