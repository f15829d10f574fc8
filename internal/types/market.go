package types

import "time"

// MarketData represents a single OHLCV bar for a symbol. Symbol holds the
// canonical symbol ID as stored in the data files.
type MarketData struct {
	Id     string    `yaml:"id" json:"id" csv:"id"`
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Mid returns the midpoint of the bar's high and low. Market orders fill
// at this price during a backtest.
func (m MarketData) Mid() float64 {
	return (m.High + m.Low) / 2
}
