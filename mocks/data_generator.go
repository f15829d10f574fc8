// Package mocks provides deterministic market data generation for tests
// and regression runs. Nothing here touches a live data provider.
package mocks

import (
	"encoding/csv"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/shopspring/decimal"
)

// DataGenerator generates realistic market data for testing and benchmarking.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how market data is generated.
type GeneratorConfig struct {
	// Symbol is the canonical symbol ID the bars are written under.
	Symbol string
	// StartTime is the beginning of the data series
	StartTime time.Time
	// Interval is the duration between each bar
	Interval time.Duration
	// Count is the number of data points to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% typical daily volatility)
	Volatility float64
	// Trend is the drift factor (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "TEST",
		StartTime:      time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Interval:       time.Minute,
		Count:          10000,
		InitialPrice:   100.0,
		Volatility:     0.002,
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate creates a slice of MarketData based on the configuration.
// The generated data follows a geometric Brownian motion model for
// realistic price movements.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.MarketData {
	data := make([]types.MarketData, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for normally distributed returns.
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count)

		close := open * (1 + priceChange + drift)
		if close <= 0 {
			close = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, close) + highExtension

		low := math.Min(open, close) - lowExtension
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance

		volume := config.VolumeBase * volumeVariation
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		data[i] = types.MarketData{
			Symbol: config.Symbol,
			Time:   currentTime,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(close, 4),
			Volume: roundToDecimals(volume, 2),
		}

		currentPrice = close
		currentTime = currentTime.Add(config.Interval)
	}

	return data
}

// barStampHour is the time of day daily bars are stamped at.
const barStampHour = 16

// GenerateDailyTrend produces one bar per weekday between start and end
// (inclusive), stamped at 16:00 UTC, with the bar midpoint moving
// linearly from startPrice to endPrice. spread is the fractional
// high/low distance around the midpoint. Fully deterministic.
func GenerateDailyTrend(symbolID string, start, end time.Time, startPrice, endPrice, spread float64) []types.MarketData {
	days := weekdaysBetween(start, end)
	if len(days) == 0 {
		return nil
	}

	data := make([]types.MarketData, 0, len(days))

	for i, day := range days {
		progress := 0.0
		if len(days) > 1 {
			progress = float64(i) / float64(len(days)-1)
		}

		mid := startPrice + (endPrice-startPrice)*progress
		high := mid * (1 + spread)
		low := mid * (1 - spread)

		open := mid
		if i > 0 {
			open = data[i-1].Close
		}

		data = append(data, types.MarketData{
			Symbol: symbolID,
			Time:   time.Date(day.Year(), day.Month(), day.Day(), barStampHour, 0, 0, 0, time.UTC),
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(mid, 4),
			Volume: 1000,
		})
	}

	return data
}

func weekdaysBetween(start, end time.Time) []time.Time {
	var days []time.Time

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}

		days = append(days, day)
	}

	return days
}

// ShortPutScenarioData builds the full bar set for the short put expiry
// scenario: an AAPL anchor running past the option's delisting, the ES
// March 2021 future trending up so a 3200 put finishes out of the money,
// and the put's premium decaying towards zero. The first option bar falls
// on 2020-09-22 with a midpoint of 14.25.
func ShortPutScenarioData(es types.Symbol, put types.Symbol) []types.MarketData {
	var data []types.MarketData

	aapl := types.NewEquity("AAPL", types.MarketUSA)
	data = append(data, GenerateDailyTrend(
		aapl.ID(),
		time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 3, 30, 0, 0, 0, 0, time.UTC),
		110, 130, 0.01,
	)...)

	// Last trading day before the 2021-03-19 expiry.
	data = append(data, GenerateDailyTrend(
		es.ID(),
		time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 3, 18, 0, 0, 0, 0, time.UTC),
		3300, 3800, 0.005,
	)...)

	data = append(data, GenerateDailyTrend(
		put.ID(),
		time.Date(2020, 9, 22, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 3, 18, 0, 0, 0, 0, time.UTC),
		14.25, 0.05, 0.05,
	)...)

	return data
}

// ShortPutScenarioChain lists the put and call contracts on the ES March
// 2021 future at strikes bracketing the 3200 target.
func ShortPutScenarioChain(es types.Symbol) []types.Symbol {
	var contracts []types.Symbol

	for strike := 3000; strike <= 3500; strike += 50 {
		for _, right := range []types.OptionRight{types.OptionRightPut, types.OptionRightCall} {
			contracts = append(contracts, types.NewFutureOption(
				es,
				types.MarketCME,
				types.OptionStyleAmerican,
				right,
				decimal.NewFromInt(int64(strike)),
				es.Expiry,
			))
		}
	}

	return contracts
}

// WriteCSV writes bars to a CSV file in the datasource's expected layout,
// ordered by time then symbol.
func WriteCSV(path string, data []types.MarketData) error {
	sorted := make([]types.MarketData, len(data))
	copy(sorted, data)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Time.Equal(sorted[j].Time) {
			return sorted[i].Time.Before(sorted[j].Time)
		}

		return sorted[i].Symbol < sorted[j].Symbol
	})

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write([]string{"time", "symbol", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}

	for _, bar := range sorted {
		record := []string{
			bar.Time.Format("2006-01-02 15:04:05"),
			bar.Symbol,
			formatPrice(bar.Open),
			formatPrice(bar.High),
			formatPrice(bar.Low),
			formatPrice(bar.Close),
			formatPrice(bar.Volume),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()

	return writer.Error()
}

// WriteChainCSV writes option contracts to a CSV file in the chain
// provider's expected layout.
func WriteChainCSV(path string, contracts []types.Symbol) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write([]string{"ticker", "market", "underlying_expiry", "style", "right", "strike", "expiry"}); err != nil {
		return err
	}

	for _, contract := range contracts {
		if contract.Underlying == nil {
			continue
		}

		record := []string{
			contract.Ticker,
			string(contract.Market),
			contract.Underlying.Expiry.Format("2006-01-02"),
			string(contract.Style),
			string(contract.Right),
			contract.Strike.String(),
			contract.Expiry.Format("2006-01-02"),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()

	return writer.Error()
}

func formatPrice(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
