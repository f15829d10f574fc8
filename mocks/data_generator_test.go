package mocks

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioSymbols() (types.Symbol, types.Symbol) {
	es := types.NewFuture(types.FutureSP500EMini, types.MarketCME, time.Date(2021, 3, 19, 0, 0, 0, 0, time.UTC))
	put := types.NewFutureOption(es, types.MarketCME, types.OptionStyleAmerican, types.OptionRightPut, decimal.NewFromInt(3200), es.Expiry)

	return es, put
}

func TestGenerateIsDeterministicForFixedSeed(t *testing.T) {
	config := DefaultConfig()
	config.Count = 100

	first := NewDataGenerator(42).Generate(config)
	second := NewDataGenerator(42).Generate(config)

	assert.Equal(t, first, second)
}

func TestGenerateProducesValidBars(t *testing.T) {
	config := DefaultConfig()
	config.Count = 500

	data := NewDataGenerator(7).Generate(config)
	require.Len(t, data, 500)

	for _, bar := range data {
		assert.GreaterOrEqual(t, bar.High, bar.Open)
		assert.GreaterOrEqual(t, bar.High, bar.Close)
		assert.LessOrEqual(t, bar.Low, bar.Open)
		assert.LessOrEqual(t, bar.Low, bar.Close)
		assert.Greater(t, bar.Low, 0.0)
	}
}

func TestGenerateDailyTrendSkipsWeekends(t *testing.T) {
	data := GenerateDailyTrend("usa:AAPL",
		time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 3, 13, 0, 0, 0, 0, time.UTC),
		100, 110, 0.01,
	)

	// Two full trading weeks.
	require.Len(t, data, 10)

	for _, bar := range data {
		assert.NotEqual(t, time.Saturday, bar.Time.Weekday())
		assert.NotEqual(t, time.Sunday, bar.Time.Weekday())
		assert.Equal(t, 16, bar.Time.Hour())
	}

	assert.InDelta(t, 100.0, (data[0].High+data[0].Low)/2, 1e-6)
	assert.InDelta(t, 110.0, (data[len(data)-1].High+data[len(data)-1].Low)/2, 1e-6)
}

func TestShortPutScenarioData(t *testing.T) {
	es, put := scenarioSymbols()
	data := ShortPutScenarioData(es, put)
	require.NotEmpty(t, data)

	var firstPutBar *types.MarketData

	var lastESBar *types.MarketData

	var lastBar types.MarketData

	for i := range data {
		bar := data[i]
		if bar.Symbol == put.ID() && firstPutBar == nil {
			firstPutBar = &data[i]
		}

		if bar.Symbol == es.ID() {
			lastESBar = &data[i]
		}

		if bar.Time.After(lastBar.Time) {
			lastBar = bar
		}
	}

	// The scheduled sell fills against this bar at its midpoint.
	require.NotNil(t, firstPutBar)
	assert.Equal(t, time.Date(2020, 9, 22, 16, 0, 0, 0, time.UTC), firstPutBar.Time)
	assert.InDelta(t, 14.25, (firstPutBar.High+firstPutBar.Low)/2, 1e-6)

	// The underlying settles above the 3200 strike, keeping the put OTM.
	require.NotNil(t, lastESBar)
	assert.Greater(t, lastESBar.Close, 3200.0)
	assert.Equal(t, time.Date(2021, 3, 18, 16, 0, 0, 0, time.UTC), lastESBar.Time)

	// The anchor keeps slices flowing past the final delisting date.
	assert.True(t, lastBar.Time.After(time.Date(2021, 3, 20, 0, 0, 0, 0, time.UTC)))
}

func TestShortPutScenarioChainContainsTarget(t *testing.T) {
	es, put := scenarioSymbols()
	contracts := ShortPutScenarioChain(es)

	found := false

	for _, contract := range contracts {
		if contract.Equal(put) {
			found = true
		}
	}

	assert.True(t, found)
	assert.Len(t, contracts, 22)
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bars.csv")

	data := []types.MarketData{
		{Symbol: "usa:AAPL", Time: time.Date(2020, 3, 3, 16, 0, 0, 0, time.UTC), Open: 101, High: 102, Low: 100, Close: 101, Volume: 100},
		{Symbol: "usa:AAPL", Time: time.Date(2020, 3, 2, 16, 0, 0, 0, time.UTC), Open: 100, High: 101, Low: 99, Close: 100, Volume: 100},
	}
	require.NoError(t, WriteCSV(path, data))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "time,symbol,open,high,low,close,volume", lines[0])
	assert.Contains(t, lines[1], "2020-03-02")
	assert.Contains(t, lines[2], "2020-03-03")

	records, err := csv.NewReader(strings.NewReader(string(content))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"2020-03-02 16:00:00", "usa:AAPL", "100", "101", "99", "100", "100"}, records[1])
}

func TestWriteChainCSV(t *testing.T) {
	es, _ := scenarioSymbols()

	dir := t.TempDir()
	path := filepath.Join(dir, "chains.csv")
	require.NoError(t, WriteChainCSV(path, ShortPutScenarioChain(es)))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	assert.Len(t, lines, 23)
	assert.Contains(t, string(content), "ES,cme,2021-03-19,AMERICAN,PUT,3200,2021-03-19")
}
