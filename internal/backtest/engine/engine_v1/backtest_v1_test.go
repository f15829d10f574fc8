package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-options/internal/algorithm"
	backtest "github.com/rxtech-lab/argo-options/internal/backtest/engine"
	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-options/internal/logger"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// noopAlgorithm is a minimal algorithm used to exercise the engine's
// lifecycle without trading.
type noopAlgorithm struct {
	minVersion  string
	dataSlices  []types.Slice
	ended       bool
	initialized bool
}

func (a *noopAlgorithm) Name() string             { return "noop" }
func (a *noopAlgorithm) MinEngineVersion() string { return a.minVersion }

func (a *noopAlgorithm) Initialize(api algorithm.HostAPI) error {
	a.initialized = true

	return nil
}

func (a *noopAlgorithm) OnData(slice types.Slice) error {
	a.dataSlices = append(a.dataSlices, slice)

	return nil
}

func (a *noopAlgorithm) OnOrderEvent(event types.OrderEvent) error { return nil }

func (a *noopAlgorithm) OnEndOfAlgorithm() error {
	a.ended = true

	return nil
}

type BacktestEngineV1TestSuite struct {
	suite.Suite
	engine   *BacktestEngineV1
	source   datasource.DataSource
	dataPath string
	results  string
}

func TestBacktestEngineV1Suite(t *testing.T) {
	suite.Run(t, new(BacktestEngineV1TestSuite))
}

func (suite *BacktestEngineV1TestSuite) SetupTest() {
	b := NewBacktestEngineV1()
	suite.Require().NoError(b.Initialize(`
initial_capital: 10000
broker: zero_commission
`))

	engineV1, ok := b.(*BacktestEngineV1)
	suite.Require().True(ok)
	suite.engine = engineV1

	log, err := logger.NewLogger()
	suite.Require().NoError(err)

	source, err := datasource.NewDataSource(":memory:", log)
	suite.Require().NoError(err)
	suite.source = source

	dir := suite.T().TempDir()
	suite.dataPath = filepath.Join(dir, "bars.csv")
	suite.results = filepath.Join(dir, "results")

	content := "time,symbol,open,high,low,close,volume\n" +
		"2020-09-22 16:00:00,usa:AAPL,100,101,99,100,100\n" +
		"2020-09-23 16:00:00,usa:AAPL,101,102,100,101,100\n"
	suite.Require().NoError(os.WriteFile(suite.dataPath, []byte(content), 0644))
}

func (suite *BacktestEngineV1TestSuite) TearDownTest() {
	if suite.source != nil {
		suite.source.Close()
	}
}

func (suite *BacktestEngineV1TestSuite) configure(algo algorithm.Algorithm) {
	suite.Require().NoError(suite.engine.LoadAlgorithm(algo))
	suite.Require().NoError(suite.engine.SetDataPath(suite.dataPath))
	suite.Require().NoError(suite.engine.SetResultsFolder(suite.results))
	suite.Require().NoError(suite.engine.SetDataSource(suite.source))
}

func (suite *BacktestEngineV1TestSuite) TestRunGroupsBarsIntoSlices() {
	algo := &noopAlgorithm{minVersion: "main"}
	suite.configure(algo)

	suite.Require().NoError(suite.engine.Run(context.Background(), backtest.LifecycleCallbacks{}))

	suite.True(algo.initialized)
	suite.True(algo.ended)
	suite.Require().Len(algo.dataSlices, 2)
	suite.True(algo.dataSlices[0].Time.Before(algo.dataSlices[1].Time))

	suite.FileExists(filepath.Join(suite.results, "noop", "orders.parquet"))
}

func (suite *BacktestEngineV1TestSuite) TestRunRejectsIncompatibleAlgorithm() {
	algo := &noopAlgorithm{minVersion: "v99.0.0"}
	suite.configure(algo)

	err := suite.engine.Run(context.Background(), backtest.LifecycleCallbacks{})
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeVersionMismatch))
}

func (suite *BacktestEngineV1TestSuite) TestPreRunChecks() {
	err := suite.engine.Run(context.Background(), backtest.LifecycleCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestNoAlgorithm))

	suite.Require().NoError(suite.engine.LoadAlgorithm(&noopAlgorithm{minVersion: "main"}))
	err = suite.engine.Run(context.Background(), backtest.LifecycleCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestNoDataPaths))

	suite.Require().NoError(suite.engine.SetDataPath(suite.dataPath))
	err = suite.engine.Run(context.Background(), backtest.LifecycleCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestNoResultsDir))

	suite.Require().NoError(suite.engine.SetResultsFolder(suite.results))
	err = suite.engine.Run(context.Background(), backtest.LifecycleCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestNoDatasource))
}

func (suite *BacktestEngineV1TestSuite) TestLifecycleCallbacks() {
	algo := &noopAlgorithm{minVersion: "main"}
	suite.configure(algo)

	var started, processed, ended int

	onRunStart := backtest.OnRunStartCallback(func(runID string, algorithmName string, totalDataPoints int) error {
		started++
		suite.Equal("noop", algorithmName)
		suite.Equal(2, totalDataPoints)
		suite.NotEmpty(runID)

		return nil
	})
	onProcessData := backtest.OnProcessDataCallback(func(current int, total int) error {
		processed++

		return nil
	})
	onRunEnd := backtest.OnRunEndCallback(func(algorithmName string, resultFolderPath string, err error) {
		ended++
		suite.NoError(err)
	})

	suite.Require().NoError(suite.engine.Run(context.Background(), backtest.LifecycleCallbacks{
		OnRunStart:    &onRunStart,
		OnProcessData: &onProcessData,
		OnRunEnd:      &onRunEnd,
	}))

	suite.Equal(1, started)
	suite.Equal(2, processed)
	suite.Equal(1, ended)
}

func (suite *BacktestEngineV1TestSuite) TestGapOverExpiryDeliversWarningBeforeDelisting() {
	algo := &noopAlgorithm{minVersion: "main"}
	suite.Require().NoError(suite.engine.LoadAlgorithm(algo))

	es := types.NewFuture(types.FutureSP500EMini, types.MarketCME, time.Date(2021, 3, 19, 0, 0, 0, 0, time.UTC))
	put := types.NewFutureOption(es, types.MarketCME, types.OptionStyleAmerican, types.OptionRightPut, decimal.NewFromInt(3200), es.Expiry)
	suite.engine.trackExpiry(put)

	// No slices on the expiry date or the day after: the first slice the
	// engine sees is the following Monday, past both delisting stamps.
	slice := types.NewSlice(time.Date(2021, 3, 22, 16, 0, 0, 0, time.UTC))
	suite.Require().NoError(suite.engine.processSlice(slice))

	suite.Require().Len(algo.dataSlices, 2)

	warning, ok := algo.dataSlices[0].Delistings[put.ID()]
	suite.Require().True(ok)
	suite.Equal(types.DelistingTypeWarning, warning.Type)
	suite.Equal(time.Date(2021, 3, 19, 0, 0, 0, 0, time.UTC), warning.Time)

	final, ok := algo.dataSlices[1].Delistings[put.ID()]
	suite.Require().True(ok)
	suite.Equal(types.DelistingTypeDelisted, final.Type)
	suite.Equal(time.Date(2021, 3, 20, 0, 0, 0, 0, time.UTC), final.Time)
}

func (suite *BacktestEngineV1TestSuite) TestGetConfigSchema() {
	schema, err := suite.engine.GetConfigSchema()
	suite.Require().NoError(err)
	suite.Contains(schema, "initial_capital")
}

func (suite *BacktestEngineV1TestSuite) TestRunCancellation() {
	algo := &noopAlgorithm{minVersion: "main"}
	suite.configure(algo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := suite.engine.Run(ctx, backtest.LifecycleCallbacks{})
	suite.ErrorIs(err, context.Canceled)
}
