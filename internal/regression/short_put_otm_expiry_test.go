package regression

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-options/internal/algorithm"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type fakeSecurity struct {
	symbol types.Symbol
	net    float64
}

func (s *fakeSecurity) Symbol() types.Symbol { return s.symbol }

func (s *fakeSecurity) Holdings() (types.Position, error) {
	position := types.Position{Symbol: s.symbol.ID()}
	if s.net >= 0 {
		position.TotalLongPositionQuantity = s.net
	} else {
		position.TotalShortPositionQuantity = -s.net
	}

	return position, nil
}

func (s *fakeSecurity) Price() float64 { return 0 }

type placedOrder struct {
	symbol   types.Symbol
	quantity float64
}

// fakeHostAPI is a hand-written host double. It serves a static option
// chain and records registrations and orders instead of executing them.
type fakeHostAPI struct {
	securities map[string]*fakeSecurity
	chain      []types.Symbol
	scheduled  []func() error
	orders     []placedOrder
	invested   bool
	startDate  time.Time
	endDate    time.Time
}

func newFakeHostAPI(chainContracts []types.Symbol) *fakeHostAPI {
	return &fakeHostAPI{
		securities: make(map[string]*fakeSecurity),
		chain:      chainContracts,
	}
}

func (f *fakeHostAPI) SetStartDate(t time.Time) { f.startDate = t }
func (f *fakeHostAPI) SetEndDate(t time.Time)   { f.endDate = t }

func (f *fakeHostAPI) AddEquity(ticker string, resolution algorithm.Resolution) (algorithm.Security, error) {
	security := &fakeSecurity{symbol: types.NewEquity(ticker, types.MarketUSA)}
	f.securities[security.symbol.ID()] = security

	return security, nil
}

func (f *fakeHostAPI) AddFutureContract(symbol types.Symbol, resolution algorithm.Resolution) (algorithm.Security, error) {
	security := &fakeSecurity{symbol: symbol}
	f.securities[symbol.ID()] = security

	return security, nil
}

func (f *fakeHostAPI) AddFutureOptionContract(symbol types.Symbol, resolution algorithm.Resolution) (algorithm.Security, error) {
	security := &fakeSecurity{symbol: symbol}
	f.securities[symbol.ID()] = security

	return security, nil
}

func (f *fakeHostAPI) OptionChain(underlying types.Symbol, asOf time.Time) ([]types.Symbol, error) {
	return f.chain, nil
}

func (f *fakeHostAPI) ScheduleOn(dateRule algorithm.DateRule, timeRule algorithm.TimeRule, callback func() error) error {
	f.scheduled = append(f.scheduled, callback)

	return nil
}

func (f *fakeHostAPI) MarketOrder(symbol types.Symbol, quantity float64) error {
	f.orders = append(f.orders, placedOrder{symbol: symbol, quantity: quantity})

	return nil
}

func (f *fakeHostAPI) Security(symbol types.Symbol) (algorithm.Security, bool) {
	security, ok := f.securities[symbol.ID()]
	if !ok {
		return nil, false
	}

	return security, true
}

func (f *fakeHostAPI) Portfolio() algorithm.Portfolio { return f }

func (f *fakeHostAPI) Invested() (bool, error) { return f.invested, nil }

func (f *fakeHostAPI) Holdings(symbol types.Symbol) (types.Position, error) {
	security, ok := f.securities[symbol.ID()]
	if !ok {
		return types.Position{Symbol: symbol.ID()}, nil
	}

	return security.Holdings()
}

func (f *fakeHostAPI) OpenPositions() ([]types.Position, error) { return nil, nil }

func (f *fakeHostAPI) Log(msg string, fields ...zap.Field) {}

type ShortPutOTMExpiryTestSuite struct {
	suite.Suite
	algo *ShortPutOTMExpiryAlgorithm
	api  *fakeHostAPI
	es   types.Symbol
	put  types.Symbol
}

func TestShortPutOTMExpirySuite(t *testing.T) {
	suite.Run(t, new(ShortPutOTMExpiryTestSuite))
}

func (suite *ShortPutOTMExpiryTestSuite) SetupTest() {
	suite.es = types.NewFuture(types.FutureSP500EMini, types.MarketCME, time.Date(2021, 3, 19, 0, 0, 0, 0, time.UTC))
	suite.put = types.NewFutureOption(suite.es, types.MarketCME, types.OptionStyleAmerican, types.OptionRightPut, decimal.NewFromInt(3200), suite.es.Expiry)

	lowerPut := types.NewFutureOption(suite.es, types.MarketCME, types.OptionStyleAmerican, types.OptionRightPut, decimal.NewFromInt(3100), suite.es.Expiry)
	call := types.NewFutureOption(suite.es, types.MarketCME, types.OptionStyleAmerican, types.OptionRightCall, decimal.NewFromInt(3200), suite.es.Expiry)

	suite.api = newFakeHostAPI([]types.Symbol{lowerPut, call, suite.put})
	suite.algo = NewShortPutOTMExpiryAlgorithm()
}

func (suite *ShortPutOTMExpiryTestSuite) TestInitializeSelectsExpectedContract() {
	suite.Require().NoError(suite.algo.Initialize(suite.api))

	suite.True(suite.algo.SelectedContract().Equal(suite.put))
	suite.Equal(time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), suite.api.startDate)
	suite.Equal(time.Date(2021, 3, 30, 0, 0, 0, 0, time.UTC), suite.api.endDate)
	suite.Require().Len(suite.api.scheduled, 1)

	suite.Require().NoError(suite.api.scheduled[0]())
	suite.Require().Len(suite.api.orders, 1)
	suite.Equal(-1.0, suite.api.orders[0].quantity)
	suite.True(suite.api.orders[0].symbol.Equal(suite.put))
}

func (suite *ShortPutOTMExpiryTestSuite) TestInitializeFailsWithoutMatchingPut() {
	lowerPut := types.NewFutureOption(suite.es, types.MarketCME, types.OptionStyleAmerican, types.OptionRightPut, decimal.NewFromInt(3100), suite.es.Expiry)
	api := newFakeHostAPI([]types.Symbol{lowerPut})

	err := suite.algo.Initialize(api)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeContractMismatch))
}

func (suite *ShortPutOTMExpiryTestSuite) TestOnDataAcceptsExpectedDelistingTimeline() {
	suite.Require().NoError(suite.algo.Initialize(suite.api))

	warning := types.NewSlice(time.Date(2021, 3, 19, 16, 0, 0, 0, time.UTC))
	warning.Delistings[suite.put.ID()] = types.Delisting{
		SymbolID: suite.put.ID(),
		Time:     time.Date(2021, 3, 19, 0, 0, 0, 0, time.UTC),
		Type:     types.DelistingTypeWarning,
	}
	suite.NoError(suite.algo.OnData(warning))

	final := types.NewSlice(time.Date(2021, 3, 22, 16, 0, 0, 0, time.UTC))
	final.Delistings[suite.put.ID()] = types.Delisting{
		SymbolID: suite.put.ID(),
		Time:     time.Date(2021, 3, 20, 0, 0, 0, 0, time.UTC),
		Type:     types.DelistingTypeDelisted,
	}
	suite.NoError(suite.algo.OnData(final))

	suite.Len(suite.algo.Delistings(), 2)
}

func (suite *ShortPutOTMExpiryTestSuite) TestOnDataRejectsWrongWarningDate() {
	suite.Require().NoError(suite.algo.Initialize(suite.api))

	slice := types.NewSlice(time.Date(2021, 3, 18, 16, 0, 0, 0, time.UTC))
	slice.Delistings[suite.put.ID()] = types.Delisting{
		SymbolID: suite.put.ID(),
		Time:     time.Date(2021, 3, 18, 0, 0, 0, 0, time.UTC),
		Type:     types.DelistingTypeWarning,
	}

	err := suite.algo.OnData(slice)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDelistingTiming))
}

func (suite *ShortPutOTMExpiryTestSuite) TestOnDataRejectsUnexpectedSymbol() {
	suite.Require().NoError(suite.algo.Initialize(suite.api))

	slice := types.NewSlice(time.Date(2021, 3, 19, 16, 0, 0, 0, time.UTC))
	slice.Delistings[suite.es.ID()] = types.Delisting{
		SymbolID: suite.es.ID(),
		Time:     time.Date(2021, 3, 19, 0, 0, 0, 0, time.UTC),
		Type:     types.DelistingTypeWarning,
	}

	err := suite.algo.OnData(slice)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnexpectedSymbol))
}

func (suite *ShortPutOTMExpiryTestSuite) TestOnOrderEventSellFillRequiresShortHoldings() {
	suite.Require().NoError(suite.algo.Initialize(suite.api))
	suite.api.securities[suite.put.ID()].net = -1

	err := suite.algo.OnOrderEvent(types.OrderEvent{
		SymbolID:     suite.put.ID(),
		Status:       types.OrderStatusFilled,
		Direction:    types.PurchaseTypeSell,
		FillQuantity: 1,
		FillPrice:    14.25,
		Time:         time.Date(2020, 9, 22, 16, 0, 0, 0, time.UTC),
	})
	suite.NoError(err)
	suite.Len(suite.algo.Fills(), 1)
}

func (suite *ShortPutOTMExpiryTestSuite) TestOnOrderEventRejectsHoldingsMismatch() {
	suite.Require().NoError(suite.algo.Initialize(suite.api))
	suite.api.securities[suite.put.ID()].net = 0

	err := suite.algo.OnOrderEvent(types.OrderEvent{
		SymbolID:  suite.put.ID(),
		Status:    types.OrderStatusFilled,
		Direction: types.PurchaseTypeSell,
	})
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeHoldingsMismatch))
}

func (suite *ShortPutOTMExpiryTestSuite) TestOnOrderEventRejectsAssignment() {
	suite.Require().NoError(suite.algo.Initialize(suite.api))

	err := suite.algo.OnOrderEvent(types.OrderEvent{
		SymbolID:     suite.put.ID(),
		Status:       types.OrderStatusFilled,
		Direction:    types.PurchaseTypeBuy,
		IsAssignment: true,
	})
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnexpectedAssignment))
}

func (suite *ShortPutOTMExpiryTestSuite) TestOnOrderEventRejectsUnderlyingFill() {
	suite.Require().NoError(suite.algo.Initialize(suite.api))

	err := suite.algo.OnOrderEvent(types.OrderEvent{
		SymbolID:  suite.es.ID(),
		Status:    types.OrderStatusFilled,
		Direction: types.PurchaseTypeBuy,
	})
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnexpectedSymbol))
}

func (suite *ShortPutOTMExpiryTestSuite) TestOnOrderEventIgnoresNonFills() {
	suite.Require().NoError(suite.algo.Initialize(suite.api))

	err := suite.algo.OnOrderEvent(types.OrderEvent{
		SymbolID: suite.put.ID(),
		Status:   types.OrderStatusPending,
	})
	suite.NoError(err)
	suite.Empty(suite.algo.Fills())
}

func (suite *ShortPutOTMExpiryTestSuite) TestOnEndOfAlgorithmRejectsOpenPositions() {
	suite.Require().NoError(suite.algo.Initialize(suite.api))
	suite.api.invested = true

	err := suite.algo.OnEndOfAlgorithm()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodePortfolioNotFlat))
}

func (suite *ShortPutOTMExpiryTestSuite) TestOnEndOfAlgorithmRequiresDelistings() {
	suite.Require().NoError(suite.algo.Initialize(suite.api))

	err := suite.algo.OnEndOfAlgorithm()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDelistingTiming))
}

func (suite *ShortPutOTMExpiryTestSuite) TestOnEndOfAlgorithmPassesAfterFullTimeline() {
	suite.Require().NoError(suite.algo.Initialize(suite.api))

	warning := types.NewSlice(time.Date(2021, 3, 19, 16, 0, 0, 0, time.UTC))
	warning.Delistings[suite.put.ID()] = types.Delisting{
		SymbolID: suite.put.ID(),
		Time:     time.Date(2021, 3, 19, 0, 0, 0, 0, time.UTC),
		Type:     types.DelistingTypeWarning,
	}
	suite.Require().NoError(suite.algo.OnData(warning))

	final := types.NewSlice(time.Date(2021, 3, 22, 16, 0, 0, 0, time.UTC))
	final.Delistings[suite.put.ID()] = types.Delisting{
		SymbolID: suite.put.ID(),
		Time:     time.Date(2021, 3, 20, 0, 0, 0, 0, time.UTC),
		Type:     types.DelistingTypeDelisted,
	}
	suite.Require().NoError(suite.algo.OnData(final))

	suite.NoError(suite.algo.OnEndOfAlgorithm())
}
