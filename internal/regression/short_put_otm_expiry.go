// Package regression contains scripted scenario algorithms that assert
// exact host engine behavior. Every violated expectation aborts the run
// with a typed assertion error.
package regression

import (
	"time"

	"github.com/rxtech-lab/argo-options/internal/algorithm"
	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/chain"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ShortPutOTMExpiryAlgorithm sells one out of the money put on the March
// 2021 E-mini S&P 500 future and holds it through expiry. The put lapses
// worthless, so the scenario asserts the delisting timeline, the single
// sell fill, the absence of assignment and a flat final portfolio.
type ShortPutOTMExpiryAlgorithm struct {
	api algorithm.HostAPI

	es       types.Symbol
	esOption types.Symbol

	expectedExpiry       time.Time
	expectedOptionStrike decimal.Decimal

	fills      []types.OrderEvent
	delistings []types.Delisting
}

func NewShortPutOTMExpiryAlgorithm() *ShortPutOTMExpiryAlgorithm {
	return &ShortPutOTMExpiryAlgorithm{
		expectedExpiry:       time.Date(2021, 3, 19, 0, 0, 0, 0, time.UTC),
		expectedOptionStrike: decimal.NewFromInt(3200),
	}
}

// Name implements algorithm.Algorithm.
func (a *ShortPutOTMExpiryAlgorithm) Name() string {
	return "short_put_otm_expiry"
}

// MinEngineVersion implements algorithm.Algorithm.
func (a *ShortPutOTMExpiryAlgorithm) MinEngineVersion() string {
	return "v0.3.0"
}

// Initialize implements algorithm.Algorithm.
func (a *ShortPutOTMExpiryAlgorithm) Initialize(api algorithm.HostAPI) error {
	a.api = api

	api.SetStartDate(time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC))
	api.SetEndDate(time.Date(2021, 3, 30, 0, 0, 0, 0, time.UTC))

	// Liquidity anchor: keeps slices flowing after the derivative data
	// stops, so the final delisting is still delivered.
	if _, err := api.AddEquity("AAPL", algorithm.ResolutionDaily); err != nil {
		return err
	}

	a.es = types.NewFuture(types.FutureSP500EMini, types.MarketCME, a.expectedExpiry)
	if _, err := api.AddFutureContract(a.es, algorithm.ResolutionMinute); err != nil {
		return err
	}

	chainDate := time.Date(2020, 9, 22, 0, 0, 0, 0, time.UTC)

	contracts, err := api.OptionChain(a.es, chainDate)
	if err != nil {
		return err
	}

	puts := chain.FilterPuts(contracts, a.expectedOptionStrike)
	if len(puts) == 0 {
		return errors.Newf(errors.ErrCodeContractMismatch, "no put contracts with strike >= %s listed on %s", a.expectedOptionStrike, a.es.Value)
	}

	a.esOption = puts[0]

	expectedContract := types.NewFutureOption(
		a.es,
		types.MarketCME,
		types.OptionStyleAmerican,
		types.OptionRightPut,
		a.expectedOptionStrike,
		a.expectedExpiry,
	)
	if !a.esOption.Equal(expectedContract) {
		return errors.Newf(errors.ErrCodeContractMismatch, "contract %s was not the expected option contract %s", a.esOption.ID(), expectedContract.ID())
	}

	if _, err := api.AddFutureOptionContract(a.esOption, algorithm.ResolutionMinute); err != nil {
		return err
	}

	return api.ScheduleOn(
		algorithm.OnDate(2020, 9, 22),
		algorithm.AfterMarketOpen(a.es, time.Minute),
		a.sellPut,
	)
}

func (a *ShortPutOTMExpiryAlgorithm) sellPut() error {
	a.api.Log("Selling put contract",
		zap.String("contract", a.esOption.ID()),
	)

	return a.api.MarketOrder(a.esOption, -1)
}

// OnData implements algorithm.Algorithm. Only the delisting timeline is
// asserted here: the warning must carry the expiry date, the final
// delisting the day after.
func (a *ShortPutOTMExpiryAlgorithm) OnData(slice types.Slice) error {
	for _, delisting := range slice.Delistings {
		a.delistings = append(a.delistings, delisting)

		if delisting.SymbolID != a.esOption.ID() {
			return errors.Newf(errors.ErrCodeUnexpectedSymbol, "delisting received for unexpected symbol %s", delisting.SymbolID)
		}

		switch delisting.Type {
		case types.DelistingTypeWarning:
			if expected := a.expectedExpiry; !delisting.Time.Equal(expected) {
				return errors.Newf(errors.ErrCodeDelistingTiming, "delisting warning issued at unexpected date %s, expected %s", delisting.Time.Format("2006-01-02"), expected.Format("2006-01-02"))
			}
		case types.DelistingTypeDelisted:
			if expected := a.expectedExpiry.AddDate(0, 0, 1); !delisting.Time.Equal(expected) {
				return errors.Newf(errors.ErrCodeDelistingTiming, "delisting occurred at unexpected date %s, expected %s", delisting.Time.Format("2006-01-02"), expected.Format("2006-01-02"))
			}
		}
	}

	return nil
}

// OnOrderEvent implements algorithm.Algorithm.
func (a *ShortPutOTMExpiryAlgorithm) OnOrderEvent(event types.OrderEvent) error {
	if event.Status != types.OrderStatusFilled {
		return nil
	}

	a.fills = append(a.fills, event)

	if event.SymbolID == a.es.ID() {
		return errors.Newf(errors.ErrCodeUnexpectedSymbol, "expected no order events for the underlying future, got %s", event.String())
	}

	if event.SymbolID != a.esOption.ID() {
		return errors.Newf(errors.ErrCodeUnexpectedSymbol, "fill received for unknown symbol %s", event.SymbolID)
	}

	if event.IsAssignment {
		return errors.Newf(errors.ErrCodeUnexpectedAssignment, "option should have expired worthless, got assignment: %s", event.String())
	}

	security, ok := a.api.Security(a.esOption)
	if !ok {
		return errors.Newf(errors.ErrCodeSecurityNotAdded, "security %s disappeared from the host", a.esOption.ID())
	}

	holdings, err := security.Holdings()
	if err != nil {
		return err
	}

	switch event.Direction {
	case types.PurchaseTypeSell:
		if holdings.NetQuantity() != -1 {
			return errors.Newf(errors.ErrCodeHoldingsMismatch, "expected holdings -1 after sell fill, got %v", holdings.NetQuantity())
		}
	case types.PurchaseTypeBuy:
		if holdings.NetQuantity() != 0 {
			return errors.Newf(errors.ErrCodeHoldingsMismatch, "expected flat holdings after buy fill, got %v", holdings.NetQuantity())
		}
	}

	a.api.Log("Order event processed",
		zap.String("event", event.String()),
		zap.Float64("holdings", holdings.NetQuantity()),
	)

	return nil
}

// OnEndOfAlgorithm implements algorithm.Algorithm.
func (a *ShortPutOTMExpiryAlgorithm) OnEndOfAlgorithm() error {
	invested, err := a.api.Portfolio().Invested()
	if err != nil {
		return err
	}

	if invested {
		return errors.New(errors.ErrCodePortfolioNotFlat, "portfolio still holds open positions at the end of the run")
	}

	var warningSeen, delistedSeen bool

	for _, delisting := range a.delistings {
		switch delisting.Type {
		case types.DelistingTypeWarning:
			warningSeen = true
		case types.DelistingTypeDelisted:
			delistedSeen = true
		}
	}

	if !warningSeen {
		return errors.New(errors.ErrCodeDelistingTiming, "delisting warning was never received")
	}

	if !delistedSeen {
		return errors.New(errors.ErrCodeDelistingTiming, "final delisting was never received")
	}

	a.api.Log("Scenario completed",
		zap.Int("fills", len(a.fills)),
		zap.Int("delistings", len(a.delistings)),
	)

	return nil
}

// Fills returns the fill events the scenario observed, in order.
func (a *ShortPutOTMExpiryAlgorithm) Fills() []types.OrderEvent {
	return a.fills
}

// Delistings returns the delisting notifications the scenario observed,
// in order.
func (a *ShortPutOTMExpiryAlgorithm) Delistings() []types.Delisting {
	return a.delistings
}

// SelectedContract returns the option contract the scenario sold.
func (a *ShortPutOTMExpiryAlgorithm) SelectedContract() types.Symbol {
	return a.esOption
}

var _ algorithm.Algorithm = (*ShortPutOTMExpiryAlgorithm)(nil)
