package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/algorithm"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
	"go.uber.org/zap"
)

// hostAPI is the engine surface handed to the algorithm at Initialize.
// Registration calls mutate the engine before the run loop starts.
type hostAPI struct {
	engine *BacktestEngineV1
}

// SetStartDate implements algorithm.HostAPI.
func (h *hostAPI) SetStartDate(t time.Time) {
	h.engine.startTime = optional.Some(t)
}

// SetEndDate implements algorithm.HostAPI.
func (h *hostAPI) SetEndDate(t time.Time) {
	h.engine.endTime = optional.Some(t)
}

// AddEquity implements algorithm.HostAPI.
func (h *hostAPI) AddEquity(ticker string, resolution algorithm.Resolution) (algorithm.Security, error) {
	symbol := types.NewEquity(ticker, types.MarketUSA)

	return h.engine.securities.add(symbol, h.engine.state), nil
}

// AddFutureContract implements algorithm.HostAPI.
func (h *hostAPI) AddFutureContract(symbol types.Symbol, resolution algorithm.Resolution) (algorithm.Security, error) {
	if symbol.SecurityType != types.SecurityTypeFuture {
		return nil, errors.Newf(errors.ErrCodeInvalidSymbol, "expected a future, got %s", symbol.SecurityType)
	}

	return h.engine.securities.add(symbol, h.engine.state), nil
}

// AddFutureOptionContract implements algorithm.HostAPI. The option's
// underlying future must already be registered.
func (h *hostAPI) AddFutureOptionContract(symbol types.Symbol, resolution algorithm.Resolution) (algorithm.Security, error) {
	if symbol.SecurityType != types.SecurityTypeFutureOption {
		return nil, errors.Newf(errors.ErrCodeInvalidSymbol, "expected a future option, got %s", symbol.SecurityType)
	}

	if symbol.Underlying == nil {
		return nil, errors.New(errors.ErrCodeInvalidSymbol, "future option has no underlying")
	}

	if _, ok := h.engine.securities.get(symbol.Underlying.ID()); !ok {
		return nil, errors.Newf(errors.ErrCodeUnderlyingNotAdded, "underlying %s must be added before its options", symbol.Underlying.Value)
	}

	security := h.engine.securities.add(symbol, h.engine.state)
	h.engine.trackExpiry(symbol)

	return security, nil
}

// OptionChain implements algorithm.HostAPI.
func (h *hostAPI) OptionChain(underlying types.Symbol, asOf time.Time) ([]types.Symbol, error) {
	if h.engine.chainProvider == nil {
		return nil, errors.New(errors.ErrCodeChainPathNotSet, "no option chain provider configured")
	}

	if _, ok := h.engine.securities.get(underlying.ID()); !ok {
		return nil, errors.Newf(errors.ErrCodeUnderlyingNotAdded, "underlying %s must be added before querying its chain", underlying.Value)
	}

	return h.engine.chainProvider.GetOptionContractList(underlying, asOf)
}

// ScheduleOn implements algorithm.HostAPI.
func (h *hostAPI) ScheduleOn(dateRule algorithm.DateRule, timeRule algorithm.TimeRule, callback func() error) error {
	marketOpen, err := h.engine.config.MarketOpenOffset()
	if err != nil {
		return err
	}

	for _, at := range algorithm.FireTimes(dateRule, timeRule, marketOpen) {
		h.engine.scheduledEvents = append(h.engine.scheduledEvents, &scheduledEvent{
			at:       at,
			callback: callback,
		})
	}

	h.engine.log.Debug("Scheduled events registered",
		zap.Int("count", len(dateRule.Dates)),
	)

	return nil
}

// MarketOrder implements algorithm.HostAPI. The signed quantity selects
// the side: positive buys, negative sells. Orders against an open
// position close it; orders from flat open a new one.
func (h *hostAPI) MarketOrder(symbol types.Symbol, quantity float64) error {
	if quantity == 0 {
		return errors.New(errors.ErrCodeInvalidQuantity, "market order quantity must be non-zero")
	}

	if _, ok := h.engine.securities.get(symbol.ID()); !ok {
		return errors.Newf(errors.ErrCodeSecurityNotAdded, "security %s is not registered", symbol.Value)
	}

	position, err := h.engine.state.GetPosition(symbol.ID())
	if err != nil {
		return err
	}

	side := types.PurchaseTypeBuy
	positionType := types.PositionTypeLong

	if quantity > 0 {
		if position.NetQuantity() < 0 {
			positionType = types.PositionTypeShort
		}
	} else {
		side = types.PurchaseTypeSell
		positionType = types.PositionTypeShort

		if position.NetQuantity() > 0 {
			positionType = types.PositionTypeLong
		}
	}

	order := types.ExecuteOrder{
		ID:           uuid.New().String(),
		Symbol:       symbol.ID(),
		Side:         side,
		OrderType:    types.OrderTypeMarket,
		PositionType: positionType,
		Reason: types.Reason{
			Reason:  types.OrderReasonAlgorithm,
			Message: "market order",
		},
		Quantity:      quantity,
		AlgorithmName: h.engine.algorithmName(),
	}

	if quantity < 0 {
		order.Quantity = -quantity
	}

	return h.engine.trading.PlaceOrder(order)
}

// Security implements algorithm.HostAPI.
func (h *hostAPI) Security(symbol types.Symbol) (algorithm.Security, bool) {
	security, ok := h.engine.securities.get(symbol.ID())
	if !ok {
		return nil, false
	}

	return security, true
}

// Portfolio implements algorithm.HostAPI.
func (h *hostAPI) Portfolio() algorithm.Portfolio {
	return &backtestPortfolio{state: h.engine.state}
}

// Log implements algorithm.HostAPI.
func (h *hostAPI) Log(msg string, fields ...zap.Field) {
	h.engine.log.Info(msg, fields...)
}

var _ algorithm.HostAPI = (*hostAPI)(nil)
