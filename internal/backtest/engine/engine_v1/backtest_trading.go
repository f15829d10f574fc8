package engine

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
	"github.com/shopspring/decimal"
)

// OrderEventHandler receives the order events produced by fills and
// settlements, in execution order.
type OrderEventHandler func(event types.OrderEvent) error

// BacktestTrading executes orders against the bars of the current slice.
// Market orders fill immediately at the average of the bar's high and low.
type BacktestTrading struct {
	state            *BacktestState
	balance          float64
	slice            types.Slice
	commission       commission_fee.CommissionFee
	decimalPrecision int
	onOrderEvent     OrderEventHandler
}

func NewBacktestTrading(state *BacktestState, initialBalance float64, commission commission_fee.CommissionFee, decimalPrecision int) *BacktestTrading {
	return &BacktestTrading{
		state:            state,
		balance:          initialBalance,
		commission:       commission,
		decimalPrecision: decimalPrecision,
	}
}

// SetOrderEventHandler registers the sink for fill and settlement events.
func (b *BacktestTrading) SetOrderEventHandler(handler OrderEventHandler) {
	b.onOrderEvent = handler
}

// UpdateCurrentSlice moves the trading clock to the given slice. Orders
// placed afterwards fill against its bars.
func (b *BacktestTrading) UpdateCurrentSlice(slice types.Slice) {
	b.slice = slice
}

// Reset restores the trading system for a fresh run.
func (b *BacktestTrading) Reset(initialBalance float64) {
	b.balance = initialBalance
	b.slice = types.Slice{}
}

// Balance returns the current cash balance.
func (b *BacktestTrading) Balance() float64 {
	return b.balance
}

// PlaceOrder validates and executes an order request. Only market orders
// are supported; they fill at the average price of the current bar for
// the order's symbol.
func (b *BacktestTrading) PlaceOrder(order types.ExecuteOrder) error {
	order.ID = uuid.New().String()

	if err := order.Validate(); err != nil {
		return err
	}

	order.Quantity = roundToDecimalPrecision(order.Quantity, b.decimalPrecision)
	if order.Quantity <= 0 {
		return errors.New(errors.ErrCodeInvalidQuantity, "order quantity is zero after rounding to configured precision")
	}

	if order.OrderType != types.OrderTypeMarket {
		return errors.Newf(errors.ErrCodeOrderFailed, "unsupported order type: %s", order.OrderType)
	}

	bar, ok := b.slice.Bars[order.Symbol]
	if !ok {
		return errors.Newf(errors.ErrCodeMarketDataMissing, "no market data for %s at %s", order.Symbol, b.slice.Time.Format(time.RFC3339))
	}

	fillPrice := bar.Mid()
	if fillPrice <= 0 {
		return errors.Newf(errors.ErrCodeMarketDataMissing, "invalid market data for %s: average price is zero or negative", order.Symbol)
	}

	if order.Side == types.PurchaseTypeBuy && order.PositionType == types.PositionTypeLong {
		totalCost := order.Quantity * fillPrice
		if totalCost > b.balance {
			return errors.Newf(errors.ErrCodeOrderFailed, "order cost (%.2f) exceeds available balance (%.2f)", totalCost, b.balance)
		}
	}

	return b.fill(order, fillPrice, b.commission.Calculate(order.Quantity), false, b.slice.Time)
}

// fill records the executed order in state, adjusts the balance and
// forwards the resulting order event stamped with the given time.
func (b *BacktestTrading) fill(order types.ExecuteOrder, fillPrice float64, fee float64, isAssignment bool, at time.Time) error {
	executedOrder := types.Order{
		OrderID:       order.ID,
		Symbol:        order.Symbol,
		Side:          order.Side,
		PositionType:  order.PositionType,
		Quantity:      order.Quantity,
		Price:         fillPrice,
		Timestamp:     at,
		IsCompleted:   true,
		Status:        types.OrderStatusFilled,
		Reason:        order.Reason,
		AlgorithmName: order.AlgorithmName,
		Fee:           fee,
	}

	if _, err := b.state.Update([]types.Order{executedOrder}); err != nil {
		return err
	}

	b.applyBalance(executedOrder)

	if b.onOrderEvent == nil {
		return nil
	}

	return b.onOrderEvent(types.OrderEvent{
		OrderID:      executedOrder.OrderID,
		SymbolID:     executedOrder.Symbol,
		Status:       types.OrderStatusFilled,
		Direction:    executedOrder.Side,
		FillQuantity: executedOrder.Quantity,
		FillPrice:    executedOrder.Price,
		Fee:          executedOrder.Fee,
		IsAssignment: isAssignment,
		Time:         executedOrder.Timestamp,
	})
}

func (b *BacktestTrading) applyBalance(order types.Order) {
	gross := decimal.NewFromFloat(order.Quantity).Mul(decimal.NewFromFloat(order.Price))
	balance := decimal.NewFromFloat(b.balance).Sub(decimal.NewFromFloat(order.Fee))

	if order.Side == types.PurchaseTypeBuy {
		balance = balance.Sub(gross)
	} else {
		balance = balance.Add(gross)
	}

	b.balance, _ = balance.Float64()
}

// SettleExpiry settles an expired option position against the
// underlying's last known price. Out of the money contracts lapse
// worthless: the position is removed without a fill event. In the money
// contracts are closed at intrinsic value through an assignment fill.
func (b *BacktestTrading) SettleExpiry(option types.Symbol, underlyingPrice float64, at time.Time, algorithmName string) error {
	position, err := b.state.GetPosition(option.ID())
	if err != nil {
		return err
	}

	if position.IsFlat() {
		return nil
	}

	intrinsic := intrinsicValue(option, underlyingPrice)

	side := types.PurchaseTypeBuy
	positionType := types.PositionTypeShort
	quantity := -position.NetQuantity()

	if position.NetQuantity() > 0 {
		side = types.PurchaseTypeSell
		positionType = types.PositionTypeLong
		quantity = position.NetQuantity()
	}

	if intrinsic <= 0 {
		// Worthless lapse. Recorded as a settlement, not a fill, so the
		// algorithm never sees an order event for it.
		settlement := types.Order{
			OrderID:       uuid.New().String(),
			Symbol:        option.ID(),
			Side:          side,
			PositionType:  positionType,
			Quantity:      quantity,
			Price:         0,
			Timestamp:     at,
			IsCompleted:   true,
			Status:        types.OrderStatusFilled,
			Reason:        types.Reason{Reason: types.OrderReasonOTMExpiry, Message: "option expired out of the money"},
			AlgorithmName: algorithmName,
		}

		_, err := b.state.Update([]types.Order{settlement})

		return err
	}

	order := types.ExecuteOrder{
		ID:            uuid.New().String(),
		Symbol:        option.ID(),
		Side:          side,
		OrderType:     types.OrderTypeMarket,
		PositionType:  positionType,
		Reason:        types.Reason{Reason: types.OrderReasonAssignment, Message: "option exercised at expiry"},
		Quantity:      quantity,
		AlgorithmName: algorithmName,
	}

	return b.fill(order, intrinsic, 0, true, at)
}

// intrinsicValue returns the exercise value of an option at the given
// underlying price, 0 when out of the money.
func intrinsicValue(option types.Symbol, underlyingPrice float64) float64 {
	strike, _ := option.Strike.Float64()

	switch option.Right {
	case types.OptionRightPut:
		return math.Max(strike-underlyingPrice, 0)
	case types.OptionRightCall:
		return math.Max(underlyingPrice-strike, 0)
	default:
		return 0
	}
}
