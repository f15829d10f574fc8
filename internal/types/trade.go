package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Trade struct {
	Order         Order     `csv:"order"`
	ExecutedAt    time.Time `csv:"executed_at"`
	ExecutedQty   float64   `csv:"executed_qty"`
	ExecutedPrice float64   `csv:"executed_price"`
	// Fee is the fee for this trade
	Fee float64 `csv:"fee"`
	// PnL is the realized profit and loss for this trade. Only closing
	// trades carry PnL; opening trades record 0.
	PnL float64 `csv:"pnl"`
}

// Position represents current holdings of a contract. Long and short
// flows are tracked separately so a short option position reconstructs
// correctly from its trades.
type Position struct {
	Symbol                     string  `csv:"symbol"`
	TotalLongPositionQuantity  float64 `csv:"long_position_quantity"`
	TotalShortPositionQuantity float64 `csv:"short_position_quantity"`

	TotalLongInPositionQuantity  float64 `csv:"total_in_long_position_quantity"`
	TotalLongOutPositionQuantity float64 `csv:"total_out_long_position_quantity"`
	TotalLongInPositionAmount    float64 `csv:"total_in_long_position_amount"`
	TotalLongOutPositionAmount   float64 `csv:"total_out_long_position_amount"`

	TotalShortInPositionQuantity  float64 `csv:"total_in_short_position_quantity"`
	TotalShortOutPositionQuantity float64 `csv:"total_out_short_position_quantity"`
	TotalShortInPositionAmount    float64 `csv:"total_in_short_position_amount"`
	TotalShortOutPositionAmount   float64 `csv:"total_out_short_position_amount"`

	TotalLongInFee   float64 `csv:"total_long_in_fee"`
	TotalLongOutFee  float64 `csv:"total_long_out_fee"`
	TotalShortInFee  float64 `csv:"total_short_in_fee"`
	TotalShortOutFee float64 `csv:"total_short_out_fee"`

	OpenTimestamp time.Time `csv:"open_timestamp"`
	AlgorithmName string    `csv:"algorithm_name"`
}

// NetQuantity returns the signed holdings quantity: positive for long,
// negative for short. A sold put held short reports -1.
func (p *Position) NetQuantity() float64 {
	return p.TotalLongPositionQuantity - p.TotalShortPositionQuantity
}

// IsFlat reports whether the position carries no open quantity.
func (p *Position) IsFlat() bool {
	return p.NetQuantity() == 0
}

// GetAverageLongPositionEntryPrice calculates the average long entry price including fees.
func (p *Position) GetAverageLongPositionEntryPrice() float64 {
	if p.TotalLongInPositionQuantity == 0 {
		return 0
	}

	return (p.TotalLongInPositionAmount + p.TotalLongInFee) / p.TotalLongInPositionQuantity
}

// GetAverageShortPositionEntryPrice calculates the average short entry price including fees.
func (p *Position) GetAverageShortPositionEntryPrice() float64 {
	if p.TotalShortInPositionQuantity == 0 {
		return 0
	}

	return (p.TotalShortInPositionAmount - p.TotalShortInFee) / p.TotalShortInPositionQuantity
}

// GetTotalShortPnL returns the realized PnL of the closed part of the
// short side. A short opened by selling at a premium and closed (or
// expired) at a lower price realizes the difference.
func (p *Position) GetTotalShortPnL() float64 {
	if p.TotalShortInPositionQuantity == 0 || p.TotalShortOutPositionQuantity == 0 {
		return 0
	}

	closedQty := decimal.NewFromFloat(p.TotalShortOutPositionQuantity)
	entry := closedQty.Mul(decimal.NewFromFloat(p.GetAverageShortPositionEntryPrice()))
	exitAvg := decimal.NewFromFloat(p.TotalShortOutPositionAmount + p.TotalShortOutFee).Div(decimal.NewFromFloat(p.TotalShortOutPositionQuantity))
	exit := closedQty.Mul(exitAvg)

	result, _ := entry.Sub(exit).Float64()

	return result
}
