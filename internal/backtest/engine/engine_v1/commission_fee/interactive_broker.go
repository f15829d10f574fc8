package commission_fee

import "math"

// InteractiveBrokerCommissionFee models IB's futures-option pricing:
// a flat per-contract charge with a minimum per order.
type InteractiveBrokerCommissionFee struct {
}

const (
	ibPerContractFee = 0.85
	ibMinimumFee     = 0.85
)

func NewInteractiveBrokerCommissionFee() CommissionFee {
	return &InteractiveBrokerCommissionFee{}
}

func (c *InteractiveBrokerCommissionFee) Calculate(quantity float64) float64 {
	fee := ibPerContractFee * math.Abs(quantity)
	if fee < ibMinimumFee {
		return ibMinimumFee
	}

	return fee
}
