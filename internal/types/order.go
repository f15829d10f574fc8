package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-options/pkg/errors"
)

type PurchaseType string

type OrderType string

type OrderStatus string

type PositionType string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
	OrderStatusFailed    OrderStatus = "FAILED"
)

const (
	PositionTypeLong  PositionType = "LONG"
	PositionTypeShort PositionType = "SHORT"
)

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

const (
	OrderReasonScheduled  string = "scheduled"
	OrderReasonAlgorithm  string = "algorithm"
	OrderReasonOTMExpiry  string = "otm_expiry"
	OrderReasonAssignment string = "assignment"
)

type Reason struct {
	Reason  string `yaml:"reason" json:"reason" csv:"reason" validate:"required"`
	Message string `yaml:"message" json:"message" csv:"message" validate:"required"`
}

// ExecuteOrder is an order request submitted to the trading system.
type ExecuteOrder struct {
	ID           string       `yaml:"id" json:"id" csv:"id" validate:"required,uuid"`
	Symbol       string       `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Side         PurchaseType `yaml:"side" json:"side" csv:"side" validate:"required,oneof=BUY SELL"`
	OrderType    OrderType    `yaml:"order_type" json:"order_type" csv:"order_type" validate:"required,oneof=MARKET LIMIT"`
	PositionType PositionType `yaml:"position_type" json:"position_type" csv:"position_type" validate:"required,oneof=LONG SHORT"`
	Reason       Reason       `yaml:"reason" json:"reason" csv:"reason" validate:"required"`
	// Price is the limit price; market orders are priced at fill time.
	Price         float64 `yaml:"price" json:"price" csv:"price" validate:"gte=0"`
	Quantity      float64 `yaml:"quantity" json:"quantity" csv:"quantity" validate:"required,gt=0"`
	AlgorithmName string  `yaml:"algorithm_name" json:"algorithm_name" csv:"algorithm_name" validate:"required"`
}

// Order is the persisted record of an accepted order.
type Order struct {
	OrderID      string       `yaml:"order_id" json:"order_id" csv:"order_id"`
	Symbol       string       `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Side         PurchaseType `yaml:"side" json:"side" csv:"side" validate:"required,oneof=BUY SELL"`
	PositionType PositionType `yaml:"position_type" json:"position_type" csv:"position_type" validate:"required,oneof=LONG SHORT"`
	Quantity     float64      `yaml:"quantity" json:"quantity" csv:"quantity" validate:"required,gt=0"`
	Price        float64      `yaml:"price" json:"price" csv:"price" validate:"required,gt=0"`
	Timestamp    time.Time    `yaml:"timestamp" json:"timestamp" csv:"timestamp" validate:"required"`
	// IsCompleted is true if the order has been filled or cancelled.
	IsCompleted bool        `yaml:"is_completed" json:"is_completed" csv:"is_completed"`
	Status      OrderStatus `yaml:"status" json:"status" csv:"status"`
	Reason      Reason      `yaml:"reason" json:"reason" csv:"reason" validate:"required"`
	// AlgorithmName is the name of the algorithm that created this order.
	AlgorithmName string  `yaml:"algorithm_name" json:"algorithm_name" csv:"algorithm_name" validate:"required"`
	Fee           float64 `yaml:"fee" json:"fee" csv:"fee" validate:"gte=0"`
}

// OrderEvent notifies an algorithm about an order state change. Fills and
// expiry settlements both surface through this type; IsAssignment marks
// fills forced by option exercise against the holder.
type OrderEvent struct {
	OrderID      string       `yaml:"order_id" json:"order_id" csv:"order_id"`
	SymbolID     string       `yaml:"symbol" json:"symbol" csv:"symbol"`
	Status       OrderStatus  `yaml:"status" json:"status" csv:"status"`
	Direction    PurchaseType `yaml:"direction" json:"direction" csv:"direction"`
	FillQuantity float64      `yaml:"fill_quantity" json:"fill_quantity" csv:"fill_quantity"`
	FillPrice    float64      `yaml:"fill_price" json:"fill_price" csv:"fill_price"`
	Fee          float64      `yaml:"fee" json:"fee" csv:"fee"`
	IsAssignment bool         `yaml:"is_assignment" json:"is_assignment" csv:"is_assignment"`
	Time         time.Time    `yaml:"time" json:"time" csv:"time"`
}

// String implements fmt.Stringer for log lines.
func (e OrderEvent) String() string {
	return fmt.Sprintf("%s %s %s qty=%v price=%v assignment=%v", e.Time.Format(time.RFC3339), e.SymbolID, e.Status, e.FillQuantity, e.FillPrice, e.IsAssignment)
}

// Validate validates the ExecuteOrder struct.
func (eo *ExecuteOrder) Validate() error {
	validate := validator.New()

	if err := validate.Struct(eo); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidExecuteOrder, "invalid execute order", err)
	}

	return nil
}

// Validate validates the Order struct.
func (o *Order) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	return nil
}
