// Package algorithm defines the contract between a scenario algorithm and
// the host engine that runs it. Algorithms implement lifecycle callbacks;
// the host invokes them sequentially in simulated-time order and aborts
// the run on the first non-nil error.
package algorithm

import (
	"time"

	"github.com/rxtech-lab/argo-options/internal/types"
	"go.uber.org/zap"
)

type Resolution string

const (
	ResolutionMinute Resolution = "minute"
	ResolutionDaily  Resolution = "daily"
)

// Algorithm is a scripted trading scenario driven by the host engine.
type Algorithm interface {
	Name() string
	// MinEngineVersion is the engine version the algorithm was written
	// against. The engine refuses to run incompatible algorithms.
	MinEngineVersion() string
	// Initialize declares the scenario: dates, securities, scheduled
	// callbacks. Called once before any data is processed.
	Initialize(api HostAPI) error
	// OnData is called for every simulated instant with the bars and
	// delisting notifications that became due at that time.
	OnData(slice types.Slice) error
	// OnOrderEvent is called for every order state change, fills included.
	OnOrderEvent(event types.OrderEvent) error
	// OnEndOfAlgorithm is called once after the last data point.
	OnEndOfAlgorithm() error
}

// Security is the host's live view of a registered instrument.
type Security interface {
	Symbol() types.Symbol
	// Holdings returns the current position for the security.
	Holdings() (types.Position, error)
	// Price returns the last traded price seen by the host, 0 before
	// the first bar.
	Price() float64
}

// Portfolio is a read-only view over all holdings of the run.
type Portfolio interface {
	// Invested reports whether any position carries open quantity.
	Invested() (bool, error)
	// Holdings returns the position for one symbol.
	Holdings(symbol types.Symbol) (types.Position, error)
	// OpenPositions returns every position with open quantity.
	OpenPositions() ([]types.Position, error)
}

// HostAPI is the engine surface exposed to algorithms. All registration
// calls are expected during Initialize; MarketOrder may be called from any
// callback once data is flowing.
type HostAPI interface {
	// SetStartDate fixes the first simulated date of the run.
	SetStartDate(t time.Time)
	// SetEndDate fixes the last simulated date of the run.
	SetEndDate(t time.Time)

	AddEquity(ticker string, resolution Resolution) (Security, error)
	AddFutureContract(symbol types.Symbol, resolution Resolution) (Security, error)
	AddFutureOptionContract(symbol types.Symbol, resolution Resolution) (Security, error)

	// OptionChain returns the option contracts listed on the underlying
	// as of the given date.
	OptionChain(underlying types.Symbol, asOf time.Time) ([]types.Symbol, error)

	// ScheduleOn registers a one-shot callback fired when simulated time
	// first reaches the instant described by the rules.
	ScheduleOn(dateRule DateRule, timeRule TimeRule, callback func() error) error

	// MarketOrder submits a market order for the signed quantity:
	// positive buys, negative sells.
	MarketOrder(symbol types.Symbol, quantity float64) error

	// Security looks up a registered security by symbol.
	Security(symbol types.Symbol) (Security, bool)

	Portfolio() Portfolio

	Log(msg string, fields ...zap.Field)
}
