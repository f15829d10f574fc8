// Package chain resolves the option contracts listed on an underlying.
// The backtest engine exposes a Provider to algorithms so a scenario can
// select contracts by strike and right without owning chain data itself.
package chain

import (
	"time"

	"github.com/rxtech-lab/argo-options/internal/types"
)

type Provider interface {
	// GetOptionContractList returns every option contract listed on the
	// underlying as of the given date. Contracts already expired at that
	// date are not returned.
	GetOptionContractList(underlying types.Symbol, asOf time.Time) ([]types.Symbol, error)
	// Close releases any resources held by the provider.
	Close() error
}
