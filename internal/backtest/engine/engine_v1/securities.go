package engine

import (
	"github.com/rxtech-lab/argo-options/internal/algorithm"
	"github.com/rxtech-lab/argo-options/internal/types"
)

// backtestSecurity is the engine's live view of a registered instrument.
// The run loop pushes the last traded price into it as slices are
// processed.
type backtestSecurity struct {
	symbol    types.Symbol
	state     *BacktestState
	lastPrice float64
}

// Symbol implements algorithm.Security.
func (s *backtestSecurity) Symbol() types.Symbol {
	return s.symbol
}

// Holdings implements algorithm.Security.
func (s *backtestSecurity) Holdings() (types.Position, error) {
	return s.state.GetPosition(s.symbol.ID())
}

// Price implements algorithm.Security.
func (s *backtestSecurity) Price() float64 {
	return s.lastPrice
}

func (s *backtestSecurity) updatePrice(data types.MarketData) {
	s.lastPrice = data.Close
}

// securityRegistry tracks the securities an algorithm has registered,
// keyed by canonical symbol ID.
type securityRegistry struct {
	securities map[string]*backtestSecurity
}

func newSecurityRegistry() *securityRegistry {
	return &securityRegistry{
		securities: make(map[string]*backtestSecurity),
	}
}

func (r *securityRegistry) add(symbol types.Symbol, state *BacktestState) *backtestSecurity {
	if existing, ok := r.securities[symbol.ID()]; ok {
		return existing
	}

	security := &backtestSecurity{
		symbol: symbol,
		state:  state,
	}
	r.securities[symbol.ID()] = security

	return security
}

func (r *securityRegistry) get(symbolID string) (*backtestSecurity, bool) {
	security, ok := r.securities[symbolID]

	return security, ok
}

// backtestPortfolio is a read-only view over the run's positions.
type backtestPortfolio struct {
	state *BacktestState
}

// Invested implements algorithm.Portfolio.
func (p *backtestPortfolio) Invested() (bool, error) {
	positions, err := p.state.GetAllPositions()
	if err != nil {
		return false, err
	}

	for _, position := range positions {
		if !position.IsFlat() {
			return true, nil
		}
	}

	return false, nil
}

// Holdings implements algorithm.Portfolio.
func (p *backtestPortfolio) Holdings(symbol types.Symbol) (types.Position, error) {
	return p.state.GetPosition(symbol.ID())
}

// OpenPositions implements algorithm.Portfolio.
func (p *backtestPortfolio) OpenPositions() ([]types.Position, error) {
	positions, err := p.state.GetAllPositions()
	if err != nil {
		return nil, err
	}

	var open []types.Position

	for _, position := range positions {
		if !position.IsFlat() {
			open = append(open, position)
		}
	}

	return open, nil
}

var (
	_ algorithm.Security  = (*backtestSecurity)(nil)
	_ algorithm.Portfolio = (*backtestPortfolio)(nil)
)
