package chain

import (
	"time"

	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
)

// StaticProvider serves option chains from an in-memory table, keyed by
// the underlying's canonical ID. Used by tests and programmatic runs.
type StaticProvider struct {
	chains map[string][]types.Symbol
}

// NewStaticProvider creates a provider over the given chains.
func NewStaticProvider(chains map[string][]types.Symbol) *StaticProvider {
	return &StaticProvider{
		chains: chains,
	}
}

// GetOptionContractList implements Provider.
func (p *StaticProvider) GetOptionContractList(underlying types.Symbol, asOf time.Time) ([]types.Symbol, error) {
	listed, ok := p.chains[underlying.ID()]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeChainNotFound, "no option chain for underlying %s", underlying.Value)
	}

	var contracts []types.Symbol

	for _, contract := range listed {
		if contract.Expiry.Before(asOf) {
			continue
		}

		contracts = append(contracts, contract)
	}

	if len(contracts) == 0 {
		return nil, errors.Newf(errors.ErrCodeEmptyChain, "no option contracts listed on %s as of %s", underlying.Value, asOf.Format("2006-01-02"))
	}

	return contracts, nil
}

// Close implements Provider.
func (p *StaticProvider) Close() error {
	return nil
}
