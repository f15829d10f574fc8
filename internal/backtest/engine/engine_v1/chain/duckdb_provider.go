package chain

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/logger"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DuckDBProvider serves option chains from a CSV or Parquet chain file
// with columns: ticker, market, underlying_expiry, style, right, strike,
// expiry. One row per listed contract.
type DuckDBProvider struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBProvider creates a provider and loads the chain file at path.
func NewDuckDBProvider(path string, logger *logger.Logger) (Provider, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, err
	}

	provider := &DuckDBProvider{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := provider.initialize(path); err != nil {
		db.Close()

		return nil, err
	}

	return provider, nil
}

func (p *DuckDBProvider) initialize(path string) error {
	p.logger.Debug("Loading option chains", zap.String("path", path))

	var reader string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		reader = "read_csv_auto"
	case ".parquet":
		reader = "read_parquet"
	default:
		return errors.Newf(errors.ErrCodeChainPathNotSet, "unsupported chain file extension: %s", path)
	}

	query := fmt.Sprintf(`
		CREATE VIEW option_chains AS
		SELECT * FROM %s('%s');
	`, reader, path)

	if _, err := p.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeChainQueryFailed, err, "failed to load option chains from %s", path)
	}

	return nil
}

// GetOptionContractList implements Provider.
func (p *DuckDBProvider) GetOptionContractList(underlying types.Symbol, asOf time.Time) ([]types.Symbol, error) {
	if underlying.SecurityType != types.SecurityTypeFuture {
		return nil, errors.Newf(errors.ErrCodeInvalidSymbol, "option chains are only listed on futures, got %s", underlying.SecurityType)
	}

	query, args, err := p.sq.
		Select("market", "style", `"right"`, "strike", "expiry").
		From("option_chains").
		Where(squirrel.Eq{"ticker": underlying.Ticker}).
		Where(squirrel.Eq{"underlying_expiry": underlying.Expiry}).
		Where(squirrel.GtOrEq{"expiry": asOf}).
		OrderBy("expiry ASC", "strike ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build chain query: %w", err)
	}

	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeChainQueryFailed, "failed to query option chains", err)
	}
	defer rows.Close()

	var contracts []types.Symbol

	for rows.Next() {
		var (
			market, style, right string
			strike               float64
			expiry               time.Time
		)

		if err := rows.Scan(&market, &style, &right, &strike, &expiry); err != nil {
			return nil, fmt.Errorf("failed to scan chain row: %w", err)
		}

		contracts = append(contracts, types.NewFutureOption(
			underlying,
			types.Market(market),
			types.OptionStyle(style),
			types.OptionRight(right),
			decimal.NewFromFloat(strike),
			expiry,
		))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chain rows: %w", err)
	}

	if len(contracts) == 0 {
		return nil, errors.Newf(errors.ErrCodeEmptyChain, "no option contracts listed on %s as of %s", underlying.Value, asOf.Format("2006-01-02"))
	}

	return contracts, nil
}

// Close implements Provider.
func (p *DuckDBProvider) Close() error {
	return p.db.Close()
}

// Filter helpers shared by providers and tests.

// FilterPuts returns the puts with strike at or above the threshold,
// sorted ascending by strike.
func FilterPuts(contracts []types.Symbol, minStrike decimal.Decimal) []types.Symbol {
	return filterByRight(contracts, types.OptionRightPut, optional.Some(minStrike))
}

// FilterCalls returns the calls with strike at or above the threshold,
// sorted ascending by strike.
func FilterCalls(contracts []types.Symbol, minStrike decimal.Decimal) []types.Symbol {
	return filterByRight(contracts, types.OptionRightCall, optional.Some(minStrike))
}

func filterByRight(contracts []types.Symbol, right types.OptionRight, minStrike optional.Option[decimal.Decimal]) []types.Symbol {
	var filtered []types.Symbol

	for _, contract := range contracts {
		if contract.Right != right {
			continue
		}

		if minStrike.IsSome() && contract.Strike.LessThan(minStrike.Unwrap()) {
			continue
		}

		filtered = append(filtered, contract)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Strike.LessThan(filtered[j].Strike)
	})

	return filtered
}
