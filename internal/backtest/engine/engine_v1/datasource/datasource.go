package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/types"
)

// SQLResult represents a row of data from a SQL query.
type SQLResult struct {
	Values map[string]interface{}
}

type DataSource interface {
	// Initialize loads market data from the given path. CSV and Parquet
	// files are supported; glob patterns load multiple files.
	Initialize(path string) error
	// ReadAll reads all the data from the data source ordered by time and
	// yields it to the caller.
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool)
	// ReadLastData reads the last bar for a specific symbol.
	ReadLastData(symbol string) (types.MarketData, error)
	// ExecuteSQL executes a raw SQL query and returns the results as SQLResult.
	ExecuteSQL(query string, params ...interface{}) ([]SQLResult, error)
	// Count returns the number of rows in the data source.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Close closes the data source and releases any resources.
	Close() error
}
