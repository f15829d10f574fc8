package engine

import (
	"context"

	"github.com/rxtech-lab/argo-options/internal/algorithm"
	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/chain"
	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/datasource"
)

// Lifecycle callback types for backtest phases.
// All callbacks with error return can abort execution if they return an error.

// OnRunStartCallback is called once before the first data point is
// processed. totalDataPoints is the number of bars the run will consume.
type OnRunStartCallback func(runID string, algorithmName string, totalDataPoints int) error

// OnRunEndCallback is called when the run ends (always called via defer).
type OnRunEndCallback func(algorithmName string, resultFolderPath string, err error)

// OnProcessDataCallback is called for each data point processed.
type OnProcessDataCallback func(current int, total int) error

// LifecycleCallbacks holds all lifecycle callback functions for the
// backtest engine. All fields are pointers, nil means no callback will
// be invoked.
type LifecycleCallbacks struct {
	OnRunStart    *OnRunStartCallback
	OnRunEnd      *OnRunEndCallback
	OnProcessData *OnProcessDataCallback
}

type Engine interface {
	// Initialize the engine with the given yaml configuration content.
	Initialize(config string) error
	// LoadAlgorithm loads the algorithm the engine will drive. A run
	// executes exactly one algorithm.
	LoadAlgorithm(algo algorithm.Algorithm) error
	// SetDataPath sets the path to the market data file. Accepts glob
	// patterns for batch loading (e.g., "data/*.parquet").
	SetDataPath(path string) error
	// SetChainPath sets the path to the option chain listing file.
	SetChainPath(path string) error
	// SetResultsFolder sets the output directory for saving backtest results.
	SetResultsFolder(folder string) error
	// SetDataSource sets the data source for the engine.
	SetDataSource(source datasource.DataSource) error
	// SetChainProvider sets the option chain provider directly. An
	// alternative to SetChainPath for programmatic usage.
	SetChainProvider(provider chain.Provider) error
	// Run runs the engine and executes the loaded algorithm.
	// The context can be used to cancel the backtest operation.
	// Use LifecycleCallbacks to receive notifications at different
	// phases of the run.
	Run(ctx context.Context, callbacks LifecycleCallbacks) error
	// GetConfigSchema returns the schema of the engine configuration.
	GetConfigSchema() (string, error)
}
