package engine

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/algorithm"
	"github.com/rxtech-lab/argo-options/internal/backtest/engine"
	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/chain"
	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-options/internal/logger"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/internal/version"
	"github.com/rxtech-lab/argo-options/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// scheduledEvent is a one-shot callback registered through the host API.
// It fires on the first slice whose time is at or past the fire instant.
type scheduledEvent struct {
	at       time.Time
	callback func() error
	fired    bool
}

// expiryTracker follows a registered option contract towards its expiry.
// The warning is stamped on the expiry date, the final delisting one day
// later; each is delivered on the first slice at or past its stamp.
type expiryTracker struct {
	option       types.Symbol
	warningSent  bool
	delistedSent bool
}

func (t *expiryTracker) warningTime() time.Time {
	return t.option.Expiry
}

func (t *expiryTracker) delistedTime() time.Time {
	return t.option.Expiry.AddDate(0, 0, 1)
}

type BacktestEngineV1 struct {
	config          BacktestEngineV1Config
	algo            algorithm.Algorithm
	dataPaths       []string
	chainPath       string
	resultsFolder   string
	log             *logger.Logger
	state           *BacktestState
	trading         *BacktestTrading
	datasource      datasource.DataSource
	chainProvider   chain.Provider
	securities      *securityRegistry
	scheduledEvents []*scheduledEvent
	expiries        []*expiryTracker
	startTime       optional.Option[time.Time]
	endTime         optional.Option[time.Time]
}

func NewBacktestEngineV1() engine.Engine {
	return &BacktestEngineV1{
		config:     EmptyConfig(),
		securities: newSecurityRegistry(),
		startTime:  optional.None[time.Time](),
		endTime:    optional.None[time.Time](),
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	if err := yaml.Unmarshal([]byte(config), &b.config); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse engine configuration", err)
	}

	if err := b.config.Validate(); err != nil {
		return err
	}

	var loggerError error

	b.log, loggerError = logger.NewLogger()
	if loggerError != nil {
		return loggerError
	}

	b.log.Debug("Backtest engine initialized",
		zap.String("config", config),
	)

	state, err := NewBacktestState(b.log)
	if err != nil {
		return err
	}

	if err := state.Initialize(); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to initialize state", err)
	}

	b.state = state

	commissionFee := commission_fee.GetCommissionFeeHandler(b.config.Broker)
	b.trading = NewBacktestTrading(b.state, b.config.InitialCapital, commissionFee, b.config.DecimalPrecision)

	b.startTime = b.config.StartTime
	b.endTime = b.config.EndTime

	return nil
}

// LoadAlgorithm implements engine.Engine.
func (b *BacktestEngineV1) LoadAlgorithm(algo algorithm.Algorithm) error {
	b.algo = algo
	b.log.Debug("Algorithm loaded",
		zap.String("name", algo.Name()),
	)

	return nil
}

// SetDataPath implements engine.Engine.
func (b *BacktestEngineV1) SetDataPath(path string) error {
	files, err := filepath.Glob(path)
	if err != nil {
		b.log.Error("Failed to set data path",
			zap.String("path", path),
			zap.Error(err),
		)

		return errors.Wrap(errors.ErrCodeBacktestDataPathError, "failed to resolve data path", err)
	}

	absolutePaths := make([]string, len(files))

	for i, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeBacktestDataPathError, err, "failed to get absolute path for %s", file)
		}

		absolutePaths[i] = absPath
	}

	b.dataPaths = absolutePaths
	b.log.Debug("Data paths set",
		zap.Strings("files", absolutePaths),
	)

	return nil
}

// SetChainPath implements engine.Engine.
func (b *BacktestEngineV1) SetChainPath(path string) error {
	b.chainPath = path
	b.log.Debug("Chain path set",
		zap.String("path", path),
	)

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder
	b.log.Debug("Results folder set",
		zap.String("folder", folder),
	)

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(source datasource.DataSource) error {
	b.datasource = source

	return nil
}

// SetChainProvider implements engine.Engine.
func (b *BacktestEngineV1) SetChainProvider(provider chain.Provider) error {
	b.chainProvider = provider

	return nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to generate schema", err)
	}

	return schema, nil
}

func (b *BacktestEngineV1) algorithmName() string {
	if b.algo == nil {
		return ""
	}

	return b.algo.Name()
}

// trackExpiry registers an option contract for delisting notification and
// expiry settlement.
func (b *BacktestEngineV1) trackExpiry(option types.Symbol) {
	for _, tracker := range b.expiries {
		if tracker.option.Equal(option) {
			return
		}
	}

	b.expiries = append(b.expiries, &expiryTracker{option: option})
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (runErr error) {
	if err := b.preRunCheck(); err != nil {
		return err
	}

	if err := version.CheckVersionCompatibility(version.Version, b.algo.MinEngineVersion()); err != nil {
		return errors.Wrap(errors.ErrCodeVersionMismatch, "algorithm is not compatible with this engine", err)
	}

	resultFolderPath := filepath.Join(b.resultsFolder, b.algo.Name())

	defer func() {
		if callbacks.OnRunEnd != nil {
			(*callbacks.OnRunEnd)(b.algo.Name(), resultFolderPath, runErr)
		}
	}()

	if _, err := os.Stat(resultFolderPath); err == nil {
		os.RemoveAll(resultFolderPath)
	}

	if err := os.MkdirAll(resultFolderPath, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestNoResultsDir, "failed to create results folder", err)
	}

	if err := b.prepareRun(); err != nil {
		return err
	}

	if b.chainProvider == nil && b.chainPath != "" {
		provider, err := chain.NewDuckDBProvider(b.chainPath, b.log)
		if err != nil {
			return err
		}

		b.chainProvider = provider

		defer func() {
			provider.Close()
			b.chainProvider = nil
		}()
	}

	api := &hostAPI{engine: b}

	b.trading.SetOrderEventHandler(func(event types.OrderEvent) error {
		b.log.Debug("Order event",
			zap.String("event", event.String()),
		)

		return b.algo.OnOrderEvent(event)
	})

	if err := b.algo.Initialize(api); err != nil {
		return errors.Wrap(errors.ErrCodeAlgorithmInitFailed, "algorithm initialization failed", err)
	}

	for _, dataPath := range b.dataPaths {
		if err := b.runDataFile(ctx, dataPath, callbacks); err != nil {
			return err
		}
	}

	if err := b.algo.OnEndOfAlgorithm(); err != nil {
		return errors.Wrap(errors.ErrCodeAlgorithmRuntimeError, "end of algorithm callback failed", err)
	}

	if err := b.state.Write(resultFolderPath); err != nil {
		return err
	}

	return nil
}

// prepareRun resets per-run state so repeated runs are independent.
func (b *BacktestEngineV1) prepareRun() error {
	if err := b.state.Cleanup(); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to reset state", err)
	}

	b.trading.Reset(b.config.InitialCapital)
	b.securities = newSecurityRegistry()
	b.scheduledEvents = nil
	b.expiries = nil
	b.startTime = b.config.StartTime
	b.endTime = b.config.EndTime

	return nil
}

func (b *BacktestEngineV1) runDataFile(ctx context.Context, dataPath string, callbacks engine.LifecycleCallbacks) error {
	if err := b.datasource.Initialize(dataPath); err != nil {
		return errors.Wrapf(errors.ErrCodeBacktestDataPathError, err, "failed to initialize data source with %s", dataPath)
	}

	total, err := b.datasource.Count(b.startTime, b.endTime)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to count data points", err)
	}

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(uuid.New().String(), b.algo.Name(), total); err != nil {
			return err
		}
	}

	b.log.Debug("Running algorithm",
		zap.String("algorithm", b.algo.Name()),
		zap.String("data", dataPath),
		zap.Int("data_points", total),
	)

	current := 0
	slice := types.Slice{}

	for data, err := range b.datasource.ReadAll(b.startTime, b.endTime) {
		if err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to read data", err)
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if slice.Bars == nil {
			slice = types.NewSlice(data.Time)
		} else if !data.Time.Equal(slice.Time) {
			if err := b.processSlice(slice); err != nil {
				return err
			}

			slice = types.NewSlice(data.Time)
		}

		slice.Bars[data.Symbol] = data

		current++

		if callbacks.OnProcessData != nil {
			if err := (*callbacks.OnProcessData)(current, total); err != nil {
				return err
			}
		}
	}

	if slice.Bars != nil {
		if err := b.processSlice(slice); err != nil {
			return err
		}
	}

	return nil
}

// processSlice advances simulated time to the slice: prices update,
// due scheduled events fire, due delistings attach, the slice is
// delivered, and freshly delisted options settle.
func (b *BacktestEngineV1) processSlice(slice types.Slice) error {
	for symbolID, bar := range slice.Bars {
		if security, ok := b.securities.get(symbolID); ok {
			security.updatePrice(bar)
		}
	}

	b.trading.UpdateCurrentSlice(slice)

	for _, event := range b.scheduledEvents {
		if event.fired || slice.Time.Before(event.at) {
			continue
		}

		event.fired = true

		if err := event.callback(); err != nil {
			return errors.Wrap(errors.ErrCodeAlgorithmRuntimeError, "scheduled event failed", err)
		}
	}

	var settle []*expiryTracker

	var earlyWarnings []types.Delisting

	for _, tracker := range b.expiries {
		warningDue := !tracker.warningSent && !slice.Time.Before(tracker.warningTime())
		delistedDue := !tracker.delistedSent && !slice.Time.Before(tracker.delistedTime())

		if warningDue {
			tracker.warningSent = true
			warning := types.Delisting{
				SymbolID: tracker.option.ID(),
				Time:     tracker.warningTime(),
				Type:     types.DelistingTypeWarning,
			}

			// A data gap over the expiry can make both notifications due
			// on the same slice. The warning must still arrive before the
			// final delisting, so it gets its own delivery.
			if delistedDue {
				earlyWarnings = append(earlyWarnings, warning)
			} else {
				slice.Delistings[tracker.option.ID()] = warning
			}
		}

		if delistedDue {
			tracker.delistedSent = true
			slice.Delistings[tracker.option.ID()] = types.Delisting{
				SymbolID: tracker.option.ID(),
				Time:     tracker.delistedTime(),
				Type:     types.DelistingTypeDelisted,
			}
			settle = append(settle, tracker)
		}
	}

	if len(earlyWarnings) > 0 {
		warningSlice := types.NewSlice(slice.Time)
		for _, warning := range earlyWarnings {
			warningSlice.Delistings[warning.SymbolID] = warning
		}

		if err := b.algo.OnData(warningSlice); err != nil {
			return errors.Wrap(errors.ErrCodeAlgorithmRuntimeError, "data callback failed", err)
		}
	}

	if err := b.algo.OnData(slice); err != nil {
		return errors.Wrap(errors.ErrCodeAlgorithmRuntimeError, "data callback failed", err)
	}

	for _, tracker := range settle {
		underlyingPrice := 0.0
		if tracker.option.Underlying != nil {
			if security, ok := b.securities.get(tracker.option.Underlying.ID()); ok {
				underlyingPrice = security.Price()
			}
		}

		if err := b.trading.SettleExpiry(tracker.option, underlyingPrice, tracker.delistedTime(), b.algorithmName()); err != nil {
			return err
		}
	}

	return nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if b.algo == nil {
		b.log.Error("No algorithm loaded")

		return errors.New(errors.ErrCodeBacktestNoAlgorithm, "no algorithm loaded")
	}

	if len(b.dataPaths) == 0 {
		b.log.Error("No data paths loaded")

		return errors.New(errors.ErrCodeBacktestNoDataPaths, "no data paths loaded")
	}

	if b.resultsFolder == "" {
		b.log.Error("No results folder set")

		return errors.New(errors.ErrCodeBacktestNoResultsDir, "no results folder set")
	}

	if b.datasource == nil {
		b.log.Error("No datasource set")

		return errors.New(errors.ErrCodeBacktestNoDatasource, "no datasource set")
	}

	return nil
}
