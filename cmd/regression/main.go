package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/rxtech-lab/argo-options/internal/backtest/engine"
	enginev1 "github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-options/internal/logger"
	"github.com/rxtech-lab/argo-options/internal/regression"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/mocks"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"
)

const defaultConfig = `
initial_capital: 100000
broker: interactive_broker
decimal_precision: 0
market_open: "09:30"
`

// generateScenarioFiles writes the deterministic bar and chain files the
// short put scenario runs against.
func generateScenarioFiles(dataPath, chainPath string) error {
	es := types.NewFuture(types.FutureSP500EMini, types.MarketCME, time.Date(2021, 3, 19, 0, 0, 0, 0, time.UTC))
	put := types.NewFutureOption(es, types.MarketCME, types.OptionStyleAmerican, types.OptionRightPut, decimal.NewFromInt(3200), es.Expiry)

	for _, path := range []string{dataPath, chainPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	if err := mocks.WriteCSV(dataPath, mocks.ShortPutScenarioData(es, put)); err != nil {
		return fmt.Errorf("failed to write bar data: %w", err)
	}

	if err := mocks.WriteChainCSV(chainPath, mocks.ShortPutScenarioChain(es)); err != nil {
		return fmt.Errorf("failed to write chain data: %w", err)
	}

	return nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	dataPath := cmd.String("data")
	chainPath := cmd.String("chain")
	resultsFolder := cmd.String("results")
	configPath := cmd.String("config")

	if cmd.Bool("generate") {
		log.Printf("Generating scenario data: bars=%s chains=%s", dataPath, chainPath)

		if err := generateScenarioFiles(dataPath, chainPath); err != nil {
			return err
		}
	}

	config := defaultConfig

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		config = string(content)
	}

	logr, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer logr.Sync()

	source, err := datasource.NewDataSource(":memory:", logr)
	if err != nil {
		return err
	}
	defer source.Close()

	b := enginev1.NewBacktestEngineV1()
	if err := b.Initialize(config); err != nil {
		return err
	}

	algo := regression.NewShortPutOTMExpiryAlgorithm()
	if err := b.LoadAlgorithm(algo); err != nil {
		return err
	}

	if err := b.SetDataPath(dataPath); err != nil {
		return err
	}

	if err := b.SetChainPath(chainPath); err != nil {
		return err
	}

	if err := b.SetResultsFolder(resultsFolder); err != nil {
		return err
	}

	if err := b.SetDataSource(source); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	onRunStart := engine.OnRunStartCallback(func(runID string, algorithmName string, totalDataPoints int) error {
		bar = progressbar.Default(int64(totalDataPoints), algorithmName)

		return nil
	})
	onProcessData := engine.OnProcessDataCallback(func(current int, total int) error {
		if bar != nil {
			return bar.Set(current)
		}

		return nil
	})

	if err := b.Run(ctx, engine.LifecycleCallbacks{
		OnRunStart:    &onRunStart,
		OnProcessData: &onProcessData,
	}); err != nil {
		return err
	}

	fmt.Printf("Scenario %s completed: %d fill(s), %d delisting event(s)\n",
		algo.Name(), len(algo.Fills()), len(algo.Delistings()))
	fmt.Printf("Results written to %s\n", resultsFolder)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "regression",
		Usage: "Run the short put OTM expiry regression scenario",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Path to the market data CSV/Parquet file",
				Value:   "data/bars.csv",
			},
			&cli.StringFlag{
				Name:    "chain",
				Aliases: []string{"c"},
				Usage:   "Path to the option chain listing file",
				Value:   "data/chains.csv",
			},
			&cli.StringFlag{
				Name:    "results",
				Aliases: []string{"r"},
				Usage:   "Output directory for run results",
				Value:   "results",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to an engine configuration yaml file",
			},
			&cli.BoolFlag{
				Name:    "generate",
				Aliases: []string{"g"},
				Usage:   "Generate deterministic scenario data before running",
				Value:   true,
			},
		},
		Action: runAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
