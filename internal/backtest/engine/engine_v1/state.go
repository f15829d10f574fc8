package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/logger"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BacktestState persists the orders and trades of a run in an in-memory
// DuckDB database. Positions are not stored, they are reconstructed from
// the trade history so signed holdings always agree with the fills and
// settlements that produced them.
type BacktestState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewBacktestState(logger *logger.Logger) (*BacktestState, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to open state database", err)
	}

	return &BacktestState{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the necessary tables for tracking orders and trades.
func (b *BacktestState) Initialize() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			order_id TEXT PRIMARY KEY,
			symbol TEXT,
			order_type TEXT,
			position_type TEXT,
			quantity DOUBLE,
			price DOUBLE,
			timestamp TIMESTAMP,
			is_completed BOOLEAN,
			reason TEXT,
			message TEXT,
			algorithm_name TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create orders table: %w", err)
	}

	_, err = b.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			order_id TEXT,
			symbol TEXT,
			order_type TEXT,
			position_type TEXT,
			quantity DOUBLE,
			price DOUBLE,
			timestamp TIMESTAMP,
			is_completed BOOLEAN,
			reason TEXT,
			message TEXT,
			algorithm_name TEXT,
			executed_at TIMESTAMP,
			executed_qty DOUBLE,
			executed_price DOUBLE,
			commission DOUBLE,
			pnl DOUBLE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create trades table: %w", err)
	}

	return nil
}

// UpdateResult contains the results of processing an order.
type UpdateResult struct {
	Order         types.Order
	Trade         types.Trade
	IsNewPosition bool
}

// Update processes orders and records the resulting trades. Each order is
// treated as fully executed at its price. Settlements (worthless expiry,
// assignment) flow through here too, as closing orders with their reason
// set accordingly.
func (b *BacktestState) Update(orders []types.Order) ([]UpdateResult, error) {
	results := make([]UpdateResult, 0, len(orders))

	for _, order := range orders {
		orderID := order.OrderID
		if orderID == "" {
			orderID = uuid.New().String()
		}

		tx, err := b.db.Begin()
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}

		insertQuery := b.sq.
			Insert("orders").
			Columns(
				"order_id", "symbol", "order_type", "position_type", "quantity", "price",
				"timestamp", "is_completed", "reason", "message", "algorithm_name",
			).
			Values(
				orderID, order.Symbol, order.Side, order.PositionType, order.Quantity,
				order.Price, order.Timestamp, order.IsCompleted, order.Reason.Reason,
				order.Reason.Message, order.AlgorithmName,
			).
			RunWith(tx)

		if _, err := insertQuery.Exec(); err != nil {
			tx.Rollback()

			return nil, fmt.Errorf("failed to insert order: %w", err)
		}

		currentPosition, err := b.GetPosition(order.Symbol)
		if err != nil {
			tx.Rollback()

			return nil, fmt.Errorf("failed to get position: %w", err)
		}

		pnl := calculateClosingPnL(order, currentPosition)

		trade := types.Trade{
			Order: types.Order{
				OrderID:       orderID,
				Symbol:        order.Symbol,
				Side:          order.Side,
				PositionType:  order.PositionType,
				Quantity:      order.Quantity,
				Price:         order.Price,
				Timestamp:     order.Timestamp,
				IsCompleted:   order.IsCompleted,
				Status:        order.Status,
				Reason:        order.Reason,
				AlgorithmName: order.AlgorithmName,
				Fee:           order.Fee,
			},
			ExecutedAt:    order.Timestamp,
			ExecutedQty:   order.Quantity,
			ExecutedPrice: order.Price,
			Fee:           order.Fee,
			PnL:           pnl,
		}

		insertTradeQuery := b.sq.
			Insert("trades").
			Columns(
				"order_id", "symbol", "order_type", "position_type", "quantity", "price",
				"timestamp", "is_completed", "reason", "message", "algorithm_name",
				"executed_at", "executed_qty", "executed_price", "commission", "pnl",
			).
			Values(
				orderID, trade.Order.Symbol, trade.Order.Side, trade.Order.PositionType,
				trade.Order.Quantity, trade.Order.Price, trade.Order.Timestamp,
				trade.Order.IsCompleted, trade.Order.Reason.Reason, trade.Order.Reason.Message,
				trade.Order.AlgorithmName, trade.ExecutedAt, trade.ExecutedQty,
				trade.ExecutedPrice, trade.Fee, trade.PnL,
			).
			RunWith(tx)

		if _, err := insertTradeQuery.Exec(); err != nil {
			tx.Rollback()

			return nil, fmt.Errorf("failed to insert trade: %w", err)
		}

		isNewPosition := currentPosition.IsFlat()

		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}

		order.OrderID = orderID
		results = append(results, UpdateResult{
			Order:         order,
			Trade:         trade,
			IsNewPosition: isNewPosition,
		})
	}

	return results, nil
}

// calculateClosingPnL returns the realized PnL for a closing order, 0 for
// opening orders. Decimal arithmetic avoids float drift on the premium.
func calculateClosingPnL(order types.Order, position types.Position) float64 {
	qty := decimal.NewFromFloat(order.Quantity)
	price := decimal.NewFromFloat(order.Price)
	fee := decimal.NewFromFloat(order.Fee)

	switch {
	case order.Side == types.PurchaseTypeSell && order.PositionType == types.PositionTypeLong && position.TotalLongPositionQuantity > 0:
		entry := qty.Mul(decimal.NewFromFloat(position.GetAverageLongPositionEntryPrice()))
		exit := qty.Mul(price).Sub(fee)
		pnl, _ := exit.Sub(entry).Float64()

		return pnl
	case order.Side == types.PurchaseTypeBuy && order.PositionType == types.PositionTypeShort && position.TotalShortPositionQuantity > 0:
		entry := qty.Mul(decimal.NewFromFloat(position.GetAverageShortPositionEntryPrice()))
		exit := qty.Mul(price).Add(fee)
		pnl, _ := entry.Sub(exit).Float64()

		return pnl
	default:
		return 0
	}
}

// positionQuery aggregates the four trade legs of a symbol in one pass:
// long entries (BUY/LONG), long exits (SELL/LONG), short entries
// (SELL/SHORT) and short exits (BUY/SHORT).
const positionQuery = `
	SELECT
		COALESCE(SUM(CASE WHEN order_type = ? AND position_type = ? THEN executed_qty END), 0) AS long_in_qty,
		COALESCE(SUM(CASE WHEN order_type = ? AND position_type = ? THEN executed_qty END), 0) AS long_out_qty,
		COALESCE(SUM(CASE WHEN order_type = ? AND position_type = ? THEN executed_qty * executed_price END), 0) AS long_in_amount,
		COALESCE(SUM(CASE WHEN order_type = ? AND position_type = ? THEN executed_qty * executed_price END), 0) AS long_out_amount,
		COALESCE(SUM(CASE WHEN order_type = ? AND position_type = ? THEN commission END), 0) AS long_in_fee,
		COALESCE(SUM(CASE WHEN order_type = ? AND position_type = ? THEN commission END), 0) AS long_out_fee,
		COALESCE(SUM(CASE WHEN order_type = ? AND position_type = ? THEN executed_qty END), 0) AS short_in_qty,
		COALESCE(SUM(CASE WHEN order_type = ? AND position_type = ? THEN executed_qty END), 0) AS short_out_qty,
		COALESCE(SUM(CASE WHEN order_type = ? AND position_type = ? THEN executed_qty * executed_price END), 0) AS short_in_amount,
		COALESCE(SUM(CASE WHEN order_type = ? AND position_type = ? THEN executed_qty * executed_price END), 0) AS short_out_amount,
		COALESCE(SUM(CASE WHEN order_type = ? AND position_type = ? THEN commission END), 0) AS short_in_fee,
		COALESCE(SUM(CASE WHEN order_type = ? AND position_type = ? THEN commission END), 0) AS short_out_fee,
		COALESCE(MIN(executed_at), CURRENT_TIMESTAMP) AS open_timestamp,
		COALESCE(MAX(algorithm_name), '') AS algorithm_name
	FROM trades
	WHERE symbol = ?
`

func positionQueryArgs(symbol string) []interface{} {
	legs := [][2]interface{}{
		{types.PurchaseTypeBuy, types.PositionTypeLong},
		{types.PurchaseTypeSell, types.PositionTypeLong},
		{types.PurchaseTypeBuy, types.PositionTypeLong},
		{types.PurchaseTypeSell, types.PositionTypeLong},
		{types.PurchaseTypeBuy, types.PositionTypeLong},
		{types.PurchaseTypeSell, types.PositionTypeLong},
		{types.PurchaseTypeSell, types.PositionTypeShort},
		{types.PurchaseTypeBuy, types.PositionTypeShort},
		{types.PurchaseTypeSell, types.PositionTypeShort},
		{types.PurchaseTypeBuy, types.PositionTypeShort},
		{types.PurchaseTypeSell, types.PositionTypeShort},
		{types.PurchaseTypeBuy, types.PositionTypeShort},
	}

	args := make([]interface{}, 0, len(legs)*2+1)
	for _, leg := range legs {
		args = append(args, leg[0], leg[1])
	}

	args = append(args, symbol)

	return args
}

// GetPosition reconstructs the current position for a symbol from its
// trades. A symbol with no trades returns a flat zero position.
func (b *BacktestState) GetPosition(symbol string) (types.Position, error) {
	position := types.Position{
		Symbol: symbol,
	}

	err := b.db.QueryRow(positionQuery, positionQueryArgs(symbol)...).Scan(
		&position.TotalLongInPositionQuantity,
		&position.TotalLongOutPositionQuantity,
		&position.TotalLongInPositionAmount,
		&position.TotalLongOutPositionAmount,
		&position.TotalLongInFee,
		&position.TotalLongOutFee,
		&position.TotalShortInPositionQuantity,
		&position.TotalShortOutPositionQuantity,
		&position.TotalShortInPositionAmount,
		&position.TotalShortOutPositionAmount,
		&position.TotalShortInFee,
		&position.TotalShortOutFee,
		&position.OpenTimestamp,
		&position.AlgorithmName,
	)
	if err != nil {
		return types.Position{}, fmt.Errorf("failed to query position: %w", err)
	}

	position.TotalLongPositionQuantity = position.TotalLongInPositionQuantity - position.TotalLongOutPositionQuantity
	position.TotalShortPositionQuantity = position.TotalShortInPositionQuantity - position.TotalShortOutPositionQuantity

	return position, nil
}

// GetAllPositions returns the positions of every symbol that has trades,
// open or flat.
func (b *BacktestState) GetAllPositions() ([]types.Position, error) {
	selectQuery := b.sq.
		Select("DISTINCT symbol").
		From("trades").
		OrderBy("symbol").
		RunWith(b.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to get unique symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}

		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	positions := make([]types.Position, 0, len(symbols))

	for _, symbol := range symbols {
		position, err := b.GetPosition(symbol)
		if err != nil {
			return nil, err
		}

		positions = append(positions, position)
	}

	return positions, nil
}

// GetAllTrades returns all trades ordered by execution time.
func (b *BacktestState) GetAllTrades() ([]types.Trade, error) {
	selectQuery := b.sq.
		Select(
			"order_id", "symbol", "order_type", "position_type", "quantity", "price",
			"timestamp", "is_completed", "reason", "message", "algorithm_name",
			"executed_at", "executed_qty", "executed_price", "commission", "pnl",
		).
		From("trades").
		OrderBy("executed_at ASC").
		RunWith(b.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []types.Trade

	for rows.Next() {
		var trade types.Trade

		err := rows.Scan(
			&trade.Order.OrderID,
			&trade.Order.Symbol,
			&trade.Order.Side,
			&trade.Order.PositionType,
			&trade.Order.Quantity,
			&trade.Order.Price,
			&trade.Order.Timestamp,
			&trade.Order.IsCompleted,
			&trade.Order.Reason.Reason,
			&trade.Order.Reason.Message,
			&trade.Order.AlgorithmName,
			&trade.ExecutedAt,
			&trade.ExecutedQty,
			&trade.ExecutedPrice,
			&trade.Fee,
			&trade.PnL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// GetOrderById returns an order by its id, None if it does not exist.
func (b *BacktestState) GetOrderById(orderID string) (optional.Option[types.Order], error) {
	query := b.sq.
		Select(
			"order_id", "symbol", "order_type", "position_type", "quantity", "price",
			"timestamp", "is_completed", "reason", "message", "algorithm_name",
		).
		From("orders").
		Where(squirrel.Eq{"order_id": orderID}).
		RunWith(b.db)

	var order types.Order

	err := query.QueryRow().Scan(
		&order.OrderID,
		&order.Symbol,
		&order.Side,
		&order.PositionType,
		&order.Quantity,
		&order.Price,
		&order.Timestamp,
		&order.IsCompleted,
		&order.Reason.Reason,
		&order.Reason.Message,
		&order.AlgorithmName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return optional.None[types.Order](), nil
		}

		return optional.None[types.Order](), fmt.Errorf("failed to get order by id: %w", err)
	}

	return optional.Some(order), nil
}

// Cleanup resets the database state.
func (b *BacktestState) Cleanup() error {
	_, err := b.db.Exec(`
		DROP TABLE IF EXISTS trades;
		DROP TABLE IF EXISTS orders;
	`)
	if err != nil {
		return fmt.Errorf("failed to cleanup tables: %w", err)
	}

	return b.Initialize()
}

// Close releases the underlying database.
func (b *BacktestState) Close() error {
	return b.db.Close()
}

// Write saves the run results to Parquet files in the given directory.
func (b *BacktestState) Write(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tradesPath := filepath.Join(path, "trades.parquet")
	if _, err := b.db.Exec(fmt.Sprintf(`COPY trades TO '%s' (FORMAT PARQUET)`, tradesPath)); err != nil {
		return fmt.Errorf("failed to export trades to Parquet: %w", err)
	}

	ordersPath := filepath.Join(path, "orders.parquet")
	if _, err := b.db.Exec(fmt.Sprintf(`COPY orders TO '%s' (FORMAT PARQUET)`, ordersPath)); err != nil {
		return fmt.Errorf("failed to export orders to Parquet: %w", err)
	}

	b.logger.Info("Exported run results to Parquet files",
		zap.String("trades", tradesPath),
		zap.String("orders", ordersPath),
	)

	return nil
}
