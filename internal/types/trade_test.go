package types

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type PositionTestSuite struct {
	suite.Suite
}

func TestPositionSuite(t *testing.T) {
	suite.Run(t, new(PositionTestSuite))
}

func (suite *PositionTestSuite) TestNetQuantityShort() {
	position := Position{
		Symbol:                       "cme:ES:20210319:P:3200",
		TotalShortPositionQuantity:   1,
		TotalShortInPositionQuantity: 1,
		TotalShortInPositionAmount:   75.0,
	}

	suite.Equal(-1.0, position.NetQuantity())
	suite.False(position.IsFlat())
}

func (suite *PositionTestSuite) TestNetQuantityFlat() {
	position := Position{
		Symbol:                        "cme:ES:20210319:P:3200",
		TotalShortInPositionQuantity:  1,
		TotalShortOutPositionQuantity: 1,
	}

	suite.Equal(0.0, position.NetQuantity())
	suite.True(position.IsFlat())
}

func (suite *PositionTestSuite) TestAverageShortEntryPrice() {
	position := Position{
		TotalShortInPositionQuantity: 2,
		TotalShortInPositionAmount:   150.0,
		TotalShortInFee:              2.0,
	}

	// Entry premium collected net of fees: (150 - 2) / 2
	suite.InDelta(74.0, position.GetAverageShortPositionEntryPrice(), 1e-9)
}

func (suite *PositionTestSuite) TestShortPnLExpiredWorthless() {
	// Sold 1 contract at 75, expired worthless (closed at 0).
	position := Position{
		TotalShortPositionQuantity:    0,
		TotalShortInPositionQuantity:  1,
		TotalShortInPositionAmount:    75.0,
		TotalShortOutPositionQuantity: 1,
		TotalShortOutPositionAmount:   0,
	}

	suite.InDelta(75.0, position.GetTotalShortPnL(), 1e-9)
}

func (suite *PositionTestSuite) TestShortPnLNoClosedQuantity() {
	position := Position{
		TotalShortInPositionQuantity: 1,
		TotalShortInPositionAmount:   75.0,
	}

	suite.Equal(0.0, position.GetTotalShortPnL())
}
