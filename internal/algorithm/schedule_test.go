package algorithm

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/stretchr/testify/suite"
)

type ScheduleTestSuite struct {
	suite.Suite
}

func TestScheduleSuite(t *testing.T) {
	suite.Run(t, new(ScheduleTestSuite))
}

func (suite *ScheduleTestSuite) TestOnDate() {
	rule := OnDate(2020, time.September, 22)

	suite.Len(rule.Dates, 1)
	suite.Equal(time.Date(2020, 9, 22, 0, 0, 0, 0, time.UTC), rule.Dates[0])
}

func (suite *ScheduleTestSuite) TestAfterMarketOpenFireTimes() {
	es := types.NewFuture(types.FutureSP500EMini, types.MarketCME, time.Date(2021, 3, 19, 0, 0, 0, 0, time.UTC))
	dateRule := OnDate(2020, time.September, 22)
	timeRule := AfterMarketOpen(es, time.Minute)

	marketOpen := 9*time.Hour + 30*time.Minute
	times := FireTimes(dateRule, timeRule, marketOpen)

	suite.Len(times, 1)
	suite.Equal(time.Date(2020, 9, 22, 9, 31, 0, 0, time.UTC), times[0])
}

func (suite *ScheduleTestSuite) TestAtTimeFireTimes() {
	dateRule := OnDate(2020, time.September, 22)
	timeRule := AtTime(15, 45)

	times := FireTimes(dateRule, timeRule, 9*time.Hour+30*time.Minute)

	suite.Len(times, 1)
	suite.Equal(time.Date(2020, 9, 22, 15, 45, 0, 0, time.UTC), times[0])
}
