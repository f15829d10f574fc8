package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type SecurityType string

type Market string

type OptionRight string

type OptionStyle string

const (
	SecurityTypeEquity       SecurityType = "EQUITY"
	SecurityTypeFuture       SecurityType = "FUTURE"
	SecurityTypeFutureOption SecurityType = "FUTURE_OPTION"
)

const (
	MarketUSA Market = "usa"
	MarketCME Market = "cme"
)

const (
	OptionRightCall OptionRight = "CALL"
	OptionRightPut  OptionRight = "PUT"
)

const (
	OptionStyleAmerican OptionStyle = "AMERICAN"
	OptionStyleEuropean OptionStyle = "EUROPEAN"
)

// Common futures roots.
const (
	FutureSP500EMini = "ES"
)

// futuresMonthCodes maps an expiry month to its futures month code,
// e.g. March -> H so the March 2021 E-mini contract displays as ESH21.
var futuresMonthCodes = map[time.Month]string{
	time.January:   "F",
	time.February:  "G",
	time.March:     "H",
	time.April:     "J",
	time.May:       "K",
	time.June:      "M",
	time.July:      "N",
	time.August:    "Q",
	time.September: "U",
	time.October:   "V",
	time.November:  "X",
	time.December:  "Z",
}

// Symbol identifies a tradable security. Equities carry only a ticker and
// market; futures add an expiry; future options additionally carry the
// underlying future, a strike, a right and an exercise style.
type Symbol struct {
	// Ticker is the root ticker, e.g. "ES" or "AAPL".
	Ticker string `yaml:"ticker" json:"ticker" csv:"ticker"`
	// Value is the human readable contract name, e.g. "ESH21 P3200".
	Value        string       `yaml:"value" json:"value" csv:"value"`
	SecurityType SecurityType `yaml:"security_type" json:"security_type" csv:"security_type"`
	Market       Market       `yaml:"market" json:"market" csv:"market"`
	// Expiry is the contract expiry date at UTC midnight. Zero for equities.
	Expiry time.Time       `yaml:"expiry" json:"expiry" csv:"expiry"`
	Strike decimal.Decimal `yaml:"strike" json:"strike" csv:"strike"`
	Right  OptionRight     `yaml:"right" json:"right" csv:"right"`
	Style  OptionStyle     `yaml:"style" json:"style" csv:"style"`
	// Underlying is set for derivatives of another listed contract.
	Underlying *Symbol `yaml:"underlying" json:"underlying" csv:"-"`
}

// NewEquity creates an equity symbol for the given ticker.
func NewEquity(ticker string, market Market) Symbol {
	return Symbol{
		Ticker:       ticker,
		Value:        ticker,
		SecurityType: SecurityTypeEquity,
		Market:       market,
	}
}

// NewFuture creates a future contract symbol expiring on the given date.
func NewFuture(ticker string, market Market, expiry time.Time) Symbol {
	expiry = toUTCDate(expiry)

	return Symbol{
		Ticker:       ticker,
		Value:        futureContractName(ticker, expiry),
		SecurityType: SecurityTypeFuture,
		Market:       market,
		Expiry:       expiry,
	}
}

// NewFutureOption creates an option contract symbol on the given future.
func NewFutureOption(underlying Symbol, market Market, style OptionStyle, right OptionRight, strike decimal.Decimal, expiry time.Time) Symbol {
	expiry = toUTCDate(expiry)
	u := underlying

	return Symbol{
		Ticker:       underlying.Ticker,
		Value:        fmt.Sprintf("%s %s%s", futureContractName(underlying.Ticker, expiry), string(right[0]), strike.String()),
		SecurityType: SecurityTypeFutureOption,
		Market:       market,
		Expiry:       expiry,
		Strike:       strike,
		Right:        right,
		Style:        style,
		Underlying:   &u,
	}
}

// ID returns the canonical identifier for the symbol. Two symbols are the
// same contract if and only if their IDs are equal.
func (s Symbol) ID() string {
	switch s.SecurityType {
	case SecurityTypeFuture:
		return fmt.Sprintf("%s:%s:%s", s.Market, s.Ticker, s.Expiry.Format("20060102"))
	case SecurityTypeFutureOption:
		return fmt.Sprintf("%s:%s:%s:%s:%s", s.Market, s.Ticker, s.Expiry.Format("20060102"), string(s.Right[0]), s.Strike.String())
	default:
		return fmt.Sprintf("%s:%s", s.Market, s.Ticker)
	}
}

// Equal reports whether two symbols identify the same contract.
func (s Symbol) Equal(other Symbol) bool {
	return s.ID() == other.ID()
}

// IsDerivative reports whether the symbol is an expiring contract.
func (s Symbol) IsDerivative() bool {
	return s.SecurityType == SecurityTypeFuture || s.SecurityType == SecurityTypeFutureOption
}

// String implements fmt.Stringer.
func (s Symbol) String() string {
	return s.Value
}

func futureContractName(ticker string, expiry time.Time) string {
	return fmt.Sprintf("%s%s%s", ticker, futuresMonthCodes[expiry.Month()], expiry.Format("06"))
}

func toUTCDate(t time.Time) time.Time {
	t = t.UTC()

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
