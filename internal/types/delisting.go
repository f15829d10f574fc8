package types

import "time"

type DelistingType string

const (
	// DelistingTypeWarning is issued on the contract's last trading day.
	DelistingTypeWarning DelistingType = "WARNING"
	// DelistingTypeDelisted confirms the delisting one day after expiry.
	DelistingTypeDelisted DelistingType = "DELISTED"
)

// Delisting notifies an algorithm that a contract is ceasing to trade.
// Time carries the delisting date at UTC midnight, not the time of the
// slice that delivered the event.
type Delisting struct {
	SymbolID string        `yaml:"symbol" json:"symbol" csv:"symbol"`
	Time     time.Time     `yaml:"time" json:"time" csv:"time"`
	Type     DelistingType `yaml:"type" json:"type" csv:"type"`
}
