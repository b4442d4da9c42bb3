package domain

import "lukechampine.com/uint128"

// MarketConfig is the write-once configuration of a key market.
type MarketConfig struct {
	Username           string
	FeeDenom           string
	IssuerFeeCollector Address
}

// Holding is a single holder's key balance. Stored holdings always have
// a non-zero Amount.
type Holding struct {
	Holder Address
	Amount uint128.Uint128
}
