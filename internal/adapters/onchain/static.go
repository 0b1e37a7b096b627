package onchain

import (
	"context"

	"github.com/alejandrodnm/freecollateral/internal/ports"
	"github.com/shopspring/decimal"
)

// StaticPrice implements ports.PriceOracle with a fixed price. Used in dry-run mode.
type StaticPrice struct {
	Price decimal.Decimal
}

var _ ports.PriceOracle = StaticPrice{}

// USDPrice returns the configured price.
func (s StaticPrice) USDPrice(context.Context) (decimal.Decimal, error) {
	if !s.Price.IsPositive() {
		return decimal.Zero, ErrInvalidPrice
	}
	return s.Price, nil
}
