package notional

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/freecollateral/internal/domain"
	"github.com/shopspring/decimal"
)

// internalPrecision son los decimales de los importes internos del protocolo (1e8).
const internalPrecision = 8

// mapFreeCollateral convierte la respuesta cruda en un domain.AccountRisk.
func mapFreeCollateral(raw freeCollateralResponse, now time.Time) (domain.AccountRisk, error) {
	decimals := int32(internalPrecision)
	if raw.Decimals != nil {
		decimals = *raw.Decimals
	}

	debt, err := parseScaled(raw.NetETHDebtWithBuffer, decimals)
	if err != nil {
		return domain.AccountRisk{}, fmt.Errorf("netETHDebtWithBuffer: %w", err)
	}
	collateral, err := parseScaled(raw.NetETHCollateralWithHaircut, decimals)
	if err != nil {
		return domain.AccountRisk{}, fmt.Errorf("netETHCollateralWithHaircut: %w", err)
	}

	return domain.AccountRisk{
		Account:           raw.Account,
		Network:           raw.Network,
		BlockNumber:       raw.BlockNumber,
		BufferedDebt:      debt.Abs(), // algunas versiones la devuelven negativa
		HaircutCollateral: collateral,
		FetchedAt:         now,
	}, nil
}

// parseScaled parsea un entero en string y lo escala por 10^-decimals.
// Un string vacío cuenta como cero.
func parseScaled(s string, decimals int32) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Shift(-decimals), nil
}
