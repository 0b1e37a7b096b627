package ports

import (
	"context"

	"github.com/alejandrodnm/freecollateral/internal/domain"
	"github.com/shopspring/decimal"
)

// SnapshotFetcher obtiene el free collateral de una cuenta, en USD.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, address string) (domain.FreeCollateralSnapshot, error)
}

// RiskReader consulta al protocolo la deuda con buffer y el colateral con haircut
// de una cuenta, denominados en el activo base de la red.
type RiskReader interface {
	AccountRisk(ctx context.Context, network, address string) (domain.AccountRisk, error)
}

// PriceOracle devuelve el precio en USD del activo base de la red.
type PriceOracle interface {
	USDPrice(ctx context.Context) (decimal.Decimal, error)
}
