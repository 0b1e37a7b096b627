package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FreeCollateralSnapshot es la valoración de una cuenta en un momento dado, en USD.
// Se construye en cada consulta y no se cachea.
type FreeCollateralSnapshot struct {
	Debt           float64 // deuda con buffer aplicado (≥ 0)
	Collateral     float64 // colateral con haircut aplicado (≥ 0)
	FreeCollateral float64 // Collateral - Debt; negativo = infracolateralizada
}

// NewSnapshot construye un snapshot calculando el free collateral.
func NewSnapshot(collateral, debt float64) FreeCollateralSnapshot {
	return FreeCollateralSnapshot{
		Debt:           debt,
		Collateral:     collateral,
		FreeCollateral: collateral - debt,
	}
}

// IsUndercollateralized devuelve true si la deuda supera al colateral.
func (s FreeCollateralSnapshot) IsUndercollateralized() bool {
	return s.FreeCollateral < 0
}

// AccountRisk es la respuesta cruda del protocolo para una cuenta.
// Los importes están denominados en el activo base de la red (ETH).
type AccountRisk struct {
	Account           string
	Network           string
	BlockNumber       uint64
	BufferedDebt      decimal.Decimal
	HaircutCollateral decimal.Decimal
	FetchedAt         time.Time
}

// ToUSD convierte la posición a USD con el precio dado del activo base.
func (r AccountRisk) ToUSD(price decimal.Decimal) FreeCollateralSnapshot {
	collateral, _ := r.HaircutCollateral.Mul(price).Float64()
	debt, _ := r.BufferedDebt.Mul(price).Float64()
	return NewSnapshot(collateral, debt)
}
