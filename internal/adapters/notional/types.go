package notional

// DTOs raw de la API. Solo se usan dentro de este paquete.
// La conversión a domain se hace en mapping.go.

// freeCollateralResponse es la respuesta de GET /{network}/accounts/{address}/free-collateral.
// Los importes son enteros en string escalados por Decimals (precisión interna 1e8 por defecto).
type freeCollateralResponse struct {
	Account     string `json:"account"`
	Network     string `json:"network"`
	BlockNumber uint64 `json:"blockNumber"`
	// Deuda neta en ETH con el buffer de riesgo aplicado.
	NetETHDebtWithBuffer string `json:"netETHDebtWithBuffer"`
	// Colateral neto en ETH con el haircut aplicado.
	NetETHCollateralWithHaircut string `json:"netETHCollateralWithHaircut"`
	Decimals                    *int32 `json:"decimals,omitempty"`
}
