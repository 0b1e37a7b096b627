package notional

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/alejandrodnm/freecollateral/internal/domain"
	"github.com/alejandrodnm/freecollateral/internal/ports"
)

var _ ports.RiskReader = (*Client)(nil)

// AccountRisk devuelve la deuda con buffer y el colateral con haircut de la cuenta,
// calculados por el propio protocolo en la red dada.
func (c *Client) AccountRisk(ctx context.Context, network, address string) (domain.AccountRisk, error) {
	endpoint := fmt.Sprintf("%s/%s/accounts/%s/free-collateral",
		c.base, url.PathEscape(network), url.PathEscape(address))

	var raw freeCollateralResponse
	if err := c.get(ctx, endpoint, &raw); err != nil {
		return domain.AccountRisk{}, fmt.Errorf("notional.AccountRisk: %s: %w", address, err)
	}

	risk, err := mapFreeCollateral(raw, time.Now().UTC())
	if err != nil {
		return domain.AccountRisk{}, fmt.Errorf("notional.AccountRisk: %s: %w", address, err)
	}
	if risk.Account == "" {
		risk.Account = address
	}
	if risk.Network == "" {
		risk.Network = network
	}
	return risk, nil
}
