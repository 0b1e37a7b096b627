package notional

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/freecollateral/internal/domain"
	"github.com/alejandrodnm/freecollateral/internal/ports"
)

// FixtureReader implementa ports.RiskReader leyendo respuestas grabadas de un
// archivo JSON: un objeto indexado por dirección (en minúsculas) con el mismo
// formato que la API. Se usa en modo dry-run.
type FixtureReader struct {
	accounts map[string]freeCollateralResponse
}

var _ ports.RiskReader = (*FixtureReader)(nil)

// LoadFixture carga el archivo de fixtures.
func LoadFixture(path string) (*FixtureReader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("notional.LoadFixture: read %q: %w", path, err)
	}

	var raw map[string]freeCollateralResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("notional.LoadFixture: parse %q: %w", path, err)
	}

	accounts := make(map[string]freeCollateralResponse, len(raw))
	for addr, r := range raw {
		accounts[strings.ToLower(addr)] = r
	}
	return &FixtureReader{accounts: accounts}, nil
}

// AccountRisk devuelve la posición grabada o ErrAccountNotFound.
func (f *FixtureReader) AccountRisk(_ context.Context, network, address string) (domain.AccountRisk, error) {
	raw, ok := f.accounts[strings.ToLower(address)]
	if !ok {
		return domain.AccountRisk{}, fmt.Errorf("notional.FixtureReader: %s: %w", address, ErrAccountNotFound)
	}
	if raw.Network == "" {
		raw.Network = network
	}
	if raw.Account == "" {
		raw.Account = address
	}
	return mapFreeCollateral(raw, time.Now().UTC())
}
