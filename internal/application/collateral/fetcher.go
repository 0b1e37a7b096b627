// Package collateral traduce una dirección en un FreeCollateralSnapshot:
// pide al protocolo la posición de riesgo y la convierte a USD.
package collateral

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/freecollateral/internal/domain"
	"github.com/alejandrodnm/freecollateral/internal/ports"
)

const defaultRetryWait = 500 * time.Millisecond

// Config controla la red consultada y los reintentos.
type Config struct {
	Network     string        // red del protocolo, p.ej. "mainnet" o "arbitrum"
	MaxAttempts int           // intentos totales; 1 (o 0) = sin reintentos
	RetryWait   time.Duration // espera base del backoff exponencial
}

// Fetcher implementa ports.SnapshotFetcher.
type Fetcher struct {
	cfg    Config
	risk   ports.RiskReader
	oracle ports.PriceOracle
}

var _ ports.SnapshotFetcher = (*Fetcher)(nil)

// NewFetcher crea un Fetcher con el lector de riesgo y el oráculo dados.
func NewFetcher(cfg Config, risk ports.RiskReader, oracle ports.PriceOracle) *Fetcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = defaultRetryWait
	}
	return &Fetcher{cfg: cfg, risk: risk, oracle: oracle}
}

// FetchSnapshot consulta la posición de la cuenta y la valora en USD.
// La dirección no se valida aquí: los errores vienen del protocolo.
func (f *Fetcher) FetchSnapshot(ctx context.Context, address string) (domain.FreeCollateralSnapshot, error) {
	var lastErr error
	for attempt := 0; attempt < f.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			slog.Debug("collateral: retrying snapshot",
				"address", address, "attempt", attempt+1, "err", lastErr)
			if err := f.sleep(ctx, attempt-1); err != nil {
				return domain.FreeCollateralSnapshot{}, lastErr
			}
		}

		snap, err := f.fetchOnce(ctx, address)
		if err == nil {
			return snap, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return domain.FreeCollateralSnapshot{}, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, address string) (domain.FreeCollateralSnapshot, error) {
	risk, err := f.risk.AccountRisk(ctx, f.cfg.Network, address)
	if err != nil {
		return domain.FreeCollateralSnapshot{}, fmt.Errorf("collateral.FetchSnapshot: account risk: %w", err)
	}

	price, err := f.oracle.USDPrice(ctx)
	if err != nil {
		return domain.FreeCollateralSnapshot{}, fmt.Errorf("collateral.FetchSnapshot: usd price: %w", err)
	}

	snap := risk.ToUSD(price)
	slog.Debug("collateral: snapshot",
		"address", address,
		"network", f.cfg.Network,
		"block", risk.BlockNumber,
		"collateral_usd", snap.Collateral,
		"debt_usd", snap.Debt,
		"free_usd", snap.FreeCollateral,
	)
	return snap, nil
}

// sleep espera con backoff exponencial, respetando el contexto.
func (f *Fetcher) sleep(ctx context.Context, attempt int) error {
	wait := time.Duration(math.Pow(2, float64(attempt))) * f.cfg.RetryWait
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
