// Package freecollateral implementa el plugin de alertas de free collateral:
// avisa al usuario cuando el colateral libre de su cuenta cae por debajo del umbral.
package freecollateral

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/freecollateral/internal/domain"
	"github.com/alejandrodnm/freecollateral/internal/ports"
)

const (
	// FieldID es el ID del único campo del formulario y la key del umbral en la suscripción.
	FieldID = "free-collateral"

	// DefaultThreshold es el default del campo, en USD. No depende del snapshot.
	DefaultThreshold = 1000.0
)

// Info son los metadatos del plugin para el catálogo del host.
var Info = domain.PluginInfo{
	ID:          "free-collateral",
	DisplayName: "Free Collateral",
	Description: "Get notified when the free collateral of your account drops below a threshold.",
}

// Plugin implementa ports.Plugin. No tiene estado: todo llega por argumentos.
type Plugin struct {
	fetcher ports.SnapshotFetcher
}

var _ ports.Plugin = (*Plugin)(nil)

// New crea el plugin con el fetcher inyectado.
func New(fetcher ports.SnapshotFetcher) *Plugin {
	return &Plugin{fetcher: fetcher}
}

// OnInit no hace nada.
func (p *Plugin) OnInit(context.Context, domain.InitArgs) error {
	return nil
}

// OnSubscribeForm devuelve el campo del umbral. El snapshot solo se usa para
// mostrar el valor actual en la descripción; si falla la consulta, falla la llamada.
func (p *Plugin) OnSubscribeForm(ctx context.Context, args domain.FormArgs) ([]domain.FormField, error) {
	snap, err := p.fetcher.FetchSnapshot(ctx, args.Address)
	if err != nil {
		return nil, err
	}

	return []domain.FormField{{
		Type:    domain.FieldNumber,
		ID:      FieldID,
		Label:   "Free collateral threshold (USD)",
		Default: DefaultThreshold,
		Description: fmt.Sprintf(
			"Alert when free collateral drops below this value (currently at %s USD)",
			domain.FormatCompact(snap.FreeCollateral),
		),
	}}, nil
}

// OnBlocks notifica si el free collateral actual está por debajo del umbral.
func (p *Plugin) OnBlocks(ctx context.Context, args domain.BlockArgs) ([]domain.Notification, error) {
	if args.Subscription == nil {
		return nil, nil
	}

	threshold, ok := args.Subscription.Number(FieldID)
	if !ok {
		slog.Debug("free-collateral: subscription without numeric threshold",
			"address", args.Address, "value", args.Subscription[FieldID])
		return nil, nil
	}

	snap, err := p.fetcher.FetchSnapshot(ctx, args.Address)
	if err != nil {
		return nil, err
	}

	if snap.FreeCollateral >= threshold {
		return nil, nil
	}
	return []domain.Notification{p.BuildNotification(snap)}, nil
}

// BuildNotification formatea el mensaje con free collateral, colateral y deuda.
func (p *Plugin) BuildNotification(snap domain.FreeCollateralSnapshot) domain.Notification {
	return BuildNotification(snap)
}

// BuildNotification es la versión sin receptor, usada también por el CLI.
func BuildNotification(snap domain.FreeCollateralSnapshot) domain.Notification {
	return domain.Notification{
		Notification: fmt.Sprintf(
			"Your free collateral is %s USD (collateral %s USD, debt %s USD).",
			domain.FormatCompact(snap.FreeCollateral),
			domain.FormatCompact(snap.Collateral),
			domain.FormatCompact(snap.Debt),
		),
	}
}
