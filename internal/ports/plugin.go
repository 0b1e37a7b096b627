package ports

import (
	"context"

	"github.com/alejandrodnm/freecollateral/internal/domain"
)

// Plugin son los hooks de ciclo de vida que el host invoca.
// Las implementaciones no guardan estado entre llamadas.
type Plugin interface {
	// OnInit se llama una vez cuando el host carga el plugin.
	OnInit(ctx context.Context, args domain.InitArgs) error

	// OnSubscribeForm devuelve los campos que el host renderiza al suscribirse.
	OnSubscribeForm(ctx context.Context, args domain.FormArgs) ([]domain.FormField, error)

	// OnBlocks evalúa la suscripción en cada bloque nuevo.
	// Un resultado vacío significa que no hay nada que notificar.
	OnBlocks(ctx context.Context, args domain.BlockArgs) ([]domain.Notification, error)

	// BuildNotification formatea el mensaje. Función pura, sin I/O.
	BuildNotification(snapshot domain.FreeCollateralSnapshot) domain.Notification
}
