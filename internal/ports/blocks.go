package ports

import (
	"context"

	"github.com/alejandrodnm/freecollateral/internal/domain"
)

// BlockSource emite un evento por cada bloque nuevo hasta que ctx se cancela.
type BlockSource interface {
	// Blocks devuelve un canal que se cierra cuando la fuente se detiene.
	Blocks(ctx context.Context) (<-chan domain.BlockEvent, error)
}
