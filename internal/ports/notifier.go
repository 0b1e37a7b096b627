package ports

import (
	"context"

	"github.com/alejandrodnm/freecollateral/internal/domain"
)

// Notifier entrega una notificación al suscriptor por su canal.
type Notifier interface {
	Deliver(ctx context.Context, sub domain.Subscriber, record domain.NotificationRecord) error
}
