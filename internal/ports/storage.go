package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/freecollateral/internal/domain"
)

// SubscriptionStore persiste las suscripciones y el historial de notificaciones del host.
type SubscriptionStore interface {
	SaveSubscriber(ctx context.Context, sub domain.Subscriber) error
	DeleteSubscriber(ctx context.Context, id string) error
	ListSubscribers(ctx context.Context) ([]domain.Subscriber, error)

	SaveNotification(ctx context.Context, rec domain.NotificationRecord) error
	// ListNotifications devuelve las últimas notificaciones de una dirección, más recientes primero.
	ListNotifications(ctx context.Context, address string, limit int) ([]domain.NotificationRecord, error)
	// PruneNotifications borra las notificaciones anteriores a before y devuelve cuántas borró.
	PruneNotifications(ctx context.Context, before time.Time) (int64, error)

	Close() error
}
