// Package host es un host de referencia para el plugin: persiste suscripciones,
// invoca los hooks en cada bloque nuevo y entrega las notificaciones.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/freecollateral/internal/domain"
	"github.com/alejandrodnm/freecollateral/internal/ports"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

var (
	// ErrUnknownChannel se devuelve al suscribirse a un canal sin notificador registrado.
	ErrUnknownChannel = errors.New("host: unknown channel")
	// ErrEmptyAddress se devuelve al suscribir una dirección vacía.
	ErrEmptyAddress = errors.New("host: empty address")
)

// Config controla el comportamiento del host.
type Config struct {
	// Cooldown es el número de bloques sin volver a notificar a un suscriptor
	// tras una notificación. 0 = notificar en cada bloque.
	Cooldown uint64
	// PruneSchedule es la expresión cron de la poda del log. Vacío = sin poda periódica.
	PruneSchedule string
	// Retention es la antigüedad máxima del log de notificaciones.
	Retention time.Duration
}

// RoundStats resume el procesamiento de un bloque.
type RoundStats struct {
	Block     uint64
	Evaluated int
	Skipped   int // en cooldown
	Notified  int
	Failed    int // errores del plugin o de entrega
}

// Host invoca los hooks de un único plugin.
type Host struct {
	cfg       Config
	info      domain.PluginInfo
	plugin    ports.Plugin
	store     ports.SubscriptionStore
	notifiers map[domain.Channel]ports.Notifier

	mu           sync.Mutex
	lastNotified map[string]uint64 // subscriberID → bloque de la última notificación

	now func() time.Time
}

// New crea un Host con todas las dependencias inyectadas.
func New(
	cfg Config,
	info domain.PluginInfo,
	plugin ports.Plugin,
	store ports.SubscriptionStore,
	notifiers map[domain.Channel]ports.Notifier,
) *Host {
	return &Host{
		cfg:          cfg,
		info:         info,
		plugin:       plugin,
		store:        store,
		notifiers:    notifiers,
		lastNotified: make(map[string]uint64),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Info devuelve los metadatos del plugin.
func (h *Host) Info() domain.PluginInfo {
	return h.info
}

// Start inicializa el plugin.
func (h *Host) Start(ctx context.Context) error {
	if err := h.plugin.OnInit(ctx, domain.InitArgs{}); err != nil {
		return fmt.Errorf("host.Start: %s: init: %w", h.info.ID, err)
	}
	slog.Info("plugin loaded", "plugin", h.info.ID, "name", h.info.DisplayName)
	return nil
}

// Form devuelve el formulario de suscripción para la dirección.
func (h *Host) Form(ctx context.Context, address string) ([]domain.FormField, error) {
	return h.plugin.OnSubscribeForm(ctx, domain.FormArgs{Address: address})
}

// Subscribe valida y persiste una suscripción. Los campos que el usuario no
// rellenó toman el default del formulario.
func (h *Host) Subscribe(ctx context.Context, sub domain.Subscriber) (domain.Subscriber, error) {
	sub.Address = strings.TrimSpace(sub.Address)
	if sub.Address == "" {
		return domain.Subscriber{}, ErrEmptyAddress
	}
	if sub.Channel == "" {
		sub.Channel = domain.ChannelConsole
	}
	if _, ok := h.notifiers[sub.Channel]; !ok {
		return domain.Subscriber{}, fmt.Errorf("%w: %q", ErrUnknownChannel, sub.Channel)
	}

	fields, err := h.Form(ctx, sub.Address)
	if err != nil {
		return domain.Subscriber{}, fmt.Errorf("host.Subscribe: form: %w", err)
	}

	values := make(domain.Subscription, len(fields))
	for k, v := range sub.Values {
		values[k] = v
	}
	for _, f := range fields {
		if _, ok := values[f.ID]; !ok {
			values[f.ID] = f.Default
		}
	}
	sub.Values = values

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = h.now()
	}

	if err := h.store.SaveSubscriber(ctx, sub); err != nil {
		return domain.Subscriber{}, fmt.Errorf("host.Subscribe: %w", err)
	}
	slog.Info("subscribed", "id", sub.ID, "address", sub.Address, "channel", sub.Channel)
	return sub, nil
}

// Unsubscribe borra una suscripción.
func (h *Host) Unsubscribe(ctx context.Context, id string) error {
	if err := h.store.DeleteSubscriber(ctx, id); err != nil {
		return fmt.Errorf("host.Unsubscribe: %w", err)
	}
	h.mu.Lock()
	delete(h.lastNotified, id)
	h.mu.Unlock()
	return nil
}

// Subscribers devuelve las suscripciones persistidas.
func (h *Host) Subscribers(ctx context.Context) ([]domain.Subscriber, error) {
	return h.store.ListSubscribers(ctx)
}

// History devuelve las últimas notificaciones de una dirección.
func (h *Host) History(ctx context.Context, address string, limit int) ([]domain.NotificationRecord, error) {
	return h.store.ListNotifications(ctx, address, limit)
}

// HandleBlock evalúa todas las suscripciones para el bloque dado.
// Un fallo en un suscriptor se registra y no interrumpe la ronda.
func (h *Host) HandleBlock(ctx context.Context, ev domain.BlockEvent) (RoundStats, error) {
	stats := RoundStats{Block: ev.Number}

	subs, err := h.store.ListSubscribers(ctx)
	if err != nil {
		return stats, fmt.Errorf("host.HandleBlock: %w", err)
	}

	for _, sub := range subs {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if h.inCooldown(sub.ID, ev.Number) {
			stats.Skipped++
			continue
		}

		stats.Evaluated++
		notes, err := h.plugin.OnBlocks(ctx, domain.BlockArgs{
			Subscription: sub.Values,
			Address:      sub.Address,
			BlockNumber:  ev.Number,
		})
		if err != nil {
			stats.Failed++
			slog.Warn("plugin evaluation failed",
				"plugin", h.info.ID, "subscriber", sub.ID, "address", sub.Address, "block", ev.Number, "err", err)
			continue
		}

		for _, n := range notes {
			if h.dispatch(ctx, sub, ev, n) {
				stats.Notified++
			} else {
				stats.Failed++
			}
		}
		if len(notes) > 0 {
			h.markNotified(sub.ID, ev.Number)
		}
	}

	return stats, nil
}

// dispatch entrega una notificación y la registra. Devuelve true si se entregó.
func (h *Host) dispatch(ctx context.Context, sub domain.Subscriber, ev domain.BlockEvent, n domain.Notification) bool {
	rec := domain.NotificationRecord{
		ID:           uuid.NewString(),
		SubscriberID: sub.ID,
		Address:      sub.Address,
		Channel:      sub.Channel,
		BlockNumber:  ev.Number,
		Message:      n.Notification,
		CreatedAt:    h.now(),
	}

	notifier, ok := h.notifiers[sub.Channel]
	if !ok {
		slog.Warn("no notifier for channel", "subscriber", sub.ID, "channel", sub.Channel)
	} else if err := notifier.Deliver(ctx, sub, rec); err != nil {
		slog.Warn("notification delivery failed",
			"subscriber", sub.ID, "channel", sub.Channel, "err", err)
	} else {
		rec.Delivered = true
	}

	if err := h.store.SaveNotification(ctx, rec); err != nil {
		slog.Warn("storage error", "err", err)
	}
	return rec.Delivered
}

func (h *Host) inCooldown(subID string, block uint64) bool {
	if h.cfg.Cooldown == 0 {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	last, ok := h.lastNotified[subID]
	return ok && block > last && block-last < h.cfg.Cooldown
}

func (h *Host) markNotified(subID string, block uint64) {
	h.mu.Lock()
	h.lastNotified[subID] = block
	h.mu.Unlock()
}

// Prune borra del log las notificaciones más antiguas que cfg.Retention.
func (h *Host) Prune(ctx context.Context) (int64, error) {
	if h.cfg.Retention <= 0 {
		return 0, nil
	}
	return h.store.PruneNotifications(ctx, h.now().Add(-h.cfg.Retention))
}

// Run procesa bloques de src hasta que ctx se cancele o la fuente se cierre.
func (h *Host) Run(ctx context.Context, src ports.BlockSource) error {
	if h.cfg.PruneSchedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(h.cfg.PruneSchedule, func() {
			n, err := h.Prune(ctx)
			if err != nil {
				slog.Warn("notification prune failed", "err", err)
				return
			}
			slog.Info("notifications pruned", "deleted", n)
		}); err != nil {
			return fmt.Errorf("host.Run: prune schedule %q: %w", h.cfg.PruneSchedule, err)
		}
		c.Start()
		defer c.Stop()
	}

	blocks, err := src.Blocks(ctx)
	if err != nil {
		return fmt.Errorf("host.Run: %w", err)
	}

	slog.Info("host running", "plugin", h.info.ID, "cooldown_blocks", h.cfg.Cooldown)
	for ev := range blocks {
		start := time.Now()
		stats, err := h.HandleBlock(ctx, ev)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Error("block round failed", "block", ev.Number, "err", err)
			continue
		}
		slog.Info("block processed",
			"block", stats.Block,
			"evaluated", stats.Evaluated,
			"skipped", stats.Skipped,
			"notified", stats.Notified,
			"failed", stats.Failed,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
	}

	slog.Info("host stopped")
	return nil
}
