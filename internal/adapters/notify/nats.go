package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/freecollateral/internal/domain"
	"github.com/alejandrodnm/freecollateral/internal/ports"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	defaultSubjectPrefix = "freecollateral.notifications"
	streamName           = "FREE_COLLATERAL_NOTIFICATIONS"
)

// publisher es la parte de jetstream.JetStream que usa el notificador.
type publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATS implementa ports.Notifier publicando la notificación en JetStream.
// Subject: {prefix}.{address} o {prefix}.{target} si el suscriptor fijó uno.
type NATS struct {
	js     publisher
	prefix string
	conn   *nats.Conn
}

var _ ports.Notifier = (*NATS)(nil)

// natsMessage es el payload publicado.
type natsMessage struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriber_id"`
	Address      string    `json:"address"`
	BlockNumber  uint64    `json:"block_number"`
	Notification string    `json:"notification"`
	CreatedAt    time.Time `json:"created_at"`
}

// DialNATS conecta al servidor, asegura el stream y devuelve el notificador.
func DialNATS(ctx context.Context, url, prefix string) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("freecollateral"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("notify.DialNATS: connect %s: %w", url, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("notify.DialNATS: jetstream: %w", err)
	}

	n := newNATS(js, prefix)
	n.conn = nc
	if err := EnsureStream(ctx, js, n.prefix); err != nil {
		nc.Close()
		return nil, err
	}
	return n, nil
}

func newNATS(js publisher, prefix string) *NATS {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}
	return &NATS{js: js, prefix: prefix}
}

// EnsureStream crea (o actualiza) el stream que retiene las notificaciones.
func EnsureStream(ctx context.Context, js jetstream.JetStream, prefix string) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{prefix + ".>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("notify.EnsureStream: %w", err)
	}
	return nil
}

// Deliver publica la notificación como JSON.
func (n *NATS) Deliver(ctx context.Context, sub domain.Subscriber, rec domain.NotificationRecord) error {
	data, err := json.Marshal(natsMessage{
		ID:           rec.ID,
		SubscriberID: sub.ID,
		Address:      sub.Address,
		BlockNumber:  rec.BlockNumber,
		Notification: rec.Message,
		CreatedAt:    rec.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("notify.NATS: marshal: %w", err)
	}

	subject := n.Subject(sub)
	if _, err := n.js.Publish(ctx, subject, data, jetstream.WithMsgID(rec.ID)); err != nil {
		return fmt.Errorf("notify.NATS: publish %s: %w", subject, err)
	}
	return nil
}

// Subject devuelve el subject donde se publica para el suscriptor.
func (n *NATS) Subject(sub domain.Subscriber) string {
	token := sub.Target
	if token == "" {
		token = strings.ToLower(sub.Address)
	}
	// '.', '*' y '>' tienen significado en los subjects
	token = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(token)
	return n.prefix + "." + token
}

// Close drena la conexión.
func (n *NATS) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
