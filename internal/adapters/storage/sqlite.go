package storage

// sqlite.go — suscripciones y notificaciones del host.
//
// Estrategia:
//   - `subscribers`: una fila por suscripción; los valores del formulario van como JSON.
//   - `notifications`: log append-only de lo que se intentó entregar, para el
//     historial y el cooldown. Se poda por antigüedad (cron del host y al arrancar).
//   - Los timestamps se guardan como unix millis: ordenan bien y no dependen
//     del formato de fecha del driver.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/freecollateral/internal/domain"
	"github.com/alejandrodnm/freecollateral/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS subscribers (
    id         TEXT PRIMARY KEY,
    address    TEXT    NOT NULL,
    channel    TEXT    NOT NULL,
    target     TEXT    NOT NULL DEFAULT '',
    sub_values TEXT    NOT NULL DEFAULT '{}',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
    id            TEXT PRIMARY KEY,
    subscriber_id TEXT    NOT NULL,
    address       TEXT    NOT NULL,
    channel       TEXT    NOT NULL,
    block_number  INTEGER NOT NULL DEFAULT 0,
    message       TEXT    NOT NULL,
    delivered     INTEGER NOT NULL DEFAULT 0,
    created_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sub_address   ON subscribers(address);
CREATE INDEX IF NOT EXISTS idx_notif_address ON notifications(address, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_notif_created ON notifications(created_at);
`

// DefaultRetention es la antigüedad máxima del log de notificaciones.
const DefaultRetention = 30 * 24 * time.Hour

// ErrNotFound se devuelve al borrar una suscripción que no existe.
var ErrNotFound = errors.New("storage: not found")

// SQLiteStorage implementa ports.SubscriptionStore usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

var _ ports.SubscriptionStore = (*SQLiteStorage)(nil)

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada, aplica el
// schema y poda notificaciones más antiguas que DefaultRetention.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.PruneNotifications(context.Background(), time.Now().Add(-DefaultRetention))
	return s, nil
}

// SaveSubscriber inserta o reemplaza una suscripción.
func (s *SQLiteStorage) SaveSubscriber(ctx context.Context, sub domain.Subscriber) error {
	values, err := json.Marshal(sub.Values)
	if err != nil {
		return fmt.Errorf("storage.SaveSubscriber: marshal values: %w", err)
	}
	if sub.Values == nil {
		values = []byte("{}")
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO subscribers (id, address, channel, target, sub_values, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			address    = excluded.address,
			channel    = excluded.channel,
			target     = excluded.target,
			sub_values = excluded.sub_values
	`, sub.ID, strings.ToLower(sub.Address), string(sub.Channel), sub.Target, string(values), toMillis(sub.CreatedAt)); err != nil {
		return fmt.Errorf("storage.SaveSubscriber: %s: %w", sub.ID, err)
	}
	return nil
}

// DeleteSubscriber borra una suscripción. ErrNotFound si no existía.
func (s *SQLiteStorage) DeleteSubscriber(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscribers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage.DeleteSubscriber: %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage.DeleteSubscriber: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("storage.DeleteSubscriber: %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListSubscribers devuelve todas las suscripciones, más antiguas primero.
func (s *SQLiteStorage) ListSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, address, channel, target, sub_values, created_at
		FROM subscribers
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListSubscribers: query: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscriber
	for rows.Next() {
		var sub domain.Subscriber
		var channel, values string
		var createdAt int64

		if err := rows.Scan(&sub.ID, &sub.Address, &channel, &sub.Target, &values, &createdAt); err != nil {
			return nil, fmt.Errorf("storage.ListSubscribers: scan row: %w", err)
		}
		sub.Channel = domain.Channel(channel)
		sub.CreatedAt = fromMillis(createdAt)

		dec := json.NewDecoder(strings.NewReader(values))
		dec.UseNumber() // el umbral vuelve como json.Number, sin perder precisión
		if err := dec.Decode(&sub.Values); err != nil {
			return nil, fmt.Errorf("storage.ListSubscribers: %s: decode values: %w", sub.ID, err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// SaveNotification añade una notificación al log.
func (s *SQLiteStorage) SaveNotification(ctx context.Context, rec domain.NotificationRecord) error {
	delivered := 0
	if rec.Delivered {
		delivered = 1
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications
			(id, subscriber_id, address, channel, block_number, message, delivered, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.SubscriberID, strings.ToLower(rec.Address), string(rec.Channel),
		int64(rec.BlockNumber), rec.Message, delivered, toMillis(rec.CreatedAt)); err != nil {
		return fmt.Errorf("storage.SaveNotification: %s: %w", rec.ID, err)
	}
	return nil
}

// ListNotifications devuelve las últimas notificaciones de una dirección.
// limit <= 0 devuelve todas.
func (s *SQLiteStorage) ListNotifications(ctx context.Context, address string, limit int) ([]domain.NotificationRecord, error) {
	if limit <= 0 {
		limit = -1 // sin límite en SQLite
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subscriber_id, address, channel, block_number, message, delivered, created_at
		FROM notifications
		WHERE address = ?
		ORDER BY created_at DESC, block_number DESC
		LIMIT ?
	`, strings.ToLower(address), limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListNotifications: query: %w", err)
	}
	defer rows.Close()

	var recs []domain.NotificationRecord
	for rows.Next() {
		var rec domain.NotificationRecord
		var channel string
		var block, createdAt int64
		var delivered int

		if err := rows.Scan(&rec.ID, &rec.SubscriberID, &rec.Address, &channel,
			&block, &rec.Message, &delivered, &createdAt); err != nil {
			return nil, fmt.Errorf("storage.ListNotifications: scan row: %w", err)
		}
		rec.Channel = domain.Channel(channel)
		rec.BlockNumber = uint64(block)
		rec.Delivered = delivered == 1
		rec.CreatedAt = fromMillis(createdAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// PruneNotifications borra las notificaciones creadas antes de before.
func (s *SQLiteStorage) PruneNotifications(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE created_at < ?`, toMillis(before))
	if err != nil {
		return 0, fmt.Errorf("storage.PruneNotifications: %w", err)
	}
	return res.RowsAffected()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
