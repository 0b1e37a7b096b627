package domain

import "time"

// Channel es el canal por el que el host entrega las notificaciones.
type Channel string

const (
	ChannelConsole  Channel = "console"
	ChannelTelegram Channel = "telegram"
	ChannelNATS     Channel = "nats"
)

// Valid devuelve true si el canal es uno de los conocidos.
func (c Channel) Valid() bool {
	switch c {
	case ChannelConsole, ChannelTelegram, ChannelNATS:
		return true
	}
	return false
}

// Subscriber es una suscripción persistida por el host.
type Subscriber struct {
	ID        string // UUID
	Address   string
	Channel   Channel
	Target    string // chat ID de Telegram o sufijo de subject NATS; vacío en consola
	Values    Subscription
	CreatedAt time.Time
}

// NotificationRecord es una notificación ya entregada (o intentada) por el host.
type NotificationRecord struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriber_id"`
	Address      string    `json:"address"`
	Channel      Channel   `json:"channel"`
	BlockNumber  uint64    `json:"block_number"`
	Message      string    `json:"message"`
	Delivered    bool      `json:"delivered"`
	CreatedAt    time.Time `json:"created_at"`
}

// BlockEvent indica que la red produjo un nuevo bloque.
type BlockEvent struct {
	Number uint64
	SeenAt time.Time
}

// ShortAddress acorta una dirección 0x… para mostrarla en tablas y logs.
func ShortAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
