package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/freecollateral/internal/domain"
	"github.com/alejandrodnm/freecollateral/internal/ports"
	tele "gopkg.in/telebot.v4"
)

// sender es la parte de *tele.Bot que usa el notificador.
type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Telegram implementa ports.Notifier enviando un mensaje al chat del suscriptor.
type Telegram struct {
	bot sender
}

var _ ports.Notifier = (*Telegram)(nil)

// NewTelegram crea el bot sin arrancar el poller: solo se usa para enviar.
func NewTelegram(token string) (*Telegram, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		// no hace falta getMe al arrancar, y así no hay I/O en el constructor
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("notify.NewTelegram: %w", err)
	}
	return &Telegram{bot: b}, nil
}

// Deliver envía la notificación al chat indicado en sub.Target.
func (t *Telegram) Deliver(_ context.Context, sub domain.Subscriber, rec domain.NotificationRecord) error {
	chatID, err := strconv.ParseInt(strings.TrimSpace(sub.Target), 10, 64)
	if err != nil {
		return fmt.Errorf("notify.Telegram: invalid chat id %q: %w", sub.Target, err)
	}

	text := fmt.Sprintf("Free Collateral · %s\n%s", domain.ShortAddress(sub.Address), rec.Message)
	if _, err := t.bot.Send(&tele.Chat{ID: chatID}, text, &tele.SendOptions{DisableWebPagePreview: true}); err != nil {
		return fmt.Errorf("notify.Telegram: send to %d: %w", chatID, err)
	}
	return nil
}
