package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/alejandrodnm/freecollateral/internal/domain"
	"github.com/alejandrodnm/freecollateral/internal/ports"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier escribiendo una línea por notificación.
// También imprime las vistas del CLI (formulario, snapshot, suscripciones, historial).
type Console struct {
	out io.Writer
}

var _ ports.Notifier = (*Console)(nil)

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador sobre w, para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Deliver imprime la notificación con hora, bloque y dirección.
func (c *Console) Deliver(_ context.Context, sub domain.Subscriber, rec domain.NotificationRecord) error {
	_, err := fmt.Fprintf(c.out, "[%s] #%d %s → %s\n",
		rec.CreatedAt.Local().Format("15:04:05"),
		rec.BlockNumber,
		domain.ShortAddress(sub.Address),
		rec.Message,
	)
	return err
}

// PrintForm imprime los campos del formulario de suscripción.
func (c *Console) PrintForm(info domain.PluginInfo, address string, fields []domain.FormField) {
	fmt.Fprintf(c.out, "\n%s — %s\n", info.DisplayName, info.Description)
	fmt.Fprintf(c.out, "  account: %s\n\n", address)
	for _, f := range fields {
		fmt.Fprintf(c.out, "  [%s] %s (%s, default %s)\n", f.ID, f.Label, f.Type, domain.FormatCompact(f.Default))
		fmt.Fprintf(c.out, "      %s\n", f.Description)
	}
}

// PrintSnapshot imprime el resultado de una evaluación puntual.
func (c *Console) PrintSnapshot(address string, snap domain.FreeCollateralSnapshot, threshold float64, notes []domain.Notification) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Account", "Collateral", "Debt", "Free", "Threshold", "Alert")

	alert := "no"
	if len(notes) > 0 {
		alert = "YES"
	}
	table.Append(
		domain.ShortAddress(address),
		fmt.Sprintf("$%.2f", snap.Collateral),
		fmt.Sprintf("$%.2f", snap.Debt),
		fmt.Sprintf("$%.2f", snap.FreeCollateral),
		fmt.Sprintf("$%.2f", threshold),
		alert,
	)
	table.Render()

	for _, n := range notes {
		fmt.Fprintf(c.out, "  %s\n", n.Notification)
	}
}

// PrintSubscribers imprime la tabla de suscripciones.
func (c *Console) PrintSubscribers(subs []domain.Subscriber) {
	if len(subs) == 0 {
		fmt.Fprintln(c.out, "no subscriptions")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "ID", "Account", "Channel", "Target", "Values", "Since")
	for i, s := range subs {
		table.Append(
			fmt.Sprintf("%d", i+1),
			s.ID,
			domain.ShortAddress(s.Address),
			string(s.Channel),
			s.Target,
			formatValues(s.Values),
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	table.Render()
}

// PrintHistory imprime las notificaciones registradas de una dirección.
func (c *Console) PrintHistory(address string, recs []domain.NotificationRecord) {
	if len(recs) == 0 {
		fmt.Fprintf(c.out, "no notifications for %s\n", address)
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("When", "Block", "Channel", "Sent", "Message")
	for _, r := range recs {
		sent := "ok"
		if !r.Delivered {
			sent = "FAILED"
		}
		table.Append(
			r.CreatedAt.Local().Format(time.DateTime),
			fmt.Sprintf("%d", r.BlockNumber),
			string(r.Channel),
			sent,
			r.Message,
		)
	}
	table.Render()
}

// formatValues serializa los valores del formulario ordenados por key.
func formatValues(v domain.Subscription) string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%v", k, v[k])
	}
	return out
}
