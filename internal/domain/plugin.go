package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// PluginInfo son los metadatos que el host muestra en su catálogo.
type PluginInfo struct {
	ID          string
	DisplayName string
	Description string
}

// FieldType es el tipo de input que el host renderiza para un campo.
type FieldType string

const (
	FieldNumber FieldType = "number"
	FieldText   FieldType = "text"
)

// FormField describe un campo del formulario de suscripción.
type FormField struct {
	Type        FieldType `json:"type"`
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Default     float64   `json:"default"`
	Description string    `json:"description"`
}

// Subscription son los valores que el usuario introdujo en el formulario,
// indexados por el ID del campo. Los valores llegan tal cual los guardó el host.
type Subscription map[string]any

// Number devuelve el valor numérico del campo id.
// Acepta números, json.Number y strings numéricos; false si falta o no es un número.
func (s Subscription) Number(id string) (float64, bool) {
	raw, ok := s[id]
	if !ok || raw == nil {
		return 0, false
	}

	var v float64
	switch x := raw.(type) {
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int64:
		v = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		v = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}

	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// InitArgs son los argumentos de OnInit. Hoy vacíos.
type InitArgs struct{}

// FormArgs son los argumentos de OnSubscribeForm.
type FormArgs struct {
	Address string
}

// BlockArgs son los argumentos de OnBlocks.
// Subscription nil significa que la cuenta no tiene suscripción.
type BlockArgs struct {
	Subscription Subscription
	Address      string
	BlockNumber  uint64
}

// Notification es el mensaje que el plugin entrega al host.
type Notification struct {
	Notification string `json:"notification"`
}
