package domain

import (
	"math"

	"github.com/dustin/go-humanize"
)

// Sufijos de notación compacta en-US (no SI: K y B, no k y G).
var compactSuffixes = [...]string{"", "K", "M", "B", "T"}

// FormatCompact formatea v en notación compacta: 1234 → "1.2K", 12345 → "12K",
// -500 → "-500", 0.1234 → "0.12".
// Con un solo dígito entero se conserva un decimal; con más, se redondea a entero.
func FormatCompact(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "∞"
	case math.IsInf(v, -1):
		return "-∞"
	}

	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	// por debajo de la precisión de humanize.FtoaWithDigits
	if v < 1e-6 {
		return "0"
	}

	if v < 1 {
		// dos cifras significativas
		digits := 1 - int(math.Floor(math.Log10(v)))
		return sign + humanize.FtoaWithDigits(roundTo(v, digits), digits)
	}

	i := 0
	for i < len(compactSuffixes)-1 && v >= 1000 {
		v /= 1000
		i++
	}

	digits := 0
	if v < 10 {
		digits = 1
	}
	r := roundTo(v, digits)

	// 999.95K redondea a 1000K → 1M
	if r >= 1000 && i < len(compactSuffixes)-1 {
		i++
		digits = 1
		r = roundTo(r/1000, digits)
	}

	return sign + humanize.FtoaWithDigits(r, digits) + compactSuffixes[i]
}

func roundTo(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}
