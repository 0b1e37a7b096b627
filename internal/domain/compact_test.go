package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCompact(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{400, "400"},
		{-500, "-500"},
		{999, "999"},
		{999.9, "1K"},
		{1000, "1K"},
		{1234, "1.2K"},
		{1500, "1.5K"},
		{2000, "2K"},
		{-2000, "-2K"},
		{9960, "10K"},
		{12345, "12K"},
		{123456, "123K"},
		{999_950, "1M"},
		{1_000_000, "1M"},
		{2_500_000_000, "2.5B"},
		{3_100_000_000_000, "3.1T"},
		{0.5, "0.5"},
		{0.1234, "0.12"},
		{-0.01234, "-0.012"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatCompact(tc.in), "FormatCompact(%v)", tc.in)
	}
}

func TestFormatCompact_NonFinite(t *testing.T) {
	assert.Equal(t, "NaN", FormatCompact(math.NaN()))
	assert.Equal(t, "∞", FormatCompact(math.Inf(1)))
	assert.Equal(t, "-∞", FormatCompact(math.Inf(-1)))
}

func TestFormatCompact_TinyValuesCollapseToZero(t *testing.T) {
	assert.Equal(t, "0", FormatCompact(1e-9))
	assert.Equal(t, "0", FormatCompact(-1e-9))
}
