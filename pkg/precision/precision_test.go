package precision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_DecimalPlaces(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		rounding Rounding
		prec     float64
		want     string
	}{
		{"truncate drops excess digits", "12.3456000", Truncate, 2, "12.34"},
		{"truncate toward zero when negative", "-0.123456", Truncate, 5, "-0.12345"},
		{"truncate to integer", "123.7", Truncate, 0, "123"},
		{"round half up", "12.3456", Round, 3, "12.346"},
		{"round ties away from zero", "0.00000005", Round, 7, "0.0000001"},
		{"round negative away from zero", "-0.000123456700", Round, 9, "-0.000123457"},
		{"negative places round to tens", "9999", Round, -2, "10000"},
		{"negative places truncate to tens", "9999", Truncate, -2, "9900"},
		{"no trailing zeros", "123.0000987", Truncate, 2, "123"},
		{"value below precision unchanged", "0.5", Round, 3, "0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.value, tt.rounding, tt.prec, DecimalPlaces)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply_SignificantDigits(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		rounding Rounding
		prec     float64
		want     string
	}{
		{"round keeps leading digits", "0.000123456700", Round, 5, "0.00012346"},
		{"truncate keeps leading digits", "0.000123456700", Truncate, 5, "0.00012345"},
		{"round integer part", "123456", Round, 2, "120000"},
		{"single digit", "0.000123456700", Round, 1, "0.0001"},
		{"exact width unchanged", "123.456", Round, 6, "123.456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.value, tt.rounding, tt.prec, SignificantDigits)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply_TickSize(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		rounding Rounding
		prec     float64
		want     string
	}{
		{"round to nearest tick", "0.123456", Round, 0.00005, "0.12345"},
		{"truncate to lower tick", "0.123474", Truncate, 0.00005, "0.12345"},
		{"coarse tick", "1.34", Round, 0.25, "1.25"},
		{"already on tick", "0.5", Round, 0.25, "0.5"},
		{"negative value", "-1.34", Round, 0.25, "-1.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.value, tt.rounding, tt.prec, TickSize)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name  string
		value string
		prec  float64
		mode  Mode
	}{
		{"unparsable value", "not-a-number", 2, DecimalPlaces},
		{"fractional places", "1.23", 2.5, DecimalPlaces},
		{"zero significant digits", "1.23", 0, SignificantDigits},
		{"zero tick", "1.23", 0, TickSize},
		{"negative tick", "1.23", -0.1, TickSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(tt.value, Round, tt.prec, tt.mode)
			assert.Error(t, err)
		})
	}
}

func TestApply_Deterministic(t *testing.T) {
	first, err := Apply("0.123456789", Round, 5, DecimalPlaces)
	require.NoError(t, err)
	second, err := Apply("0.123456789", Round, 5, DecimalPlaces)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFromString(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"0.001", 3},
		{"0.00000001", 8},
		{"1", 0},
		{"10", 0},
		{"0.1000", 1},
		{"1e-8", 8},
		{"1E-4", 4},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, FromString(tt.value))
		})
	}
}
