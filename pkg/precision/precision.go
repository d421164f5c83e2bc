// Package precision formats numeric strings to exchange tick-size rules.
// All functions are pure: the same inputs always produce byte-identical
// output, which matters because venues reject orders whose precision does
// not exactly match their rules.
package precision

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Mode selects how a precision value is interpreted.
type Mode int

const (
	// DecimalPlaces interprets precision as a number of decimal places.
	// Negative values round to tens, hundreds and so on.
	DecimalPlaces Mode = iota
	// SignificantDigits interprets precision as a number of significant digits.
	SignificantDigits
	// TickSize interprets precision as the tick the value must be a
	// multiple of.
	TickSize
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	return [...]string{"decimalPlaces", "significantDigits", "tickSize"}[m]
}

// Rounding selects the rounding rule.
type Rounding int

const (
	// Round rounds to nearest, ties away from zero.
	Round Rounding = iota
	// Truncate discards excess digits, rounding toward zero.
	Truncate
)

// String returns the string representation of the rounding rule.
func (r Rounding) String() string {
	return [...]string{"round", "truncate"}[r]
}

// workingPrecision bounds intermediate arithmetic. Venue payloads never
// carry more digits than this.
const workingPrecision = 64

func apdRounding(r Rounding) apd.Rounder {
	if r == Truncate {
		return apd.RoundDown
	}
	return apd.RoundHalfUp
}

// Apply formats value to the given precision under the given mode and
// rounding rule. The result carries no exponent and no trailing fractional
// zeros.
func Apply(value string, rounding Rounding, prec float64, mode Mode) (string, error) {
	d, _, err := apd.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("parse value %q: %w", value, err)
	}

	ctx := apd.BaseContext.WithPrecision(workingPrecision)
	ctx.Rounding = apdRounding(rounding)

	res := new(apd.Decimal)
	switch mode {
	case DecimalPlaces:
		places, ok := integralPrecision(prec)
		if !ok {
			return "", fmt.Errorf("decimal places precision %v is not an integer", prec)
		}
		if _, err := ctx.Quantize(res, d, int32(-places)); err != nil {
			return "", fmt.Errorf("quantize to %d places: %w", places, err)
		}
	case SignificantDigits:
		digits, ok := integralPrecision(prec)
		if !ok || digits <= 0 {
			return "", fmt.Errorf("significant digits precision %v is not a positive integer", prec)
		}
		sigCtx := apd.BaseContext.WithPrecision(uint32(digits))
		sigCtx.Rounding = apdRounding(rounding)
		if _, err := sigCtx.Round(res, d); err != nil {
			return "", fmt.Errorf("round to %d digits: %w", digits, err)
		}
	case TickSize:
		tick, _, err := apd.NewFromString(strconv.FormatFloat(prec, 'f', -1, 64))
		if err != nil || tick.Sign() <= 0 {
			return "", fmt.Errorf("tick size %v is not positive", prec)
		}
		if err := snapToTick(ctx, res, d, tick); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("unknown precision mode %d", mode)
	}

	return format(res), nil
}

// snapToTick sets res to the multiple of tick nearest to d (or toward zero,
// per the context's rounding).
func snapToTick(ctx *apd.Context, res, d, tick *apd.Decimal) error {
	steps := new(apd.Decimal)
	if _, err := ctx.Quo(steps, d, tick); err != nil {
		return fmt.Errorf("divide by tick: %w", err)
	}
	if _, err := ctx.Quantize(steps, steps, 0); err != nil {
		return fmt.Errorf("snap to tick: %w", err)
	}
	if _, err := ctx.Mul(res, steps, tick); err != nil {
		return fmt.Errorf("scale by tick: %w", err)
	}
	return nil
}

func integralPrecision(prec float64) (int32, bool) {
	n := int32(prec)
	if float64(n) != prec {
		return 0, false
	}
	return n, true
}

// format renders d without an exponent and without trailing fractional
// zeros. Negative zero renders as "0".
func format(d *apd.Decimal) string {
	d.Reduce(d)
	if d.IsZero() {
		return "0"
	}
	s := d.Text('f')
	return s
}

// FromString infers a decimal-places precision from a sample value string,
// e.g. "0.001" yields 3 and "10" yields 0. Exchange metadata frequently
// states precision as such sample values.
func FromString(value string) int {
	if i := strings.IndexAny(value, "eE"); i >= 0 {
		// exponent notation states the precision directly
		exp, err := strconv.Atoi(value[i+1:])
		if err == nil && exp < 0 {
			return -exp
		}
		return 0
	}
	if i := strings.IndexByte(value, '.'); i >= 0 {
		return len(strings.TrimRight(value[i+1:], "0"))
	}
	return 0
}
