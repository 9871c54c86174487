package common

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// FixedPlaces is the number of decimal digits used for every number
// written to session artifacts.
const FixedPlaces = 4

// ErrNonFinite is returned by ParseFixed for NaN and infinities.
var ErrNonFinite = errors.New("non-finite number")

// https://stackoverflow.com/questions/18390266/how-can-we-truncate-float64-type-to-a-particular-precision
func Round(num float64) int {
	return int(num + math.Copysign(0.5, num))
}

func DecimalToFixed(num float64, precision int) float64 {
	output := math.Pow(10, float64(precision))
	return float64(Round(num*output)) / output
}

// FormatFixed formats v with exactly FixedPlaces decimals.
// The output is locale-independent: a '.' decimal point, no grouping.
// NaN and infinities are written as "NaN", "+Inf" and "-Inf" so that
// ParseFixed rejects them instead of reading a plausible number.
func FormatFixed(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return decimal.NewFromFloat(v).StringFixed(FixedPlaces)
}

// ParseFixed parses a number written by FormatFixed.
// A decimal comma is tolerated for files edited by hand.
func ParseFixed(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "nan", "inf", "infinity":
		return 0, fmt.Errorf("%w: %s", ErrNonFinite, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
