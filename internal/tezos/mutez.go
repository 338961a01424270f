package tezos

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MutezPerTez is the number of micro-units in one tez.
const MutezPerTez = 1_000_000

// FormatTez renders a mutez amount in tez without trailing zeros: 42500000 -> "42.5".
func FormatTez(mutez int64) string {
	sign := ""
	abs := uint64(mutez)
	if mutez < 0 {
		sign = "-"
		abs = uint64(-(mutez + 1)) + 1
	}
	whole := abs / MutezPerTez
	frac := abs % MutezPerTez
	if frac == 0 {
		return sign + strconv.FormatUint(whole, 10)
	}
	fracText := strings.TrimRight(fmt.Sprintf("%06d", frac), "0")
	return fmt.Sprintf("%s%d.%s", sign, whole, fracText)
}

// ParseMutez parses the decimal string the node RPC uses for balances.
func ParseMutez(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid mutez amount %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative mutez amount %d", v)
	}
	return v, nil
}

// ParseTez parses a user-entered tez amount such as "1.25" into mutez.
// At most six decimals are accepted.
func ParseTez(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid tez amount %q", s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("tez amount %q cannot be negative", s)
	}
	mutez := d.Shift(6)
	if !mutez.Equal(mutez.Truncate(0)) {
		return 0, fmt.Errorf("tez amount %q has more than 6 decimals", s)
	}
	if mutez.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, fmt.Errorf("tez amount %q is out of range", s)
	}
	return mutez.IntPart(), nil
}
