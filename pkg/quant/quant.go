package quant

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"papertrade/pkg/safe"
)

// PriceMicros represents a price (or any cash amount) multiplied by 1,000,000.
// E.g., 20000.50 USD = 20,000,500,000 PriceMicros.
type PriceMicros int64

// QtySats represents an instrument quantity multiplied by 100,000,000.
// E.g., 1.5 BTC = 150,000,000 QtySats.
type QtySats int64

// TimeStamp represents Unix microseconds.
type TimeStamp int64

const (
	PriceScale = 1_000_000
	QtyScale   = 100_000_000

	// BpsScale is the divisor for basis-point fractions (10 bps = 0.1%).
	BpsScale = 10_000
)

// Now returns the current time as a TimeStamp.
func Now() TimeStamp {
	return TimeStamp(time.Now().UnixMicro())
}

// ToPriceMicros converts a float64 (from an external API or config) to PriceMicros.
// Only used at the boundary; internal logic stays in int64.
func ToPriceMicros(f float64) PriceMicros {
	return PriceMicros(math.Round(f * PriceScale))
}

// ToQtySats converts a float64 to QtySats.
func ToQtySats(f float64) QtySats {
	return QtySats(math.Round(f * QtyScale))
}

// Float64 converts back to a float, for API responses and logs only.
func (p PriceMicros) Float64() float64 {
	return float64(p) / PriceScale
}

// Float64 converts back to a float, for API responses and logs only.
func (q QtySats) Float64() float64 {
	return float64(q) / QtyScale
}

func (p PriceMicros) String() string {
	return fmt.Sprintf("%.6f", float64(p)/PriceScale)
}

func (q QtySats) String() string {
	return fmt.Sprintf("%.8f", float64(q)/QtyScale)
}

// Notional returns price * qty as a cash amount in PriceMicros. The raw
// product carries both scales (1e6 * 1e8), so it goes through a 128-bit
// intermediate; the result is exact for the full price/qty domain.
func Notional(price PriceMicros, qty QtySats) PriceMicros {
	return PriceMicros(safe.MulDiv(int64(price), int64(qty), QtyScale))
}

// FeeBps returns the proportional fee on a notional amount, in PriceMicros.
// 10 bps = 0.1%.
func FeeBps(notional PriceMicros, bps int64) PriceMicros {
	return PriceMicros(safe.MulDiv(int64(notional), bps, BpsScale))
}

// FractionMicros returns part/whole as a fraction scaled by 1e6
// (0.01 = 1% = 10,000). Returns 0 when whole is 0.
func FractionMicros(part, whole int64) int64 {
	if whole == 0 {
		return 0
	}
	return safe.MulDiv(part, PriceScale, whole)
}

// NextSeq generates the next sequence number atomically.
func NextSeq(ptr *uint64) uint64 {
	return atomic.AddUint64(ptr, 1)
}

// ParsePriceStr converts a numeric string to PriceMicros without going
// through float64, so exchange payloads keep full precision.
func ParsePriceStr(s string) PriceMicros {
	return PriceMicros(parseFixedPoint(s, 6))
}

// ParseQtyStr converts a numeric string to QtySats without going through float64.
func ParseQtyStr(s string) QtySats {
	return QtySats(parseFixedPoint(s, 8))
}

// parseFixedPoint parses a numeric string into an int64 with the given number
// of fractional digits. E.g., parseFixedPoint("1.23", 6) -> 1,230,000.
func parseFixedPoint(s string, precision int) int64 {
	if s == "" || s == "null" {
		return 0
	}

	intStr, fracStr := s, ""
	if dot := strings.IndexByte(s, '.'); dot != -1 {
		intStr, fracStr = s[:dot], s[dot+1:]
	}

	intPart, _ := strconv.ParseInt(intStr, 10, 64)
	for i := 0; i < precision; i++ {
		intPart = safe.Mul(intPart, 10)
	}

	if fracStr == "" {
		return intPart
	}

	if len(fracStr) > precision {
		fracStr = fracStr[:precision]
	}
	fracPart, _ := strconv.ParseInt(fracStr, 10, 64)
	for i := len(fracStr); i < precision; i++ {
		fracPart *= 10
	}

	if strings.HasPrefix(intStr, "-") {
		return intPart - fracPart
	}
	return intPart + fracPart
}
