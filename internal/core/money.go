package core

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	errAmountMissing   = errors.New("amount is missing")
	errAmountString    = errors.New("amount must be a number, not a string")
	errAmountNegative  = errors.New("amount must not be negative")
	errAmountNotFinite = errors.New("amount must be finite")
	errAmountType      = errors.New("amount is not numeric")
)

// ParseAmount converts a decoded JSON value into an exact decimal amount.
//
// Numbers (float64, json.Number, integer kinds, decimal.Decimal) are accepted.
// Numeric strings such as "50" are rejected: the transaction service sends
// numbers, and a string means the record was produced by something else.
func ParseAmount(v any) (decimal.Decimal, error) {
	var d decimal.Decimal
	switch x := v.(type) {
	case nil:
		return decimal.Zero, errAmountMissing
	case decimal.Decimal:
		d = x
	case json.Number:
		parsed, err := decimal.NewFromString(string(x))
		if err != nil {
			return decimal.Zero, errAmountType
		}
		d = parsed
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, errAmountNotFinite
		}
		d = decimal.NewFromFloat(x)
	case float32:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, errAmountNotFinite
		}
		d = decimal.NewFromFloat32(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case int32:
		d = decimal.NewFromInt32(x)
	case int64:
		d = decimal.NewFromInt(x)
	case uint:
		d = decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(x)), 0)
	case uint32:
		d = decimal.NewFromInt(int64(x))
	case uint64:
		d = decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0)
	case string:
		return decimal.Zero, errAmountString
	default:
		return decimal.Zero, errAmountType
	}
	if d.IsNegative() {
		return decimal.Zero, errAmountNegative
	}
	return d, nil
}

// amountNumber renders an amount as an unquoted JSON number.
func amountNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// SumAmounts adds amounts without intermediate rounding.
func SumAmounts(amounts ...decimal.Decimal) decimal.Decimal {
	return decimal.Sum(decimal.Zero, amounts...)
}
