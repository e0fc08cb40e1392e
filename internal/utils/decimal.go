package utils

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// NumericToDecimal converts a Postgres numeric without going through float.
// NULL, NaN and infinities map to zero.
func NumericToDecimal(value pgtype.Numeric) decimal.Decimal {
	if !value.Valid || value.NaN || value.InfinityModifier != pgtype.Finite || value.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value.Int, value.Exp)
}

func NumericToFloat64(value pgtype.Numeric) float64 {
	return NumericToDecimal(value).InexactFloat64()
}
