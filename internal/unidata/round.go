package unidata

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
)

var (
	bigOne = big.NewInt(1)
	bigTen = big.NewInt(10)
)

// RoundHalfAwayFromZero rounds v to precision decimal places.
//
// Rounding is done on the shortest decimal representation of v rather than on
// its binary value, so 1.005 rounds to 1.01 and 12.345 to 12.35, matching
// what a reader of the source data expects. NaN and infinities are returned
// unchanged. Rounding an already-rounded value is a no-op. precision must be
// within [0, MaxPrecision].
func RoundHalfAwayFromZero(v float64, precision int) (float64, error) {
	if err := checkPrecision(precision); err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v, nil
	}

	var n pgtype.Numeric
	if err := n.Scan(strconv.FormatFloat(v, 'f', -1, 64)); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrParse, err)
	}

	target := int32(-precision)
	if n.Exp >= target {
		return v, nil
	}

	// Drop the extra digits, carrying one when the dropped part is >= half.
	divisor := new(big.Int).Exp(bigTen, big.NewInt(int64(target-n.Exp)), nil)
	abs := new(big.Int).Abs(n.Int)
	q, r := new(big.Int).QuoRem(abs, divisor, new(big.Int))
	if r.Lsh(r, 1).Cmp(divisor) >= 0 {
		q.Add(q, bigOne)
	}
	if n.Int.Sign() < 0 {
		q.Neg(q)
	}

	rounded := pgtype.Numeric{Int: q, Exp: target, Valid: true}
	f, err := rounded.Float64Value()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return f.Float64, nil
}
