package otpcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Length is the fixed width of generated codes.
const Length = 6

// span covers [100000, 999999] so every code is exactly six digits with a
// non-zero leading digit. crypto/rand.Int is uniform over [0, span).
var span = big.NewInt(900000)

// New returns a 6-digit numeric code drawn uniformly from [100000, 999999].
func New() (string, error) {
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
