package internal

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// NumericCode generates a uniformly random numeric code of the given number of
// digits, left-padded with zeros. Uses crypto/rand; modulo bias is avoided by
// big.Int range sampling.
func NumericCode(digits int) (string, error) {
	if digits <= 0 {
		digits = 6
	}

	bound := big.NewInt(10)
	bound.Exp(bound, big.NewInt(int64(digits)), nil)

	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", err
	}

	s := n.String()
	if len(s) < digits {
		s = strings.Repeat("0", digits-len(s)) + s
	}
	return s, nil
}
