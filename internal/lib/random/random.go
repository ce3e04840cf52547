package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewRandomString returns size characters drawn uniformly from [A-Za-z0-9] using crypto/rand.
// 64 characters carry about 381 bits of entropy.
func NewRandomString(size int) (string, error) {
	const op = "lib.random.NewRandomString"

	if size <= 0 {
		return "", fmt.Errorf("%s: size must be positive, got %d", op, size)
	}

	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, size)

	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		buf[i] = alphabet[n.Int64()]
	}

	return string(buf), nil
}
