package testutil

import (
	"crypto/rand"
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
	"github.com/brianvoe/gofakeit/v7"
)

// RandomAlphaNum generates a random alphanumeric string.
// In case length <= 0 it returns an error.
func RandomAlphaNum(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	if length <= 0 {
		return "", fmt.Errorf("length must be greater than 0")
	}

	randomString := make([]byte, length)
	for i := range randomString {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		randomString[i] = charset[num.Int64()]
	}

	return string(randomString), nil
}

// RandomPrincipal returns a plausible principal identifier.
func RandomPrincipal() string {
	return gofakeit.Username()
}

// RandomValidator returns a plausible validator identifier.
func RandomValidator() string {
	return fmt.Sprintf("validator-%s", gofakeit.LetterN(8))
}

// RandomAmount returns a positive amount in [1, max].
func RandomAmount(max int64) sdkmath.Int {
	return sdkmath.NewInt(int64(gofakeit.Number(1, int(max))))
}
