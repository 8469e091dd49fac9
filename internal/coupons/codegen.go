package coupons

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	codePrefix       = "HASH-"
	codeSuffixLength = 6
	codeAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// maxCodeAttempts bounds collision retries; with a 36^6 space even one
// collision is rare, so hitting this means the code space is exhausted or
// the store is misbehaving.
const maxCodeAttempts = 10

// CodeChecker reports whether a coupon code already exists
type CodeChecker interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

// randomCode draws a fresh candidate code from crypto/rand
func randomCode() (string, error) {
	suffix := make([]byte, codeSuffixLength)
	alphabetLen := big.NewInt(int64(len(codeAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to draw random code symbol: %w", err)
		}
		suffix[i] = codeAlphabet[n.Int64()]
	}
	return codePrefix + string(suffix), nil
}

// GenerateCode mints a unique coupon code, regenerating on collision
func GenerateCode(ctx context.Context, checker CodeChecker) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}

		exists, err := checker.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code uniqueness: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique coupon code after %d attempts", maxCodeAttempts)
}
