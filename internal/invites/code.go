package invites

import (
	"crypto/rand"
	"fmt"
)

const (
	// CodeAlphabet is the base-36 alphabet invite codes are drawn from.
	CodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	DefaultCodeLength = 10
	MinCodeLength     = 8
	MaxCodeLength     = 32

	// Bytes at or above this value are rejected so every symbol is equally likely.
	codeRejectThreshold = 256 - 256%len(CodeAlphabet)
)

// GenerateCode returns a uniformly random code of length symbols.
func GenerateCode(length int) (string, error) {
	if length < MinCodeLength || length > MaxCodeLength {
		return "", fmt.Errorf("invite code length must be between %d and %d, got %d", MinCodeLength, MaxCodeLength, length)
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= codeRejectThreshold {
				continue
			}
			out = append(out, CodeAlphabet[int(b)%len(CodeAlphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
