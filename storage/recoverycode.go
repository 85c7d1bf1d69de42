package storage

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

// recoveryCodeAlphabet is the RFC 4648 base32 alphabet. It avoids the
// ambiguous 0/1/8 digits, so codes survive being read over the phone.
const recoveryCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

const (
	recoveryCodeGroups    = 4
	recoveryCodeGroupSize = 4
)

var recoveryCodePattern = regexp.MustCompile(`^([A-Z2-7]{4}-){3}[A-Z2-7]{4}$`)

// GenerateRecoveryCode returns a fresh code of the form XXXX-XXXX-XXXX-XXXX
// drawn from crypto/rand. Each character carries 5 bits, for 80 bits of
// entropy per code.
func GenerateRecoveryCode() (string, error) {
	raw := make([]byte, recoveryCodeGroups*recoveryCodeGroupSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate recovery code: %w", err)
	}

	groups := make([]string, 0, recoveryCodeGroups)
	for g := 0; g < recoveryCodeGroups; g++ {
		var sb strings.Builder
		for i := 0; i < recoveryCodeGroupSize; i++ {
			sb.WriteByte(recoveryCodeAlphabet[int(raw[g*recoveryCodeGroupSize+i])%len(recoveryCodeAlphabet)])
		}
		groups = append(groups, sb.String())
	}
	return strings.Join(groups, "-"), nil
}

// ValidateRecoveryCode reports whether code is well-formed. Well-formed
// does not mean correct: possession of the right code is proven by
// decrypting the recovery record, never by this check.
func ValidateRecoveryCode(code string) bool {
	return recoveryCodePattern.MatchString(code)
}

// codeIssuer provides the shared recovery-code methods for every registry
// implementation.
type codeIssuer struct{}

func (codeIssuer) GenerateRecoveryCode() (string, error) {
	return GenerateRecoveryCode()
}

func (codeIssuer) ValidateRecoveryCode(code string) bool {
	return ValidateRecoveryCode(code)
}
