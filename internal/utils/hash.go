package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"math/big"
	"strings"
)

// BypassTokenAlphabet excludes visually ambiguous characters (I, O, 0, 1) so
// tokens survive being read off a printed recovery sheet.
const BypassTokenAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func GenerateRandomToken(size int) (string, error) {
	buffer := make([]byte, size)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// GenerateRandomString draws length characters uniformly from alphabet.
func GenerateRandomString(length int, alphabet string) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	var builder strings.Builder
	builder.Grow(length)
	for i := 0; i < length; i++ {
		index, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[index.Int64()])
	}
	return builder.String(), nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// CheckToken compares a candidate token against a stored hash in constant
// time.
func CheckToken(candidate string, storedHash string) bool {
	candidateHash := HashToken(candidate)
	return subtle.ConstantTimeCompare([]byte(candidateHash), []byte(storedHash)) == 1
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
