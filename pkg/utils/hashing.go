package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const DefaultBcryptCost = 12

func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

func ComparePasswords(hashedPassword string, plainPassword string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
}

// GenerateSecureToken returns length random bytes hex encoded.
func GenerateSecureToken(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("invalid token length")
	}

	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return hex.EncodeToString(bytes), nil
}

// GenerateOtpCode derives a numeric code from the user's secret and a fresh
// random nonce using HOTP style dynamic truncation.
func GenerateOtpCode(secret string, length int) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	return DeriveOtpCode(secret, nonce, length)
}

func DeriveOtpCode(secret string, nonce []byte, length int) (string, error) {
	if length < 4 || length > 9 {
		return "", errors.New("invalid OTP length")
	}
	if secret == "" {
		return "", errors.New("missing OTP secret")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(nonce)
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	mod := uint32(1)
	for i := 0; i < length; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", length, bin%mod), nil
}

// HashOtpCode binds a code to its purpose so a login code cannot verify an email.
func HashOtpCode(secret, purpose, code string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(purpose))
	mac.Write([]byte{':'})
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifyOtpCode(secret, purpose, code, hash string) bool {
	expected := HashOtpCode(secret, purpose, code)
	return hmac.Equal([]byte(expected), []byte(hash))
}
