package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const passwordResetAudience = "password_reset"

type ResetClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// CreateResetToken signs a password reset token. The returned jti is what the
// caller persists to make the token single use.
func CreateResetToken(secret []byte, userID uuid.UUID, email string, ttl time.Duration, now time.Time) (token string, jti string, err error) {
	jti, err = GenerateSecureToken(16)
	if err != nil {
		return "", "", err
	}

	claims := &ResetClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{passwordResetAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", "", err
	}
	return token, jti, nil
}

func ParseResetToken(secret []byte, tokenString string, now time.Time) (*ResetClaims, error) {
	claims := &ResetClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(passwordResetAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, errors.New("token is missing identifiers")
	}

	return claims, nil
}
