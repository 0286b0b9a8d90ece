package utils

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const resetAudience = "password-reset"

// resetKey mixes the account's current password hash into the signing key.
// Changing the password invalidates every outstanding reset token.
func (m *TokenManager) resetKey(passwordHash string) []byte {
	key := make([]byte, 0, len(m.secret)+len(passwordHash))
	key = append(key, m.secret...)
	return append(key, passwordHash...)
}

func (m *TokenManager) GenerateResetToken(userID int64, passwordHash string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Audience:  jwt.ClaimStrings{resetAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.resetKey(passwordHash))
}

// ParseResetToken checks that tokenString was issued for userID while the
// account still had passwordHash, and has not expired.
func (m *TokenManager) ParseResetToken(tokenString string, userID int64, passwordHash string) error {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.resetKey(passwordHash), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(resetAudience),
		jwt.WithSubject(strconv.FormatInt(userID, 10)),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
