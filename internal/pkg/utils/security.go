package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"carelink-service/internal/pkg/exceptions"

	"github.com/golang-jwt/jwt/v4"
)

type SessionClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

func GenerateJWT(sessionID, secret string, expiresIn time.Duration) (string, error) {
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", exceptions.ErrTokenGenerate(err)
	}
	return signed, nil
}

func ParseJWT(tokenString, secret string) (*SessionClaims, error) {
	claims := new(SessionClaims)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, exceptions.ErrTokenInvalidOrExpired(err)
	}
	return claims, nil
}

// ComputeWebhookSignature returns the hex HMAC-SHA256 digest of the raw
// request body, keyed with the shared webhook secret.
func ComputeWebhookSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateWebhookSignature compares in constant time. Verification happens
// before the payload is parsed, so a forged body is rejected outright.
func ValidateWebhookSignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	expected := ComputeWebhookSignature(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
