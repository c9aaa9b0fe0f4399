package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// WebChatTokenTTL is the lifetime of a web-chat token
const WebChatTokenTTL = 30 * 24 * time.Hour

// GenerateWebChatToken issues a token that lets subject open a web-chat session
func GenerateWebChatToken(subject, secret string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	if secret == "" {
		return "", errors.New("secret is required")
	}
	if ttl <= 0 {
		ttl = WebChatTokenTTL
	}

	claims := jwt.MapClaims{
		"sub":  subject,
		"type": "webchat",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses and validates a token
func ValidateToken(tokenString string, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// WebChatSubject validates a web-chat token and returns its subject
func WebChatSubject(tokenString, secret string) (string, error) {
	claims, err := ValidateToken(tokenString, secret)
	if err != nil {
		return "", err
	}
	if claims["type"] != "webchat" {
		return "", errors.New("not a web-chat token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}
