package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken токен не прошёл проверку
var ErrInvalidToken = errors.New("недействительный токен")

const issuer = "blockverse"

// Claims утверждения токена администратора
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issuer выпускает и проверяет токены административного API
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer создаёт выпускающего. Пустой secret заменяется случайным:
// токены тогда живут до перезапуска сервера.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if secret == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		return &Issuer{secret: key, ttl: ttl}, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("секрет JWT не в base64: %w", err)
	}
	if len(decoded) < 32 {
		return nil, errors.New("секрет JWT короче 32 байт")
	}
	return &Issuer{secret: decoded, ttl: ttl}, nil
}

// Issue подписывает токен для администратора
func (i *Issuer) Issue(username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   username,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Validate проверяет подпись, алгоритм и срок действия
func (i *Issuer) Validate(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("неожиданный алгоритм подписи")
		}
		return i.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// GenerateSecret случайный секрет в base64 для конфигурации
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
