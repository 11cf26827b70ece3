package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid token")

// Session adalah isi token JWT yang dibawa cookie "jwt".
type Session struct {
	UserID int
	Email  string
}

// Generate membuat token JWT HS256 dengan claims id, email, iat, dan exp.
func Generate(userID int, email string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":    userID,
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	})
	return t.SignedString(secret)
}

// Parse memvalidasi token dan mengembalikan session user.
func Parse(tokenString string, secret []byte) (Session, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !t.Valid {
		return Session{}, ErrInvalidToken
	}
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, ErrInvalidToken
	}
	// exp sudah divalidasi oleh jwt.Parse, cek lagi untuk jaga-jaga
	if exp, ok := claims["exp"].(float64); !ok || int64(exp) < time.Now().Unix() {
		return Session{}, ErrInvalidToken
	}
	id, ok := claims["id"].(float64)
	if !ok {
		return Session{}, ErrInvalidToken
	}
	email, ok := claims["email"].(string)
	if !ok {
		return Session{}, ErrInvalidToken
	}
	return Session{UserID: int(id), Email: email}, nil
}

// VerificationCode menghasilkan kode verifikasi 6 digit,
// uniform di rentang [100000, 999999].
func VerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
