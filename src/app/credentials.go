package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTokenTTL = 72 * time.Hour

	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72
)

// Claims carries the owner identifier of a bearer token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// Credentials hashes passwords and issues and verifies bearer tokens signed
// with a process wide secret.
type Credentials struct {
	secret     []byte
	ttl        time.Duration
	bcryptCost int
	now        func() time.Time
}

func NewCredentials(secret string, ttl time.Duration, bcryptCost int) *Credentials {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Credentials{
		secret:     []byte(secret),
		ttl:        ttl,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// HashPassword rejects passwords longer than MaxPasswordBytes with a
// validation error on the password field.
func (c *Credentials) HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), c.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", NewValidationError("password")
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (c *Credentials) VerifyPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

func (c *Credentials) IssueToken(userID string) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// VerifyToken returns the owner identifier encoded in the token. An empty
// token yields ErrMissingCredential; any other failure yields ErrUnauthorized.
func (c *Credentials) VerifyToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrMissingCredential
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("token expired: %w", ErrUnauthorized)
		}
		return "", fmt.Errorf("%v: %w", err, ErrUnauthorized)
	}
	if !token.Valid || claims.UserID == "" {
		return "", ErrUnauthorized
	}
	return claims.UserID, nil
}
