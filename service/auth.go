package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is how long an issued credential stays valid.
const TokenTTL = time.Hour

// Claims is the payload of an issued credential.
type Claims struct {
	User string `json:"user"`
	jwt.RegisteredClaims
}

// Authenticator checks the single configured account and issues and verifies
// HS256 tokens. It keeps no session state.
type Authenticator struct {
	username     string
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

type AuthOption func(*Authenticator)

// WithClock replaces time.Now for issuing and verifying tokens.
func WithClock(now func() time.Time) AuthOption {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAuthenticator(username, password, secret string, opts ...AuthOption) (Authenticator, error) {
	if secret == "" {
		return Authenticator{}, errors.New("signing secret must not be empty")
	}
	hash, err := bcryptHash(password)
	if err != nil {
		return Authenticator{}, fmt.Errorf("hash password: %w", err)
	}
	a := Authenticator{
		username:     username,
		passwordHash: hash,
		secret:       []byte(secret),
		ttl:          TokenTTL,
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&a)
		}
	}
	return a, nil
}

// Login returns a signed token when username and password match the
// configured account.
func (a Authenticator) Login(
	ctx context.Context,
	username, password string,
) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := bcryptCompare(a.passwordHash, password)
	if !userOK || !passOK {
		return "", unauthorized("Invalid credentials", nil)
	}
	token, err := a.generateJWT()
	if err != nil {
		return "", internal("Failed to issue token", err)
	}
	return token, nil
}

// Verify accepts a token only if it is HS256-signed with our secret, not
// expired and past any nbf. Every failure is reported as the same unauthorized error.
func (a Authenticator) Verify(tokenStr string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return Claims{}, unauthorized("Invalid token", err)
	}
	now := a.now()
	if !claims.VerifyExpiresAt(now, true) {
		return Claims{}, unauthorized("Invalid token", errors.New("token expired"))
	}
	if !claims.VerifyNotBefore(now, false) {
		return Claims{}, unauthorized("Invalid token", errors.New("token not valid yet"))
	}
	return claims, nil
}

func (a Authenticator) generateJWT() (string, error) {
	now := a.now()
	token := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		Claims{
			User: a.username,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   a.username,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			},
		},
	)
	return token.SignedString(a.secret)
}

func bcryptHash(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

func bcryptCompare(hashed []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hashed, []byte(password)) == nil
}
