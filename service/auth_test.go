package service_test

import (
	"context"
	"testing"
	"time"

	"salesapi/service"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

func TestAuthenticator_Login(t *testing.T) {
	type args struct {
		username string
		password string
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{name: "correct credentials", args: args{username: "user", password: "pass"}},
		{name: "wrong password", args: args{username: "user", password: "nope"}, wantErr: true},
		{name: "wrong username", args: args{username: "admin", password: "pass"}, wantErr: true},
		{name: "empty", args: args{}, wantErr: true},
	}

	auth, err := service.NewAuthenticator("user", "pass", "secret")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := auth.Login(context.Background(), tt.args.username, tt.args.password)
			if tt.wantErr {
				require.ErrorIs(t, err, service.ErrUnauthorized)
				require.Equal(t, "Invalid credentials", service.PublicMessage(err, ""))
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, token)

			parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
				return []byte("secret"), nil
			})
			require.NoError(t, err)
			claims, ok := parsed.Claims.(jwt.MapClaims)
			require.True(t, ok)
			require.Equal(t, "user", claims["user"])
			require.Equal(t, "HS256", parsed.Header["alg"])
		})
	}
}

func TestAuthenticator_VerifyWithinAndAfterTTL(t *testing.T) {
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := issued
	clock := func() time.Time { return now }

	auth, err := service.NewAuthenticator("user", "pass", "secret", service.WithClock(clock))
	require.NoError(t, err)

	token, err := auth.Login(context.Background(), "user", "pass")
	require.NoError(t, err)

	claims, err := auth.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user", claims.User)
	require.Equal(t, issued.Add(service.TokenTTL).Unix(), claims.ExpiresAt.Unix())

	now = issued.Add(59 * time.Minute)
	_, err = auth.Verify(token)
	require.NoError(t, err)

	now = issued.Add(61 * time.Minute)
	_, err = auth.Verify(token)
	require.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestAuthenticator_VerifyRejects(t *testing.T) {
	auth, err := service.NewAuthenticator("user", "pass", "secret")
	require.NoError(t, err)
	other, err := service.NewAuthenticator("user", "pass", "another-secret")
	require.NoError(t, err)

	foreign, err := other.Login(context.Background(), "user", "pass")
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"user": "user",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user": "user",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	notYetValid, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user": "user",
		"nbf":  time.Now().Add(time.Hour).Unix(),
		"exp":  time.Now().Add(2 * time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "signed with another secret", token: foreign},
		{name: "unexpected algorithm", token: hs512},
		{name: "no expiry", token: noExp},
		{name: "not valid before an hour from now", token: notYetValid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Verify(tt.token)
			require.ErrorIs(t, err, service.ErrUnauthorized)
			require.Equal(t, "Invalid token", service.PublicMessage(err, ""))
		})
	}
}

func TestNewAuthenticator_EmptySecret(t *testing.T) {
	_, err := service.NewAuthenticator("user", "pass", "")
	require.Error(t, err)
}
