package rpc

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"leasex/crypto"
)

const tokenClockSkew = 2 * time.Minute

// IssueToken mints an HS256 bearer token whose subject is addr.
func IssueToken(secret []byte, addr crypto.Address, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("rpc: JWT secret required")
	}
	if ttl <= 0 {
		return "", errors.New("rpc: token ttl must be positive")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   addr.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// authenticate resolves the caller from the Authorization header.
func (s *Server) authenticate(r *http.Request) ([20]byte, *RPCError) {
	unauthorized := func(msg string) ([20]byte, *RPCError) {
		return [20]byte{}, &RPCError{Code: codeUnauthorized, Message: msg, status: http.StatusUnauthorized}
	}
	if len(s.cfg.JWTSecret) == 0 {
		return unauthorized("RPC authentication not configured")
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return unauthorized("missing Authorization header")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return unauthorized("Authorization header must use Bearer scheme")
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if tokenString == "" {
		return unauthorized("missing bearer token")
	}
	addr, err := s.parseToken(tokenString)
	if err != nil {
		s.logger.Debug("token validation failed", "error", err)
		return unauthorized("invalid token")
	}
	return addr, nil
}

func (s *Server) parseToken(tokenString string) ([20]byte, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.cfg.JWTSecret, nil
	}, jwt.WithLeeway(tokenClockSkew), jwt.WithExpirationRequired())
	if err != nil {
		return [20]byte{}, err
	}
	if !token.Valid {
		return [20]byte{}, errors.New("token invalid")
	}
	subject, err := token.Claims.GetSubject()
	if err != nil {
		return [20]byte{}, err
	}
	addr, err := crypto.DecodeAddress(subject)
	if err != nil {
		return [20]byte{}, fmt.Errorf("subject: %w", err)
	}
	return addr, nil
}
