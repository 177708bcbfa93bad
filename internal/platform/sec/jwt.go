// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec holds the security primitives of the service: password hashing,
// RS256 access tokens and opaque session tokens. Domain packages reach it
// through small interfaces so tests can run with generated keys.
package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken wraps every verification failure.
var ErrInvalidToken = errors.New("sec: invalid access token")

// AuthClaims is the access token payload. It carries raw identity fields only;
// elevation is recomputed from them on each request so allow-list changes
// apply without reissuing tokens.
type AuthClaims struct {
	jwt.RegisteredClaims

	UserID    string `json:"uid"`
	Email     string `json:"eml,omitempty"`
	Username  string `json:"unm,omitempty"`
	Role      string `json:"rol,omitempty"`
	Provider  string `json:"prv,omitempty"`
	SessionID string `json:"sid"`
}

// Subject describes the account an access token is issued for.
type Subject struct {
	UserID    string
	Email     string
	Username  string
	Role      string
	Provider  string
	SessionID string
}

// TokenService signs and verifies RS256 access tokens for a single issuer.
type TokenService struct {
	signingKey *rsa.PrivateKey
	verifyKey  *rsa.PublicKey
	issuer     string
	parser     *jwt.Parser
}

// NewTokenService loads the PEM key pair from disk.
func NewTokenService(privateKeyPath, publicKeyPath, issuer string) (*TokenService, error) {
	pair := make([][]byte, 0, 2)
	for _, path := range []string{privateKeyPath, publicKeyPath} {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("sec: read key %s: %w", path, err)
		}
		pair = append(pair, data)
	}
	return NewTokenServiceFromPEM(pair[0], pair[1], issuer)
}

func NewTokenServiceFromPEM(privateKeyPEM, publicKeyPEM []byte, issuer string) (*TokenService, error) {
	signingKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("sec: parse private key: %w", err)
	}
	verifyKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("sec: parse public key: %w", err)
	}

	return &TokenService{
		signingKey: signingKey,
		verifyKey:  verifyKey,
		issuer:     issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// GenerateAccessToken signs a token for subject that expires after timeToLive.
func (service *TokenService) GenerateAccessToken(subject Subject, timeToLive time.Duration) (string, error) {
	issuedAt := time.Now()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, &AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.UserID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(timeToLive)),
		},
		UserID:    subject.UserID,
		Email:     subject.Email,
		Username:  subject.Username,
		Role:      subject.Role,
		Provider:  subject.Provider,
		SessionID: subject.SessionID,
	}).SignedString(service.signingKey)
	if err != nil {
		return "", fmt.Errorf("sec: sign access token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature, algorithm, issuer and expiry.
func (service *TokenService) VerifyToken(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	_, err := service.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return service.verifyKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}
