package oidc

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

const (
	GrantClientCredentials = "client_credentials"
	GrantPassword          = "password"

	ScopeOpenID = "openid"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrInvalidScope   = errors.New("invalid scope")
)

// IdentityResource is a scope that releases user identity claims (userinfo).
type IdentityResource struct {
	Name        string
	DisplayName string
	Required    bool
	UserClaims  []string
}

// APIResource is a scope that names a protected API; its user claims are
// placed in access tokens issued for it.
type APIResource struct {
	Name        string
	DisplayName string
	UserClaims  []string
}

type Client struct {
	ClientID            string
	ClientName          string
	SecretHashes        []string
	RequireClientSecret bool
	AllowedGrantTypes   []string
	AllowedScopes       []string
	AccessTokenLifetime time.Duration
}

// HashSecret returns the stored form of a client secret.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func (c *Client) AllowsGrant(grant string) bool {
	return contains(c.AllowedGrantTypes, grant)
}

func (c *Client) AllowsScope(scope string) bool {
	return contains(c.AllowedScopes, scope)
}

func (c *Client) VerifySecret(secret string) bool {
	if !c.RequireClientSecret {
		return true
	}
	hashed := HashSecret(secret)
	for _, h := range c.SecretHashes {
		if subtle.ConstantTimeCompare([]byte(h), []byte(hashed)) == 1 {
			return true
		}
	}
	return false
}

// ParseScopes splits a space separated scope parameter, dropping duplicates.
func ParseScopes(raw string) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range strings.Fields(raw) {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
