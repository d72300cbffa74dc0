package security

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-jose/go-jose/v4"
)

const developerKeyBits = 2048

var (
	ErrMissingKeyMaterial = errors.New("need to configure key material")
	ErrInvalidKeyMaterial = errors.New("invalid key material")
)

// SigningCredential is the RSA key used to sign issued tokens.
type SigningCredential struct {
	KeyID string
	Key   *rsa.PrivateKey
}

func NewSigningCredential(key *rsa.PrivateKey) (*SigningCredential, error) {
	if key == nil {
		return nil, ErrInvalidKeyMaterial
	}
	jwk := jose.JSONWebKey{Key: &key.PublicKey}
	thumb, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("key thumbprint: %w", err)
	}
	return &SigningCredential{
		KeyID: base64.RawURLEncoding.EncodeToString(thumb),
		Key:   key,
	}, nil
}

// JWKS returns the public half of the credential as a JSON Web Key Set.
func (c *SigningCredential) JWKS() jose.JSONWebKeySet {
	return jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &c.Key.PublicKey,
		KeyID:     c.KeyID,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}}
}

// DeveloperSigningCredential returns a development key. With a non-empty path
// the key is persisted there and reused on the next start; otherwise it lives
// only for the lifetime of the process.
func DeveloperSigningCredential(path string) (*SigningCredential, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return LoadSigningCredential(path)
		}
	}

	key, err := rsa.GenerateKey(rand.Reader, developerKeyBits)
	if err != nil {
		return nil, fmt.Errorf("generate developer key: %w", err)
	}

	if path != "" {
		if err := writeKey(path, key); err != nil {
			return nil, err
		}
	}
	return NewSigningCredential(key)
}

// LoadSigningCredential reads a PEM encoded RSA private key (PKCS#1 or PKCS#8).
func LoadSigningCredential(path string) (*SigningCredential, error) {
	if path == "" {
		return nil, ErrMissingKeyMaterial
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("%s: no PEM block: %w", path, ErrInvalidKeyMaterial)
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%s: %v: %w", path, err, ErrInvalidKeyMaterial)
		}
		return NewSigningCredential(key)
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%s: %v: %w", path, err, ErrInvalidKeyMaterial)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%s: not an RSA key: %w", path, ErrInvalidKeyMaterial)
		}
		return NewSigningCredential(key)
	default:
		return nil, fmt.Errorf("%s: unexpected PEM type %q: %w", path, block.Type, ErrInvalidKeyMaterial)
	}
}

// ResolveSigningCredential picks the credential strategy for the environment.
// Outside development a configured key is mandatory.
func ResolveSigningCredential(development bool, keyPath, developerKeyPath string) (*SigningCredential, error) {
	if keyPath != "" {
		return LoadSigningCredential(keyPath)
	}
	if development {
		return DeveloperSigningCredential(developerKeyPath)
	}
	return nil, ErrMissingKeyMaterial
}

func writeKey(path string, key *rsa.PrivateKey) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create key dir: %w", err)
		}
	}
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		return fmt.Errorf("write developer key: %w", err)
	}
	return nil
}
