package security

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// JWTService signs and validates RS256 access tokens for one issuer.
type JWTService struct {
	issuer     string
	credential *SigningCredential
}

func NewJWTService(issuer string, credential *SigningCredential) *JWTService {
	return &JWTService{
		issuer:     issuer,
		credential: credential,
	}
}

// Sign serializes the payload as a signed JWT, stamping the issuer.
func (s *JWTService) Sign(payload map[string]any) (string, error) {
	claims := jwt.MapClaims{}
	for k, v := range payload {
		claims[k] = v
	}
	claims["iss"] = s.issuer

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.credential.KeyID
	token.Header["typ"] = "at+jwt"
	return token.SignedString(s.credential.Key)
}

// Parse validates signature, issuer and time claims and returns the payload.
func (s *JWTService) Parse(token string) (map[string]any, error) {
	parsed, err := jwt.Parse(token,
		func(t *jwt.Token) (interface{}, error) {
			if kid, ok := t.Header["kid"].(string); ok && kid != s.credential.KeyID {
				return nil, fmt.Errorf("unknown key id %q", kid)
			}
			return s.publicKey(), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *JWTService) publicKey() *rsa.PublicKey {
	return &s.credential.Key.PublicKey
}
