package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// JWTValidator extracts the authenticated user id from a bearer token.
// Authentication itself happens upstream; this only validates the
// signature and pulls the subject.
type JWTValidator struct {
	pub    *rsa.PublicKey
	secret []byte
	method string
}

func NewRS256Validator(publicKeyPath string) (*JWTValidator, error) {
	b, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("failed to decode public key")
	}
	pubIfc, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := pubIfc.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not rsa public key")
	}
	return &JWTValidator{pub: pub, method: "RS256"}, nil
}

func NewHS256Validator(secret string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret), method: "HS256"}
}

func (j *JWTValidator) Validate(tokenStr string) (string, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if j.method == "RS256" {
			return j.pub, nil
		}
		return j.secret, nil
	}, jwt.WithValidMethods([]string{j.method}))
	if err != nil {
		return "", err
	}
	if claims, ok := tok.Claims.(jwt.MapClaims); ok && tok.Valid {
		if sub, ok := claims["sub"].(string); ok {
			return sub, nil
		}
		if userID, ok := claims["user_id"].(string); ok {
			return userID, nil
		}
	}
	return "", errors.New("invalid token")
}
