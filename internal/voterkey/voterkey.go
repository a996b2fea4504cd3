// Package voterkey derives the identity used to enforce per-voter ballot quotas.
//
// Resolution order:
//
//	Authorization: Bearer <jwt>  -> "user:<sub>"
//	X-Device-UUID: <uuid>        -> "device:<hmac>"
//	client IP                    -> "ip:<hmac>"
//
// The client IP is the connection's remote address. Forwarded headers are read only
// when the resolver is told it sits behind a trusted proxy.
//
// Device ids and IPs are salted and hashed so raw identifiers never reach the ballot log.
package voterkey

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DeviceHeader carries an anonymous client's stable device id
const DeviceHeader = "X-Device-UUID"

var (
	ErrInvalidToken = errors.New("invalid voter token")
	ErrExpiredToken = errors.New("voter token has expired")
)

// Claims is the voter token payload
type Claims struct {
	jwt.RegisteredClaims
}

// Resolver turns requests into voter keys
type Resolver struct {
	secret     []byte
	salt       string
	trustProxy bool
}

// New creates a Resolver. An empty secret disables bearer tokens.
func New(secret, salt string) *Resolver {
	return &Resolver{secret: []byte(secret), salt: salt}
}

// SetTrustProxy makes ClientIP honor X-Forwarded-For and X-Real-IP
func (v *Resolver) SetTrustProxy(trust bool) {
	v.trustProxy = trust
}

// TrustsProxy reports whether forwarded headers are honored
func (v *Resolver) TrustsProxy() bool {
	return v.trustProxy
}

// ClientIP returns the client address used for anonymous keys and rate limiting
func (v *Resolver) ClientIP(r *http.Request) string {
	return ClientIP(r, v.trustProxy)
}

// Resolve returns the voter key for r. A bearer token that fails validation is an
// error rather than a silent fall back to the anonymous key.
func (v *Resolver) Resolve(r *http.Request) (string, error) {
	if token, ok := bearerToken(r); ok {
		subject, err := v.ValidateToken(token)
		if err != nil {
			return "", err
		}
		return "user:" + subject, nil
	}

	if device := strings.TrimSpace(r.Header.Get(DeviceHeader)); device != "" {
		if id, err := uuid.Parse(device); err == nil {
			return "device:" + HashValue(id.String(), v.salt), nil
		}
	}

	return "ip:" + HashValue(v.ClientIP(r), v.salt), nil
}

// IssueToken signs a voter token for subject, valid for ttl
func (v *Resolver) IssueToken(subject string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", fmt.Errorf("voter token secret is not configured")
	}
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks an HS256 voter token and returns its subject
func (v *Resolver) ValidateToken(tokenString string) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// HashValue returns the first 8 bytes of HMAC-SHA256(salt, value) as hex
func HashValue(value, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil)[:8])
}

// ClientIP extracts the client IP address from RemoteAddr. With trustProxy it checks
// X-Forwarded-For and X-Real-IP first; those headers are client-controlled otherwise.
func ClientIP(r *http.Request, trustProxy bool) string {
	if !trustProxy {
		return remoteHost(r)
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(auth, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
