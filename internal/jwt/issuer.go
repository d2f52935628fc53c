// Package jwt emite y valida los session tokens (EdDSA) de la federación.
package jwt

import (
	"crypto/ed25519"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/federation/internal/domain/repository"
)

// Issuer firma session tokens con una clave ed25519 derivada.
type Issuer struct {
	Iss string        // "iss"
	TTL time.Duration // vida del session token

	kid  string
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	now  func() time.Time
}

// Session es el resultado de IssueSession.
type Session struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
}

// NewIssuer deriva la clave desde secret.
func NewIssuer(iss string, secret []byte, ttl time.Duration) (*Issuer, error) {
	priv, pub, kid, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{Iss: iss, TTL: ttl, kid: kid, priv: priv, pub: pub, now: time.Now}, nil
}

// KID devuelve el key id publicado en el header.
func (i *Issuer) KID() string { return i.kid }

// IssueSession emite un session token para el usuario local.
func (i *Issuer) IssueSession(u *repository.User) (*Session, error) {
	now := i.now().UTC()
	exp := now.Add(i.TTL)
	sid := uuid.NewString()

	claims := jwtv5.MapClaims{
		"iss":          i.Iss,
		"sub":          u.ID,
		"sid":          sid,
		"email":        u.Email,
		"name":         u.Name,
		"is_sys_admin": u.IsSysAdmin,
		"iat":          now.Unix(),
		"nbf":          now.Unix(),
		"exp":          exp.Unix(),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["kid"] = i.kid
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.priv)
	if err != nil {
		return nil, err
	}
	return &Session{Token: signed, SessionID: sid, ExpiresAt: exp}, nil
}
