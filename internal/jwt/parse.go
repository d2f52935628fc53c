package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid_jwt")
	ErrInvalidIssuer = errors.New("invalid_issuer")
	ErrMissingSub    = errors.New("missing_sub")
)

// SessionClaims son las claims que consume la API.
type SessionClaims struct {
	UserID     string
	SessionID  string
	Email      string
	IsSysAdmin bool
	ExpiresAt  time.Time
}

// Parse valida firma (EdDSA), iss, exp y nbf con 30s de tolerancia.
func (i *Issuer) Parse(token string) (*SessionClaims, error) {
	keyfunc := func(*jwtv5.Token) (any, error) { return i.pub, nil }

	tok, err := jwtv5.Parse(token, keyfunc,
		jwtv5.WithValidMethods([]string{"EdDSA"}),
		jwtv5.WithLeeway(30*time.Second),
		jwtv5.WithTimeFunc(i.now),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if iss, _ := claims["iss"].(string); iss != i.Iss {
		return nil, ErrInvalidIssuer
	}

	out := &SessionClaims{}
	out.UserID, _ = claims["sub"].(string)
	if out.UserID == "" {
		return nil, ErrMissingSub
	}
	out.SessionID, _ = claims["sid"].(string)
	out.Email, _ = claims["email"].(string)
	out.IsSysAdmin, _ = claims["is_sys_admin"].(bool)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
