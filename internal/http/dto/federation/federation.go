// Package federation define los payloads HTTP de la API de federación.
package federation

import (
	"time"

	"github.com/dropDatabas3/federation/internal/domain/repository"
	jwtx "github.com/dropDatabas3/federation/internal/jwt"
)

// SessionPayload es la respuesta de un login federado exitoso.
type SessionPayload struct {
	SessionToken  string     `json:"session_token"`
	SessionID     string     `json:"session_id"`
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Email         string     `json:"email"`
	IsSysAdmin    bool       `json:"is_sys_admin"`
	LastLoginDate *time.Time `json:"last_login_date"`
	OAuthToken    string     `json:"oauth_token"`
	IDToken       string     `json:"id_token,omitempty"`
}

// NewSessionPayload arma el payload desde el usuario local y la sesión emitida.
func NewSessionPayload(u *repository.User, s *jwtx.Session, oauthToken, idToken string) SessionPayload {
	p := SessionPayload{
		ID:            u.ID,
		Name:          u.Name,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		IsSysAdmin:    u.IsSysAdmin,
		LastLoginDate: u.LastLoginDate,
		OAuthToken:    oauthToken,
		IDToken:       idToken,
	}
	if s != nil {
		p.SessionToken = s.Token
		p.SessionID = s.SessionID
	}
	return p
}

// RedirectBody es la variante JSON del inicio de login (requests XHR).
type RedirectBody struct {
	Redirect bool   `json:"redirect"`
	URL      string `json:"url"`
}

type RedirectResponse struct {
	Response RedirectBody `json:"response"`
}

func NewRedirectResponse(url string) RedirectResponse {
	return RedirectResponse{Response: RedirectBody{Redirect: true, URL: url}}
}

// ClientCredentialsResponse = SessionPayload + datos del token de la app.
type ClientCredentialsResponse struct {
	SessionPayload
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	AcquiredAt  string `json:"acquired_at"`
	Cached      bool   `json:"cached"`
}

// ClientCredentialsStatus refleja el estado del token cacheado.
type ClientCredentialsStatus struct {
	Valid     bool   `json:"valid"`
	Cached    bool   `json:"cached"`
	TokenType string `json:"token_type,omitempty"`
	Scope     string `json:"scope,omitempty"`
	Message   string `json:"message,omitempty"`
}

// SuccessResponse para operaciones sin payload (clear, delete).
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SignatureSSOResponse es el body del SSO por firma.
type SignatureSSOResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	JWT   string `json:"jwt"`
}

// TokenResponse devuelve el token del proveedor cacheado para el usuario de la sesión.
type TokenResponse struct {
	Service string `json:"service"`
	Token   string `json:"token"`
}
