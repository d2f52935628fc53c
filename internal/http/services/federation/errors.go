package federation

import "errors"

// Errores de dominio de la federación. Los controllers los traducen a AppError con errors.Is.
var (
	ErrInvalidState         = errors.New("invalid or expired state")
	ErrMissingCode          = errors.New("missing authorization code")
	ErrProviderError        = errors.New("identity provider returned an error")
	ErrNotClientCredentials = errors.New("service is not configured for client credentials")
	ErrNewUsersNotAllowed   = errors.New("new users are not allowed for this service")
	ErrTokenExchangeFailed  = errors.New("token exchange failed")
	ErrIdentityFetchFailed  = errors.New("failed to fetch remote identity")
	ErrMissingAccessToken   = errors.New("token response missing access_token")
	ErrSignatureInvalid     = errors.New("token invalid")
	ErrTimestampExpired     = errors.New("timestamp expired")
	ErrServiceNotFound      = errors.New("service not found")
	ErrServiceInactive      = errors.New("service inactive")
	ErrBadSSORequest        = errors.New("bad sso request")
	ErrUnsupportedFlow      = errors.New("flow not supported by this service")
)
