package federation

import (
	"errors"

	httperrors "github.com/dropDatabas3/federation/internal/http/errors"
	"github.com/dropDatabas3/federation/internal/http/providers"
	svc "github.com/dropDatabas3/federation/internal/http/services/federation"
)

// mapError traduce errores del dominio a la taxonomía AppError.
// Detail solo lleva texto del proveedor o de validación, nunca secretos.
func mapError(err error) *httperrors.AppError {
	switch {
	case errors.Is(err, svc.ErrInvalidState):
		return httperrors.ErrInvalidState
	case errors.Is(err, svc.ErrMissingCode):
		return httperrors.ErrMissingCode
	case errors.Is(err, svc.ErrProviderError):
		return httperrors.ErrProviderError.WithDetail(err.Error())
	case errors.Is(err, svc.ErrNotClientCredentials):
		return httperrors.ErrNotClientCredentials
	case errors.Is(err, svc.ErrBadSSORequest):
		return httperrors.ErrMissingFields.WithDetail(err.Error())
	case errors.Is(err, svc.ErrUnsupportedFlow):
		return httperrors.ErrBadRequest.WithDetail("flow not supported by this service")
	case errors.Is(err, svc.ErrNewUsersNotAllowed):
		return httperrors.ErrNewUsersNotAllowed
	case errors.Is(err, svc.ErrMissingAccessToken):
		return httperrors.ErrMissingAccessToken
	case errors.Is(err, svc.ErrTokenExchangeFailed):
		return httperrors.ErrTokenExchangeFailed.WithDetail(err.Error())
	case errors.Is(err, svc.ErrIdentityFetchFailed):
		return httperrors.ErrUnauthorized.WithDetail("failed to fetch remote identity")
	case errors.Is(err, svc.ErrSignatureInvalid):
		return httperrors.ErrSignatureInvalid
	case errors.Is(err, svc.ErrTimestampExpired):
		return httperrors.ErrTimestampExpired
	case errors.Is(err, svc.ErrServiceNotFound):
		return httperrors.ErrServiceNotFound
	case errors.Is(err, svc.ErrServiceInactive):
		return httperrors.ErrServiceInactive
	case errors.Is(err, providers.ErrMisconfigured):
		return httperrors.ErrServiceUnavailable.WithDetail("provider misconfigured").WithCause(err)
	default:
		return httperrors.ErrInternalServerError.WithCause(err)
	}
}

// is5xx para decidir el nivel de log.
func is5xx(e *httperrors.AppError) bool { return e.HTTPStatus >= 500 }
