package logger

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// =================================================================================
// CAMPOS ESTÁNDAR - FEDERACIÓN
// =================================================================================

// ServiceName identifica el servicio federado (ej: "google", "azure-cc").
func ServiceName(v string) zap.Field { return zap.String("service_name", v) }

func ServiceID(v string) zap.Field { return zap.String("service_id", v) }

// Provider es la familia del adapter (google, github, twitter, azure_ad...).
func Provider(v string) zap.Field { return zap.String("provider", v) }

// Kind es la variante de flujo (oauth2_stateful, oauth1a, client_credentials...).
func Kind(v string) zap.Field { return zap.String("flow_kind", v) }

func UserID(v string) zap.Field { return zap.String("user_id", v) }

func RoleID(v string) zap.Field { return zap.String("role_id", v) }

// MaskedEmail loguea el email enmascarado (primeros 2 chars + @dominio).
func MaskedEmail(v string) zap.Field { return zap.String("email_masked", MaskEmail(v)) }

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field { return zap.String("component", v) }

// Op crea un campo para la operación o estado actual.
func Op(v string) zap.Field { return zap.String("op", v) }

// Layer crea un campo para la capa (controller, service, repository).
func Layer(v string) zap.Field { return zap.String("layer", v) }

func Err(err error) zap.Field { return zap.Error(err) }

func Key(v string) zap.Field { return zap.String("key", v) }

func Any(key string, v any) zap.Field { return zap.Any(key, v) }

func String(key, v string) zap.Field { return zap.String(key, v) }

func Int(key string, v int) zap.Field { return zap.Int(key, v) }

func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }

// MaskEmail enmascara un email para logs.
func MaskEmail(email string) string {
	if len(email) < 3 {
		return "***"
	}
	at := strings.LastIndexByte(email, '@')
	if at < 2 {
		return email[:2] + "***"
	}
	return email[:2] + "***" + email[at:]
}
