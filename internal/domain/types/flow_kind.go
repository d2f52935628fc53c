// Package types define tipos de dominio compartidos entre paquetes.
package types

// FlowKind es la variante cerrada de flujo de autenticación de un servicio federado.
// El orquestador decide por este tag, nunca por inspección del tipo del adapter.
type FlowKind string

const (
	// KindOAuth2Stateful: authorization code con nonce de state (CSRF).
	KindOAuth2Stateful FlowKind = "oauth2_stateful"
	// KindOAuth2Stateless: authorization code sin validación de state.
	KindOAuth2Stateless FlowKind = "oauth2_stateless"
	// KindOAuth1a: three-legged con credenciales temporales.
	KindOAuth1a FlowKind = "oauth1a"
	// KindClientCredentials: machine-to-machine, sin usuario final.
	KindClientCredentials FlowKind = "client_credentials"
	// KindSignatureSSO: handshake HMAC de add-on (Heroku), sin redirect.
	KindSignatureSSO FlowKind = "signature_sso"
)

// IsValid retorna true si el kind es conocido.
func (k FlowKind) IsValid() bool {
	switch k {
	case KindOAuth2Stateful, KindOAuth2Stateless, KindOAuth1a, KindClientCredentials, KindSignatureSSO:
		return true
	}
	return false
}

// UsesState indica si el flujo guarda y valida un nonce en cache.
func (k FlowKind) UsesState() bool {
	return k == KindOAuth2Stateful || k == KindOAuth1a
}

// Redirects indica si el flujo pasa por un redirect al proveedor.
func (k FlowKind) Redirects() bool {
	return k == KindOAuth2Stateful || k == KindOAuth2Stateless || k == KindOAuth1a
}

// SecretType define cómo se resuelve el secreto del SSO por firma.
type SecretType string

const (
	// SecretString usa el valor tal cual.
	SecretString SecretType = "string"
	// SecretFile usa el valor como path a un archivo con el secreto.
	SecretFile SecretType = "file"
	// SecretEnvironment usa el valor como nombre de variable de entorno.
	SecretEnvironment SecretType = "environment"
)
