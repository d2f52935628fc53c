package jwt

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keyInfo = "federation/session-signing/ed25519"

// ErrWeakSecret se retorna cuando el secreto de firma es demasiado corto.
var ErrWeakSecret = errors.New("jwt: signing secret must be at least 32 bytes")

// DeriveKey deriva un par ed25519 determinístico desde el secreto configurado (HKDF-SHA256).
// Todas las réplicas con el mismo secreto firman y validan con la misma clave.
func DeriveKey(secret []byte) (ed25519.PrivateKey, ed25519.PublicKey, string, error) {
	if len(secret) < 32 {
		return nil, nil, "", ErrWeakSecret
	}
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), seed); err != nil {
		return nil, nil, "", fmt.Errorf("jwt: hkdf: %w", err)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return priv, pub, kidFor(pub), nil
}

// kidFor = base64url(sha256(pub))[:16]
func kidFor(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return base64.RawURLEncoding.EncodeToString(sum[:])[:16]
}
