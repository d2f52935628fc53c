// Package secretbox cifra secretos en reposo (client_secret de servicios) con AES-256-GCM.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// EnvVar es la variable de entorno con la clave maestra.
	EnvVar            = "FEDERATION_SECRETBOX_KEY"
	nonceSizeGCM      = 12  // AES-GCM nonce size recomendado (96 bits)
	requiredKeyLength = 32  // 32 bytes => AES-256
	sep               = "|" // nonce|ciphertext (ambos en base64)
)

var (
	ErrNoKey      = errors.New("secretbox: master key not configured")
	ErrMalformed  = errors.New("secretbox: malformed ciphertext")
	ErrKeyLength  = errors.New("secretbox: key must decode to 32 bytes")
	ErrDecryption = errors.New("secretbox: decryption failed")
)

// Box cifra y descifra con una clave fija. Es seguro para uso concurrente.
type Box struct {
	aead cipher.AEAD
}

// New crea un Box a partir de una clave en base64 (std o raw), hex o 32 bytes crudos.
func New(key string) (*Box, error) {
	kb, err := decodeKey(key)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(kb)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &Box{aead: aead}, nil
}

// FromEnv carga la clave desde FEDERATION_SECRETBOX_KEY.
func FromEnv() (*Box, error) {
	k := strings.TrimSpace(os.Getenv(EnvVar))
	if k == "" {
		return nil, fmt.Errorf("%w: %s no seteada; genere una clave con: openssl rand -base64 32", ErrNoKey, EnvVar)
	}
	return New(k)
}

func decodeKey(key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if b, err := base64.StdEncoding.DecodeString(key); err == nil && len(b) == requiredKeyLength {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(key); err == nil && len(b) == requiredKeyLength {
		return b, nil
	}
	if len(key) == 2*requiredKeyLength {
		if h, err := hex.DecodeString(key); err == nil {
			return h, nil
		}
	}
	if len(key) == requiredKeyLength {
		return []byte(key), nil
	}
	return nil, ErrKeyLength
}

// Encrypt cifra plainText y devuelve base64(nonce)|base64(ciphertext).
// Un texto vacío se devuelve vacío.
func (b *Box) Encrypt(plainText string) (string, error) {
	if b == nil {
		return "", ErrNoKey
	}
	if plainText == "" {
		return "", nil
	}
	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}
	ct := b.aead.Seal(nil, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt revierte Encrypt.
func (b *Box) Decrypt(cipherText string) (string, error) {
	if b == nil {
		return "", ErrNoKey
	}
	if cipherText == "" {
		return "", nil
	}
	parts := strings.SplitN(cipherText, sep, 2)
	if len(parts) != 2 {
		return "", ErrMalformed
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSizeGCM {
		return "", ErrMalformed
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrMalformed
	}
	pt, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrDecryption
	}
	return string(pt), nil
}
