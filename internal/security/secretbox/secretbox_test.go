package secretbox

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
}

func TestEncryptDecrypt(t *testing.T) {
	t.Parallel()
	b, err := New(testKey())
	require.NoError(t, err)

	ct, err := b.Encrypt("s3cr3t")
	require.NoError(t, err)
	require.NotContains(t, ct, "s3cr3t")
	require.True(t, strings.Contains(ct, "|"))

	pt, err := b.Decrypt(ct)
	require.NoError(t, err)
	require.Equal(t, "s3cr3t", pt)
}

func TestEmptyPassthrough(t *testing.T) {
	t.Parallel()
	b, err := New(testKey())
	require.NoError(t, err)

	ct, err := b.Encrypt("")
	require.NoError(t, err)
	require.Empty(t, ct)
}

func TestWrongKeyFails(t *testing.T) {
	t.Parallel()
	a, err := New(testKey())
	require.NoError(t, err)
	other, err := New(strings.Repeat("ab", 32))
	require.NoError(t, err)

	ct, err := a.Encrypt("hello")
	require.NoError(t, err)
	_, err = other.Decrypt(ct)
	require.ErrorIs(t, err, ErrDecryption)

	_, err = a.Decrypt("not-a-box")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestBadKeyLength(t *testing.T) {
	t.Parallel()
	_, err := New("short")
	require.ErrorIs(t, err, ErrKeyLength)
}
