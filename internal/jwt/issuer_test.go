package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/federation/internal/domain/repository"
)

var testSecret = []byte(strings.Repeat("k", 32))

func TestIssueAndParse(t *testing.T) {
	t.Parallel()
	iss, err := NewIssuer("federation", testSecret, time.Hour)
	require.NoError(t, err)

	s, err := iss.IssueSession(&repository.User{ID: "u-1", Email: "a+google@x.com", IsSysAdmin: true})
	require.NoError(t, err)
	require.NotEmpty(t, s.SessionID)

	c, err := iss.Parse(s.Token)
	require.NoError(t, err)
	require.Equal(t, "u-1", c.UserID)
	require.Equal(t, s.SessionID, c.SessionID)
	require.True(t, c.IsSysAdmin)
}

func TestDeriveKeyIsDeterministic(t *testing.T) {
	t.Parallel()
	_, pub1, kid1, err := DeriveKey(testSecret)
	require.NoError(t, err)
	_, pub2, kid2, err := DeriveKey(testSecret)
	require.NoError(t, err)
	require.Equal(t, pub1, pub2)
	require.Equal(t, kid1, kid2)

	_, _, _, err = DeriveKey([]byte("short"))
	require.ErrorIs(t, err, ErrWeakSecret)
}

func TestParseRejects(t *testing.T) {
	t.Parallel()
	a, err := NewIssuer("federation", testSecret, time.Hour)
	require.NoError(t, err)
	b, err := NewIssuer("federation", []byte(strings.Repeat("z", 32)), time.Hour)
	require.NoError(t, err)
	other, err := NewIssuer("other", testSecret, time.Hour)
	require.NoError(t, err)

	s, err := a.IssueSession(&repository.User{ID: "u-1"})
	require.NoError(t, err)

	_, err = b.Parse(s.Token)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = other.Parse(s.Token)
	require.ErrorIs(t, err, ErrInvalidIssuer)

	// Expirado (más allá del leeway).
	a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = a.Parse(s.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
}
