package federation

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dropDatabas3/federation/internal/cache"
	"github.com/dropDatabas3/federation/internal/http/providers"
	"github.com/dropDatabas3/federation/internal/metrics"
)

const (
	DefaultStateTTL = 180 * time.Second
	StateLength     = 40

	statePrefix      = "oauth_"
	oauth1TempPrefix = "oauth1_temp_"
	alphanumeric     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// StateStore guarda el state anti-CSRF ligado al nombre del servicio. Cada valor es de un solo uso.
type StateStore struct {
	cache cache.Client
	ttl   time.Duration
}

func NewStateStore(c cache.Client, ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateStore{cache: c, ttl: ttl}
}

// StateKey = oauth_<state>
func StateKey(state string) string { return statePrefix + state }

// Issue genera un state nuevo y lo liga a serviceName.
func (s *StateStore) Issue(ctx context.Context, serviceName string) (string, error) {
	state, err := RandomAlphanumeric(StateLength)
	if err != nil {
		return "", err
	}
	if err := s.Bind(ctx, state, serviceName); err != nil {
		return "", err
	}
	return state, nil
}

// Bind liga un valor externo (oauth_token de OAuth 1.0a) a serviceName.
func (s *StateStore) Bind(ctx context.Context, value, serviceName string) error {
	if err := s.cache.Set(ctx, StateKey(value), serviceName, s.ttl); err != nil {
		return fmt.Errorf("state: %w", err)
	}
	return nil
}

// Consume hace Pull del state y verifica que pertenezca a serviceName.
func (s *StateStore) Consume(ctx context.Context, value, serviceName string) error {
	if value == "" {
		metrics.NonceRejects.WithLabelValues("missing").Inc()
		return ErrInvalidState
	}
	got, err := s.cache.Pull(ctx, StateKey(value))
	if err != nil {
		if cache.IsNotFound(err) {
			metrics.NonceRejects.WithLabelValues("missing").Inc()
			return ErrInvalidState
		}
		return fmt.Errorf("state: %w", err)
	}
	if got != serviceName {
		metrics.NonceRejects.WithLabelValues("mismatch").Inc()
		return ErrInvalidState
	}
	return nil
}

// Peek devuelve el servicio ligado al state sin consumirlo.
func (s *StateStore) Peek(ctx context.Context, value string) (string, error) {
	if value == "" {
		return "", ErrInvalidState
	}
	got, err := s.cache.Get(ctx, StateKey(value))
	if err != nil {
		if cache.IsNotFound(err) {
			metrics.NonceRejects.WithLabelValues("missing").Inc()
			return "", ErrInvalidState
		}
		return "", fmt.Errorf("state: %w", err)
	}
	return got, nil
}

// SaveTemp cachea las credenciales temporales OAuth 1.0a bajo oauth1_temp_<token>.
func (s *StateStore) SaveTemp(ctx context.Context, temp *providers.TempCredentials) error {
	b, err := json.Marshal(temp)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, oauth1TempPrefix+temp.Token, string(b), s.ttl)
}

// PullTemp recupera (una sola vez) las credenciales temporales.
func (s *StateStore) PullTemp(ctx context.Context, token string) (*providers.TempCredentials, error) {
	raw, err := s.cache.Pull(ctx, oauth1TempPrefix+token)
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, ErrInvalidState
		}
		return nil, err
	}
	var temp providers.TempCredentials
	if err := json.Unmarshal([]byte(raw), &temp); err != nil {
		return nil, fmt.Errorf("state: temp credentials: %w", err)
	}
	return &temp, nil
}

// RandomAlphanumeric genera n caracteres [A-Za-z0-9] con crypto/rand, sin sesgo de módulo.
func RandomAlphanumeric(n int) (string, error) {
	const maxByte = 255 - (256 % len(alphanumeric))
	out := make([]byte, 0, n)
	buf := make([]byte, n+n/4)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) > maxByte {
				continue
			}
			out = append(out, alphanumeric[int(b)%len(alphanumeric)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
