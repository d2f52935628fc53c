package federation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/federation/internal/audit"
	"github.com/dropDatabas3/federation/internal/cache"
	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/domain/types"
	"github.com/dropDatabas3/federation/internal/http/providers"
	jwtx "github.com/dropDatabas3/federation/internal/jwt"
	"github.com/dropDatabas3/federation/internal/metrics"
	"github.com/dropDatabas3/federation/internal/observability/logger"
)

const (
	ccCachePrefix        = "azure_ad_cc_token_"
	ccDefaultExpiresIn   = 3600
	ccExpirySkew         = 60 * time.Second
	ServiceAccountDomain = "service.local"
	ServiceAccountOrigin = "azure_ad_client_credentials"
)

// CCToken es la entrada de cache de client credentials.
type CCToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	Scope       string    `json:"scope"`
	AcquiredAt  time.Time `json:"acquired_at"`
}

// CCResult es el resultado de GetToken/RefreshToken.
type CCResult struct {
	Token   *CCToken
	User    *repository.User
	Session *jwtx.Session
	Cached  bool
}

// CCStatus describe el token cacheado de un servicio.
type CCStatus struct {
	Valid     bool
	Cached    bool
	TokenType string
	Scope     string
	Message   string
}

// ClientCredentialsManager gestiona tokens machine-to-machine y su cuenta de servicio.
type ClientCredentialsManager struct {
	adapters AdapterResolver
	cache    cache.Client
	users    repository.UserRepository
	roles    *RolePolicy
	sessions SessionIssuer
	now      func() time.Time

	group singleflight.Group
}

// CCCacheKey = azure_ad_cc_token_<serviceID>
func CCCacheKey(serviceID string) string { return ccCachePrefix + serviceID }

// ServiceAccountEmail = cc_<name>_<id>@service.local
func ServiceAccountEmail(svc *repository.Service) string {
	return fmt.Sprintf("cc_%s_%s@%s", svc.Name, svc.ID, ServiceAccountDomain)
}

// GetToken reutiliza el token cacheado o pide uno nuevo.
func (m *ClientCredentialsManager) GetToken(ctx context.Context, svc *repository.Service) (*CCResult, error) {
	if err := requireCC(svc); err != nil {
		return nil, err
	}
	tok, ok := m.cached(ctx, svc)
	if ok {
		metrics.CCCacheHits.WithLabelValues(svc.Name).Inc()
	} else {
		var err error
		if tok, err = m.fetch(ctx, svc); err != nil {
			return nil, err
		}
	}
	return m.complete(ctx, svc, tok, ok)
}

// RefreshToken ignora el cache y pide un token nuevo.
func (m *ClientCredentialsManager) RefreshToken(ctx context.Context, svc *repository.Service) (*CCResult, error) {
	if err := requireCC(svc); err != nil {
		return nil, err
	}
	_ = m.cache.Delete(ctx, CCCacheKey(svc.ID))
	tok, err := m.fetch(ctx, svc)
	if err != nil {
		return nil, err
	}
	return m.complete(ctx, svc, tok, false)
}

// ClearToken solo desaloja el cache.
func (m *ClientCredentialsManager) ClearToken(ctx context.Context, svc *repository.Service) error {
	if err := requireCC(svc); err != nil {
		return err
	}
	return m.cache.Delete(ctx, CCCacheKey(svc.ID))
}

// Status informa si hay un token cacheado vigente.
func (m *ClientCredentialsManager) Status(ctx context.Context, svc *repository.Service) (*CCStatus, error) {
	if err := requireCC(svc); err != nil {
		return nil, err
	}
	tok, ok := m.cached(ctx, svc)
	if !ok {
		return &CCStatus{Message: "No cached token"}, nil
	}
	return &CCStatus{Valid: true, Cached: true, TokenType: tok.TokenType, Scope: tok.Scope}, nil
}

func requireCC(svc *repository.Service) error {
	if svc.Kind != types.KindClientCredentials {
		return ErrNotClientCredentials
	}
	return nil
}

func (m *ClientCredentialsManager) cached(ctx context.Context, svc *repository.Service) (*CCToken, bool) {
	raw, err := m.cache.Get(ctx, CCCacheKey(svc.ID))
	if err != nil {
		if !cache.IsNotFound(err) {
			logger.From(ctx).Warn("cc cache get failed", logger.ServiceName(svc.Name), logger.Err(err))
		}
		return nil, false
	}
	var tok CCToken
	if err := json.Unmarshal([]byte(raw), &tok); err != nil || tok.AccessToken == "" {
		return nil, false
	}
	return &tok, true
}

// fetch coalesce pedidos concurrentes del mismo servicio en un único request al proveedor.
// Dentro del grupo se vuelve a mirar el cache: un pedido que llega tarde reutiliza el token
// que otro acaba de guardar. El fetch compartido no hereda la cancelación de ningún caller;
// cada uno deja de esperar cuando su propio ctx termina. El cliente HTTP acota la duración.
func (m *ClientCredentialsManager) fetch(ctx context.Context, svc *repository.Service) (*CCToken, error) {
	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan(svc.ID, func() (any, error) {
		if tok, ok := m.cached(shared, svc); ok {
			return tok, nil
		}
		return m.fetchOnce(shared, svc)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*CCToken), nil
	}
}

func (m *ClientCredentialsManager) fetchOnce(ctx context.Context, svc *repository.Service) (*CCToken, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("federation.client_credentials"),
		logger.ServiceName(svc.Name),
	)

	adapter, err := m.adapters.ForService(svc)
	if err != nil {
		return nil, err
	}
	cc, ok := adapter.(providers.ClientCredentials)
	if !ok {
		return nil, ErrNotClientCredentials
	}

	start := m.now()
	art, err := cc.FetchToken(ctx)
	metrics.CCFetchDuration.Observe(m.now().Sub(start).Seconds())
	if err != nil {
		metrics.CCFetches.WithLabelValues(svc.Name, "error").Inc()
		cerr := classifyCCError(err)
		log.Warn("client credentials fetch failed", logger.Err(cerr))
		return nil, cerr
	}
	metrics.CCFetches.WithLabelValues(svc.Name, "ok").Inc()

	tok := &CCToken{
		AccessToken: art.AccessToken,
		TokenType:   art.TokenType,
		ExpiresIn:   art.ExpiresIn,
		Scope:       art.Scope,
		AcquiredAt:  m.now().UTC(),
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}
	if tok.ExpiresIn <= 0 {
		tok.ExpiresIn = ccDefaultExpiresIn
	}

	ttl := time.Duration(tok.ExpiresIn)*time.Second - ccExpirySkew
	if ttl > 0 {
		b, _ := json.Marshal(tok)
		if err := m.cache.Set(ctx, CCCacheKey(svc.ID), string(b), ttl); err != nil {
			log.Warn("cc cache set failed", logger.Err(err))
		}
	}
	log.Info("client credentials token acquired", logger.Int("expires_in", tok.ExpiresIn))
	return tok, nil
}

// classifyCCError: respuesta del proveedor / transporte → 401; sin access_token → 500.
func classifyCCError(err error) error {
	if errors.Is(err, providers.ErrMissingAccessToken) {
		return ErrMissingAccessToken
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		msg := rerr.ErrorDescription
		if msg == "" {
			msg = rerr.ErrorCode
		}
		if msg == "" && rerr.Response != nil {
			msg = rerr.Response.Status
		}
		return fmt.Errorf("%w: %s", ErrTokenExchangeFailed, msg)
	}
	return fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
}

// complete asegura la cuenta de servicio y emite la sesión.
func (m *ClientCredentialsManager) complete(ctx context.Context, svc *repository.Service, tok *CCToken, cached bool) (*CCResult, error) {
	u, err := m.serviceAccount(ctx, svc)
	if err != nil {
		return nil, err
	}
	sess, err := m.sessions.IssueSession(u)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return &CCResult{Token: tok, User: u, Session: sess, Cached: cached}, nil
}

func (m *ClientCredentialsManager) serviceAccount(ctx context.Context, svc *repository.Service) (*repository.User, error) {
	email := ServiceAccountEmail(svc)
	u, err := m.users.GetByEmail(ctx, email)
	if repository.IsNotFound(err) {
		label := svc.Label
		if label == "" {
			label = svc.Name
		}
		u = &repository.User{
			Username:      email,
			Email:         email,
			Name:          "Service Account for " + label,
			FirstName:     "Service",
			LastName:      fmt.Sprintf("Account (%s)", svc.Name),
			IsActive:      true,
			OAuthProvider: ServiceAccountOrigin,
		}
		err = m.users.Create(ctx, u)
		if repository.IsConflict(err) {
			u, err = m.users.GetByEmail(ctx, email)
		} else if err == nil {
			audit.Log(ctx, audit.EventServiceAccount, logger.ServiceName(svc.Name), logger.UserID(u.ID))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("service account: %w", err)
	}

	now := m.now().UTC()
	if err := m.users.RecordLogin(ctx, u.ID, now); err != nil {
		return nil, fmt.Errorf("service account: %w", err)
	}
	u.LastLoginDate = &now
	if err := m.roles.ApplyServiceAccount(ctx, svc, u); err != nil {
		return nil, fmt.Errorf("service account roles: %w", err)
	}
	return u, nil
}
