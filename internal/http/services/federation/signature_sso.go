package federation

import (
	"context"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/federation/internal/audit"
	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/domain/types"
	jwtx "github.com/dropDatabas3/federation/internal/jwt"
	"github.com/dropDatabas3/federation/internal/metrics"
	"github.com/dropDatabas3/federation/internal/observability/logger"
)

// SSOMaxAge es la ventana de validez del timestamp firmado.
const SSOMaxAge = 5 * time.Minute

// SSORequest son los campos del handshake de add-on.
type SSORequest struct {
	ResourceToken string
	ResourceID    string
	Timestamp     string
	UserID        string
	Email         string
}

// SSOResult es el usuario resuelto y su sesión.
type SSOResult struct {
	User    *repository.User
	Session *jwtx.Session
	Created bool
}

// SignatureSSO valida el handshake sha1(resource_id:secret:timestamp) de add-ons Heroku.
type SignatureSSO struct {
	heroku   repository.HerokuUserRepository
	users    repository.UserRepository
	sessions SessionIssuer
	now      func() time.Time
}

// Sign calcula hex(sha1("<resourceID>:<secret>:<timestamp>")).
func Sign(resourceID, secret, timestamp string) string {
	sum := sha1.Sum([]byte(resourceID + ":" + secret + ":" + timestamp))
	return hex.EncodeToString(sum[:])
}

// Handle verifica firma y frescura, resuelve el usuario y emite la sesión.
func (s *SignatureSSO) Handle(ctx context.Context, svc *repository.Service, in SSORequest) (res *SSOResult, err error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("federation.signature_sso"),
		logger.ServiceName(svc.Name),
	)
	defer func() { metrics.SSOOutcomes.WithLabelValues(ssoResult(err)).Inc() }()

	if svc.Kind != types.KindSignatureSSO {
		return nil, ErrUnsupportedFlow
	}
	if in.ResourceToken == "" || in.ResourceID == "" || in.Timestamp == "" || in.UserID == "" || in.Email == "" {
		return nil, fmt.Errorf("%w: resource_token, resource_id, timestamp, user_id and email are required", ErrBadSSORequest)
	}
	secret := ResolveSecret(ctx, svc.SSOSecret, svc.SSOSecretType)
	if secret == "" {
		log.Error("sso secret not configured")
		return nil, ErrSignatureInvalid
	}
	expected := Sign(in.ResourceID, secret, in.Timestamp)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(in.ResourceToken))) != 1 {
		log.Warn("sso signature mismatch")
		return nil, ErrSignatureInvalid
	}
	// un timestamp no numérico cuenta como 0: expirado
	ts, perr := strconv.ParseInt(strings.TrimSpace(in.Timestamp), 10, 64)
	if perr != nil || !time.Unix(ts, 0).Add(SSOMaxAge).After(s.now()) {
		log.Info("sso timestamp expired")
		return nil, ErrTimestampExpired
	}

	u, created, err := s.heroku.GetOrCreateUser(ctx, in.UserID, in.Email)
	if err != nil {
		return nil, fmt.Errorf("sso user: %w", err)
	}
	now := s.now().UTC()
	if err := s.users.RecordLogin(ctx, u.ID, now); err != nil {
		return nil, fmt.Errorf("sso user: %w", err)
	}
	u.LastLoginDate = &now

	sess, err := s.sessions.IssueSession(u)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	log.Info("sso login", logger.UserID(u.ID), logger.Bool("created", created))
	audit.Log(ctx, audit.EventSignatureSSO, logger.ServiceName(svc.Name), logger.UserID(u.ID), logger.Bool("created", created))
	return &SSOResult{User: u, Session: sess, Created: created}, nil
}

// ResolveSecret interpreta el secreto según su tipo. Tipos desconocidos se usan como string.
func ResolveSecret(ctx context.Context, value string, kind types.SecretType) string {
	switch kind {
	case types.SecretString, "":
		return value
	case types.SecretEnvironment:
		return os.Getenv(value)
	case types.SecretFile:
		b, err := os.ReadFile(value)
		if err != nil {
			logger.From(ctx).Error("sso secret file unreadable", logger.Err(err))
			return ""
		}
		return strings.TrimSpace(string(b))
	default:
		logger.From(ctx).Error("unknown sso secret type, using value as string", logger.String("secret_type", string(kind)))
		return value
	}
}

func ssoResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSignatureInvalid):
		return "invalid"
	case errors.Is(err, ErrTimestampExpired):
		return "expired"
	default:
		return "error"
	}
}
