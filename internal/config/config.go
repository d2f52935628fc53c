// Package config carga la configuración YAML del servicio de federación,
// aplica defaults, overrides por variables de entorno y validación.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/domain/types"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"app_env"`
		Name     string `yaml:"name"`
		Version  string `yaml:"version"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr            string `yaml:"addr"`
		PublicURL       string `yaml:"public_url"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		IdleTimeout     string `yaml:"idle_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Storage struct {
		Driver   string `yaml:"driver"` // postgres | memory
		DSN      string `yaml:"dsn"`
		Migrate  bool   `yaml:"migrate"`
		Postgres struct {
			MaxConns int `yaml:"max_conns"`
			MinConns int `yaml:"min_conns"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind       string `yaml:"kind"` // memory | redis
		DefaultTTL string `yaml:"default_ttl"`
		Redis      struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Session struct {
		Issuer string `yaml:"issuer"`
		Secret string `yaml:"secret"` // >= 32 bytes; deriva la clave Ed25519
		TTL    string `yaml:"ttl"`
	} `yaml:"session"`

	Security struct {
		SecretBoxKey string `yaml:"secretbox_key"` // base64(32 bytes), cifra client secrets en DB
	} `yaml:"security"`

	Federation Federation `yaml:"federation"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
		SSO struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"sso"`
	} `yaml:"rate"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

// Federation agrupa redirects, timeouts y los seeds de servicios/roles.
type Federation struct {
	ErrorRedirect   string `yaml:"error_redirect"`
	SuccessRedirect string `yaml:"success_redirect"`
	StateTTL        string `yaml:"state_ttl"`
	HTTPTimeout     string `yaml:"http_timeout"`

	// Overrides de endpoints por proveedor (ej: google.token → URL de un IdP self-hosted).
	Endpoints map[string]map[string]string `yaml:"endpoints"`

	Services  []ServiceSeed `yaml:"services"`
	Bootstrap Bootstrap     `yaml:"bootstrap"`
}

// Bootstrap declara apps, roles y mapeos rol→grupo a crear al arrancar.
type Bootstrap struct {
	Apps       []NamedEntity `yaml:"apps"`
	Roles      []NamedEntity `yaml:"roles"`
	RoleGroups []RoleGroup   `yaml:"role_groups"`
}

type NamedEntity struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type RoleGroup struct {
	Role  string `yaml:"role"`
	Group string `yaml:"group"`
}

// ServiceSeed es la forma YAML de un servicio federado. Se hace upsert por nombre.
type ServiceSeed struct {
	Name     string `yaml:"name" json:"name"`
	Label    string `yaml:"label" json:"label"`
	Provider string `yaml:"provider" json:"provider"`
	Kind     string `yaml:"kind" json:"kind"`
	IsActive *bool  `yaml:"is_active" json:"is_active"`

	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"client_secret"`
	RedirectURL  string `yaml:"redirect_url" json:"redirect_url"`

	DefaultRole    string `yaml:"default_role" json:"default_role"`
	AllowNewUsers  *bool  `yaml:"allow_new_users" json:"allow_new_users"`
	MapGroupToRole bool   `yaml:"map_group_to_role" json:"map_group_to_role"`
	Stateless      bool   `yaml:"stateless" json:"stateless"`

	TenantID     string `yaml:"tenant_id" json:"tenant_id"`
	AuthorityURL string `yaml:"authority_url" json:"authority_url"`
	Scopes       string `yaml:"scopes" json:"scopes"`
	GrantType    string `yaml:"grant_type" json:"grant_type"`

	SSOSecret     string `yaml:"secret" json:"secret"`
	SSOSecretType string `yaml:"secret_type" json:"secret_type"`

	// AppRoleMap: app id → role id aplicado cuando no hay rol por grupo/default.
	AppRoleMap map[string]string `yaml:"app_role_map" json:"app_role_map"`
}

// ToService traduce el seed al registro de dominio (normalizado).
func (s ServiceSeed) ToService() *repository.Service {
	svc := &repository.Service{
		Name:           strings.TrimSpace(s.Name),
		Label:          s.Label,
		Provider:       s.Provider,
		Kind:           types.FlowKind(strings.TrimSpace(s.Kind)),
		IsActive:       s.IsActive == nil || *s.IsActive,
		ClientID:       s.ClientID,
		ClientSecret:   s.ClientSecret,
		RedirectURL:    s.RedirectURL,
		DefaultRoleID:  s.DefaultRole,
		AllowNewUsers:  s.AllowNewUsers == nil || *s.AllowNewUsers,
		MapGroupToRole: s.MapGroupToRole,
		TenantID:       s.TenantID,
		AuthorityURL:   s.AuthorityURL,
		Scopes:         s.Scopes,
		GrantType:      s.GrantType,
		SSOSecret:      s.SSOSecret,
		SSOSecretType:  types.SecretType(s.SSOSecretType),
	}
	if svc.Label == "" {
		svc.Label = svc.Name
	}
	if s.Stateless && svc.Kind == "" {
		svc.Kind = types.KindOAuth2Stateless
	}
	svc.Normalize()
	return svc
}

// Validate verifica un seed individual.
func (s ServiceSeed) Validate() error {
	svc := s.ToService()
	if svc.Name == "" {
		return errors.New("service: name requerido")
	}
	if svc.Provider == "" {
		return fmt.Errorf("service %s: provider requerido", svc.Name)
	}
	if !svc.Kind.IsValid() {
		return fmt.Errorf("service %s: kind inválido %q", svc.Name, svc.Kind)
	}
	if svc.Kind.Redirects() && strings.TrimSpace(svc.RedirectURL) == "" {
		return fmt.Errorf("service %s: redirect_url requerido", svc.Name)
	}
	switch svc.SSOSecretType {
	case "", types.SecretString, types.SecretEnvironment, types.SecretFile:
	default:
		return fmt.Errorf("service %s: secret_type inválido %q", svc.Name, svc.SSOSecretType)
	}
	return nil
}

// Load lee el YAML (path vacío = solo defaults + env), aplica env y valida.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}
	c.applyDefaults()
	c.applyEnvOverrides()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "federation"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "15s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "45s"
	}
	if c.Server.IdleTimeout == "" {
		c.Server.IdleTimeout = "60s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.DefaultTTL == "" {
		c.Cache.DefaultTTL = "5m"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "24h"
	}
	if c.Session.Issuer == "" {
		c.Session.Issuer = strings.TrimRight(c.Server.PublicURL, "/")
	}
	if c.Federation.StateTTL == "" {
		c.Federation.StateTTL = "180s"
	}
	if c.Federation.HTTPTimeout == "" {
		c.Federation.HTTPTimeout = "30s"
	}
	if c.Federation.ErrorRedirect == "" {
		c.Federation.ErrorRedirect = "/"
	}
	if c.Federation.SuccessRedirect == "" {
		c.Federation.SuccessRedirect = "/"
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 30
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}
	if c.Rate.SSO.Limit == 0 {
		c.Rate.SSO.Limit = 20
	}
	if c.Rate.SSO.Window == "" {
		c.Rate.SSO.Window = "1m"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("PUBLIC_URL"); ok {
		c.Server.PublicURL = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	} else if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvBool("STORAGE_MIGRATE"); ok {
		c.Storage.Migrate = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Storage.Postgres.MaxConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MIN_CONNS"); ok {
		c.Storage.Postgres.MinConns = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("CACHE_DEFAULT_TTL"); ok {
		c.Cache.DefaultTTL = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// SESSION
	if v, ok := getEnvStr("SESSION_ISSUER"); ok {
		c.Session.Issuer = v
	}
	if v, ok := getEnvStr("SESSION_SECRET"); ok {
		c.Session.Secret = v
	}
	if v, ok := getEnvStr("SESSION_TTL"); ok {
		c.Session.TTL = v
	}

	// SECURITY
	if v, ok := getEnvStr("FEDERATION_SECRETBOX_KEY"); ok {
		c.Security.SecretBoxKey = v
	}

	// FEDERATION
	if v, ok := getEnvStr("FEDERATION_ERROR_REDIRECT"); ok {
		c.Federation.ErrorRedirect = v
	}
	if v, ok := getEnvStr("FEDERATION_SUCCESS_REDIRECT"); ok {
		c.Federation.SuccessRedirect = v
	}

	// RATE / METRICS
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvBool("METRICS_ENABLED"); ok {
		c.Metrics.Enabled = v
	}
}

// Validate verifica valores críticos.
func (c *Config) Validate() error {
	var errs []error

	for name, v := range map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.idle_timeout":     c.Server.IdleTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"cache.default_ttl":       c.Cache.DefaultTTL,
		"session.ttl":             c.Session.TTL,
		"federation.state_ttl":    c.Federation.StateTTL,
		"federation.http_timeout": c.Federation.HTTPTimeout,
		"rate.login.window":       c.Rate.Login.Window,
		"rate.sso.window":         c.Rate.SSO.Window,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "memory":
	case "postgres", "postgresql", "pg":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn requerido con driver postgres"))
		}
		if strings.TrimSpace(c.Security.SecretBoxKey) == "" {
			errs = append(errs, errors.New("security.secretbox_key requerido con driver postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver desconocido %q", c.Storage.Driver))
	}

	switch strings.ToLower(c.Cache.Kind) {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("cache.kind desconocido %q", c.Cache.Kind))
	}

	if len(c.Session.Secret) < 32 {
		errs = append(errs, errors.New("session.secret requiere al menos 32 bytes"))
	}

	seen := map[string]bool{}
	for _, s := range c.Federation.Services {
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("service %s duplicado", s.Name))
		}
		seen[s.Name] = true
	}
	for _, rg := range c.Federation.Bootstrap.RoleGroups {
		if rg.Role == "" || rg.Group == "" {
			errs = append(errs, errors.New("bootstrap.role_groups: role y group requeridos"))
		}
	}
	return errors.Join(errs...)
}

// Dur parsea una duración ya validada; def si está vacía.
func Dur(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil && d > 0 {
		return d
	}
	return def
}
