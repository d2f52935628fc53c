package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/federation/internal/domain/types"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaultsAndSeeds(t *testing.T) {
	p := writeYAML(t, `
session:
  secret: "`+testSecret+`"
federation:
  error_redirect: https://app.example.com/error
  services:
    - name: google
      provider: google
      client_id: cid
      client_secret: csec
      redirect_url: https://api.example.com/api/v2/google/callback
      map_group_to_role: true
      default_role: viewer
    - name: azure-cc
      provider: azure_ad
      grant_type: client_credentials
      tenant_id: t1
    - name: heroku-addon
      provider: heroku_addon_sso
      secret: HEROKU_SSO_SECRET
      secret_type: environment
`)
	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "memory", c.Cache.Kind)
	assert.Equal(t, 5*time.Minute, Dur(c.Cache.DefaultTTL, 0))
	assert.Equal(t, 180*time.Second, Dur(c.Federation.StateTTL, 0))
	require.Len(t, c.Federation.Services, 3)

	g := c.Federation.Services[0].ToService()
	assert.Equal(t, types.KindOAuth2Stateful, g.Kind)
	assert.True(t, g.AllowNewUsers)
	assert.True(t, g.IsActive)
	assert.Equal(t, "google", g.Label)

	cc := c.Federation.Services[1].ToService()
	assert.Equal(t, types.KindClientCredentials, cc.Kind)
	assert.True(t, cc.IsClientCredentials)

	h := c.Federation.Services[2].ToService()
	assert.Equal(t, types.KindSignatureSSO, h.Kind)
	assert.Equal(t, types.SecretEnvironment, h.SSOSecretType)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"short secret": `
session:
  secret: short
`,
		"missing redirect": `
session:
  secret: "` + testSecret + `"
federation:
  services:
    - name: github
      provider: github
`,
		"duplicate service": `
session:
  secret: "` + testSecret + `"
federation:
  services:
    - {name: gh, provider: github, redirect_url: "https://x/cb"}
    - {name: gh, provider: github, redirect_url: "https://x/cb"}
`,
		"postgres without dsn": `
session:
  secret: "` + testSecret + `"
storage:
  driver: postgres
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeYAML(t, body))
			require.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("CACHE_KIND", "redis")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6380")
	t.Setenv("RATE_ENABLED", "true")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9999", c.Server.Addr)
	assert.Equal(t, "redis", c.Cache.Kind)
	assert.Equal(t, "127.0.0.1:6380", c.Cache.Redis.Addr)
	assert.True(t, c.Rate.Enabled)
}

func TestStatelessSeed(t *testing.T) {
	t.Parallel()
	s := ServiceSeed{Name: "fb", Provider: "facebook", RedirectURL: "https://x/cb", Stateless: true}
	require.NoError(t, s.Validate())
	assert.Equal(t, types.KindOAuth2Stateless, s.ToService().Kind)
}
