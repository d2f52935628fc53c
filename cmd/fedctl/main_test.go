package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServiceConfig(t *testing.T) {
	t.Parallel()

	seed, err := parseServiceConfig(`{"name":"addon","secret":"ADDON_SECRET","secret_type":"environment"}`)
	require.NoError(t, err)
	assert.Equal(t, "addon", seed.Name)
	assert.Equal(t, "ADDON_SECRET", seed.SSOSecret)
	assert.Equal(t, "environment", seed.SSOSecretType)

	path := filepath.Join(t.TempDir(), "svc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: from-file\nsecret: /run/secret\nsecret_type: file\n"), 0o600))
	seed, err = parseServiceConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", seed.Name)
	assert.Equal(t, "file", seed.SSOSecretType)

	seed, err = parseServiceConfig("")
	require.NoError(t, err)
	assert.Empty(t, seed.Name)

	_, err = parseServiceConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestRootCommandTree(t *testing.T) {
	t.Parallel()
	root := newRootCmd()
	for _, path := range [][]string{{"serve"}, {"migrate"}, {"heroku-setup"}, {"services", "list"}} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
