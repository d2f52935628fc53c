package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))

	LoginsTotal.WithLabelValues("google", "oauth2_stateful", "ok").Inc()
	mfs, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "federation_logins_total" {
			found = true
		}
	}
	require.True(t, found)
}

func TestPoolCollectorNilStat(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewPoolCollector(nil)))
	_, err := reg.Gather()
	require.NoError(t, err)
}
