package ffshm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestConfigFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    Config
		wantErr bool
	}{
		{"name and size", map[string]string{EnvName: "pyfreefem_ab", EnvSize: "4096"}, Config{Name: "pyfreefem_ab", Size: 4096}, false},
		{"default size", map[string]string{EnvName: "seg"}, Config{Name: "seg", Size: DefaultSize}, false},
		{"padded size", map[string]string{EnvName: "seg", EnvSize: " 2048 "}, Config{Name: "seg", Size: 2048}, false},
		{"missing name", map[string]string{EnvSize: "4096"}, Config{}, true},
		{"empty name", map[string]string{EnvName: ""}, Config{}, true},
		{"bad size", map[string]string{EnvName: "seg", EnvSize: "1MB"}, Config{}, true},
		{"negative size", map[string]string{EnvName: "seg", EnvSize: "-1"}, Config{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConfigFromEnv(lookupFrom(tt.env))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigFromProcessEnv(t *testing.T) {
	t.Setenv(EnvName, "from_env")
	t.Setenv(EnvSize, "8192")
	cfg, err := ConfigFromEnv(nil)
	require.NoError(t, err)
	assert.Equal(t, Config{Name: "from_env", Size: 8192}, cfg)
}

func TestEnvironRoundTrip(t *testing.T) {
	cfg := Config{Name: NewSessionName(), Size: 1 << 16}
	env := map[string]string{}
	for _, kv := range cfg.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		require.True(t, ok)
		env[k] = v
	}
	got, err := ConfigFromEnv(lookupFrom(env))
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	assert.Contains(t, Config{Name: "x"}.Environ(), EnvSize+"=1048576")
}

func TestNewSessionName(t *testing.T) {
	a, b := NewSessionName(), NewSessionName()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "pyfreefem_"))
	assert.Len(t, a, len("pyfreefem_")+32)
}
