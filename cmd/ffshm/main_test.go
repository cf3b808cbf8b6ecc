package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hupe1980/ffshm"
	"github.com/hupe1980/ffshm/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type session struct {
	t    *testing.T
	name string
	dir  string
}

func newSession(t *testing.T) *session {
	return &session{t: t, name: testutil.UniqueName("cli_"), dir: t.TempDir()}
}

func (s *session) run(args ...string) (string, string, int) {
	s.t.Helper()
	return s.runContext(context.Background(), args...)
}

func (s *session) runContext(ctx context.Context, args ...string) (string, string, int) {
	s.t.Helper()
	full := append([]string{args[0], "-backend", "posix", "-dir", s.dir, "-name", s.name}, args[1:]...)
	var stdout, stderr bytes.Buffer
	code := run(ctx, full, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func (s *session) mustRun(args ...string) string {
	s.t.Helper()
	out, errOut, code := s.run(args...)
	require.Equal(s.t, 0, code, "ffshm %v: %s", args, errOut)
	return out
}

func TestUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Commands:")
	for name := range commands {
		assert.Contains(t, stderr.String(), name)
	}

	stderr.Reset()
	assert.Equal(t, 2, run(context.Background(), []string{"frobnicate"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "frobnicate"`)

	assert.Equal(t, 0, run(context.Background(), []string{"help"}, &stdout, &stderr))
	assert.Equal(t, 0, run(context.Background(), []string{"get", "-h"}, &stdout, &stderr))
	assert.Equal(t, 2, run(context.Background(), []string{"get", "-bogus"}, &stdout, &stderr))
}

func TestSessionCommands(t *testing.T) {
	s := newSession(t)

	out := s.mustRun("create", "-size", "65536")
	assert.Contains(t, out, ffshm.EnvName+"="+s.name)
	assert.Contains(t, out, ffshm.EnvSize+"=65536")

	s.mustRun("set", "-type", "int", "n", "42")
	s.mustRun("set", "alpha", "0.25")
	s.mustRun("set", "-type", "string", "mesh", "square.msh")
	s.mustRun("set", "-type", "array", "-shape", "2,2", "u", "1,2,3,4")
	s.mustRun("set", "-type", "array", "-dtype", "int32", "ids", "[7, 8, 9]")

	assert.Equal(t, "42\n", s.mustRun("get", "n"))
	assert.Equal(t, "0.25\n", s.mustRun("get", "alpha"))
	assert.Equal(t, "square.msh\n", s.mustRun("get", "mesh"))

	var arr arrayOutput
	require.NoError(t, json.Unmarshal([]byte(s.mustRun("get", "u")), &arr))
	assert.Equal(t, "float64", arr.DType)
	assert.Equal(t, []int{2, 2}, arr.Shape)
	assert.Equal(t, []any{1.0, 2.0, 3.0, 4.0}, arr.Data)

	assert.Contains(t, s.mustRun("get", "ids"), `"data":[7,8,9]`)

	list := s.mustRun("list")
	for _, name := range []string{"n", "alpha", "mesh", "u", "ids"} {
		assert.Contains(t, list, name)
	}
	assert.Contains(t, list, "5 variables")

	var parsed listOutput
	require.NoError(t, json.Unmarshal([]byte(s.mustRun("list", "-json")), &parsed))
	assert.Len(t, parsed.Variables, 5)
	assert.Equal(t, 5, parsed.Stats.Variables)

	s.mustRun("wait", "-timeout", "1s", "n")
	_, errOut, code := s.run("wait", "-timeout", "100ms", "never")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "timeout")

	_, errOut, code = s.run("set", "-type", "int", "alpha", "1")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "type mismatch")

	_, _, code = s.run("get", "missing")
	assert.Equal(t, 1, code)

	s.mustRun("rm")
	_, errOut, code = s.run("get", "n")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "segment not found")
}

func TestDumpRestoreCommands(t *testing.T) {
	s := newSession(t)
	s.mustRun("create", "-size", "32768")
	s.mustRun("set", "-type", "string", "label", "before")

	path := filepath.Join(t.TempDir(), "snap.ffsd")
	s.mustRun("dump", "-compression", "lz4", path)

	s.mustRun("set", "-type", "string", "label", "after!")
	s.mustRun("set", "extra", "1")
	s.mustRun("restore", path)

	assert.Equal(t, "before\n", s.mustRun("get", "label"))
	_, _, code := s.run("get", "extra")
	assert.Equal(t, 1, code)

	_, _, code = s.run("dump", "-compression", "brotli", path)
	assert.Equal(t, 1, code)
	s.mustRun("rm")
}

func TestEnvCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"env", "-export", "-size", "4096", "-name", "pyfreefem_x"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "export FF_SHM_NAME=pyfreefem_x\nexport FF_SHM_SIZE=4096\n", stdout.String())

	stdout.Reset()
	t.Setenv(ffshm.EnvName, "")
	code = run(context.Background(), []string{"env"}, &stdout, &stderr)
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(stdout.String(), "FF_SHM_NAME=pyfreefem_"))
}

func TestNameFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	name := testutil.UniqueName("cli_env_")
	t.Setenv(ffshm.EnvName, name)
	t.Setenv(ffshm.EnvSize, "16384")

	var stdout, stderr bytes.Buffer
	args := func(a ...string) []string { return append(a[:1:1], append([]string{"-backend", "posix", "-dir", dir}, a[1:]...)...) }
	require.Equal(t, 0, run(context.Background(), args("create"), &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "FF_SHM_SIZE=16384")
	require.Equal(t, 0, run(context.Background(), args("set", "x", "2"), &stdout, &stderr), stderr.String())
	require.Equal(t, 0, run(context.Background(), args("rm"), &stdout, &stderr), stderr.String())
}

func TestMissingName(t *testing.T) {
	t.Setenv(ffshm.EnvName, "")
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), []string{"list", "-backend", "anon"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "-name or $FF_SHM_NAME is required")
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name    string
		env     cmdEnv
		text    string
		wantErr bool
	}{
		{"int", cmdEnv{kind: "int"}, "12", false},
		{"int overflow", cmdEnv{kind: "int"}, "3000000000", true},
		{"double", cmdEnv{kind: "double"}, "1e-3", false},
		{"bad double", cmdEnv{kind: "double"}, "abc", true},
		{"empty array", cmdEnv{kind: "array", dtype: "float64"}, "", false},
		{"shape mismatch", cmdEnv{kind: "array", dtype: "float64", shape: "3"}, "1,2", true},
		{"fractional int32", cmdEnv{kind: "array", dtype: "int32"}, "1.5", true},
		{"unknown dtype", cmdEnv{kind: "array", dtype: "complex"}, "1", true},
		{"unknown type", cmdEnv{kind: "float"}, "1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseValue(&tt.env, tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestServe(t *testing.T) {
	s := newSession(t)
	ctx, cancel := context.WithCancel(context.Background())

	type result struct {
		stdout, stderr string
		code           int
	}
	done := make(chan result, 1)
	go func() {
		var stdout, stderr bytes.Buffer
		code := run(ctx, []string{"serve", "-backend", "posix", "-dir", s.dir, "-name", s.name,
			"-size", "8192", "-metrics-addr", "127.0.0.1:0"}, &stdout, &stderr)
		done <- result{stdout.String(), stderr.String(), code}
	}()

	cfg := ffshm.Config{Name: s.name}
	peer, err := ffshm.AttachWait(context.Background(), cfg, 2*time.Second,
		ffshm.WithBackend(ffshm.BackendPOSIX), ffshm.WithDir(s.dir), ffshm.WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, peer.WriteInt(context.Background(), "x", 1))
	require.NoError(t, peer.Detach())

	cancel()
	res := <-done
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "FF_SHM_NAME="+s.name)
	assert.Contains(t, res.stderr, "/metrics")

	_, err = ffshm.Attach(context.Background(), cfg, ffshm.WithBackend(ffshm.BackendPOSIX), ffshm.WithDir(s.dir))
	assert.True(t, errors.Is(err, ffshm.ErrSegmentNotFound), "serve destroys the segment: %v", err)
}
