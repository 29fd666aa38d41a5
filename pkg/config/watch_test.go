package config

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/handoff/pkg/observability"
	"github.com/platinummonkey/handoff/pkg/sso"
)

const watchedClients = `clients:
  - name: bizdock
    login_url: https://idp.example.com/login
`

type reloads struct {
	mu    sync.Mutex
	sets  [][]sso.ClientConfig
	err   error
	calls int
}

func (r *reloads) apply(clients []sso.ClientConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return r.err
	}
	r.sets = append(r.sets, clients)
	return nil
}

func (r *reloads) applied() [][]sso.ClientConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]sso.ClientConfig(nil), r.sets...)
}

func (r *reloads) attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func startWatcher(t *testing.T, path string, r *reloads) *safeBuffer {
	t.Helper()
	logs := &safeBuffer{}
	w, err := NewClientsWatcher(path, observability.NewLogger(observability.DebugLevel, logs), r.apply)
	require.NoError(t, err)
	w.delay = 20 * time.Millisecond
	w.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = w.Stop(ctx)
	})
	return logs
}

func TestClientsWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watchedClients), 0o600))

	r := &reloads{}
	logs := startWatcher(t, path, r)

	updated := watchedClients + `  - name: partner
    login_url: https://partner.example.com/signin
    single_use: true
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	require.Eventually(t, func() bool { return len(r.applied()) == 1 }, 2*time.Second, 10*time.Millisecond)
	clients := r.applied()[0]
	require.Len(t, clients, 2)
	assert.Equal(t, "partner", clients[1].Name)
	assert.True(t, clients[1].SingleUse)
	assert.Eventually(t, func() bool { return bytes.Contains(logs.Bytes(), []byte("Reloaded clients file")) }, time.Second, 10*time.Millisecond)
}

func TestClientsWatcher_AtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clients.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watchedClients), 0o600))

	r := &reloads{}
	startWatcher(t, path, r)

	tmp := filepath.Join(dir, ".clients.yaml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(`clients:
  - name: renamed
    login_url: https://idp.example.com/login
`), 0o600))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool { return len(r.applied()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "renamed", r.applied()[0][0].Name)
}

func TestClientsWatcher_KeepsClientsOnBadChange(t *testing.T) {
	tests := []struct {
		name    string
		content string
		logged  string
	}{
		{name: "unknown key", content: "clients:\n  - name: a\n    login_ur: https://x\n", logged: "Rejected clients file change"},
		{name: "no clients", content: "clients: []\n", logged: "at least one SSO client is required"},
		{name: "duplicate", content: watchedClients + watchedClients[len("clients:\n"):], logged: "sso client already registered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "clients.yaml")
			require.NoError(t, os.WriteFile(path, []byte(watchedClients), 0o600))

			r := &reloads{}
			logs := startWatcher(t, path, r)

			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			require.Eventually(t, func() bool { return bytes.Contains(logs.Bytes(), []byte(tt.logged)) }, 2*time.Second, 10*time.Millisecond)
			assert.Empty(t, r.applied())
			assert.Zero(t, r.attempts(), "invalid files never reach the callback")
		})
	}
}

func TestClientsWatcher_CallbackError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watchedClients), 0o600))

	r := &reloads{err: errors.New("token store unavailable")}
	logs := startWatcher(t, path, r)

	changed := watchedClients + "    single_use: true\n"
	require.NoError(t, os.WriteFile(path, []byte(changed), 0o600))
	require.Eventually(t, func() bool { return r.attempts() >= 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return bytes.Contains(logs.Bytes(), []byte("keeping current clients")) }, time.Second, 10*time.Millisecond)

	// the same contents are retried because they were never applied
	r.mu.Lock()
	r.err = nil
	r.mu.Unlock()
	require.NoError(t, os.WriteFile(path, []byte(changed), 0o600))
	require.Eventually(t, func() bool { return len(r.applied()) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestNewClientsWatcher_MissingFile(t *testing.T) {
	_, err := NewClientsWatcher(filepath.Join(t.TempDir(), "absent.yaml"), observability.NewLogger(observability.ErrorLevel, nil), (&reloads{}).apply)
	assert.ErrorContains(t, err, "failed to read clients file")
}

func TestClientsWatcher_StopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watchedClients), 0o600))

	w, err := NewClientsWatcher(path, observability.NewLogger(observability.ErrorLevel, nil), (&reloads{}).apply)
	require.NoError(t, err)
	w.Start()

	assert.NoError(t, w.Stop(context.Background()))
	assert.NotPanics(t, func() { _ = w.Stop(context.Background()) })
}

// safeBuffer is a bytes.Buffer safe for the watcher goroutine to write while a test reads
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}
