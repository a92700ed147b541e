package simpleproxy

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/go-wlproxy/wlproxy/baseline"
	"github.com/go-wlproxy/wlproxy/protocol"
)

func newTestProxy(t *testing.T) *Proxy {
	t.Helper()
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	p, err := New(baseline.ALLOfThem, zerolog.Nop())
	require.NoError(t, err)
	return p
}

func TestDisplayNameIsWaylandPrefixed(t *testing.T) {
	p := newTestProxy(t)
	defer p.Close()
	require.Contains(t, p.Display(), "wayland-")
}

func TestCloseIsIdempotent(t *testing.T) {
	p := newTestProxy(t)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}

func TestRunReturnsAfterClose(t *testing.T) {
	p := newTestProxy(t)

	done := make(chan error, 1)
	go func() {
		done <- p.Run(func() protocol.WlDisplayHandler { return nil })
	}()

	require.NoError(t, p.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
