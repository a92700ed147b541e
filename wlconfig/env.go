// Package wlconfig centralizes the environment variable names and
// readers this module's runtime consults, grounded on
// wlclient/client.go's WAYLAND_DISPLAY/XDG_RUNTIME_DIR handling and
// original_source/wl-proxy/src/utils/env.rs's WAYLAND_SOCKET/
// WL_PROXY_DEBUG/WL_PROXY_PREFIX names.
package wlconfig

import (
	"os"
	"strconv"
)

const (
	// WaylandDisplay names the socket under XDG_RUNTIME_DIR (or an
	// absolute path) a client connects to.
	WaylandDisplay = "WAYLAND_DISPLAY"
	// XDGRuntimeDir is prepended to a relative WaylandDisplay value.
	XDGRuntimeDir = "XDG_RUNTIME_DIR"
	// WaylandSocket, when set to a valid file descriptor number, is
	// used instead of connecting by name; the variable is cleared
	// after being consumed so child processes don't inherit it.
	WaylandSocket = "WAYLAND_SOCKET"
	// ProxyDebug enables trace-level (wire trace) logging when set to "1".
	ProxyDebug = "WL_PROXY_DEBUG"
	// ProxyPrefix tags every log line with a short identifying string,
	// useful when multiple proxy instances share one terminal.
	ProxyPrefix = "WL_PROXY_PREFIX"
)

// LookupSocketFD reads WaylandSocket as a file descriptor number and
// clears the variable, mirroring state/builder.rs's fd-then-remove_var
// sequence so a forked child doesn't inherit a socket meant for this
// process alone.
func LookupSocketFD() (fd int, ok bool, err error) {
	v, set := os.LookupEnv(WaylandSocket)
	if !set {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, err
	}
	os.Unsetenv(WaylandSocket)
	return n, true, nil
}

// DebugEnabled reports whether ProxyDebug requests verbose logging.
func DebugEnabled() bool {
	return os.Getenv(ProxyDebug) == "1"
}
