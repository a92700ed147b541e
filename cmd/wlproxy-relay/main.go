// Command wlproxy-relay is a sample application built on this
// module's packages: it binds a wayland-N socket, relays each
// connecting client to whatever compositor this process's own
// WAYLAND_DISPLAY/WAYLAND_SOCKET points at, and optionally spawns a
// child process against the new socket. Grounded in shape on
// original_source/wl-proxy/src/simple.rs's SimpleProxy plus its
// SimpleCommandExt, which this command is the executable form of.
package main

import (
	"github.com/go-wlproxy/wlproxy/cmd/wlproxy-relay/cmd"
)

func main() {
	cmd.Execute()
}
