package wlstate

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/go-wlproxy/wlproxy/baseline"
	"github.com/go-wlproxy/wlproxy/endpoint"
	"github.com/go-wlproxy/wlproxy/protocol"
	"github.com/go-wlproxy/wlproxy/wlconfig"
	"github.com/go-wlproxy/wlproxy/wlpoll"
)

// maxSunPath is sockaddr_un.sun_path's fixed size on Linux; a path
// must leave room for the trailing NUL, so at most maxSunPath-1 bytes.
const maxSunPath = 108

type serverChoice int

const (
	serverUnset serverChoice = iota
	serverNone
	serverFD
	serverDisplayName
)

// StateBuilder configures and constructs a State. Obtain one with
// NewBuilder. Grounded on
// original_source/wl-proxy/src/state/builder.rs.
type StateBuilder struct {
	baseline baseline.Baseline
	log      zerolog.Logger

	choice      serverChoice
	fd          int
	displayName string
}

// NewBuilder returns a StateBuilder that, unless configured otherwise,
// connects to the server named by WAYLAND_SOCKET or WAYLAND_DISPLAY
// when Build is called.
func NewBuilder(b baseline.Baseline) *StateBuilder {
	return &StateBuilder{baseline: b, log: zerolog.Nop()}
}

// WithoutServer makes Build construct a state with no outbound
// connection at all, for a proxy side that only accepts clients.
func (b *StateBuilder) WithoutServer() *StateBuilder {
	b.choice = serverNone
	return b
}

// WithServerFD makes Build use fd (already connected) instead of
// resolving one from the environment.
func (b *StateBuilder) WithServerFD(fd int) *StateBuilder {
	b.choice = serverFD
	b.fd = fd
	return b
}

// WithServerDisplayName makes Build connect to name (resolved against
// XDG_RUNTIME_DIR if relative) instead of consulting the environment.
func (b *StateBuilder) WithServerDisplayName(name string) *StateBuilder {
	b.choice = serverDisplayName
	b.displayName = name
	return b
}

// WithLogger attaches log to every message this state and its
// endpoints emit. The default is a no-op logger.
func (b *StateBuilder) WithLogger(log zerolog.Logger) *StateBuilder {
	b.log = log
	return b
}

// Build resolves the outbound server connection (if any) and returns
// a ready State. The server to connect to is chosen, in order: a
// fd/name set explicitly on the builder, then WAYLAND_SOCKET, then
// WAYLAND_DISPLAY.
func (b *StateBuilder) Build() (*State, error) {
	serverFD, err := b.resolveServerFD()
	if err != nil {
		return nil, err
	}

	poller, err := wlpoll.New()
	if err != nil {
		return nil, fmt.Errorf("could not create poller: %w", err)
	}

	s := &State{
		log:                    b.log,
		baseline:               b.baseline,
		poller:                 poller,
		nextPollableID:         serverEndpointID + 1,
		pollables:              make(map[uint64]*pollable),
		queuedAcceptor:         make(map[uint64]bool),
		queuedFlushable:        make(map[uint64]bool),
		queuedInterestEP:       make(map[uint64]bool),
		defaultForwardToClient: true,
		defaultForwardToServer: true,
	}

	if serverFD >= 0 {
		ep := endpoint.NewEndpoint(serverEndpointID, serverFD)
		core := endpoint.NewCore(endpoint.NewInterface("wl_display", 1), 1, s)
		obj, err := protocol.New("wl_display", core)
		if err != nil {
			return nil, err
		}
		display := obj.(*protocol.WlDisplay)
		ep.BurnID() // id 0
		ep.BurnID() // id 1, matching the RegisterAt below
		if err := ep.RegisterAt(1, display); err != nil {
			return nil, err
		}
		core.ServerObjID = 1
		core.HasServerObjID = true

		s.server = ep
		s.display = display
		s.pollables[serverEndpointID] = &pollable{kind: pollableEndpoint, ep: ep}
		if err := poller.Register(serverEndpointID, serverFD); err != nil {
			return nil, fmt.Errorf("could not register server endpoint: %w", err)
		}
		ep.DesiredInterest = wlpoll.Readable
		ep.CurrentInterest = wlpoll.Readable
	}

	return s, nil
}

// resolveServerFD implements the connect-target precedence documented
// on Build, returning -1 when WithoutServer was used.
func (b *StateBuilder) resolveServerFD() (int, error) {
	switch b.choice {
	case serverNone:
		return -1, nil
	case serverFD:
		return b.fd, nil
	case serverDisplayName:
		return dialDisplay(b.displayName)
	}
	if fd, ok, err := wlconfig.LookupSocketFD(); err != nil {
		return -1, fmt.Errorf("%s is not a valid file descriptor number: %w", wlconfig.WaylandSocket, err)
	} else if ok {
		flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
		if err != nil {
			return -1, fmt.Errorf("could not read flags of %s fd: %w", wlconfig.WaylandSocket, err)
		}
		if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags|unix.FD_CLOEXEC); err != nil {
			return -1, fmt.Errorf("could not set close-on-exec on %s fd: %w", wlconfig.WaylandSocket, err)
		}
		return fd, nil
	}
	name, ok := os.LookupEnv(wlconfig.WaylandDisplay)
	if !ok {
		return -1, fmt.Errorf("%s is not set", wlconfig.WaylandDisplay)
	}
	if name == "" {
		return -1, fmt.Errorf("%s is set but empty", wlconfig.WaylandDisplay)
	}
	return dialDisplay(name)
}

func dialDisplay(name string) (int, error) {
	path := name
	if !strings.HasPrefix(name, "/") {
		xrd, ok := os.LookupEnv(wlconfig.XDGRuntimeDir)
		if !ok {
			return -1, fmt.Errorf("%s is not set", wlconfig.XDGRuntimeDir)
		}
		path = xrd + "/" + name
	}
	if len(path) > maxSunPath-1 {
		return -1, fmt.Errorf("socket path %q is too long", path)
	}

	sock, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("could not create socket: %w", err)
	}
	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Connect(sock, addr); err != nil {
		unix.Close(sock)
		return -1, fmt.Errorf("could not connect to %q: %w", path, err)
	}
	return sock, nil
}
