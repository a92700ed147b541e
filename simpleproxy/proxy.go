// Package simpleproxy offers the boilerplate most simple proxies need:
// accept on one socket, give each client its own dispatch state on its
// own goroutine. Grounded on
// original_source/wl-proxy/src/simple.rs's SimpleProxy, adapted from
// thread::scope + one OS thread per client to one goroutine per client
// (a RemoteDestructor, not a scope guard, is what lets Close reach
// every still-running client's State from outside its goroutine).
package simpleproxy

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/go-wlproxy/wlproxy/acceptor"
	"github.com/go-wlproxy/wlproxy/baseline"
	"github.com/go-wlproxy/wlproxy/protocol"
	"github.com/go-wlproxy/wlproxy/wlstate"
)

// DisplayHandlerFactory builds a fresh protocol.WlDisplayHandler for
// one client's wl_display object. It is called once per accepted
// connection so a stateful handler never needs to worry about sharing
// state across clients, mirroring simple.rs's `impl Fn() -> H`
// parameter to Run.
type DisplayHandlerFactory func() protocol.WlDisplayHandler

// Proxy accepts connections on a freshly bound `wayland-N` socket and
// serves each one on its own goroutine with its own wlstate.State.
type Proxy struct {
	baseline baseline.Baseline
	log      zerolog.Logger
	acceptor *acceptor.Acceptor

	mu          sync.Mutex
	destructors []*wlstate.RemoteDestructor
	closed      bool
}

// New binds a `wayland-N` socket (N chosen the way acceptor.New
// chooses it) with a blocking accept loop; log is used both for the
// proxy's own messages and, per client, with a "client" field added.
func New(b baseline.Baseline, log zerolog.Logger) (*Proxy, error) {
	a, err := acceptor.New(log, 0, 1000, false)
	if err != nil {
		return nil, fmt.Errorf("could not create an acceptor: %w", err)
	}
	return &Proxy{baseline: b, log: log, acceptor: a}, nil
}

// Display returns the name clients should set WAYLAND_DISPLAY to in
// order to reach this proxy.
func (p *Proxy) Display() string { return p.acceptor.Display() }

// Setenv sets WAYLAND_DISPLAY in the current process's environment to
// Display(), for a proxy that will itself exec or spawn the client.
func (p *Proxy) Setenv() error { return p.acceptor.Setenv() }

// Close stops accepting and destroys every client state still
// running; their goroutines unwind once their blocking dispatch call
// notices. Safe to call more than once.
func (p *Proxy) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for _, d := range p.destructors {
		d.Enable()
		d.Close()
	}
	// close(2) alone does not wake an accept(2) blocked in Run.
	_ = unix.Shutdown(p.acceptor.FD(), unix.SHUT_RDWR)
	return p.acceptor.Close()
}

// Run blocks accepting connections until Close is called (Run then
// returns nil) or a genuine accept failure occurs (Run returns it).
// Every accepted connection gets its own wlstate.State (built with
// WAYLAND_DISPLAY/WAYLAND_SOCKET resolved from this process's
// environment, so each client's state relays to whatever upstream
// compositor this process itself would connect to) dispatching on its
// own goroutine.
func (p *Proxy) Run(newHandler DisplayHandlerFactory) error {
	for {
		fd, ok, err := p.acceptor.Accept()
		if err != nil {
			p.mu.Lock()
			closed := p.closed
			p.mu.Unlock()
			if closed {
				return nil
			}
			return fmt.Errorf("could not accept a connection: %w", err)
		}
		if !ok {
			return nil
		}

		id := uuid.New().String()
		log := p.log.With().Str("client", id).Logger()
		log.Debug().Msg("client connected")
		go p.serve(fd, log, newHandler)
	}
}

func (p *Proxy) serve(fd int, log zerolog.Logger, newHandler DisplayHandlerFactory) {
	state, err := wlstate.NewBuilder(p.baseline).WithLogger(log).Build()
	if err != nil {
		log.Error().Err(err).Msg("could not create a new state")
		unix.Close(fd)
		return
	}

	remote, err := state.CreateRemoteDestructor()
	if err != nil {
		log.Error().Err(err).Msg("could not create a remote destructor")
		state.Destroy()
		return
	}
	p.mu.Lock()
	closed := p.closed
	if !closed {
		p.destructors = append(p.destructors, remote)
	}
	p.mu.Unlock()
	if closed {
		remote.Enable()
		remote.Close()
		return
	}

	client, err := state.AddClient(fd)
	if err != nil {
		log.Error().Err(err).Msg("could not add client to state")
		state.Destroy()
		return
	}
	client.SetHandler(&clientHandler{log: log, destructor: state.CreateDestructor()})
	if display, ok := protocol.DisplayOf(client); ok {
		display.SetHandler(newHandler())
	}

	for state.IsNotDestroyed() {
		if err := wlstate.DispatchBlocking([]*wlstate.State{state}); err != nil {
			log.Error().Err(err).Msg("could not dispatch state")
		}
	}
}

type clientHandler struct {
	log        zerolog.Logger
	destructor *wlstate.Destructor
}

func (h *clientHandler) Disconnected() {
	h.log.Debug().Msg("client disconnected")
}
