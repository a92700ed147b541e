// Package protocol hand-writes a representative subset of what an
// XML-protocol-to-Go generator would emit: one type per Wayland
// interface, each wrapping an *endpoint.Core and exposing typed
// request/event senders plus a handler trait. Grounded throughout on
// original_source/wl-proxy/src/protocols/wayland/wl_callback.rs and
// the wlproxy_test/* diagnostic interfaces, using the
// internal/protocols/virtual_keyboard.go teacher's
// Register/Context.SendRequest shape for the factory registry itself.
package protocol

import (
	"fmt"

	"github.com/go-wlproxy/wlproxy/baseline"
	"github.com/go-wlproxy/wlproxy/endpoint"
)

// Factory builds a concrete object of one interface around core.
type Factory func(core *endpoint.Core) endpoint.Object

type registryEntry struct {
	maxVersion uint32
	factory    Factory
}

var registry = map[string]registryEntry{}

// RegisterInterface is called once per interface from this package's
// init functions (one per protocols/<interface>.go file, mirroring
// how a generator would emit one file per interface). It both makes
// the interface constructible via New, and feeds baseline.ALL_OF_THEM
// so a proxy that pins that baseline advertises it automatically.
func RegisterInterface(name string, maxVersion uint32, factory Factory) {
	registry[name] = registryEntry{maxVersion: maxVersion, factory: factory}
	baseline.Register(name, maxVersion)
}

// New constructs the interface named name bound to core, whose
// Interface field must already have been set to a matching
// endpoint.Interface (see endpoint.NewCore).
func New(name string, core *endpoint.Core) (endpoint.Object, error) {
	entry, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("protocol: unknown interface %q", name)
	}
	return entry.factory(core), nil
}

// MaxVersion reports the highest version this build implements for
// name.
func MaxVersion(name string) (uint32, bool) {
	entry, ok := registry[name]
	return entry.maxVersion, ok
}

// DisplayOf recovers the concrete *WlDisplay behind client.Display, as
// promised by endpoint.Client's doc comment: endpoint cannot import
// protocol (protocol already imports endpoint), so the cast lives here
// instead.
func DisplayOf(client *endpoint.Client) (*WlDisplay, bool) {
	d, ok := client.Display.(*WlDisplay)
	return d, ok
}

// upstreamDisplay recovers the state's own wl_display object on its
// connection to the real compositor, the object new-id forwarding
// addresses requests to (its ServerObjID is always 1, spec.md §3).
func upstreamDisplay(state endpoint.StateHandle) (*WlDisplay, bool) {
	obj, ok := state.ServerDisplay()
	if !ok {
		return nil, false
	}
	d, ok := obj.(*WlDisplay)
	return d, ok
}
