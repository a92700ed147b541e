package endpoint

import (
	"github.com/rs/zerolog"

	"github.com/go-wlproxy/wlproxy/baseline"
	"github.com/go-wlproxy/wlproxy/wire"
)

// StateHandle is the narrow set of operations Core and Client need
// from the owning dispatch engine. Defining it here (rather than
// importing the wlstate package directly) avoids a Go import cycle:
// wlstate.State naturally wants to hold and create Endpoint and
// Client values, so the dependency must run wlstate -> endpoint, never
// the reverse. wlstate.State satisfies this interface structurally.
type StateHandle interface {
	// Stash defers destruction of obj until the current dispatch
	// round unwinds, mirroring original_source's object_stash.
	Stash(obj Object)
	// RemoveEndpoint forgets ep, e.g. once its client disconnects.
	RemoveEndpoint(ep *Endpoint)
	// QueueFlush schedules ep to be flushed at the next opportunity,
	// mirroring original_source's state.add_flushable_endpoint.
	QueueFlush(ep *Endpoint)
	// Log returns the logger this dispatch engine was built with.
	Log() zerolog.Logger
	// Baseline returns the version-cap table globals are filtered
	// against before being advertised to a client (spec.md §4.9).
	Baseline() baseline.Baseline
	// ServerEndpoint returns the proxy's own connection to the
	// upstream compositor, if one was configured.
	ServerEndpoint() (*Endpoint, bool)
	// ServerDisplay returns the proxy's own wl_display object on that
	// connection, the object new-id forwarding addresses upstream
	// requests to.
	ServerDisplay() (Object, bool)
}

// Object is implemented by every concrete protocol object (hand
// written here or emitted by protocol glue). It is the Go analogue of
// the Rust source's `dyn Object` trait object, grounded on
// object/tests.rs's usage of `Rc<dyn Object>`.
type Object interface {
	// ObjectCore returns the embedded Core powering identity,
	// version and handler-borrow bookkeeping.
	ObjectCore() *Core

	// HandleRequest dispatches a client-to-server message addressed
	// to this object. client is nil when the object lives on a
	// server (proxy-to-compositor) endpoint with no client half.
	HandleRequest(client *Client, hdr wire.Header, payload []byte, fds *wire.FDQueue) error

	// HandleEvent dispatches a server-to-client message addressed to
	// this object.
	HandleEvent(ep *Endpoint, hdr wire.Header, payload []byte, fds *wire.FDQueue) error

	// RequestName and EventName resolve an opcode to its schema name
	// for diagnostics; ok is false for opcodes the object's
	// interface version does not define.
	RequestName(opcode uint16) (name string, ok bool)
	EventName(opcode uint16) (name string, ok bool)
}

// Core holds the identity and bookkeeping state shared by every
// concrete object, analogous to the fields embedded ad hoc across the
// Rust source's generated object structs (interface, version,
// client_id, server_obj_id, forward_to_client/forward_to_server).
//
// A proxied object generally exists at two ids: client_obj_id is its
// id in the client-facing Endpoint's table, server_obj_id its id in
// the server-facing (proxy-to-compositor) Endpoint's table. Either
// may be unset for an object that exists on only one side.
type Core struct {
	Interface Interface
	Version   uint32

	// ClientObjID is this object's id as seen by the connected
	// client, or false in HasClientObjID if this object is not
	// registered on the client endpoint.
	ClientObjID    uint32
	HasClientObjID bool

	// ServerObjID is this object's id as seen by the upstream
	// compositor, or false in HasServerObjID if this object is not
	// registered on the server endpoint (e.g. a display-only proxy
	// object with no compositor counterpart).
	ServerObjID    uint32
	HasServerObjID bool

	// ForwardToClient and ForwardToServer gate whether a message
	// arriving from one side is relayed to the other, letting a
	// handler intercept a request or event and answer it locally
	// instead (spec.md's per-object forwarding switches).
	ForwardToClient bool
	ForwardToServer bool

	Client *Client
	State  StateHandle
}

// NewCore returns a Core with forwarding enabled in both directions,
// the default for a freshly created proxied object.
func NewCore(iface Interface, version uint32, state StateHandle) *Core {
	return &Core{
		Interface:       iface,
		Version:         version,
		ForwardToClient: true,
		ForwardToServer: true,
		State:           state,
	}
}
