package endpoint

// Client represents a peer connected to the proxy, grounded on
// original_source/wl-proxy/src/client.rs. Display is kept as the
// generic Object interface (rather than a concrete *protocol.WlDisplay)
// to avoid an import cycle -- the protocol package needs to import
// endpoint for Core/Object/Endpoint, so endpoint cannot import
// protocol back; callers that need the concrete type cast it
// themselves (the protocol package exposes a helper for this).
type Client struct {
	State     StateHandle
	Endpoint  *Endpoint
	Display   Object
	Destroyed bool
	Handler   *HandlerHolder[ClientHandler]
}

// ClientHandler receives lifecycle events for a Client.
type ClientHandler interface {
	// Disconnected is called once, unless the client was
	// disconnected via Client.Disconnect.
	Disconnected()
}

// NoopClientHandler is returned by NewClient and used whenever an
// application hasn't installed its own ClientHandler.
type NoopClientHandler struct{}

func (NoopClientHandler) Disconnected() {}

// NewClient builds a Client around an already-constructed Endpoint and
// display object.
func NewClient(state StateHandle, ep *Endpoint, display Object) *Client {
	return &Client{
		State:    state,
		Endpoint: ep,
		Display:  display,
		Handler:  NewHandlerHolder[ClientHandler](NoopClientHandler{}),
	}
}

// SetHandler installs a new lifecycle handler. A no-op if the client
// has already been destroyed.
func (c *Client) SetHandler(h ClientHandler) {
	if c.Destroyed {
		return
	}
	c.Handler.Set(h)
}

// UnsetHandler reverts to the no-op handler.
func (c *Client) UnsetHandler() {
	c.Handler.Set(NoopClientHandler{})
}

// Objects appends every object currently registered on this client's
// endpoint to dst, for use during multi-client proxy teardown.
func (c *Client) Objects(dst []Object) []Object {
	for _, obj := range c.Endpoint.objects {
		dst = append(dst, obj)
	}
	return dst
}

// Disconnect tears the client down: every object it owns is stripped
// of its client association and handed to the owning State's stash so
// destruction happens safely after the current dispatch round, the
// handler is cleared, and the endpoint is forgotten. Idempotent.
// ClientHandler.Disconnected is deliberately NOT invoked here, mirroring
// the Rust source's client.rs comment.
func (c *Client) Disconnect() {
	if c.Destroyed {
		return
	}
	c.Destroyed = true
	for id, obj := range c.Endpoint.objects {
		core := obj.ObjectCore()
		core.Client = nil
		core.HasClientObjID = false
		delete(c.Endpoint.objects, id)
		c.State.Stash(obj)
	}
	c.Handler.Set(NoopClientHandler{})
	c.State.RemoveEndpoint(c.Endpoint)
}
