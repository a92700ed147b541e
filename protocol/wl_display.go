package protocol

import (
	"github.com/go-wlproxy/wlproxy/endpoint"
	"github.com/go-wlproxy/wlproxy/wire"
)

func init() {
	RegisterInterface("wl_display", 1, func(core *endpoint.Core) endpoint.Object {
		return &WlDisplay{core: core, handler: endpoint.NewHandlerHolder[WlDisplayHandler](defaultDisplayHandler{})}
	})
}

// WlDisplay is the core global object, always bound at client and
// server object id 1 (spec.md §3 "An object's ID"), grounded on
// original_source/wl-proxy/src/protocols/wayland/wl_display.rs (not
// kept in the retrieval pack; shape inferred from wl_callback.rs's
// sibling pattern and spec.md §8 scenario 1, "client sync
// round-trip").
type WlDisplay struct {
	core    *endpoint.Core
	handler *endpoint.HandlerHolder[WlDisplayHandler]
}

// WlDisplayHandler reacts to server-sent wl_display events.
type WlDisplayHandler interface {
	// HandleError is called when the server reports a fatal protocol
	// error on one of the client's objects.
	HandleError(display *WlDisplay, objectID uint32, code uint32, message string)
	// HandleDeleteID acknowledges that a client-allocated id may now
	// be reused; spec.md §3 "Destruction order".
	HandleDeleteID(display *WlDisplay, id uint32)
}

type defaultDisplayHandler struct{}

func (defaultDisplayHandler) HandleError(d *WlDisplay, objectID, code uint32, message string) {
	if !d.core.ForwardToClient {
		return
	}
	_ = sendToClient(d.core, 0, func() []byte {
		w := wire.NewWriter(nil)
		w.Object(objectID)
		w.Uint32(code)
		w.String(message)
		return w.Bytes()
	}())
}

func (defaultDisplayHandler) HandleDeleteID(d *WlDisplay, id uint32) {
	if !d.core.ForwardToClient {
		return
	}
	_ = sendToClient(d.core, 1, writeUint32s(id))
}

func (d *WlDisplay) ObjectCore() *endpoint.Core { return d.core }

// SetHandler installs a new handler.
func (d *WlDisplay) SetHandler(h WlDisplayHandler) { d.handler.Set(h) }

// TrySendSync requests a round-trip: the server replies with
// cb.done(serial) and the cb object's client-allocated id is released
// via a subsequent delete_id, spec.md §8 scenario 1.
func (d *WlDisplay) TrySendSync(cb *WlCallback) error {
	if !cb.core.HasClientObjID {
		return &endpoint.Error{Kind: endpoint.KindReceiverNoClient}
	}
	return sendToServerDisplay(d, 0, writeUint32s(cb.core.ClientObjID))
}

// TrySendGetRegistry requests the server send back the full set of
// advertised globals on registry via global/global_remove events.
func (d *WlDisplay) TrySendGetRegistry(registry *WlRegistry) error {
	if !registry.core.HasClientObjID {
		return &endpoint.Error{Kind: endpoint.KindReceiverNoClient}
	}
	return sendToServerDisplay(d, 1, writeUint32s(registry.core.ClientObjID))
}

// sendToServerDisplay resolves the server-facing endpoint (the proxy's
// own connection to the compositor) through the display's State and
// forwards to sendToServer. Only a display bound on that connection
// (HasServerObjID) can send; any other gets a ReceiverNoClient error.
func sendToServerDisplay(d *WlDisplay, opcode uint16, payload []byte) error {
	serverEP, ok := d.core.State.ServerEndpoint()
	if !ok {
		return &endpoint.Error{Kind: endpoint.KindReceiverNoClient}
	}
	return sendToServer(d.core, serverEP, opcode, payload)
}

func (d *WlDisplay) HandleRequest(client *endpoint.Client, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	r := wire.NewReader(payload, fds, "wl_display request")
	switch hdr.Opcode {
	case 0: // sync
		_, err := r.NewIDRaw()
		return err
	case 1: // get_registry
		newID, err := r.NewIDRaw()
		if err != nil {
			return err
		}
		return d.createRegistry(client, newID)
	default:
		return &endpoint.Error{Kind: endpoint.KindUnknownOpcode, ID: uint32(hdr.Opcode)}
	}
}

// createRegistry implements get_registry's new-ID translation
// (spec.md §4.5): the client-allocated id is bound to a freshly
// constructed wl_registry, and -- when this proxy has an upstream
// compositor connection -- the same request is forwarded there with
// an id of the proxy's own choosing, so wl_registry.bind has an
// upstream counterpart to translate into.
func (d *WlDisplay) createRegistry(client *endpoint.Client, newID uint32) error {
	core := endpoint.NewCore(endpoint.NewInterface("wl_registry", 1), 1, d.core.State)
	core.ForwardToClient = d.core.ForwardToClient
	core.ForwardToServer = d.core.ForwardToServer
	core.Client = client
	obj, err := New("wl_registry", core)
	if err != nil {
		return err
	}
	if err := client.Endpoint.RegisterAt(newID, obj); err != nil {
		return err
	}
	core.ClientObjID = newID
	core.HasClientObjID = true

	serverEP, ok := d.core.State.ServerEndpoint()
	if !ok {
		return nil
	}
	upstream, ok := upstreamDisplay(d.core.State)
	if !ok {
		return nil
	}
	serverID := serverEP.Register(obj)
	core.ServerObjID = serverID
	core.HasServerObjID = true
	return sendToServer(upstream.core, serverEP, 1, writeUint32s(serverID))
}

func (d *WlDisplay) HandleEvent(ep *endpoint.Endpoint, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	handler, release, err := d.handler.Borrow()
	if err != nil {
		return err
	}
	defer release()

	r := wire.NewReader(payload, fds, "wl_display event")
	switch hdr.Opcode {
	case 0: // error
		objectID, err := r.Object()
		if err != nil {
			return err
		}
		code, err := r.Uint32()
		if err != nil {
			return err
		}
		msg, err := r.String()
		if err != nil {
			return err
		}
		handler.HandleError(d, objectID, code, msg)
		return nil
	case 1: // delete_id
		id, err := r.Uint32()
		if err != nil {
			return err
		}
		handler.HandleDeleteID(d, id)
		// spec.md §8: delete_id only ever names an id this endpoint
		// allocated from its own (client-role) allocator, and it is
		// released only after the event handler above has returned.
		ep.Unregister(id, true)
		return nil
	default:
		return &endpoint.Error{Kind: endpoint.KindUnknownOpcode, ID: uint32(hdr.Opcode)}
	}
}

func (d *WlDisplay) RequestName(opcode uint16) (string, bool) {
	switch opcode {
	case 0:
		return "sync", true
	case 1:
		return "get_registry", true
	default:
		return "", false
	}
}

func (d *WlDisplay) EventName(opcode uint16) (string, bool) {
	switch opcode {
	case 0:
		return "error", true
	case 1:
		return "delete_id", true
	default:
		return "", false
	}
}
