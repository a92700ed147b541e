package protocol

import (
	"github.com/go-wlproxy/wlproxy/endpoint"
	"github.com/go-wlproxy/wlproxy/wire"
)

func init() {
	RegisterInterface("wl_callback", 1, func(core *endpoint.Core) endpoint.Object {
		return &WlCallback{core: core, handler: endpoint.NewHandlerHolder[WlCallbackHandler](defaultCallbackHandler{})}
	})
}

// WlCallback notifies its creator once when the operation it was
// created for (e.g. wl_display.sync) completes, grounded on
// original_source/wl-proxy/src/protocols/wayland/wl_callback.rs. A
// wl_callback is frozen at version 1 because it is created by many
// independent factory interfaces.
type WlCallback struct {
	core    *endpoint.Core
	handler *endpoint.HandlerHolder[WlCallbackHandler]
}

// WlCallbackHandler reacts to the done event.
type WlCallbackHandler interface {
	// HandleDone is invoked with the event's callback-specific data
	// (e.g. a timestamp or serial). The default forwards the event
	// on to the client unchanged, matching wl_callback.rs's default
	// trait method.
	HandleDone(cb *WlCallback, callbackData uint32)
}

type defaultCallbackHandler struct{}

func (defaultCallbackHandler) HandleDone(cb *WlCallback, callbackData uint32) {
	if !cb.core.ForwardToClient {
		return
	}
	_ = cb.TrySendDone(callbackData)
}

func (c *WlCallback) ObjectCore() *endpoint.Core { return c.core }

// SetHandler installs a new handler.
func (c *WlCallback) SetHandler(h WlCallbackHandler) { c.handler.Set(h) }

// TrySendDone emits the done event toward the client, returning a
// ReceiverNoClient object error if this callback has no associated
// client (e.g. its client already disconnected).
func (c *WlCallback) TrySendDone(callbackData uint32) error {
	return sendToClient(c.core, 0, writeUint32s(callbackData))
}

// SendDone is TrySendDone with the error dropped, matching the
// generated glue's convention of an infallible sender for callers that
// don't want to handle ReceiverNoClient themselves.
func (c *WlCallback) SendDone(callbackData uint32) {
	_ = c.TrySendDone(callbackData)
}

func (c *WlCallback) HandleRequest(client *endpoint.Client, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	return &endpoint.Error{Kind: endpoint.KindUnknownOpcode, ID: uint32(hdr.Opcode)}
}

func (c *WlCallback) HandleEvent(ep *endpoint.Endpoint, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	handler, release, err := c.handler.Borrow()
	if err != nil {
		return err
	}
	defer release()

	switch hdr.Opcode {
	case 0: // done
		r := wire.NewReader(payload, fds, "wl_callback.done")
		data, rerr := r.Uint32()
		if rerr != nil {
			return rerr
		}
		handler.HandleDone(c, data)
		return nil
	default:
		return &endpoint.Error{Kind: endpoint.KindUnknownOpcode, ID: uint32(hdr.Opcode)}
	}
}

func (c *WlCallback) RequestName(opcode uint16) (string, bool) { return "", false }

func (c *WlCallback) EventName(opcode uint16) (string, bool) {
	if opcode == 0 {
		return "done", true
	}
	return "", false
}
