package protocol

import (
	"os"

	"github.com/go-wlproxy/wlproxy/endpoint"
	"github.com/go-wlproxy/wlproxy/wire"
)

// This file implements the wlproxy_test_* diagnostic interfaces used
// by spec.md §8's end-to-end scenarios ("65520-byte array echo",
// "count-hops"), grounded on
// original_source/wl-proxy/src/protocols/wlproxy_test/wlproxy_test_array_echo.rs,
// wlproxy_test_fd_echo.rs and wlproxy_test_hops.rs. All three share the
// same shape: a single bidirectional message (opcode 0) that a default
// handler forwards unchanged, letting a test harness bounce a payload
// end to end through a proxy and assert it comes back intact.

func init() {
	RegisterInterface("wlproxy_test_array_echo", 1, func(core *endpoint.Core) endpoint.Object {
		return &WlproxyTestArrayEcho{core: core, handler: endpoint.NewHandlerHolder[WlproxyTestArrayEchoHandler](defaultArrayEchoHandler{})}
	})
	RegisterInterface("wlproxy_test_fd_echo", 1, func(core *endpoint.Core) endpoint.Object {
		return &WlproxyTestFDEcho{core: core, handler: endpoint.NewHandlerHolder[WlproxyTestFDEchoHandler](defaultFDEchoHandler{})}
	})
	RegisterInterface("wlproxy_test_hops", 1, func(core *endpoint.Core) endpoint.Object {
		return &WlproxyTestHops{core: core, handler: endpoint.NewHandlerHolder[WlproxyTestHopsHandler](defaultHopsHandler{})}
	})
}

// --- array echo ---

type WlproxyTestArrayEcho struct {
	core    *endpoint.Core
	handler *endpoint.HandlerHolder[WlproxyTestArrayEchoHandler]
}

type WlproxyTestArrayEchoHandler interface {
	HandleArray(obj *WlproxyTestArrayEcho, data []byte)
}

type defaultArrayEchoHandler struct{}

func (defaultArrayEchoHandler) HandleArray(o *WlproxyTestArrayEcho, data []byte) {
	if !o.core.ForwardToClient {
		return
	}
	_ = o.TrySendArray(data)
}

func (o *WlproxyTestArrayEcho) ObjectCore() *endpoint.Core          { return o.core }
func (o *WlproxyTestArrayEcho) SetHandler(h WlproxyTestArrayEchoHandler) { o.handler.Set(h) }

func (o *WlproxyTestArrayEcho) TrySendArray(data []byte) error {
	w := wire.NewWriter(nil)
	w.Array(data)
	return sendToClient(o.core, 0, w.Bytes())
}

func (o *WlproxyTestArrayEcho) HandleRequest(client *endpoint.Client, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	return o.dispatch(hdr, payload, fds)
}
func (o *WlproxyTestArrayEcho) HandleEvent(ep *endpoint.Endpoint, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	return o.dispatch(hdr, payload, fds)
}
func (o *WlproxyTestArrayEcho) dispatch(hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	if hdr.Opcode != 0 {
		return &endpoint.Error{Kind: endpoint.KindUnknownOpcode, ID: uint32(hdr.Opcode)}
	}
	handler, release, err := o.handler.Borrow()
	if err != nil {
		return err
	}
	defer release()
	r := wire.NewReader(payload, fds, "wlproxy_test_array_echo.array")
	data, err := r.Array()
	if err != nil {
		return err
	}
	handler.HandleArray(o, data)
	return nil
}
func (o *WlproxyTestArrayEcho) RequestName(opcode uint16) (string, bool) { return echoName(opcode) }
func (o *WlproxyTestArrayEcho) EventName(opcode uint16) (string, bool)   { return echoName(opcode) }

// --- fd echo ---

type WlproxyTestFDEcho struct {
	core    *endpoint.Core
	handler *endpoint.HandlerHolder[WlproxyTestFDEchoHandler]
}

type WlproxyTestFDEchoHandler interface {
	HandleFD(obj *WlproxyTestFDEcho, f *os.File)
}

type defaultFDEchoHandler struct{}

func (defaultFDEchoHandler) HandleFD(o *WlproxyTestFDEcho, f *os.File) {
	if !o.core.ForwardToClient {
		return
	}
	_ = o.TrySendFD(f)
}

func (o *WlproxyTestFDEcho) ObjectCore() *endpoint.Core        { return o.core }
func (o *WlproxyTestFDEcho) SetHandler(h WlproxyTestFDEchoHandler) { o.handler.Set(h) }

func (o *WlproxyTestFDEcho) TrySendFD(f *os.File) error {
	if o.core.Client == nil || !o.core.HasClientObjID {
		return &endpoint.Error{Kind: endpoint.KindReceiverNoClient}
	}
	ep := o.core.Client.Endpoint
	ep.Outgoing.QueueFD(f)
	return sendToClient(o.core, 0, nil)
}

func (o *WlproxyTestFDEcho) HandleRequest(client *endpoint.Client, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	return o.dispatch(hdr, payload, fds)
}
func (o *WlproxyTestFDEcho) HandleEvent(ep *endpoint.Endpoint, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	return o.dispatch(hdr, payload, fds)
}
func (o *WlproxyTestFDEcho) dispatch(hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	if hdr.Opcode != 0 {
		return &endpoint.Error{Kind: endpoint.KindUnknownOpcode, ID: uint32(hdr.Opcode)}
	}
	handler, release, err := o.handler.Borrow()
	if err != nil {
		return err
	}
	defer release()
	r := wire.NewReader(payload, fds, "wlproxy_test_fd_echo.fd")
	f, err := r.FD()
	if err != nil {
		return err
	}
	handler.HandleFD(o, f)
	return nil
}
func (o *WlproxyTestFDEcho) RequestName(opcode uint16) (string, bool) { return fdEchoName(opcode) }
func (o *WlproxyTestFDEcho) EventName(opcode uint16) (string, bool)   { return fdEchoName(opcode) }

// --- hop counter ---

// WlproxyTestHops forwards count unchanged, like its two siblings
// above; it does not itself increment count or create a downstream
// object. spec.md §8.5's hop count increasing by one at each proxy hop
// is application behavior this default handler is meant to be
// replaced for -- an app wanting the count_hops scenario installs a
// WlproxyTestHopsHandler whose HandleCount creates its own downstream
// object and sends count+1, rather than relying on this passthrough.
type WlproxyTestHops struct {
	core    *endpoint.Core
	handler *endpoint.HandlerHolder[WlproxyTestHopsHandler]
}

type WlproxyTestHopsHandler interface {
	HandleCount(obj *WlproxyTestHops, count uint32)
}

type defaultHopsHandler struct{}

func (defaultHopsHandler) HandleCount(o *WlproxyTestHops, count uint32) {
	if !o.core.ForwardToClient {
		return
	}
	_ = o.TrySendCount(count)
}

func (o *WlproxyTestHops) ObjectCore() *endpoint.Core     { return o.core }
func (o *WlproxyTestHops) SetHandler(h WlproxyTestHopsHandler) { o.handler.Set(h) }

func (o *WlproxyTestHops) TrySendCount(count uint32) error {
	return sendToClient(o.core, 0, writeUint32s(count))
}

func (o *WlproxyTestHops) HandleRequest(client *endpoint.Client, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	return o.dispatch(hdr, payload, fds)
}
func (o *WlproxyTestHops) HandleEvent(ep *endpoint.Endpoint, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	return o.dispatch(hdr, payload, fds)
}
func (o *WlproxyTestHops) dispatch(hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	if hdr.Opcode != 0 {
		return &endpoint.Error{Kind: endpoint.KindUnknownOpcode, ID: uint32(hdr.Opcode)}
	}
	handler, release, err := o.handler.Borrow()
	if err != nil {
		return err
	}
	defer release()
	r := wire.NewReader(payload, fds, "wlproxy_test_hops.count")
	count, err := r.Uint32()
	if err != nil {
		return err
	}
	handler.HandleCount(o, count)
	return nil
}
func (o *WlproxyTestHops) RequestName(opcode uint16) (string, bool) { return hopsName(opcode) }
func (o *WlproxyTestHops) EventName(opcode uint16) (string, bool)   { return hopsName(opcode) }

func echoName(opcode uint16) (string, bool) {
	if opcode == 0 {
		return "array", true
	}
	return "", false
}

func fdEchoName(opcode uint16) (string, bool) {
	if opcode == 0 {
		return "fd", true
	}
	return "", false
}

func hopsName(opcode uint16) (string, bool) {
	if opcode == 0 {
		return "count", true
	}
	return "", false
}
