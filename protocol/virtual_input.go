package protocol

import (
	"github.com/go-wlproxy/wlproxy/endpoint"
	"github.com/go-wlproxy/wlproxy/wire"
)

// These three globals are bindable stand-ins for the wlr/Wayland
// virtual-input and pointer-constraints extension protocols this
// module's teacher package implemented as a client-side injection
// library (virtual_keyboard.go, virtual_pointer.go,
// pointer_constraints.go). A client can bind them through wl_registry
// like any other global, but the bound objects neither decode nor
// relay anything: every request or event that reaches one is rejected
// as an unknown opcode (see passthroughGlobal). Each global is minimal
// the same way WlCompositor and WlSeat are (spec.md §8 scenario 3,
// version-capped bind without decoding the full protocol).
func init() {
	RegisterInterface("zwp_virtual_keyboard_manager_v1", 1, func(core *endpoint.Core) endpoint.Object {
		return &passthroughGlobal{core: core}
	})
	RegisterInterface("zwlr_virtual_pointer_manager_v1", 2, func(core *endpoint.Core) endpoint.Object {
		return &passthroughGlobal{core: core}
	})
	RegisterInterface("zwp_pointer_constraints_v1", 1, func(core *endpoint.Core) endpoint.Object {
		return &passthroughGlobal{core: core}
	})
}

// passthroughGlobal is a bindable global that decodes nothing: every
// request it receives is reported as unknown rather than forwarded,
// since this core never interprets these three globals' wire formats.
// An application that needs to intercept or rewrite virtual-input or
// pointer-constraint traffic should register its own Factory for the
// interface instead of using this one.
type passthroughGlobal struct {
	core *endpoint.Core
}

func (g *passthroughGlobal) ObjectCore() *endpoint.Core { return g.core }

func (g *passthroughGlobal) HandleRequest(client *endpoint.Client, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	return &endpoint.Error{Kind: endpoint.KindUnknownOpcode, ID: uint32(hdr.Opcode)}
}

func (g *passthroughGlobal) HandleEvent(ep *endpoint.Endpoint, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	return &endpoint.Error{Kind: endpoint.KindUnknownOpcode, ID: uint32(hdr.Opcode)}
}

func (g *passthroughGlobal) RequestName(uint16) (string, bool) { return "", false }
func (g *passthroughGlobal) EventName(uint16) (string, bool)   { return "", false }
