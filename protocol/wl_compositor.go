package protocol

import (
	"github.com/go-wlproxy/wlproxy/endpoint"
	"github.com/go-wlproxy/wlproxy/wire"
)

func init() {
	RegisterInterface("wl_compositor", 6, func(core *endpoint.Core) endpoint.Object {
		return &WlCompositor{core: core}
	})
}

// WlCompositor is a bindable global with no requests implemented in
// this subset; it exists to exercise the registry bind/version-cap
// path end to end (spec.md §8 scenario 3, "version downgrade") without
// pulling in the full surface/buffer compositing protocol, which is
// out of scope for this core.
type WlCompositor struct {
	core *endpoint.Core
}

func (c *WlCompositor) ObjectCore() *endpoint.Core { return c.core }

func (c *WlCompositor) HandleRequest(client *endpoint.Client, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	return &endpoint.Error{Kind: endpoint.KindUnknownOpcode, ID: uint32(hdr.Opcode)}
}

func (c *WlCompositor) HandleEvent(ep *endpoint.Endpoint, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	return &endpoint.Error{Kind: endpoint.KindUnknownOpcode, ID: uint32(hdr.Opcode)}
}

func (c *WlCompositor) RequestName(uint16) (string, bool) { return "", false }
func (c *WlCompositor) EventName(uint16) (string, bool)   { return "", false }
