package protocol

import (
	"github.com/go-wlproxy/wlproxy/endpoint"
	"github.com/go-wlproxy/wlproxy/wire"
)

func init() {
	RegisterInterface("wl_seat", 10, func(core *endpoint.Core) endpoint.Object {
		return &WlSeat{core: core}
	})
}

// WlSeat is a bindable global with no requests implemented in this
// subset; see WlCompositor's doc comment for why.
type WlSeat struct {
	core *endpoint.Core
}

func (s *WlSeat) ObjectCore() *endpoint.Core { return s.core }

func (s *WlSeat) HandleRequest(client *endpoint.Client, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	return &endpoint.Error{Kind: endpoint.KindUnknownOpcode, ID: uint32(hdr.Opcode)}
}

func (s *WlSeat) HandleEvent(ep *endpoint.Endpoint, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	return &endpoint.Error{Kind: endpoint.KindUnknownOpcode, ID: uint32(hdr.Opcode)}
}

func (s *WlSeat) RequestName(uint16) (string, bool) { return "", false }
func (s *WlSeat) EventName(uint16) (string, bool)   { return "", false }
