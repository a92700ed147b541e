package protocol

import (
	"github.com/go-wlproxy/wlproxy/endpoint"
	"github.com/go-wlproxy/wlproxy/wire"
)

func init() {
	RegisterInterface("wl_shm", 2, func(core *endpoint.Core) endpoint.Object {
		return &WlShm{core: core}
	})
}

// WlShm is a bindable global with no requests implemented in this
// subset; see WlCompositor's doc comment for why.
type WlShm struct {
	core *endpoint.Core
}

func (s *WlShm) ObjectCore() *endpoint.Core { return s.core }

func (s *WlShm) HandleRequest(client *endpoint.Client, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	return &endpoint.Error{Kind: endpoint.KindUnknownOpcode, ID: uint32(hdr.Opcode)}
}

func (s *WlShm) HandleEvent(ep *endpoint.Endpoint, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	return &endpoint.Error{Kind: endpoint.KindUnknownOpcode, ID: uint32(hdr.Opcode)}
}

func (s *WlShm) RequestName(uint16) (string, bool) { return "", false }
func (s *WlShm) EventName(uint16) (string, bool)   { return "", false }
