package protocol

import (
	"github.com/go-wlproxy/wlproxy/endpoint"
	"github.com/go-wlproxy/wlproxy/wire"
	"github.com/go-wlproxy/wlproxy/wllog"
)

// sendToClient writes payload as one message from the object bound at
// core on its client-facing endpoint, failing with a ReceiverNoClient
// object error if the object has no associated client (the object has
// already been disconnected, or exists only on the server side).
// Grounded on try_send_done's client-lookup/flush-queueing/formatter
// sequence in wl_callback.rs.
func sendToClient(core *endpoint.Core, opcode uint16, payload []byte) error {
	if core.Client == nil || !core.HasClientObjID {
		wllog.TraceMessage(core.State.Log(), wllog.Outbound, core.Interface.Name(), 0, opcode, "dropped, no client")
		return &endpoint.Error{Kind: endpoint.KindReceiverNoClient}
	}
	ep := core.Client.Endpoint
	core.State.QueueFlush(ep)
	buf := ep.Outgoing.BeginMessage(wire.HeaderSize + len(payload))
	wire.EncodeMessage(buf, core.ClientObjID, opcode, payload)
	wllog.TraceMessage(core.State.Log(), wllog.Outbound, core.Interface.Name(), core.ClientObjID, opcode, "event")
	return nil
}

// sendToServer is the mirror image of sendToClient: it writes a
// message toward the upstream compositor from the object's
// server-facing registration.
func sendToServer(core *endpoint.Core, serverEndpoint *endpoint.Endpoint, opcode uint16, payload []byte) error {
	if !core.HasServerObjID {
		wllog.TraceMessage(core.State.Log(), wllog.Outbound, core.Interface.Name(), 0, opcode, "dropped, no server object")
		return &endpoint.Error{Kind: endpoint.KindReceiverNoClient}
	}
	core.State.QueueFlush(serverEndpoint)
	buf := serverEndpoint.Outgoing.BeginMessage(wire.HeaderSize + len(payload))
	wire.EncodeMessage(buf, core.ServerObjID, opcode, payload)
	wllog.TraceMessage(core.State.Log(), wllog.Outbound, core.Interface.Name(), core.ServerObjID, opcode, "request")
	return nil
}

// writeUint32s packs a flat list of u32 words, the common case for
// simple fixed-arity messages.
func writeUint32s(words ...uint32) []byte {
	w := wire.NewWriter(nil)
	for _, word := range words {
		w.Uint32(word)
	}
	return w.Bytes()
}
