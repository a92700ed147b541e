package endpoint

import (
	"fmt"

	"github.com/go-wlproxy/wlproxy/idpool"
	"github.com/go-wlproxy/wlproxy/wire"
	"github.com/go-wlproxy/wlproxy/wllog"
)

// Endpoint owns one socket's wire-level state: the object table
// keyed by id, the id allocator for ids this side hands out, and the
// buffered input/output built on the wire package. Grounded on
// original_source/wl-proxy/src/endpoint.rs.
type Endpoint struct {
	ID           uint64
	FD           int
	Outgoing     wire.OutputSwapchain
	FlushQueued  bool
	Unregistered bool

	objects map[uint32]Object
	idl     *idpool.FreeList

	CurrentInterest uint32
	DesiredInterest uint32
	InterestUpdateQueued bool

	incoming wire.InputBuffer
}

// NewEndpoint returns an Endpoint reading and writing fd, with id a
// caller-assigned identifier unique within the owning State (used for
// logging and for State's readable/writable queues).
func NewEndpoint(id uint64, fd int) *Endpoint {
	return &Endpoint{
		ID:      id,
		FD:      fd,
		objects: make(map[uint32]Object),
		idl:     idpool.NewFreeList(),
	}
}

// Register binds obj's client-allocated id into this endpoint's
// object table. Used for ids the local side allocates (server ids on
// a client-facing endpoint, or the reverse on a server-facing one);
// see RegisterAt for binding a caller-supplied id.
func (e *Endpoint) Register(obj Object) uint32 {
	id := e.idl.Acquire()
	e.objects[id] = obj
	return id
}

// RegisterAt binds obj at a caller-supplied id, failing if that id is
// already occupied. This is the path taken for new_id arguments a peer
// sent us, where the id comes from their allocation, not ours.
//
// RegisterAt does not inform the id allocator: a fixed id bound this
// way (e.g. wl_display's id 1) is not reserved against a later
// Register call unless the caller also burns it from the allocator
// first, with BurnID.
func (e *Endpoint) RegisterAt(id uint32, obj Object) error {
	if _, exists := e.objects[id]; exists {
		return ServerIDInUse(id)
	}
	e.objects[id] = obj
	return nil
}

// BurnID acquires and discards one id from this endpoint's allocator
// without binding an object to it. Used right after construction to
// keep the allocator's bitmap consistent with a fixed id bound via
// RegisterAt (wl_display's id 1): two BurnID calls reserve ids 0 and 1
// so a subsequent Register can never hand either back out, mirroring
// original_source/wl-proxy/src/state/builder.rs's double acquire.
func (e *Endpoint) BurnID() uint32 {
	return e.idl.Acquire()
}

// Unregister removes id from the object table and releases it back to
// the allocator if it was one this endpoint handed out itself.
func (e *Endpoint) Unregister(id uint32, ownedByUs bool) {
	delete(e.objects, id)
	if ownedByUs {
		e.idl.Release(id)
	}
}

// Lookup finds the object bound to id, if any.
func (e *Endpoint) Lookup(id uint32) (Object, bool) {
	obj, ok := e.objects[id]
	return obj, ok
}

// Flush drains any buffered outgoing messages to the socket.
func (e *Endpoint) Flush() (wire.FlushResult, error) {
	return e.Outgoing.Flush(e.FD)
}

// ReadMessages drains fully-buffered messages from the socket and
// dispatches each to its receiving object's HandleRequest (when
// client is non-nil, i.e. this is a client-facing endpoint) or
// HandleEvent (server-facing endpoint). It returns as soon as the
// socket would block or the client is found destroyed partway
// through, matching the Rust source's read loop that re-checks
// client.destroyed between each message in case a handler
// disconnected its own client.
func (e *Endpoint) ReadMessages(client *Client) error {
	for {
		if client != nil && client.Destroyed {
			return nil
		}
		closed, err := e.incoming.FillFromSocket(e.FD)
		if err != nil && err != wire.ErrWouldBlock {
			return fmt.Errorf("could not read a message: %w", err)
		}
		for {
			hdr, ok, perr := e.incoming.Peek()
			if perr != nil {
				return fmt.Errorf("could not read a message: %w", perr)
			}
			if !ok {
				break
			}
			payload := e.incoming.Take(hdr)
			obj, found := e.Lookup(hdr.SenderID)
			if !found {
				return &EndpointReadError{Op: "no receiver", ObjectID: hdr.SenderID}
			}
			var herr error
			if client != nil {
				name, _ := obj.RequestName(hdr.Opcode)
				wllog.TraceMessage(obj.ObjectCore().State.Log(), wllog.Inbound, obj.ObjectCore().Interface.Name(), hdr.SenderID, hdr.Opcode, name)
				herr = obj.HandleRequest(client, hdr, payload, e.incoming.FDs())
			} else {
				name, _ := obj.EventName(hdr.Opcode)
				wllog.TraceMessage(obj.ObjectCore().State.Log(), wllog.Inbound, obj.ObjectCore().Interface.Name(), hdr.SenderID, hdr.Opcode, name)
				herr = obj.HandleEvent(e, hdr, payload, e.incoming.FDs())
			}
			if herr != nil {
				return e.wrapMessageError(hdr, obj, client != nil, herr)
			}
		}
		if closed || err == wire.ErrWouldBlock {
			return nil
		}
	}
}

func (e *Endpoint) wrapMessageError(hdr wire.Header, obj Object, isRequest bool, cause error) error {
	me := &MessageError{
		Object: hdr.SenderID,
		Opcode: hdr.Opcode,
		Source: cause,
	}
	core := obj.ObjectCore()
	me.InterfaceName = core.Interface.Name()
	me.HasInterface = true
	var name string
	var ok bool
	if isRequest {
		name, ok = obj.RequestName(hdr.Opcode)
	} else {
		name, ok = obj.EventName(hdr.Opcode)
	}
	if ok {
		me.MessageName = name
		me.HasName = true
	}
	return me
}

// EndpointReadError reports a failure encountered while reading
// messages, distinct from a per-message handling failure
// (MessageError).
type EndpointReadError struct {
	Op       string
	ObjectID uint32
}

func (e *EndpointReadError) Error() string {
	return fmt.Sprintf("%s: object %d does not exist", e.Op, e.ObjectID)
}
