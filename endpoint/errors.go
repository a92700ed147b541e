package endpoint

import "fmt"

// ErrorKind enumerates the per-object schema violations from spec.md
// §7's "Per-object schema violation" row, grounded on
// original_source/wl-proxy/src/object/tests.rs and handler/tests.rs.
type ErrorKind int

const (
	// KindNotServerID means a new-id argument named an id outside the
	// server-allocated range (0xFF000000-0xFFFFFFFF) where a
	// server-allocated id was required.
	KindNotServerID ErrorKind = iota
	// KindServerIDInUse means a new-id argument named a server id that
	// is already bound to a live object.
	KindServerIDInUse
	// KindDuplicateClientID means a new-id argument named a
	// client-allocated id that is already bound to a live object.
	KindDuplicateClientID
	// KindHandlerBorrowed means dispatch tried to re-enter a handler
	// that is already running further up the call stack.
	KindHandlerBorrowed
	// KindMissingFD means a message schema expected a file descriptor
	// argument but the FD queue was empty.
	KindMissingFD
	// KindReceiverNoClient means a message could not be sent because
	// its receiving object has no associated client endpoint.
	KindReceiverNoClient
	// KindUnknownOpcode means the opcode in a message header has no
	// corresponding entry in the receiving object's schema.
	KindUnknownOpcode
	// KindWrongWordCount means a message's payload length does not
	// match what its opcode's schema requires.
	KindWrongWordCount
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotServerID:
		return "not a server id"
	case KindServerIDInUse:
		return "server id already in use"
	case KindDuplicateClientID:
		return "client id already in use"
	case KindHandlerBorrowed:
		return "the handler is already borrowed"
	case KindMissingFD:
		return "missing file descriptor"
	case KindReceiverNoClient:
		return "receiver has no client"
	case KindUnknownOpcode:
		return "unknown opcode"
	case KindWrongWordCount:
		return "wrong word count"
	default:
		return "unknown object error"
	}
}

// Error is an object-level schema violation, analogous to the Rust
// source's ObjectError.
type Error struct {
	Kind ErrorKind
	ID   uint32
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotServerID, KindServerIDInUse, KindDuplicateClientID:
		return fmt.Sprintf("%s: %d", e.Kind, e.ID)
	default:
		return e.Kind.String()
	}
}

// NotServerID builds a KindNotServerID error for id n.
func NotServerID(n uint32) *Error { return &Error{Kind: KindNotServerID, ID: n} }

// ServerIDInUse builds a KindServerIDInUse error for id n.
func ServerIDInUse(n uint32) *Error { return &Error{Kind: KindServerIDInUse, ID: n} }

// DuplicateClientID builds a KindDuplicateClientID error for id n.
func DuplicateClientID(n uint32) *Error { return &Error{Kind: KindDuplicateClientID, ID: n} }

// HandlerBorrowed builds a KindHandlerBorrowed error for object id n.
func HandlerBorrowed(n uint32) *Error { return &Error{Kind: KindHandlerBorrowed, ID: n} }

// MessageError wraps an object-level error with the interface, object id,
// opcode and (when known) the message name of the message being
// handled when it occurred, matching spec.md §7's
// "MessageError{interface, object, opcode, name}".
type MessageError struct {
	Object        uint32
	InterfaceName string
	HasInterface  bool
	Opcode        uint16
	MessageName   string
	HasName       bool
	Source        error
}

func (e *MessageError) Error() string {
	if !e.HasInterface {
		return fmt.Sprintf("message %d on object %d with unknown interface: %v", e.Opcode, e.Object, e.Source)
	}
	name := fmt.Sprintf("%d", e.Opcode)
	if e.HasName {
		name = e.MessageName
	}
	return fmt.Sprintf("could not handle a %s#%d.%s message: %v", e.InterfaceName, e.Object, name, e.Source)
}

func (e *MessageError) Unwrap() error {
	return e.Source
}
