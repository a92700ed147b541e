package endpoint

// HandlerHolder holds the replaceable event handler for an object,
// grounded on original_source/wl-proxy/src/handler.rs. It lets a
// handler be replaced with a new one *while the old one is running*
// (e.g. a request handler that calls Set on its own object) without
// either corrupting the handler or silently discarding the
// replacement: the new handler is staged and swapped in the moment
// the borrow is released.
//
// Rust implements this with a RefCell and panics (via try_borrow) on
// reentrant access; dispatch here is single-threaded per Endpoint, so
// a plain borrowed flag plays the same role without needing a mutex.
type HandlerHolder[T any] struct {
	handler  T
	borrowed bool
	pending  T
	hasNew   bool
}

// NewHandlerHolder returns a holder initialized with h.
func NewHandlerHolder[T any](h T) *HandlerHolder[T] {
	return &HandlerHolder[T]{handler: h}
}

// Borrow hands out the current handler along with a release function
// that must be deferred by the caller. It fails with an *Error of kind
// KindHandlerBorrowed if the handler is already borrowed further up the call stack -- the
// Go analogue of Rust's try_borrow_mut returning an Err.
func (h *HandlerHolder[T]) Borrow() (T, func(), error) {
	var zero T
	if h.borrowed {
		return zero, func() {}, &Error{Kind: KindHandlerBorrowed}
	}
	h.borrowed = true
	return h.handler, h.release, nil
}

func (h *HandlerHolder[T]) release() {
	h.borrowed = false
	if h.hasNew {
		h.handler = h.pending
		var zero T
		h.pending = zero
		h.hasNew = false
	}
}

// Set installs a new handler. If the current handler is borrowed, the
// replacement is staged and takes effect the moment Borrow's release
// function runs.
func (h *HandlerHolder[T]) Set(handler T) {
	if h.borrowed {
		h.pending = handler
		h.hasNew = true
		return
	}
	h.handler = handler
}

// Peek returns the current handler without marking it borrowed. Safe
// to call from outside the dispatch loop (e.g. diagnostics) since it
// never conflicts with Borrow's reentrancy guard semantics -- callers
// must not mutate through the returned value's pointer receivers in a
// way that depends on borrow exclusivity.
func (h *HandlerHolder[T]) Peek() T {
	return h.handler
}
