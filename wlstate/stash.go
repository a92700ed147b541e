package wlstate

// Stash defers destruction of values removed from an active data
// structure until after whatever loop is iterating that structure has
// finished, so a nested mutation (a handler disconnecting a second
// client while the first client's objects are being torn down) can
// never observe a half-drained collection. Grounded on
// original_source/wl-proxy/src/utils/stash.rs; Rust's Cell<Vec<T>> +
// guard-on-Drop pattern becomes an explicit Borrow/Release pair since
// Go has no destructors.
type Stash[T any] struct {
	elements []T
}

// Push adds v outside of an active Borrow. Used by StateHandle.Stash,
// which is called from arbitrary points in request handling, not from
// within the periodic drain below.
func (s *Stash[T]) Push(v T) {
	s.elements = append(s.elements, v)
}

// BorrowedStash holds the elements a Stash contained at the moment of
// Borrow, leaving the Stash itself empty so concurrent-to-this-drain
// pushes land in a fresh slice instead of the one being processed.
type BorrowedStash[T any] struct {
	owner    *Stash[T]
	elements []T
}

// Borrow takes current ownership of s's contents.
func (s *Stash[T]) Borrow() *BorrowedStash[T] {
	b := &BorrowedStash[T]{owner: s, elements: s.elements}
	s.elements = nil
	return b
}

// Items returns the elements captured at Borrow time.
func (b *BorrowedStash[T]) Items() []T { return b.elements }

// Release returns the (now processed) backing slice to the owner,
// truncated to zero length so its capacity is reused by the next
// Push/Borrow cycle, matching BorrowedStash's Drop impl in stash.rs.
// If elements were pushed during the borrow, the owner keeps those
// instead.
func (b *BorrowedStash[T]) Release() {
	if len(b.owner.elements) == 0 {
		b.owner.elements = b.elements[:0]
	}
}
