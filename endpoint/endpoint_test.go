package endpoint

import (
	"testing"

	"github.com/go-wlproxy/wlproxy/wire"
)

type fakeObject struct {
	core *Core
}

func (f *fakeObject) ObjectCore() *Core { return f.core }
func (f *fakeObject) HandleRequest(*Client, wire.Header, []byte, *wire.FDQueue) error {
	return nil
}
func (f *fakeObject) HandleEvent(*Endpoint, wire.Header, []byte, *wire.FDQueue) error {
	return nil
}
func (f *fakeObject) RequestName(uint16) (string, bool) { return "", false }
func (f *fakeObject) EventName(uint16) (string, bool)   { return "", false }

func TestEndpointRegisterAndLookup(t *testing.T) {
	ep := NewEndpoint(1, -1)
	obj := &fakeObject{core: NewCore(NewInterface("wl_display", 1), 1, nil)}
	id := ep.Register(obj)

	got, ok := ep.Lookup(id)
	if !ok || got != Object(obj) {
		t.Fatalf("Lookup(%d) = %v, %v; want %v, true", id, got, ok, obj)
	}
}

func TestEndpointRegisterAtRejectsDuplicate(t *testing.T) {
	ep := NewEndpoint(1, -1)
	obj := &fakeObject{core: NewCore(NewInterface("wl_callback", 1), 1, nil)}
	if err := ep.RegisterAt(5, obj); err != nil {
		t.Fatalf("first RegisterAt: %v", err)
	}
	if err := ep.RegisterAt(5, obj); err == nil {
		t.Fatal("expected ServerIDInUse error on duplicate RegisterAt")
	}
}

func TestEndpointUnregisterReleasesOwnedID(t *testing.T) {
	ep := NewEndpoint(1, -1)
	obj := &fakeObject{core: NewCore(NewInterface("wl_callback", 1), 1, nil)}
	id := ep.Register(obj)
	ep.Unregister(id, true)
	if _, ok := ep.Lookup(id); ok {
		t.Fatal("object still registered after Unregister")
	}
	second := ep.Register(&fakeObject{core: NewCore(NewInterface("wl_callback", 1), 1, nil)})
	if second != id {
		t.Fatalf("released id %d not reused, got %d", id, second)
	}
}

func TestHandlerHolderReentrantSetIsStagedNotLost(t *testing.T) {
	h := NewHandlerHolder[int](1)

	first, release, err := h.Borrow()
	if err != nil {
		t.Fatalf("first Borrow: %v", err)
	}
	if first != 1 {
		t.Fatalf("first = %d, want 1", first)
	}

	if _, _, err := h.Borrow(); err == nil {
		t.Fatal("expected HandlerBorrowed on reentrant Borrow")
	}

	h.Set(2)
	if h.Peek() != 1 {
		t.Fatalf("handler swapped before release; Peek() = %d, want 1", h.Peek())
	}

	release()
	if h.Peek() != 2 {
		t.Fatalf("handler not swapped after release; Peek() = %d, want 2", h.Peek())
	}
}

func TestHandlerHolderSetWhileFreeAppliesImmediately(t *testing.T) {
	h := NewHandlerHolder[string]("a")
	h.Set("b")
	if h.Peek() != "b" {
		t.Fatalf("Peek() = %q, want %q", h.Peek(), "b")
	}
}
