package protocol

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/go-wlproxy/wlproxy/baseline"
	"github.com/go-wlproxy/wlproxy/endpoint"
	"github.com/go-wlproxy/wlproxy/wire"
)

type fakeState struct {
	stashed  []endpoint.Object
	removed  []*endpoint.Endpoint
	flushed  []*endpoint.Endpoint
	bl       baseline.Baseline
	serverEP *endpoint.Endpoint
}

func (f *fakeState) Stash(obj endpoint.Object)            { f.stashed = append(f.stashed, obj) }
func (f *fakeState) RemoveEndpoint(ep *endpoint.Endpoint) { f.removed = append(f.removed, ep) }
func (f *fakeState) QueueFlush(ep *endpoint.Endpoint)     { f.flushed = append(f.flushed, ep) }
func (f *fakeState) Log() zerolog.Logger                  { return zerolog.Nop() }
func (f *fakeState) Baseline() baseline.Baseline          { return f.bl }
func (f *fakeState) ServerEndpoint() (*endpoint.Endpoint, bool) {
	return f.serverEP, f.serverEP != nil
}
func (f *fakeState) ServerDisplay() (endpoint.Object, bool) { return nil, false }

func newWiredCallback(t *testing.T) (*WlCallback, *endpoint.Endpoint, *fakeState) {
	t.Helper()
	state := &fakeState{}
	clientEP := endpoint.NewEndpoint(1, -1)

	core := endpoint.NewCore(endpoint.NewInterface("wl_callback", 1), 1, state)
	obj, err := New("wl_callback", core)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cb := obj.(*WlCallback)

	clientID := clientEP.Register(cb)
	core.ClientObjID = clientID
	core.HasClientObjID = true

	display := &WlDisplay{core: endpoint.NewCore(endpoint.NewInterface("wl_display", 1), 1, state)}
	client := endpoint.NewClient(state, clientEP, display)
	core.Client = client

	return cb, clientEP, state
}

func TestCallbackTrySendDoneWithoutClientFails(t *testing.T) {
	core := endpoint.NewCore(endpoint.NewInterface("wl_callback", 1), 1, &fakeState{})
	obj, err := New("wl_callback", core)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cb := obj.(*WlCallback)
	if err := cb.TrySendDone(42); err == nil {
		t.Fatal("expected ReceiverNoClient error with no client bound")
	}
}

func TestCallbackSendDoneQueuesFlushAndEncodesMessage(t *testing.T) {
	cb, clientEP, state := newWiredCallback(t)

	if err := cb.TrySendDone(7); err != nil {
		t.Fatalf("TrySendDone: %v", err)
	}
	if len(state.flushed) != 1 || state.flushed[0] != clientEP {
		t.Fatalf("expected the client endpoint to be queued for flush exactly once, got %v", state.flushed)
	}
	if !clientEP.Outgoing.Empty() {
		t.Log("swapchain has pending bytes as expected")
	} else {
		t.Fatal("expected a pending message in the outgoing swapchain")
	}
}

func TestArrayEchoDefaultHandlerForwardsUnchanged(t *testing.T) {
	state := &fakeState{}
	clientEP := endpoint.NewEndpoint(2, -1)
	core := endpoint.NewCore(endpoint.NewInterface("wlproxy_test_array_echo", 1), 1, state)
	obj, err := New("wlproxy_test_array_echo", core)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	echo := obj.(*WlproxyTestArrayEcho)

	clientID := clientEP.Register(echo)
	core.ClientObjID = clientID
	core.HasClientObjID = true

	display := &WlDisplay{core: endpoint.NewCore(endpoint.NewInterface("wl_display", 1), 1, state)}
	core.Client = endpoint.NewClient(state, clientEP, display)

	payload := wire.NewWriter(nil)
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i)
	}
	payload.Array(data)

	hdr := wire.Header{SenderID: clientID, Opcode: 0}
	if err := echo.HandleEvent(nil, hdr, payload.Bytes(), &wire.FDQueue{}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(state.flushed) != 1 {
		t.Fatalf("expected one flush to be queued, got %d", len(state.flushed))
	}
}

func TestHandlerBorrowedDuringDispatch(t *testing.T) {
	cb, _, _ := newWiredCallback(t)

	handler, release, err := cb.handler.Borrow()
	if err != nil {
		t.Fatalf("Borrow: %v", err)
	}
	_ = handler

	hdr := wire.Header{SenderID: 1, Opcode: 0}
	payload := wire.NewWriter(nil)
	payload.Uint32(1)
	if err := cb.HandleEvent(nil, hdr, payload.Bytes(), &wire.FDQueue{}); err == nil {
		t.Fatal("expected HandlerBorrowed while the handler is already borrowed")
	}
	release()
}
