package wlstate

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/go-wlproxy/wlproxy/baseline"
	"github.com/go-wlproxy/wlproxy/endpoint"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	s, err := NewBuilder(baseline.ALLOfThem).WithoutServer().Build()
	require.NoError(t, err)
	t.Cleanup(s.Destroy)
	return s
}

func TestDestructorDestroysOnlyWhenEnabled(t *testing.T) {
	s := newTestState(t)
	d := s.CreateDestructor()
	require.True(t, s.IsNotDestroyed())
	require.True(t, d.Enabled())

	d.Disable()
	d.Close()
	require.True(t, s.IsNotDestroyed())

	d.Enable()
	d.Close()
	require.True(t, s.IsDestroyed())
}

func TestDispatchAvailableRejectsReentrantCall(t *testing.T) {
	s := newTestState(t)
	s.dispatching = true
	_, err := s.DispatchAvailable()
	require.Error(t, err)
	var re *ReentrantError
	require.ErrorAs(t, err, &re)
	s.dispatching = false
}

func TestDispatchAvailableAfterDestroyIsDestroyedError(t *testing.T) {
	s := newTestState(t)
	s.Destroy()
	_, err := s.DispatchAvailable()
	var de *DestroyedError
	require.ErrorAs(t, err, &de)
}

func TestPollFDReadyAfterDestroy(t *testing.T) {
	s := newTestState(t)
	s.Destroy()

	pollfd := []unix.PollFd{{Fd: int32(s.PollFD()), Events: unix.POLLIN}}
	n, err := unix.Poll(pollfd, 0)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NotZero(t, pollfd[0].Revents&unix.POLLIN)
}

func TestConnectRegistersClientWithDisplayAtID1(t *testing.T) {
	s := newTestState(t)
	client, peerFD, err := s.Connect()
	require.NoError(t, err)
	t.Cleanup(func() { client.Disconnect() })
	defer unix.Close(peerFD)

	obj, ok := client.Endpoint.Lookup(1)
	require.True(t, ok)
	require.Same(t, client.Display, obj)
}

type recordingHandler struct {
	clients []*endpoint.Client
}

func (h *recordingHandler) NewClient(c *endpoint.Client) {
	h.clients = append(h.clients, c)
}

func TestStateHandlerNewClientIsCalledOnConnect(t *testing.T) {
	s := newTestState(t)
	h := &recordingHandler{}
	s.SetHandler(h)

	client, peerFD, err := s.Connect()
	require.NoError(t, err)
	t.Cleanup(func() { client.Disconnect() })
	defer unix.Close(peerFD)

	require.Len(t, h.clients, 1)
	require.Same(t, client, h.clients[0])
}

func TestQueueFlushIsIdempotentPerEndpoint(t *testing.T) {
	s := newTestState(t)
	client, peerFD, err := s.Connect()
	require.NoError(t, err)
	t.Cleanup(func() { client.Disconnect() })
	defer unix.Close(peerFD)

	s.QueueFlush(client.Endpoint)
	s.QueueFlush(client.Endpoint)
	require.Len(t, s.flushableEndpoints, 1)
}
