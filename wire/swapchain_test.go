package wire

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func socketpair(t *testing.T) (a, b int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestSwapchainFlushAndInputBufferFill(t *testing.T) {
	a, b := socketpair(t)

	var out OutputSwapchain
	buf := out.BeginMessage(HeaderSize + 4)
	EncodeMessage(buf, 1, 0, []byte{9, 0, 0, 0})

	res, err := out.Flush(a)
	require.NoError(t, err)
	require.Equal(t, FlushDone, res)

	in := NewInputBuffer()
	closed, err := in.FillFromSocket(b)
	require.NoError(t, err)
	require.False(t, closed)

	hdr, ok, err := in.Peek()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(1), hdr.SenderID)
	require.Equal(t, uint16(0), hdr.Opcode)
	require.Equal(t, uint16(HeaderSize+4), hdr.Size)

	payload := in.Take(hdr)
	require.Equal(t, []byte{9, 0, 0, 0}, payload)
}

func TestSwapchainCarriesFileDescriptors(t *testing.T) {
	a, b := socketpair(t)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	var out OutputSwapchain
	out.QueueFD(w)
	buf := out.BeginMessage(HeaderSize)
	EncodeMessage(buf, 1, 0, nil)

	_, err = out.Flush(a)
	require.NoError(t, err)

	in := NewInputBuffer()
	_, err = in.FillFromSocket(b)
	require.NoError(t, err)

	require.Equal(t, 1, in.FDs().Len())
	got, ok := in.FDs().Pop()
	require.True(t, ok)
	defer got.Close()

	_, err = w.WriteString("x")
	require.NoError(t, err)
	out2 := make([]byte, 1)
	n, err := got.Read(out2)
	require.NoError(t, err)
	require.Equal(t, "x", string(out2[:n]))
}

func TestFlushAcrossMultipleMessages(t *testing.T) {
	a, b := socketpair(t)

	var out OutputSwapchain
	for i := 0; i < 3; i++ {
		buf := out.BeginMessage(HeaderSize + 4)
		EncodeMessage(buf, uint32(i+1), 0, []byte{byte(i), 0, 0, 0})
	}
	_, err := out.Flush(a)
	require.NoError(t, err)

	in := NewInputBuffer()
	_, err = in.FillFromSocket(b)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		hdr, ok, err := in.Peek()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, uint32(i+1), hdr.SenderID)
		payload := in.Take(hdr)
		require.Equal(t, byte(i), payload[0])
	}
}
