// Package acceptor implements the filesystem-visible AF_UNIX socket a
// proxy listens on, grounded on
// original_source/wl-proxy/src/acceptor.rs.
package acceptor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

const defaultBacklog = 1024

// ErrAddressesInUse is returned by New when every wayland-N name in
// [1, maxTries) is already bound.
var ErrAddressesInUse = errors.New("all wayland addresses in the given range are already in use")

// Acceptor owns a bound, listening AF_UNIX socket named wayland-N
// inside XDG_RUNTIME_DIR, plus the flock'd lock file that arbitrates
// which process gets to claim a given N.
type Acceptor struct {
	ID      uint64
	socket  int
	lockFD  int
	display string
}

// New allocates the first unused wayland-N name with N in [1,
// maxTries), logging each name it tries and skips to log at debug
// level. If nonBlocking is true, the listening socket (and hence
// every fd Accept hands back indirectly through it) is created
// non-blocking, and Accept returns (0, false, nil) instead of
// blocking when there is no pending connection -- pair it with a
// wlpoll.Poller in that mode.
func New(log zerolog.Logger, id uint64, maxTries uint32, nonBlocking bool) (*Acceptor, error) {
	xrd := os.Getenv("XDG_RUNTIME_DIR")
	if xrd == "" {
		return nil, fmt.Errorf("acceptor: XDG_RUNTIME_DIR is not set")
	}

	sockType := unix.SOCK_STREAM | unix.SOCK_CLOEXEC
	if nonBlocking {
		sockType |= unix.SOCK_NONBLOCK
	}
	sock, err := unix.Socket(unix.AF_UNIX, sockType, 0)
	if err != nil {
		return nil, fmt.Errorf("acceptor: could not create a socket: %w", err)
	}

	for i := uint32(1); i < maxTries; i++ {
		lockFD, display, err := bindSocket(sock, xrd, i)
		if err != nil {
			log.Debug().Uint32("n", i).Err(err).Msg("cannot use this wayland socket name")
			continue
		}
		if err := unix.Listen(sock, defaultBacklog); err != nil {
			unix.Close(sock)
			return nil, fmt.Errorf("acceptor: could not start listening: %w", err)
		}
		return &Acceptor{ID: id, socket: sock, lockFD: lockFD, display: display}, nil
	}
	unix.Close(sock)
	return nil, ErrAddressesInUse
}

// maxSunPath is the size of sockaddr_un.sun_path on Linux.
const maxSunPath = 108

func bindSocket(sock int, xrd string, n uint32) (lockFD int, display string, err error) {
	display = fmt.Sprintf("wayland-%d", n)
	path := filepath.Join(xrd, display)
	lockPath := path + ".lock"

	if len(path)+1 > maxSunPath {
		return -1, "", fmt.Errorf("acceptor: %q is too long for a unix socket address", xrd)
	}

	lockFD, err = unix.Open(lockPath, unix.O_CREAT|unix.O_CLOEXEC|unix.O_RDWR, 0o644)
	if err != nil {
		return -1, "", fmt.Errorf("acceptor: could not open the lock file: %w", err)
	}
	if err := unix.Flock(lockFD, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(lockFD)
		return -1, "", fmt.Errorf("acceptor: could not lock the lock file: %w", err)
	}

	if _, statErr := os.Lstat(path); statErr == nil {
		_ = os.Remove(path)
	} else if !os.IsNotExist(statErr) {
		unix.Close(lockFD)
		return -1, "", fmt.Errorf("acceptor: could not stat the existing socket: %w", statErr)
	}

	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(sock, addr); err != nil {
		unix.Close(lockFD)
		return -1, "", fmt.Errorf("acceptor: could not bind the socket: %w", err)
	}
	return lockFD, display, nil
}

// Display returns the socket's display name, e.g. "wayland-1".
func (a *Acceptor) Display() string { return a.display }

// FD returns the listening socket's file descriptor, for registering
// with a wlpoll.Poller. Do not close or otherwise mutate it directly.
func (a *Acceptor) FD() int { return a.socket }

// Setenv sets the WAYLAND_DISPLAY environment variable to this
// acceptor's display name.
func (a *Acceptor) Setenv() error {
	return os.Setenv("WAYLAND_DISPLAY", a.display)
}

// Accept accepts one pending connection. ok is false only when this
// acceptor is non-blocking and no connection is currently pending.
// In non-blocking mode the returned fd is non-blocking as well.
func (a *Acceptor) Accept() (fd int, ok bool, err error) {
	flags := unix.SOCK_CLOEXEC
	if fl, ferr := unix.FcntlInt(uintptr(a.socket), unix.F_GETFL, 0); ferr == nil && fl&unix.O_NONBLOCK != 0 {
		flags |= unix.SOCK_NONBLOCK
	}
	for {
		connFD, _, err := unix.Accept4(a.socket, flags)
		if err == nil {
			return connFD, true, nil
		}
		if errors.Is(err, unix.EAGAIN) {
			return 0, false, nil
		}
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return 0, false, fmt.Errorf("acceptor: could not accept a connection: %w", err)
	}
}

// Close releases the listening socket and lock file. It does not
// unlink the wayland-N path; a later Acceptor bound to the same name
// will reclaim and re-bind it.
func (a *Acceptor) Close() error {
	err1 := unix.Close(a.socket)
	err2 := unix.Close(a.lockFD)
	if err1 != nil {
		return err1
	}
	return err2
}
