// Package tty puts the controlling terminal into raw mode within a
// scoped guard, queries its size, and reads keys with a bounded wait.
package tty

import (
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Raw puts fd into raw mode and returns a restore function that must be
// called to undo it. If fd is not a TTY, both the switch and the restore
// are no-ops. Restore sleeps briefly before reverting
// termios so answerback sequences already in flight aren't dropped.
func Raw(fd int) (restore func(), err error) {
	if !term.IsTerminal(fd) {
		return func() {}, nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() {
		time.Sleep(10 * time.Millisecond)
		term.Restore(fd, state)
	}, nil
}

// GetSize returns (cols, rows) via TIOCGWINSZ, falling back to (80, 24)
// when fd is not a TTY.
func GetSize(fd int) (cols, rows int) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 || ws.Row == 0 {
		return 80, 24
	}
	return int(ws.Col), int(ws.Row)
}

// SetSize programs fd's window size via TIOCSWINSZ.
func SetSize(fd, cols, rows int) error {
	return unix.IoctlSetWinsize(fd, unix.TIOCSWINSZ, &unix.Winsize{
		Row: uint16(rows), Col: uint16(cols),
	})
}

// ReadKey waits up to timeout for fd to become readable and returns up to
// 1024 bytes. On timeout it returns an empty, nil-error slice. A timeout of
// 0 makes the read non-blocking.
func ReadKey(fd int, timeout time.Duration) ([]byte, error) {
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	ms := int(timeout / time.Millisecond)
	n, err := unix.Poll(pfd, ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, 1024)
	m, err := unix.Read(fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	return buf[:m], nil
}
