// Package sigchan is a process-wide, scoped bridge that delivers
// SIGWINCH/SIGCHLD/SIGHUP/SIGTERM/SIGQUIT arrival as readable bytes on
// a non-blocking pipe, so a single select loop can treat signals the
// same as any other readable fd.
package sigchan

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// watched lists the signals this channel bridges.
var watched = []os.Signal{syscall.SIGWINCH, syscall.SIGCHLD, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT}

// Channel is the scoped resource: Open installs no-op handlers and a
// wakeup pipe; Close restores whatever was there before.
type Channel struct {
	readFd  int
	writeFd int
	rf      *os.File
	sigCh   chan os.Signal
	done    chan struct{}
}

// Open installs signal handling for the watched set and starts relaying
// each arrival to the pipe's write end as its signal number byte. The
// returned Channel's ReadFd is the handle a select loop polls.
func Open() (*Channel, error) {
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, err
	}
	c := &Channel{
		readFd:  fds[0],
		writeFd: fds[1],
		rf:      os.NewFile(uintptr(fds[0]), "sigchan-read"),
		sigCh:   make(chan os.Signal, 16),
		done:    make(chan struct{}),
	}
	signal.Notify(c.sigCh, watched...)
	go c.relay()
	return c, nil
}

// relay translates every signal delivered to sigCh into a single byte
// written to the wakeup pipe, never blocking on a full pipe.
func (c *Channel) relay() {
	for {
		select {
		case sig, ok := <-c.sigCh:
			if !ok {
				return
			}
			n := signum(sig)
			unix.Write(c.writeFd, []byte{byte(n)})
		case <-c.done:
			return
		}
	}
}

func signum(sig os.Signal) unix.Signal {
	if s, ok := sig.(syscall.Signal); ok {
		return unix.Signal(s)
	}
	return 0
}

// ReadFd is the handle a select/poll loop should watch for readability.
func (c *Channel) ReadFd() int { return c.readFd }

// Drain reads up to len(buf) pending signal-number bytes, non-blocking.
func (c *Channel) Drain(buf []byte) (int, error) {
	n, err := unix.Read(c.readFd, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// Close restores the prior signal handlers and closes the pipe.
func (c *Channel) Close() error {
	signal.Stop(c.sigCh)
	close(c.done)
	close(c.sigCh)
	c.rf.Close()
	return unix.Close(c.writeFd)
}
