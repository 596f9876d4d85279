// Package ptysup forks+execs a child under a pseudoterminal, runs a
// single-threaded select-style loop that multiplexes the PTY master, the
// controlling TTY, and a signal-wakeup channel, and drives the
// capture-control state machine (prefix key, pause/resume, marker
// insertion, OSC-reply filtering).
package ptysup

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/tty-cast/castty/internal/asciicast"
	"github.com/tty-cast/castty/internal/sigchan"
	"github.com/tty-cast/castty/internal/tty"
)

// readChunk bounds a single PTY-master or TTY-stdin read.
const readChunk = 256 * 1024

// Sink is the subset of asyncwriter.Worker's API the supervisor drives.
// Kept as an interface so tests can substitute a recording fake.
type Sink interface {
	Stdout(t float64, data []byte)
	Stdin(t float64, data []byte)
	Resize(t float64, size asciicast.Size)
	Marker(t float64)
}

// KeyBindings configures the control-key state machine.
// Each opcode is a single byte; its Has flag set to false disables it.
type KeyBindings struct {
	Prefix    byte
	HasPrefix bool
	Pause     byte
	HasPause  bool
	Marker    byte
	HasMarker bool
}

// Config assembles everything the supervisor needs at construction.
type Config struct {
	Argv        []string
	Env         []string
	Sink        Sink
	GetTTYSize  func() (cols, rows int)
	Notify      func(string)
	KeyBindings KeyBindings
	Stdin       *os.File // defaults to os.Stdin
	Stdout      *os.File // defaults to os.Stdout
}

// Supervisor runs the PTY select loop once, synchronously, until the
// child exits.
type Supervisor struct {
	cfg       Config
	startTime time.Time
	pauseTime time.Time
	paused    bool
	pfxState  bool // true while in the Prefix control-key state
}

func New(cfg Config) *Supervisor {
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Notify == nil {
		cfg.Notify = func(string) {}
	}
	if cfg.GetTTYSize == nil {
		cfg.GetTTYSize = func() (int, int) { return tty.GetSize(int(cfg.Stdout.Fd())) }
	}
	return &Supervisor{cfg: cfg}
}

func (s *Supervisor) now() float64 {
	return time.Since(s.startTime).Seconds()
}

// Run spawns the child and drives the select loop until the master EOFs,
// then reaps the child.
func (s *Supervisor) Run() error {
	if len(s.cfg.Argv) == 0 {
		return fmt.Errorf("ptysup: empty argv")
	}

	cmd := exec.Command(s.cfg.Argv[0], s.cfg.Argv[1:]...)
	cmd.Env = append(append([]string(nil), s.cfg.Env...), "ASCIINEMA_REC=1")

	cols, rows := s.cfg.GetTTYSize()
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
	if err != nil {
		return fmt.Errorf("ptysup: start pty: %w", err)
	}
	masterFd := int(ptmx.Fd())
	if err := unix.SetNonblock(masterFd, true); err != nil {
		ptmx.Close()
		return fmt.Errorf("ptysup: set nonblocking: %w", err)
	}
	s.startTime = time.Now()

	sig, err := sigchan.Open()
	if err != nil {
		ptmx.Close()
		return fmt.Errorf("ptysup: signal channel: %w", err)
	}
	defer sig.Close()

	stdinFd := int(s.cfg.Stdin.Fd())
	restore, err := tty.Raw(stdinFd)
	if err != nil {
		ptmx.Close()
		return fmt.Errorf("ptysup: raw mode: %w", err)
	}
	defer restore()

	err = s.selectLoop(ptmx, stdinFd, sig)

	ptmx.Close()
	cmd.Wait()
	return err
}

func (s *Supervisor) selectLoop(ptmx *os.File, stdinFd int, sig *sigchan.Channel) error {
	masterFd := int(ptmx.Fd())
	sigFd := sig.ReadFd()
	stdoutFd := int(s.cfg.Stdout.Fd())

	watchStdin := true
	watchSig := true
	var pending []byte

	readBuf := make([]byte, readChunk)
	sigBuf := make([]byte, 16)

	for {
		pollFds := []unix.PollFd{{Fd: int32(masterFd), Events: unix.POLLIN}}
		if len(pending) > 0 {
			pollFds[0].Events |= unix.POLLOUT
		}
		stdinIdx, sigIdx := -1, -1
		if watchStdin {
			pollFds = append(pollFds, unix.PollFd{Fd: int32(stdinFd), Events: unix.POLLIN})
			stdinIdx = len(pollFds) - 1
		}
		if watchSig {
			pollFds = append(pollFds, unix.PollFd{Fd: int32(sigFd), Events: unix.POLLIN})
			sigIdx = len(pollFds) - 1
		}

		_, err := unix.Poll(pollFds, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("ptysup: poll: %w", err)
		}

		if pollFds[0].Revents&unix.POLLIN != 0 {
			n, rerr := unix.Read(masterFd, readBuf)
			if n > 0 {
				if err := writeAll(stdoutFd, readBuf[:n]); err != nil {
					s.cfg.Notify(fmt.Sprintf("write to terminal failed: %v", err))
				}
				if !s.paused {
					s.cfg.Sink.Stdout(s.now(), readBuf[:n])
				}
			}
			if rerr != nil && rerr != unix.EAGAIN {
				// EOF (or any other read error) ends the loop: the child's
				// output side is done.
				return nil
			}
			if n == 0 && rerr == nil {
				return nil
			}
		}

		if stdinIdx >= 0 && pollFds[stdinIdx].Revents&unix.POLLIN != 0 {
			n, rerr := unix.Read(stdinFd, readBuf)
			if rerr != nil && rerr != unix.EAGAIN {
				watchStdin = false
			} else if n == 0 {
				watchStdin = false
			} else {
				pending = append(pending, s.handleStdin(readBuf[:n])...)
			}
		}

		if sigIdx >= 0 && pollFds[sigIdx].Revents&unix.POLLIN != 0 {
			n, _ := sig.Drain(sigBuf)
			for i := 0; i < n; i++ {
				switch unix.Signal(sigBuf[i]) {
				case unix.SIGWINCH:
					cols, rows := s.cfg.GetTTYSize()
					tty.SetSize(masterFd, cols, rows)
					s.cfg.Sink.Resize(s.now(), asciicast.Size{Cols: cols, Rows: rows})
				case unix.SIGCHLD, unix.SIGHUP, unix.SIGTERM, unix.SIGQUIT:
					watchSig = false
				}
			}
		}

		if len(pending) > 0 && pollFds[0].Revents&unix.POLLOUT != 0 {
			n, werr := unix.Write(masterFd, pending)
			if n > 0 {
				pending = pending[n:]
			}
			if werr != nil && werr != unix.EAGAIN {
				return fmt.Errorf("ptysup: write to master: %w", werr)
			}
		}
	}
}

func writeAll(fd int, p []byte) error {
	for len(p) > 0 {
		n, err := unix.Write(fd, p)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return err
		}
		p = p[n:]
	}
	return nil
}

// isOSCReply reports whether chunk looks like a terminal answerback —
// starts with ESC ']' and ends with BEL.
func isOSCReply(chunk []byte) bool {
	return len(chunk) >= 3 && chunk[0] == 0x1b && chunk[1] == ']' && chunk[len(chunk)-1] == 0x07
}

// handleStdin runs the control-key state machine over a chunk read from
// the controlling TTY and returns the bytes that should be written to the
// child. OSC replies are forwarded untouched and never recorded or
// treated as control keys.
func (s *Supervisor) handleStdin(chunk []byte) []byte {
	if isOSCReply(chunk) {
		return append([]byte(nil), chunk...)
	}

	toChild := make([]byte, 0, len(chunk))
	var run []byte
	flush := func() {
		if len(run) == 0 {
			return
		}
		toChild = append(toChild, run...)
		if !s.paused {
			s.cfg.Sink.Stdin(s.now(), run)
		}
		run = nil
	}

	kb := s.cfg.KeyBindings
	for _, b := range chunk {
		if s.pfxState {
			s.applyCommand(b, kb)
			s.pfxState = false
			continue
		}
		if kb.HasPrefix && b == kb.Prefix {
			flush()
			s.pfxState = true
			continue
		}
		if !kb.HasPrefix && ((kb.HasPause && b == kb.Pause) || (kb.HasMarker && b == kb.Marker)) {
			flush()
			s.applyCommand(b, kb)
			continue
		}
		run = append(run, b)
	}
	flush()
	return toChild
}

// applyCommand dispatches pause or add-marker for byte b.
func (s *Supervisor) applyCommand(b byte, kb KeyBindings) {
	switch {
	case kb.HasPause && b == kb.Pause:
		s.togglePause()
	case kb.HasMarker && b == kb.Marker:
		s.cfg.Sink.Marker(s.now())
		s.cfg.Notify("Marker added")
	}
}

func (s *Supervisor) togglePause() {
	now := time.Now()
	if !s.paused {
		s.paused = true
		s.pauseTime = now
		s.cfg.Notify("Paused recording")
		return
	}
	s.paused = false
	s.startTime = s.startTime.Add(now.Sub(s.pauseTime))
	s.pauseTime = time.Time{}
	s.cfg.Notify("Resumed recording")
}
