// transport.go: child process stdio transport for plugin communication
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package barkplugins

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"sync"
)

// Transport owns one plugin child process and its standard input/output
// pipes. All plugin communication, persistent or ephemeral, goes
// through a Transport.
//
// The protocol is strictly half-duplex: callers must not Send again
// until the Receive for the previous Send has completed. There are no
// request IDs and no pipelining. SessionManager and EphemeralInvoker
// both enforce this serialization; Transport itself only guards its
// internal state.
//
// The child's standard error is connected to the null device: plugins
// are free to write diagnostics there, and the host never reads them.
// The child process lifetime is tied 1:1 to the Transport; a Transport
// that is never killed leaks a process.
type Transport struct {
	path string
	cmd  *exec.Cmd

	writeMu sync.Mutex
	stdin   io.WriteCloser
	writer  *bufio.Writer

	// lines carries newline-terminated responses from the reader
	// goroutine, one line at a time. The channel is unbuffered, so the
	// loop holds at most the line it is currently offering. It is
	// closed when the pipe closes.
	lines     chan string
	readCause error

	// done releases a reader goroutine blocked on handing over a line
	// nobody will receive. Closed by Kill before the process dies.
	done chan struct{}

	exited   chan struct{}
	killOnce sync.Once

	logger Logger
}

// Spawn launches the plugin executable with stdin/stdout connected as
// pipes and stderr discarded. The returned Transport is ready for
// Send/Receive immediately; the caller owns the process and must call
// Kill when done.
func Spawn(path string, logger Logger) (*Transport, error) {
	logger = NewLogger(logger)

	cmd := exec.Command(path)
	// Stderr stays nil: exec connects it to the null device.

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, NewSpawnError(path, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, NewSpawnError(path, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, NewSpawnError(path, err)
	}

	t := &Transport{
		path:   path,
		cmd:    cmd,
		stdin:  stdin,
		writer: bufio.NewWriter(stdin),
		lines:  make(chan string),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		logger: logger.With("executable", path, "pid", cmd.Process.Pid),
	}

	go t.readLoop(stdout)
	go func() {
		_ = cmd.Wait()
		close(t.exited)
	}()

	t.logger.Debug("Plugin process spawned")
	return t, nil
}

// readLoop pulls one newline-terminated line at a time off the child's
// stdout and hands it to Receive. The unbuffered handoff means the
// loop never reads ahead of the consumer, and a Kill releases it even
// while it is blocked offering a line.
func (t *Transport) readLoop(stdout io.Reader) {
	reader := bufio.NewReader(stdout)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// A final unterminated fragment is not a valid protocol
			// line; the pipe is closing either way.
			t.readCause = err
			close(t.lines)
			return
		}
		select {
		case t.lines <- line[:len(line)-1]:
		case <-t.done:
			return
		}
	}
}

// Send writes one request line plus the newline terminator to the
// child's stdin and flushes before returning. It fails with a
// transport-closed error when the child has exited or closed its
// stdin pipe.
func (t *Transport) Send(line []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	select {
	case <-t.exited:
		return NewTransportClosedError(io.ErrClosedPipe)
	default:
	}

	if _, err := t.writer.Write(line); err != nil {
		return NewTransportClosedError(err)
	}
	if err := t.writer.WriteByte('\n'); err != nil {
		return NewTransportClosedError(err)
	}
	if err := t.writer.Flush(); err != nil {
		return NewTransportClosedError(err)
	}
	return nil
}

// Receive blocks until exactly one response line is available, the pipe
// closes (transport-closed error), or ctx expires (transport-timeout
// error). Callers bound every Receive with a deadline so one stalled
// plugin cannot stall the host.
func (t *Transport) Receive(ctx context.Context) (string, error) {
	// Prefer an already-buffered line over a concurrently expiring ctx.
	select {
	case line, ok := <-t.lines:
		if !ok {
			return "", NewTransportClosedError(t.readCause)
		}
		return line, nil
	default:
	}

	select {
	case line, ok := <-t.lines:
		if !ok {
			return "", NewTransportClosedError(t.readCause)
		}
		return line, nil
	case <-t.done:
		return "", NewTransportClosedError(io.ErrClosedPipe)
	case <-ctx.Done():
		return "", NewTransportTimeoutError("receive").WithContext("cause", ctx.Err().Error())
	}
}

// Alive reports whether the child process is still running.
func (t *Transport) Alive() bool {
	select {
	case <-t.exited:
		return false
	default:
		return true
	}
}

// Pid returns the child process ID.
func (t *Transport) Pid() int {
	return t.cmd.Process.Pid
}

// Path returns the executable this transport was spawned from.
func (t *Transport) Path() string {
	return t.path
}

// Kill terminates the child process. It is idempotent and best-effort:
// errors from an already-exited process are ignored. Protocol-level
// farewells (the disconnect command) are the caller's responsibility
// and must happen before Kill.
func (t *Transport) Kill() {
	t.killOnce.Do(func() {
		close(t.done)

		t.writeMu.Lock()
		_ = t.stdin.Close()
		t.writeMu.Unlock()

		if t.Alive() {
			_ = t.cmd.Process.Kill()
		}
		<-t.exited
		t.logger.Debug("Plugin process terminated")
	})
}
