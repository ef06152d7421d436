// session.go: persistent provider sessions and their lifecycle
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package barkplugins

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"
)

// DefaultCallTimeout bounds one provider round trip over an
// established session.
const DefaultCallTimeout = 30 * time.Second

// Session is one live connection to a provider plugin: a child process
// plus the provider-issued session identifier that scopes every
// request.
//
// State machine:
//
//	Connecting -> Connected <-> Cached -> Disconnected
//
// Connected and Cached both mean the process is running; Cached marks
// a session whose pane has navigated away but whose connection is kept
// warm for instant return. Disconnected is terminal for the process,
// not for the connection: the retained config allows a transparent
// reconnect on the next use of a Cached session whose process died.
//
// All provider calls on one session are serialized by the session
// mutex; the wire protocol has no request IDs, so at most one request
// may be in flight per process.
type Session struct {
	descriptor *PluginDescriptor
	handle     string

	mu         sync.Mutex
	id         string
	transport  *Transport
	config     ProviderConfig
	shortLabel string
	state      SessionState
	lastUsed   time.Time

	callTimeout time.Duration
	logger      Logger
}

// Handle returns the manager-assigned session address. Unlike the
// wire identifier it never changes, so it is the key for Get,
// Disconnect and any UI bookkeeping.
func (s *Session) Handle() string {
	return s.handle
}

// ID returns the provider-issued session identifier that scopes wire
// requests. It changes on transparent reconnect; address the session
// by Handle instead.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Descriptor returns the provider plugin backing this session.
func (s *Session) Descriptor() *PluginDescriptor {
	return s.descriptor
}

// DisplayName returns the user-chosen connection name, falling back to
// the plugin name.
func (s *Session) DisplayName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config.Name != "" {
		return s.config.Name
	}
	return s.descriptor.Name
}

// ShortLabel returns the compact label the provider supplied on
// connect, for tab-style UI surfaces. Empty when the provider sent
// none.
func (s *Session) ShortLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shortLabel
}

// HomePath returns the initial directory for this connection.
func (s *Session) HomePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.HomePath()
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastUsed returns the time of the last provider call (or the connect,
// whichever is later).
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Cache moves a Connected session to Cached. The process stays alive;
// the session remains fully usable, and the next call promotes it back
// to Connected. Caching a Disconnected session is a no-op.
func (s *Session) Cache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConnected {
		s.state = StateCached
	}
}

// roundTrip performs one serialized request/response exchange. It
// promotes a Cached session back to Connected first, reconnecting
// transparently when the cached process has died. Any transport
// failure mid-exchange kills the process and moves the session to
// Disconnected; the caller sees a connection-class error.
func (s *Session) roundTrip(ctx context.Context, op string, encode func(sessionID string) ([]byte, error)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateConnected:
	case StateCached:
		if err := s.promoteLocked(ctx); err != nil {
			return "", err
		}
	default:
		return "", NewSessionStateError(s.state, op)
	}

	request, err := encode(s.id)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	if err := s.transport.Send(request); err != nil {
		s.failLocked(op, err)
		return "", NewProviderError(ProviderErrConnection, "provider process unavailable")
	}
	line, err := s.transport.Receive(ctx)
	if err != nil {
		s.failLocked(op, err)
		if IsTransportTimeout(err) {
			return "", err
		}
		return "", NewProviderError(ProviderErrConnection, "provider process unavailable")
	}

	s.lastUsed = timecache.CachedTime()
	return line, nil
}

// promoteLocked returns a Cached session to Connected. A live process
// is promoted in place; a dead one is replaced by a fresh connect with
// the retained config, yielding a new session identifier.
func (s *Session) promoteLocked(ctx context.Context) error {
	if s.transport.Alive() {
		s.state = StateConnected
		return nil
	}

	s.logger.Info("Cached session process died, reconnecting",
		"plugin", s.descriptor.Name, "connection", s.config.Name)
	s.transport.Kill()

	transport, result, err := connectTransport(ctx, s.descriptor, s.config, s.callTimeout, s.logger)
	if err != nil {
		s.state = StateDisconnected
		return err
	}
	s.transport = transport
	s.id = result.SessionID
	s.shortLabel = result.ShortLabel
	s.state = StateConnected
	s.lastUsed = timecache.CachedTime()
	return nil
}

// failLocked records a transport failure: the process is killed and
// the session goes Disconnected.
func (s *Session) failLocked(op string, cause error) {
	s.logger.Warn("Session transport failed",
		"plugin", s.descriptor.Name,
		"connection", s.config.Name,
		"operation", op,
		"error", cause)
	s.transport.Kill()
	s.state = StateDisconnected
}

// ListDirectory lists one directory of the provider's backing store.
func (s *Session) ListDirectory(ctx context.Context, path string) ([]FileEntry, error) {
	line, err := s.roundTrip(ctx, cmdListDirectory, func(sid string) ([]byte, error) {
		return EncodeListDirectory(sid, path)
	})
	if err != nil {
		return nil, err
	}
	return DecodeEntries(line, path)
}

// ReadFile reads a whole file from the provider.
func (s *Session) ReadFile(ctx context.Context, path string) ([]byte, error) {
	line, err := s.roundTrip(ctx, cmdReadFile, func(sid string) ([]byte, error) {
		return EncodeReadFile(sid, path)
	})
	if err != nil {
		return nil, err
	}
	return DecodeData(line)
}

// WriteFile writes a whole file through the provider, creating or
// replacing it.
func (s *Session) WriteFile(ctx context.Context, path string, data []byte) error {
	line, err := s.roundTrip(ctx, cmdWriteFile, func(sid string) ([]byte, error) {
		return EncodeWriteFile(sid, path, data)
	})
	if err != nil {
		return err
	}
	return DecodeSuccess(line)
}

// Delete removes a file or, with recursive set, a directory tree.
func (s *Session) Delete(ctx context.Context, path string, recursive bool) error {
	line, err := s.roundTrip(ctx, cmdDelete, func(sid string) ([]byte, error) {
		return EncodeDelete(sid, path, recursive)
	})
	if err != nil {
		return err
	}
	return DecodeSuccess(line)
}

// Mkdir creates a directory.
func (s *Session) Mkdir(ctx context.Context, path string) error {
	line, err := s.roundTrip(ctx, cmdMkdir, func(sid string) ([]byte, error) {
		return EncodeMkdir(sid, path)
	})
	if err != nil {
		return err
	}
	return DecodeSuccess(line)
}

// Rename moves a file or directory within the provider.
func (s *Session) Rename(ctx context.Context, from, to string) error {
	line, err := s.roundTrip(ctx, cmdRename, func(sid string) ([]byte, error) {
		return EncodeRename(sid, from, to)
	})
	if err != nil {
		return err
	}
	return DecodeSuccess(line)
}

// CopyFile copies a single file within the provider.
func (s *Session) CopyFile(ctx context.Context, from, to string) error {
	line, err := s.roundTrip(ctx, cmdCopy, func(sid string) ([]byte, error) {
		return EncodeCopyFile(sid, from, to)
	})
	if err != nil {
		return err
	}
	return DecodeSuccess(line)
}

// SetAttributes applies a modification time and permission bits to a
// remote path after a copy. Providers that cannot honor it report an
// error, which is logged and dropped: attribute preservation is
// best-effort and never fails the transfer that triggered it.
func (s *Session) SetAttributes(ctx context.Context, path string, modified *time.Time, permissions uint32) {
	line, err := s.roundTrip(ctx, cmdSetAttributes, func(sid string) ([]byte, error) {
		return EncodeSetAttributes(sid, path, modified, permissions)
	})
	if err == nil {
		err = DecodeSuccess(line)
	}
	if err != nil {
		s.logger.Debug("set_attributes ignored",
			"plugin", s.descriptor.Name, "path", path, "error", err)
	}
}

// SessionManager owns every provider session in the program. It hands
// out sessions on Connect, finds them again by handle, and tears them
// down on Disconnect, on idle eviction and on shutdown.
//
// Sessions are addressed by a manager-generated handle, not by the
// provider-issued session identifier: wire identifiers are unique only
// within one plugin process lifetime, so they may collide across
// plugins and are replaced by transparent reconnects.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	handleSeq   atomic.Uint64
	callTimeout time.Duration
	logger      Logger
}

// NewSessionManager creates an empty manager. A zero timeout selects
// DefaultCallTimeout.
func NewSessionManager(callTimeout time.Duration, logger Logger) *SessionManager {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &SessionManager{
		sessions:    make(map[string]*Session),
		callTimeout: callTimeout,
		logger:      NewLogger(logger),
	}
}

// connectTransport spawns the provider and performs the connect
// handshake, returning a live transport and the provider's connect
// result. The spawned process is killed on any failure.
func connectTransport(ctx context.Context, desc *PluginDescriptor, cfg ProviderConfig, timeout time.Duration, logger Logger) (*Transport, ConnectResult, error) {
	transport, err := Spawn(desc.Path, logger)
	if err != nil {
		return nil, ConnectResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	request, err := EncodeConnect(cfg)
	if err != nil {
		transport.Kill()
		return nil, ConnectResult{}, err
	}
	if err := transport.Send(request); err != nil {
		transport.Kill()
		return nil, ConnectResult{}, err
	}
	line, err := transport.Receive(ctx)
	if err != nil {
		transport.Kill()
		return nil, ConnectResult{}, err
	}
	result, err := DecodeConnect(line)
	if err != nil {
		transport.Kill()
		return nil, ConnectResult{}, err
	}
	return transport, result, nil
}

// Connect establishes a new session against a provider plugin. The
// process is spawned, the connect handshake runs under the call
// timeout, and on success the session starts in the Connected state.
func (m *SessionManager) Connect(ctx context.Context, desc *PluginDescriptor, cfg ProviderConfig) (*Session, error) {
	transport, result, err := connectTransport(ctx, desc, cfg, m.callTimeout, m.logger)
	if err != nil {
		return nil, err
	}

	session := &Session{
		descriptor:  desc,
		handle:      fmt.Sprintf("%s-%d", desc.Name, m.handleSeq.Add(1)),
		id:          result.SessionID,
		transport:   transport,
		config:      cfg,
		shortLabel:  result.ShortLabel,
		state:       StateConnected,
		lastUsed:    timecache.CachedTime(),
		callTimeout: m.callTimeout,
		logger:      m.logger,
	}

	m.mu.Lock()
	m.sessions[session.handle] = session
	m.mu.Unlock()

	m.logger.Info("Provider session established",
		"plugin", desc.Name,
		"connection", cfg.Name,
		"handle", session.handle,
		"session_id", session.id)
	return session, nil
}

// Get returns the session with the given handle, or nil. Handles stay
// valid across transparent reconnects, which replace the wire
// identifier but never the handle.
func (m *SessionManager) Get(handle string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[handle]
}

// Sessions returns a snapshot of every managed session.
func (m *SessionManager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Disconnect tears down the session with the given handle: a
// best-effort disconnect command gives the provider a chance to
// release server-side resources, then the process is killed
// unconditionally. Disconnecting an unknown handle or an
// already-disconnected session is a no-op.
func (m *SessionManager) Disconnect(ctx context.Context, handle string) {
	m.mu.Lock()
	session, ok := m.sessions[handle]
	if ok {
		delete(m.sessions, handle)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	m.teardown(ctx, session)
}

// teardown runs the farewell-then-kill sequence and marks the session
// Disconnected.
func (m *SessionManager) teardown(ctx context.Context, session *Session) {
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.state == StateDisconnected {
		return
	}

	if session.transport.Alive() {
		if request, err := EncodeDisconnect(session.id); err == nil {
			ctx, cancel := context.WithTimeout(ctx, m.callTimeout)
			if session.transport.Send(request) == nil {
				// The reply is drained only to let the provider finish
				// its farewell; its content does not matter.
				_, _ = session.transport.Receive(ctx)
			}
			cancel()
		}
	}
	session.transport.Kill()
	session.state = StateDisconnected

	m.logger.Info("Provider session closed",
		"plugin", session.descriptor.Name,
		"connection", session.config.Name,
		"handle", session.handle)
}

// EvictIdle disconnects Cached sessions that have been unused for
// longer than maxIdle. A maxIdle of zero disables eviction. Connected
// sessions are never evicted regardless of age: an open pane owns its
// connection.
func (m *SessionManager) EvictIdle(ctx context.Context, maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := timecache.CachedTime().Add(-maxIdle)

	m.mu.Lock()
	var stale []*Session
	for handle, session := range m.sessions {
		if session.State() == StateCached && session.LastUsed().Before(cutoff) {
			stale = append(stale, session)
			delete(m.sessions, handle)
		}
	}
	m.mu.Unlock()

	for _, session := range stale {
		m.teardown(ctx, session)
	}
	return len(stale)
}

// CloseAll disconnects every session, used on shutdown.
func (m *SessionManager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		all = append(all, session)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, session := range all {
		m.teardown(ctx, session)
	}
}
