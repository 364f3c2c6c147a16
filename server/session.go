package server

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/protocol"
)

// State is the session lifecycle: Unauthenticated -> Authenticated ->
// Closed, linear, no return transitions.
type State int32

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateClosed
)

// Session drives one accepted connection. A read goroutine handles
// commands strictly in arrival order; a write goroutine drains the
// outbound queue so pushes from other sessions never block on this
// client's socket.
type Session struct {
	srv  *Server
	conn net.Conn
	log  *slog.Logger

	state    atomic.Int32
	userID   string
	username string

	outbound  chan string
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(srv *Server, conn net.Conn) *Session {
	return &Session{
		srv:      srv,
		conn:     conn,
		log:      srv.log.With("remote", conn.RemoteAddr().String()),
		outbound: make(chan string, srv.cfg.OutboundBuffer),
		done:     make(chan struct{}),
	}
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Username returns the authenticated name, empty before login.
func (s *Session) Username() string {
	return s.username
}

// UserID returns the durable user ID, empty before login.
func (s *Session) UserID() string {
	return s.userID
}

// Run reads commands until the client disconnects, the stream fails, or
// LOGOUT closes the session. Cleanup runs exactly once whichever path
// ends the session.
func (s *Session) Run() {
	defer s.Close()
	go s.writeLoop()

	scanner := bufio.NewScanner(s.conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		s.handle(line)
		if s.State() == StateClosed {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.log.Debug("session read ended", "err", err)
	}
}

const maxLineBytes = 64 * 1024

// Push enqueues one line for delivery to this session's client. A full
// queue means the client cannot keep up; the session is closed rather
// than letting its backlog stall senders.
func (s *Session) Push(line string) error {
	if s.State() == StateClosed {
		return errors.ErrSessionClosed
	}
	select {
	case s.outbound <- line:
		return nil
	default:
		s.log.Warn("outbound queue overflow, closing slow session", "user", s.username)
		go s.Close()
		return errors.ErrSessionClosed
	}
}

// Close transitions the session to Closed, removes it from the registry
// synchronously with the transition, releases the connection, and
// triggers a roster broadcast when a registered user went away. Safe to
// call from any goroutine, any number of times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		wasAuthenticated := s.State() == StateAuthenticated
		s.state.Store(int32(StateClosed))
		s.srv.registry.Unregister(s)
		_ = s.conn.Close()
		close(s.done)
		s.log.Info("session closed", "user", s.username)
		if wasAuthenticated {
			s.srv.router.BroadcastRoster()
		}
	})
}

func (s *Session) writeLoop() {
	for {
		select {
		case line := <-s.outbound:
			if _, err := fmt.Fprintf(s.conn, "%s\n", line); err != nil {
				s.log.Debug("session write failed", "err", err)
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// handle parses and dispatches one command line. Protocol errors answer
// an ERR line and keep the connection open.
func (s *Session) handle(line string) {
	cmd, err := protocol.Parse(line)
	if err != nil {
		_ = s.Push(protocol.ErrMalformed)
		return
	}

	if s.State() != StateAuthenticated {
		switch c := cmd.(type) {
		case protocol.Register:
			s.handleRegister(c)
		case protocol.Login:
			s.handleLogin(c)
		case protocol.Unknown:
			_ = s.Push(protocol.ErrUnknownCommand)
		default:
			_ = s.Push(protocol.ErrNotAuthenticated)
		}
		return
	}

	switch c := cmd.(type) {
	case protocol.SendPrivate:
		s.srv.router.RoutePrivate(s, c.ToUsername, c.Content)
	case protocol.SendGroup:
		s.srv.router.RouteGroup(s, c.GroupID, c.Content)
	case protocol.CreateGroup:
		s.handleCreateGroup(c)
	case protocol.JoinGroup:
		s.handleJoinGroup(c)
	case protocol.PrivateHistory:
		s.handlePrivateHistory(c)
	case protocol.GroupHistory:
		s.handleGroupHistory(c)
	case protocol.ListUsers:
		s.handleListUsers()
	case protocol.Search:
		s.handleSearch(c)
	case protocol.Logout:
		s.Close()
	case protocol.Register, protocol.Login:
		_ = s.Push("ERR|Already authenticated")
	case protocol.Unknown:
		_ = s.Push(protocol.ErrUnknownCommand)
	}
}

func (s *Session) handleRegister(cmd protocol.Register) {
	req := auth.RegisterRequest{Username: cmd.Username, Password: cmd.Password}
	if err := auth.ValidateRegister(req); err != nil {
		s.log.Debug("register rejected", "user", cmd.Username, "err", err)
		_ = s.Push(protocol.RegisterFail)
		return
	}
	if err := s.srv.gateway.Register(cmd.Username, cmd.Password); err != nil {
		s.log.Debug("register failed", "user", cmd.Username, "err", err)
		_ = s.Push(protocol.RegisterFail)
		return
	}
	_ = s.Push(protocol.RegisterOK)
}

func (s *Session) handleLogin(cmd protocol.Login) {
	userID, err := s.srv.gateway.Authenticate(cmd.Username, cmd.Password)
	if err != nil {
		_ = s.Push(protocol.LoginFail)
		return
	}

	s.userID = userID
	s.username = cmd.Username
	s.state.Store(int32(StateAuthenticated))
	if !s.srv.registry.Register(cmd.Username, s) {
		// Already online from another connection.
		s.state.Store(int32(StateUnauthenticated))
		s.userID = ""
		s.username = ""
		_ = s.Push(protocol.LoginFail)
		return
	}

	s.log.Info("user logged in", "user", cmd.Username)
	_ = s.Push(protocol.LoginOK(userID, cmd.Username))
	s.srv.router.BroadcastRoster()
}

func (s *Session) handleCreateGroup(cmd protocol.CreateGroup) {
	groupID, err := s.srv.gateway.CreateGroup(cmd.Name, s.userID)
	if err != nil {
		s.log.Debug("group creation failed", "name", cmd.Name, "err", err)
		_ = s.Push(protocol.CreateGroupFail)
		return
	}
	// The creator joins their own group; a failure here leaves a valid
	// group the owner can still JOIN_GROUP into.
	if err := s.srv.gateway.AddMember(s.userID, groupID); err != nil {
		s.log.Warn("owner self-join failed", "group", groupID, "err", err)
	}
	_ = s.Push(protocol.CreateGroupOK(groupID))
}

func (s *Session) handleJoinGroup(cmd protocol.JoinGroup) {
	if err := s.srv.gateway.AddMember(s.userID, cmd.GroupID); err != nil {
		s.log.Debug("join failed", "group", cmd.GroupID, "err", err)
		_ = s.Push(protocol.JoinGroupFail)
		return
	}
	_ = s.Push(protocol.JoinGroupOK(cmd.GroupID))
}

func (s *Session) handlePrivateHistory(cmd protocol.PrivateHistory) {
	otherID, err := s.srv.gateway.UserIDByUsername(cmd.OtherUsername)
	if err != nil {
		_ = s.Push(protocol.PrivateHistoryFail)
		return
	}
	lines, err := s.srv.gateway.PrivateHistory(s.userID, otherID, s.srv.cfg.HistoryLimit)
	if err != nil {
		s.log.Warn("private history failed", "err", err)
		_ = s.Push(protocol.PrivateHistoryFail)
		return
	}
	for _, line := range lines {
		_ = s.Push(protocol.PrivateHistoryLine(line))
	}
	_ = s.Push(protocol.PrivateHistoryEnd)
}

func (s *Session) handleGroupHistory(cmd protocol.GroupHistory) {
	lines, err := s.srv.gateway.GroupHistory(cmd.GroupID, s.srv.cfg.HistoryLimit)
	if err != nil {
		s.log.Warn("group history failed", "group", cmd.GroupID, "err", err)
		_ = s.Push(protocol.GroupHistoryFail)
		return
	}
	for _, line := range lines {
		_ = s.Push(protocol.GroupHistoryLine(line))
	}
	_ = s.Push(protocol.GroupHistoryEnd)
}

func (s *Session) handleListUsers() {
	names, err := s.srv.gateway.AllUsernames()
	if err != nil {
		s.log.Warn("roster query failed", "err", err)
		_ = s.Push(protocol.UserFail)
		return
	}
	for _, name := range names {
		_ = s.Push(protocol.UserLine(name))
	}
	_ = s.Push(protocol.UserEnd)
}

func (s *Session) handleSearch(cmd protocol.Search) {
	lines, err := s.srv.gateway.SearchMessages(cmd.Terms, s.srv.cfg.SearchLimit)
	if err != nil {
		s.log.Warn("search failed", "err", err)
		_ = s.Push(protocol.SearchFail)
		return
	}
	for _, line := range lines {
		_ = s.Push(protocol.SearchLine(line))
	}
	_ = s.Push(protocol.SearchEnd)
}
