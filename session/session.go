// Package session wraps a single MySQL client connection with the
// liveness probing, age tracking and recovery the pool needs.
package session

import (
	"errors"
	"time"

	"github.com/go-mysql-org/go-mysql/mysql"
	"github.com/hashicorp/go-uuid"

	"github.com/stephnangue/mysqlpool/logger"
)

// ErrNotOpen is returned when an operation needs a live driver connection.
var ErrNotOpen = errors.New("session: not open")

// Session is one logical connection to one MySQL server. A session is
// owned by exactly one holder at a time (the pool's idle queue or a
// borrowed handle), so it carries no internal locking.
type Session struct {
	id   string
	dial Dialer
	log  logger.Logger

	conn       Conn
	endpoint   Endpoint
	lastActive time.Time
}

// New returns a closed session that will dial with the given dialer.
func New(dial Dialer, log logger.Logger) *Session {
	if dial == nil {
		dial = Dial
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Session{
		id:   newID(),
		dial: dial,
		log:  log,
	}
}

func newID() string {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return "unknown"
	}
	return id[:8]
}

// ID returns a short random identifier for log correlation.
func (s *Session) ID() string {
	return s.id
}

// Open establishes the underlying connection and stores the endpoint.
// An already-open session is closed first.
func (s *Session) Open(ep Endpoint) error {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	conn, err := s.dial(ep)
	if err != nil {
		return err
	}
	s.conn = conn
	s.endpoint = ep
	s.lastActive = time.Now()
	return nil
}

// Reopen closes the session, ignoring errors, and opens it again with
// the stored endpoint.
func (s *Session) Reopen() error {
	if s.endpoint == (Endpoint{}) {
		return ErrNotOpen
	}
	return s.Open(s.endpoint)
}

// Healthy reports whether the server answers a ping. The probe mutates
// no session state: idle age keeps reflecting real use, so periodic
// validation cannot mask a session as recently active.
func (s *Session) Healthy() bool {
	if s.conn == nil {
		return false
	}
	if err := s.conn.Ping(); err != nil {
		s.log.Debug("ping failed", logger.String("session", s.id), logger.Err(err))
		return false
	}
	return true
}

// IdleFor returns how long ago the session was last opened, used or
// touched. A Healthy probe does not reset it.
func (s *Session) IdleFor() time.Duration {
	return time.Since(s.lastActive)
}

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.lastActive = time.Now()
}

// Execute runs a statement, discarding any result set.
func (s *Session) Execute(query string) error {
	if s.conn == nil {
		return ErrNotOpen
	}
	result, err := s.conn.Execute(query)
	if err != nil {
		s.log.Warn("execute failed", logger.String("session", s.id), logger.Err(err))
		return err
	}
	if result != nil {
		result.Close()
	}
	s.lastActive = time.Now()
	return nil
}

// Query runs a statement and returns the driver result.
func (s *Session) Query(query string) (*mysql.Result, error) {
	if s.conn == nil {
		return nil, ErrNotOpen
	}
	result, err := s.conn.Execute(query)
	if err != nil {
		s.log.Warn("query failed", logger.String("session", s.id), logger.Err(err))
		return nil, err
	}
	s.lastActive = time.Now()
	return result, nil
}

// Close releases the driver connection. Safe to call repeatedly.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
