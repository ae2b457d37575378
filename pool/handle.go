package pool

import (
	"sync"

	"github.com/go-mysql-org/go-mysql/mysql"

	"github.com/stephnangue/mysqlpool/session"
)

// Handle is a scoped borrow of exactly one session. Closing it runs the
// return protocol exactly once; a closed handle performs no further
// action. The pool never keeps references to live handles, so a handle
// outliving the pool simply closes its session on return.
type Handle struct {
	pool *Pool
	sess *session.Session
	once sync.Once
}

func newHandle(p *Pool, s *session.Session) *Handle {
	return &Handle{pool: p, sess: s}
}

// Session exposes the borrowed session. It returns nil once the handle
// has been closed or discarded.
func (h *Handle) Session() *session.Session {
	return h.sess
}

// Execute runs a statement on the borrowed session.
func (h *Handle) Execute(query string) error {
	if h.sess == nil {
		return ErrHandleClosed
	}
	return h.sess.Execute(query)
}

// Query runs a statement on the borrowed session and returns the result.
func (h *Handle) Query(query string) (*mysql.Result, error) {
	if h.sess == nil {
		return nil, ErrHandleClosed
	}
	return h.sess.Query(query)
}

// Close gives the session back to the pool. Healthy sessions rejoin the
// idle queue; broken ones are dropped and counted out.
func (h *Handle) Close() error {
	h.once.Do(func() {
		s := h.sess
		h.sess = nil
		h.pool.release(s)
	})
	return nil
}

// Discard closes the borrowed session without returning it, for use
// when the caller has observed it to be unrecoverable.
func (h *Handle) Discard() {
	h.once.Do(func() {
		s := h.sess
		h.sess = nil
		h.pool.discard(s)
	})
}
