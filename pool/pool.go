// Package pool implements a bounded client-side MySQL connection pool.
// A background producer grows the pool on demand up to maxSize and a
// scavenger validates idle sessions and trims back toward initSize.
package pool

import (
	"fmt"
	"sync"
	"time"

	"github.com/stephnangue/mysqlpool/config"
	"github.com/stephnangue/mysqlpool/logger"
	"github.com/stephnangue/mysqlpool/session"
)

// openRetryDelay keeps the producer from hammering an unreachable
// server when every open attempt fails.
const openRetryDelay = 50 * time.Millisecond

// Stats is a point-in-time snapshot of the pool counters.
type Stats struct {
	Total    int // sessions belonging to the pool, idle plus borrowed
	Idle     int
	Borrowed int
	MaxSize  int
}

// Pool owns a FIFO queue of idle sessions and lends them out one
// borrower at a time.
type Pool struct {
	settings *config.Settings
	dial     session.Dialer
	log      logger.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	idle   []*session.Session
	total  int
	closed bool

	stopScavenger chan struct{}
	wg            sync.WaitGroup
}

// Option customises pool construction.
type Option func(*Pool)

// WithDialer substitutes the driver dialer. Tests use this to inject fakes.
func WithDialer(dial session.Dialer) Option {
	return func(p *Pool) { p.dial = dial }
}

// WithLogger sets the pool's logger.
func WithLogger(log logger.Logger) Option {
	return func(p *Pool) { p.log = log }
}

// New builds a pool from settings, synchronously opening initSize
// sessions. Any failure during the eager fill is fatal; the pool never
// starts degraded.
func New(settings *config.Settings, opts ...Option) (*Pool, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		settings:      settings,
		dial:          session.Dial,
		log:           logger.Nop(),
		stopScavenger: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.cond = sync.NewCond(&p.mu)
	p.log = p.log.WithComponent("pool")

	for i := 0; i < settings.InitSize; i++ {
		s, err := p.openSession()
		if err != nil {
			for _, open := range p.idle {
				_ = open.Close()
			}
			return nil, fmt.Errorf("pool: opening initial session %d of %d: %w",
				i+1, settings.InitSize, err)
		}
		p.idle = append(p.idle, s)
	}
	p.total = settings.InitSize
	p.log.Info("pool started",
		logger.Int("init_size", settings.InitSize),
		logger.Int("max_size", settings.MaxSize))

	p.wg.Add(2)
	go p.producer()
	go p.scavenger()
	return p, nil
}

// Open loads settings from a config file and builds a pool from them.
func Open(path string, opts ...Option) (*Pool, error) {
	settings, err := config.LoadSettings(path)
	if err != nil {
		return nil, err
	}
	p, err := New(settings, opts...)
	if err != nil {
		return nil, err
	}
	p.log.Info("configuration loaded", logger.String("path", path))
	return p, nil
}

func (p *Pool) endpoint() session.Endpoint {
	return session.Endpoint{
		Host:     p.settings.IP,
		Port:     p.settings.Port,
		Username: p.settings.Username,
		Password: p.settings.Password,
		DBName:   p.settings.DBName,
	}
}

func (p *Pool) openSession() (*session.Session, error) {
	s := session.New(p.dial, p.log)
	if err := s.Open(p.endpoint()); err != nil {
		return nil, err
	}
	return s, nil
}

// Acquire borrows a session, waiting up to the configured connection
// timeout for one to become idle. The returned handle must be closed to
// give the session back.
func (p *Pool) Acquire() (*Handle, error) {
	deadline := time.Now().Add(p.settings.ConnectionTimeout)

	p.mu.Lock()
	for {
		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}
		if len(p.idle) == 0 {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				p.mu.Unlock()
				p.log.Warn("acquire timed out",
					logger.Dur("timeout", p.settings.ConnectionTimeout))
				return nil, ErrAcquireTimeout
			}
			// sync.Cond has no timed wait; a timer broadcast bounds this
			// one. The predicate loop absorbs the extra wakeups.
			timer := time.AfterFunc(remaining, p.cond.Broadcast)
			p.cond.Wait()
			timer.Stop()
			continue
		}

		s := p.idle[0]
		p.idle = p.idle[1:]
		p.mu.Unlock()

		// probe with no lock held; a slow server must not block returns
		if s.Healthy() {
			p.cond.Broadcast()
			return newHandle(p, s), nil
		}
		err := s.Reopen()
		if err == nil {
			s.Touch()
			p.cond.Broadcast()
			return newHandle(p, s), nil
		}
		p.log.Warn("dropping session after failed reopen",
			logger.String("session", s.ID()), logger.Err(err))
		_ = s.Close()
		p.mu.Lock()
		p.total--
		p.cond.Broadcast()
		// keep waiting against the original deadline
	}
}

// release is the handle's return path for a borrowed session.
func (p *Pool) release(s *session.Session) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		if s != nil {
			_ = s.Close()
		}
		return
	}
	if s == nil || !s.Healthy() {
		p.total--
		p.cond.Broadcast()
		p.mu.Unlock()
		if s != nil {
			p.log.Warn("dropping unhealthy session on return",
				logger.String("session", s.ID()))
			_ = s.Close()
		}
		return
	}
	s.Touch()
	p.idle = append(p.idle, s)
	p.cond.Broadcast()
	p.mu.Unlock()
}

// discard drops a borrowed session without returning it.
func (p *Pool) discard(s *session.Session) {
	p.mu.Lock()
	if !p.closed {
		p.total--
		p.cond.Broadcast()
	}
	p.mu.Unlock()
	p.log.Info("session discarded by borrower", logger.String("session", s.ID()))
	_ = s.Close()
}

// producer manufactures sessions on demand: it only acts once the idle
// queue has been observed empty and total is below maxSize. Growth is
// driven by pressure, never speculative.
func (p *Pool) producer() {
	defer p.wg.Done()

	p.mu.Lock()
	for {
		for !p.closed && (len(p.idle) > 0 || p.total >= p.settings.MaxSize) {
			p.cond.Wait()
		}
		if p.closed {
			p.mu.Unlock()
			return
		}

		p.mu.Unlock()
		s, err := p.openSession()
		p.mu.Lock()

		if err != nil {
			p.log.Warn("producer failed to open session", logger.Err(err))
			p.mu.Unlock()
			time.Sleep(openRetryDelay)
			p.mu.Lock()
			continue
		}
		if p.closed {
			p.mu.Unlock()
			_ = s.Close()
			p.mu.Lock()
			continue
		}
		p.idle = append(p.idle, s)
		p.total++
		p.log.Debug("producer opened session",
			logger.String("session", s.ID()), logger.Int("total", p.total))
		p.cond.Broadcast()
	}
}

// scavenger wakes every maxIdleTime, revalidates idle sessions and
// trims those idle past the threshold back toward initSize.
func (p *Pool) scavenger() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.settings.MaxIdleTime)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.scavenge()
		case <-p.stopScavenger:
			return
		}
	}
}

// scavenge runs one validation pass over the idle queue. Probes run
// under the pool lock: only pool-owned sessions are touched, but a slow
// probe here delays concurrent acquirers.
func (p *Pool) scavenge() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	totalBefore := p.total
	kept := make([]*session.Session, 0, len(p.idle))
	for _, s := range p.idle {
		idleFor := s.IdleFor()

		if !s.Healthy() {
			if err := s.Reopen(); err != nil {
				p.total--
				_ = s.Close()
				p.log.Warn("scavenger dropped session after failed reopen",
					logger.String("session", s.ID()), logger.Err(err))
				continue
			}
			s.Touch()
			kept = append(kept, s)
			continue
		}

		if idleFor >= p.settings.MaxIdleTime && p.total > p.settings.InitSize {
			p.total--
			_ = s.Close()
			p.log.Info("scavenger trimmed idle session",
				logger.String("session", s.ID()), logger.Dur("idle_for", idleFor))
			continue
		}
		kept = append(kept, s)
	}
	p.idle = kept

	if p.total < totalBefore || p.total < p.settings.InitSize {
		// drops may leave the idle queue empty below maxSize; let the
		// producer re-check its predicate and top the pool back up
		p.cond.Broadcast()
	}
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Total:    p.total,
		Idle:     len(p.idle),
		Borrowed: p.total - len(p.idle),
		MaxSize:  p.settings.MaxSize,
	}
}

// Close shuts the pool down: wakes and joins both background
// goroutines, then closes every idle session. Outstanding handles
// discover the closed pool on return and close their sessions locally.
// Close is idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	close(p.stopScavenger)
	p.wg.Wait()

	p.mu.Lock()
	for _, s := range p.idle {
		_ = s.Close()
	}
	p.total -= len(p.idle)
	p.idle = nil
	p.mu.Unlock()
	p.log.Info("pool closed")
}
