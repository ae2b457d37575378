package pool

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-mysql-org/go-mysql/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephnangue/mysqlpool/config"
	"github.com/stephnangue/mysqlpool/logger"
	"github.com/stephnangue/mysqlpool/session"
)

// testConn is a scriptable driver connection, safe for concurrent use.
type testConn struct {
	mu      sync.Mutex
	pingErr error
	closed  bool
}

func (c *testConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("ping on closed conn")
	}
	return c.pingErr
}

func (c *testConn) Execute(command string, args ...interface{}) (*mysql.Result, error) {
	return &mysql.Result{}, nil
}

func (c *testConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *testConn) setPingErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pingErr = err
}

func (c *testConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// testDialer mints testConns and can fail specific dials by index.
type testDialer struct {
	mu    sync.Mutex
	dials int
	errAt map[int]error // 0-based dial index -> error
	conns []*testConn
}

func newTestDialer() *testDialer {
	return &testDialer{errAt: make(map[int]error)}
}

func (d *testDialer) dial(ep session.Endpoint) (session.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.dials
	d.dials++
	if err, ok := d.errAt[i]; ok {
		return nil, err
	}
	c := &testConn{}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *testDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *testDialer) conn(i int) *testConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

func testSettings(initSize, maxSize int, maxIdle, timeout time.Duration) *config.Settings {
	return &config.Settings{
		IP:                "127.0.0.1",
		Port:              3306,
		Username:          "root",
		DBName:            "test",
		InitSize:          initSize,
		MaxSize:           maxSize,
		MaxIdleTime:       maxIdle,
		ConnectionTimeout: timeout,
	}
}

func newTestPool(t *testing.T, settings *config.Settings) (*Pool, *testDialer) {
	t.Helper()
	d := newTestDialer()
	p, err := New(settings, WithDialer(d.dial), WithLogger(logger.Nop()))
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p, d
}

func TestColdStart(t *testing.T) {
	p, d := newTestPool(t, testSettings(3, 5, time.Minute, 100*time.Millisecond))

	stats := p.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Idle)
	assert.Equal(t, 0, stats.Borrowed)

	// the producer is demand-driven: no growth without pressure
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 3, d.count())
}

func TestInitialOpenFailureIsFatal(t *testing.T) {
	d := newTestDialer()
	d.errAt[1] = errors.New("connection refused")

	_, err := New(testSettings(3, 5, time.Minute, 100*time.Millisecond),
		WithDialer(d.dial), WithLogger(logger.Nop()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial session")

	// the session opened before the failure must not leak
	assert.True(t, d.conn(0).isClosed())
}

func TestInvalidSettingsRejected(t *testing.T) {
	settings := testSettings(5, 2, time.Minute, 100*time.Millisecond)
	_, err := New(settings, WithDialer(newTestDialer().dial), WithLogger(logger.Nop()))
	require.Error(t, err)
}

func TestAcquireRelease(t *testing.T) {
	p, _ := newTestPool(t, testSettings(2, 4, time.Minute, 100*time.Millisecond))

	h, err := p.Acquire()
	require.NoError(t, err)
	require.NotNil(t, h.Session())

	stats := p.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Idle)
	assert.Equal(t, 1, stats.Borrowed)

	require.NoError(t, h.Close())
	stats = p.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Idle)
}

func TestAcquireServesFIFO(t *testing.T) {
	p, _ := newTestPool(t, testSettings(2, 2, time.Minute, 100*time.Millisecond))

	first, err := p.Acquire()
	require.NoError(t, err)
	second, err := p.Acquire()
	require.NoError(t, err)

	firstSess := first.Session()
	require.NoError(t, first.Close())
	require.NoError(t, second.Close())

	// the earliest-returned session comes back out first
	h, err := p.Acquire()
	require.NoError(t, err)
	assert.Same(t, firstSess, h.Session())
	require.NoError(t, h.Close())
}

func TestGrowthUnderPressure(t *testing.T) {
	p, d := newTestPool(t, testSettings(2, 5, time.Minute, 500*time.Millisecond))

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := p.Acquire()
			errs[i] = err
			if err == nil {
				time.Sleep(200 * time.Millisecond)
				h.Close()
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "acquirer %d", i)
	}
	stats := p.Stats()
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 5, stats.Idle)
	// 2 eager + 3 on demand, never a 6th
	assert.Equal(t, 5, d.count())
}

func TestAcquireTimeoutOnSaturatedPool(t *testing.T) {
	p, _ := newTestPool(t, testSettings(2, 2, time.Minute, 50*time.Millisecond))

	h1, err := p.Acquire()
	require.NoError(t, err)
	h2, err := p.Acquire()
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Acquire()
	elapsed := time.Since(start)
	assert.ErrorIs(t, err, ErrAcquireTimeout)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)

	require.NoError(t, h1.Close())
	require.NoError(t, h2.Close())

	// after the holders release, a retry succeeds without waiting
	h3, err := p.Acquire()
	require.NoError(t, err)
	require.NoError(t, h3.Close())
}

func TestBrokenSessionAtBorrowIsReopened(t *testing.T) {
	p, d := newTestPool(t, testSettings(1, 1, time.Minute, 100*time.Millisecond))

	d.conn(0).setPingErr(errors.New("server has gone away"))

	h, err := p.Acquire()
	require.NoError(t, err)
	assert.True(t, h.Session().Healthy())

	stats := p.Stats()
	assert.Equal(t, 1, stats.Total)
	// one eager dial plus the reopen
	assert.Equal(t, 2, d.count())
	require.NoError(t, h.Close())
}

func TestUnrecoverableSessionAtBorrowIsReplaced(t *testing.T) {
	d := newTestDialer()
	// dial 0: eager fill; dial 1: the failed reopen; dial 2: the producer's replacement
	d.errAt[1] = errors.New("connection refused")

	p, err := New(testSettings(1, 1, time.Minute, 500*time.Millisecond),
		WithDialer(d.dial), WithLogger(logger.Nop()))
	require.NoError(t, err)
	t.Cleanup(p.Close)

	d.conn(0).setPingErr(errors.New("server has gone away"))

	h, err := p.Acquire()
	require.NoError(t, err)
	assert.True(t, h.Session().Healthy())

	stats := p.Stats()
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 3, d.count())
	require.NoError(t, h.Close())
}

func TestIdleTrimConvergesToInitSize(t *testing.T) {
	p, _ := newTestPool(t, testSettings(2, 6, 150*time.Millisecond, 300*time.Millisecond))

	// burst to max
	handles := make([]*Handle, 6)
	for i := range handles {
		h, err := p.Acquire()
		require.NoError(t, err)
		handles[i] = h
	}
	assert.Equal(t, 6, p.Stats().Total)

	for _, h := range handles {
		require.NoError(t, h.Close())
	}

	// several scavenger periods of sustained idleness
	require.Eventually(t, func() bool {
		return p.Stats().Total == 2
	}, 2*time.Second, 20*time.Millisecond)

	stats := p.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Idle)

	// the survivors still answer pings
	h, err := p.Acquire()
	require.NoError(t, err)
	assert.True(t, h.Session().Healthy())
	require.NoError(t, h.Close())
}

func TestScavengerNeverTrimsBelowInitSize(t *testing.T) {
	p, _ := newTestPool(t, testSettings(2, 4, 100*time.Millisecond, 100*time.Millisecond))

	time.Sleep(450 * time.Millisecond)

	stats := p.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Idle)
}

func TestScavengerReopensBrokenIdleSessions(t *testing.T) {
	p, d := newTestPool(t, testSettings(2, 4, 100*time.Millisecond, 100*time.Millisecond))

	d.conn(0).setPingErr(errors.New("server has gone away"))
	d.conn(1).setPingErr(errors.New("server has gone away"))

	require.Eventually(t, func() bool {
		return d.count() >= 4
	}, 2*time.Second, 20*time.Millisecond)

	stats := p.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Idle)
}

func TestScavengerDropsUnrecoverableAndProducerRefills(t *testing.T) {
	d := newTestDialer()
	// dials 2 and 3 are the scavenger's reopen attempts
	d.errAt[2] = errors.New("connection refused")
	d.errAt[3] = errors.New("connection refused")

	p, err := New(testSettings(2, 4, 100*time.Millisecond, 200*time.Millisecond),
		WithDialer(d.dial), WithLogger(logger.Nop()))
	require.NoError(t, err)
	t.Cleanup(p.Close)

	d.conn(0).setPingErr(errors.New("server has gone away"))
	d.conn(1).setPingErr(errors.New("server has gone away"))

	// both drops push total below initSize; the demand-driven producer
	// refills until the idle queue is non-empty again
	require.Eventually(t, func() bool {
		s := p.Stats()
		return s.Total == 1 && s.Idle == 1 && d.count() >= 5
	}, 2*time.Second, 20*time.Millisecond)
}

func TestProducerNeverExceedsMaxSize(t *testing.T) {
	p, d := newTestPool(t, testSettings(1, 4, time.Minute, 300*time.Millisecond))

	stop := make(chan struct{})
	var maxSeen int
	var maxMu sync.Mutex
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			s := p.Stats()
			maxMu.Lock()
			if s.Total > maxSeen {
				maxSeen = s.Total
			}
			maxMu.Unlock()
			time.Sleep(time.Millisecond)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < 3; r++ {
				h, err := p.Acquire()
				if err != nil {
					continue
				}
				time.Sleep(5 * time.Millisecond)
				h.Close()
			}
		}()
	}
	wg.Wait()
	close(stop)

	maxMu.Lock()
	defer maxMu.Unlock()
	assert.LessOrEqual(t, maxSeen, 4)
	assert.LessOrEqual(t, p.Stats().Total, 4)
	assert.LessOrEqual(t, d.count(), 1+3+12*3)
}

func TestTotalAccounting(t *testing.T) {
	p, _ := newTestPool(t, testSettings(2, 6, time.Minute, 200*time.Millisecond))

	var handles []*Handle
	for i := 0; i < 4; i++ {
		h, err := p.Acquire()
		require.NoError(t, err)
		handles = append(handles, h)

		s := p.Stats()
		assert.Equal(t, s.Total, s.Idle+s.Borrowed)
		assert.LessOrEqual(t, s.Total, 6)
	}
	for _, h := range handles {
		require.NoError(t, h.Close())
		s := p.Stats()
		assert.Equal(t, s.Total, s.Idle+s.Borrowed)
	}
}

func TestUnhealthyReturnIsDropped(t *testing.T) {
	p, d := newTestPool(t, testSettings(2, 4, time.Minute, 100*time.Millisecond))

	h, err := p.Acquire()
	require.NoError(t, err)
	before := p.Stats().Total

	d.conn(0).setPingErr(errors.New("server has gone away"))
	require.NoError(t, h.Close())

	stats := p.Stats()
	assert.Equal(t, before-1, stats.Total)
	assert.True(t, d.conn(0).isClosed())
}

func TestCloseRejectsFurtherAcquires(t *testing.T) {
	p, d := newTestPool(t, testSettings(2, 4, time.Minute, 100*time.Millisecond))

	p.Close()

	_, err := p.Acquire()
	assert.ErrorIs(t, err, ErrPoolClosed)

	for i := 0; i < 2; i++ {
		assert.True(t, d.conn(i).isClosed())
	}

	// idempotent
	p.Close()
}

func TestHandleReturnedAfterCloseIsDestroyed(t *testing.T) {
	p, d := newTestPool(t, testSettings(1, 2, time.Minute, 100*time.Millisecond))

	h, err := p.Acquire()
	require.NoError(t, err)

	p.Close()
	require.NoError(t, h.Close())

	assert.True(t, d.conn(0).isClosed())
	assert.Equal(t, 0, p.Stats().Idle)
}

func TestCloseUnblocksWaitingAcquirers(t *testing.T) {
	p, _ := newTestPool(t, testSettings(1, 1, time.Minute, 5*time.Second))

	h, err := p.Acquire()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := p.Acquire()
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	p.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrPoolClosed)
	case <-time.After(time.Second):
		t.Fatal("acquirer was not unblocked by Close")
	}
	require.NoError(t, h.Close())
}
