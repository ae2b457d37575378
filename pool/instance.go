package pool

import (
	"sync"

	"github.com/stephnangue/mysqlpool/config"
)

var (
	instanceMu sync.Mutex
	instance   *Pool
)

// Instance returns the lazily constructed process-wide pool, built from
// the default config file. A failed construction is returned to the
// caller and retried on the next call. Independent pools can still be
// built with New or Open.
func Instance() (*Pool, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil {
		return instance, nil
	}
	p, err := Open(config.DefaultPath)
	if err != nil {
		return nil, err
	}
	instance = p
	return instance, nil
}
