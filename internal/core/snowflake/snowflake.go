// Package snowflake issues the int64 ids used for users, forums, threads, posts and notifications.
package snowflake

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
	"well_bbs/internal/core/config"
	"well_bbs/internal/core/logger"
)

var (
	mu     sync.RWMutex
	node   *snowflake.Node
	worker int64
)

// Init installs the process node for cfg.WorkerID. A failed Init leaves the
// previous node (or the lazy worker 0 fallback) in place.
func Init(cfg *config.SnowflakeConfig) error {
	mu.Lock()
	defer mu.Unlock()

	// same worker: keep the running node so its sequence is not restarted
	if node != nil && worker == cfg.WorkerID {
		return nil
	}
	n, err := snowflake.NewNode(cfg.WorkerID)
	if err != nil {
		logger.Error("failed to initialize snowflake",
			logger.Int64("worker_id", cfg.WorkerID), logger.ErrorField(err))
		return fmt.Errorf("snowflake worker %d: %w", cfg.WorkerID, err)
	}
	node, worker = n, cfg.WorkerID
	logger.Info("snowflake initialized", logger.Int64("worker_id", cfg.WorkerID))
	return nil
}

func current() *snowflake.Node {
	mu.RLock()
	n := node
	mu.RUnlock()
	if n != nil {
		return n
	}

	mu.Lock()
	defer mu.Unlock()
	if node == nil {
		// worker 0 is always in range
		node, _ = snowflake.NewNode(0)
		worker = 0
	}
	return node
}

// Generate returns the next id, starting a worker 0 node if Init never succeeded.
func Generate() int64 {
	return current().Generate().Int64()
}

// Worker reports the worker id new ids are issued under.
func Worker() int64 {
	current()
	mu.RLock()
	defer mu.RUnlock()
	return worker
}
