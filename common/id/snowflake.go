package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	mu   sync.RWMutex
)

// Init configures the process-wide node. Subsequent calls are no-ops.
func Init(nodeID int64) error {
	mu.Lock()
	defer mu.Unlock()

	if node != nil {
		return nil
	}
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	node = n
	return nil
}

// New returns a time-ordered run id. Init must have been called.
func New() int64 {
	mu.RLock()
	defer mu.RUnlock()
	return node.Generate().Int64()
}

// String renders an id in the base58 form used in CLI output.
func String(v int64) string {
	return snowflake.ID(v).Base58()
}
