package reorder

import "fmt"

// Default configuration values for the re-order buffer.
const (
	// DefaultPendingCapacity is the default size of the pending set.
	DefaultPendingCapacity = 20

	// ReadyCapacityFactor bounds the ready queue relative to the pending set.
	ReadyCapacityFactor = 2
)

// Config is the configuration for a [Buffer].
type Config struct {
	// PendingCapacity is the maximum number of out-of-order items held.
	PendingCapacity int

	// InitialSequence is the first sequence number the buffer expects.
	InitialSequence uint64
}

// DefaultConfig returns the default buffer configuration.
func DefaultConfig() Config {
	return Config{
		PendingCapacity: DefaultPendingCapacity,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.PendingCapacity < 0 {
		return fmt.Errorf("reorder: pending capacity cannot be negative (got %d)", c.PendingCapacity)
	}
	return nil
}

// ReadyCapacity returns the size above which the ready queue refuses
// in-order insertions.
func (c Config) ReadyCapacity() int {
	return c.PendingCapacity * ReadyCapacityFactor
}
