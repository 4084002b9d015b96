package ledger

import (
	"sync"

	"github.com/google/uuid"
)

// CustomerLockRegistry serializes ledger mutations per customer. Two
// concurrent edits to the same customer's ledger must not interleave their
// retract-then-reapply steps or allocations can be double-counted or lost;
// edits to different customers never contend. Score recalculation shares the
// same registry so a batch run never reads a customer's ledger mid-edit.
type CustomerLockRegistry struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewCustomerLockRegistry creates an empty registry. The composition root
// builds one and hands it to every service mutating the same ledger.
func NewCustomerLockRegistry() *CustomerLockRegistry {
	return &CustomerLockRegistry{
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// Lock acquires the mutex for a customer, creating it on first use, and
// returns the unlock function
func (c *CustomerLockRegistry) Lock(customerID uuid.UUID) func() {
	c.mu.Lock()
	m, ok := c.locks[customerID]
	if !ok {
		m = &sync.Mutex{}
		c.locks[customerID] = m
	}
	c.mu.Unlock()

	m.Lock()
	return m.Unlock
}
