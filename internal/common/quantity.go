package common

import "sync/atomic"

// Quantity is a share count that only ever decreases and never drops
// below zero, safe for concurrent use.
type Quantity struct {
	value atomic.Uint64
}

func NewQuantity(v uint64) *Quantity {
	q := &Quantity{}
	q.value.Store(v)
	return q
}

func (q *Quantity) Get() uint64 {
	return q.value.Load()
}

// DecrementClampToZero subtracts amount, or whatever is left if amount is
// larger. It returns how much was actually taken and the value after.
func (q *Quantity) DecrementClampToZero(amount uint64) (actual, newValue uint64) {
	for {
		current := q.value.Load()
		actual = min(current, amount)
		newValue = current - actual
		if q.value.CompareAndSwap(current, newValue) {
			return actual, newValue
		}
	}
}
