package types

import "fmt"

// Slot is a coordinator host/port reservation. At most one coordinator
// process may be bound to a given slot at a time.
type Slot struct {
	Host string
	Port int
}

func (s Slot) String() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SlotPool is a LIFO pool of coordinator slots, fixed at scheduler
// startup. It is the single representation of "available slots" —
// there is no parallel set/boolean view to keep in sync.
type SlotPool struct {
	slots []Slot
}

// NewSlotPool creates a pool seeded with the given slots. Order is
// preserved; Claim pops from the end (LIFO).
func NewSlotPool(slots []Slot) *SlotPool {
	cp := make([]Slot, len(slots))
	copy(cp, slots)
	return &SlotPool{slots: cp}
}

// Len reports the number of slots currently available.
func (p *SlotPool) Len() int {
	return len(p.slots)
}

// Claim removes and returns the most recently released (or initial)
// slot. Claim must not be called when Len() == 0.
func (p *SlotPool) Claim() Slot {
	n := len(p.slots)
	slot := p.slots[n-1]
	p.slots = p.slots[:n-1]
	return slot
}

// Release returns a slot to the pool.
func (p *SlotPool) Release(s Slot) {
	p.slots = append(p.slots, s)
}

// Total returns the number of slots outstanding plus available, which
// must stay constant across the pool's lifetime.
func (p *SlotPool) Total(claimed int) int {
	return p.Len() + claimed
}
