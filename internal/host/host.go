package host

import "github.com/ethereum/go-ethereum/common"

// Env describes the execution context of a single call into the venue.
type Env struct {
	Caller common.Address
}

// Clock returns the current ledger time in unix seconds. Tests and the
// simulator inject deterministic clocks.
type Clock func() uint64

// Snapshotter is implemented by components whose state must revert when the
// call that mutated them fails. Discard releases a snapshot once the call
// has succeeded.
type Snapshotter interface {
	Snapshot() int
	RevertTo(id int)
	Discard(id int)
}

// Journal groups every snapshotting component of a venue so a guarded
// operation reverts all of them together. A call that reaches other pools
// through a callback still unwinds as one unit, because all pools of a venue
// share the journal.
type Journal struct {
	parts []Snapshotter
}

func NewJournal(parts ...Snapshotter) *Journal {
	j := &Journal{}
	j.Register(parts...)
	return j
}

// Register adds parts to the journal. Parts already registered are skipped,
// so a ledger shared between pools is snapshotted once.
func (j *Journal) Register(parts ...Snapshotter) {
	for _, p := range parts {
		if p == nil {
			continue
		}
		known := false
		for _, q := range j.parts {
			if q == p {
				known = true
				break
			}
		}
		if !known {
			j.parts = append(j.parts, p)
		}
	}
}

// Snapshot records the current state of every part.
func (j *Journal) Snapshot() []int {
	ids := make([]int, len(j.parts))
	for i, p := range j.parts {
		ids[i] = p.Snapshot()
	}
	return ids
}

// RevertTo restores every snapshotted part. Parts registered after the
// snapshot was taken are left alone.
func (j *Journal) RevertTo(ids []int) {
	for i := len(ids) - 1; i >= 0; i-- {
		j.parts[i].RevertTo(ids[i])
	}
}

// Discard releases a snapshot whose call succeeded, keeping the live state.
func (j *Journal) Discard(ids []int) {
	for i := len(ids) - 1; i >= 0; i-- {
		j.parts[i].Discard(ids[i])
	}
}
