package event

import (
	"go.uber.org/zap"
)

// Type identifies an externally observable venue event.
type Type string

const (
	TypePairCreated Type = "pair_created"
	TypeDeposit     Type = "deposit"
	TypeWithdraw    Type = "withdraw"
	TypeSwap        Type = "swap"
	TypeSync        Type = "sync"
	TypeTransfer    Type = "transfer"
	TypeApproval    Type = "approval"
)

// Record is a non-state-affecting log record emitted for external indexing.
// Amount fields are decimal strings; unused fields are omitted.
type Record struct {
	Seq        uint64 `json:"seq"`
	Type       Type   `json:"type"`
	Pool       string `json:"pool,omitempty"`
	Actor      string `json:"actor,omitempty"`
	Recipient  string `json:"recipient,omitempty"`
	Asset0     string `json:"asset0,omitempty"`
	Asset1     string `json:"asset1,omitempty"`
	Amount0    string `json:"amount0,omitempty"`
	Amount1    string `json:"amount1,omitempty"`
	Amount0In  string `json:"amount0_in,omitempty"`
	Amount1In  string `json:"amount1_in,omitempty"`
	Amount0Out string `json:"amount0_out,omitempty"`
	Amount1Out string `json:"amount1_out,omitempty"`
	Reserve0   string `json:"reserve0,omitempty"`
	Reserve1   string `json:"reserve1,omitempty"`
	Owner      string `json:"owner,omitempty"`
	Spender    string `json:"spender,omitempty"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	Value      string `json:"value,omitempty"`
	Timestamp  uint64 `json:"timestamp"`
}

// Recorder buffers event records in order of emission. It participates in the
// host journal so records from a reverted call are dropped with it.
type Recorder struct {
	logger  *zap.Logger
	seq     uint64
	records []Record
}

func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{logger: logger}
}

// Append stamps the record with the next sequence number and buffers it.
func (r *Recorder) Append(rec Record) {
	if r == nil {
		return
	}
	r.seq++
	rec.Seq = r.seq
	r.records = append(r.records, rec)
	r.logger.Debug("event",
		zap.String("type", string(rec.Type)),
		zap.String("pool", rec.Pool),
		zap.Uint64("seq", rec.Seq),
	)
}

// Drain returns all buffered records and resets the buffer.
func (r *Recorder) Drain() []Record {
	out := r.records
	r.records = nil
	return out
}

// Snapshot records the current buffer length and sequence counter.
func (r *Recorder) Snapshot() int {
	return len(r.records)
}

// RevertTo drops records appended after the snapshot.
func (r *Recorder) RevertTo(id int) {
	if id < 0 || id > len(r.records) {
		return
	}
	dropped := len(r.records) - id
	r.records = r.records[:id]
	r.seq -= uint64(dropped)
}

// Discard is a no-op: Snapshot stores no copies, and records from a
// successful call are kept.
func (r *Recorder) Discard(id int) {}

// Sink is a destination for drained event records.
type Sink interface {
	PutEventBatch(records []Record) error
}
