package asset

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ErrInsufficientFunds indicates a transfer exceeding the sender's balance.
var ErrInsufficientFunds = errors.New("insufficient asset balance")

// ReturnStyle selects what a Transfer call returns, covering both
// standard-conforming and legacy non-return-value asset ledgers.
type ReturnStyle int

const (
	// ReturnEmpty mimics legacy ledgers that return no data.
	ReturnEmpty ReturnStyle = iota
	// ReturnTrue returns a 32-byte word decoding to boolean true.
	ReturnTrue
	// ReturnFalse returns a 32-byte word decoding to boolean false,
	// signalling failure despite a successful call.
	ReturnFalse
)

// Token is an in-memory fungible-asset ledger used by the simulator and
// tests. It implements Ledger, Transferer and host.Snapshotter.
type Token struct {
	symbol   string
	addr     common.Address
	style    ReturnStyle
	balances map[common.Address]*uint256.Int

	snapshots []map[common.Address]*uint256.Int
}

func NewToken(symbol string, addr common.Address, style ReturnStyle) *Token {
	return &Token{
		symbol:   symbol,
		addr:     addr,
		style:    style,
		balances: make(map[common.Address]*uint256.Int),
	}
}

func (t *Token) Symbol() string { return t.symbol }

func (t *Token) Address() common.Address { return t.addr }

// BalanceOf returns a copy of the account balance.
func (t *Token) BalanceOf(account common.Address) *uint256.Int {
	if b, ok := t.balances[account]; ok {
		return b.Clone()
	}
	return new(uint256.Int)
}

// MintTo credits an account out of thin air; funding hook for scenarios.
func (t *Token) MintTo(account common.Address, amount *uint256.Int) {
	t.balances[account] = new(uint256.Int).Add(t.BalanceOf(account), amount)
}

// Transfer moves amount from one account to another. The return bytes follow
// the configured style so callers exercise the tolerant decode path.
func (t *Token) Transfer(from, to common.Address, amount *uint256.Int) ([]byte, error) {
	balance := t.BalanceOf(from)
	if balance.Lt(amount) {
		return nil, ErrInsufficientFunds
	}
	t.balances[from] = balance.Sub(balance, amount)
	t.balances[to] = new(uint256.Int).Add(t.BalanceOf(to), amount)

	switch t.style {
	case ReturnTrue:
		return boolWord(true), nil
	case ReturnFalse:
		return boolWord(false), nil
	default:
		return nil, nil
	}
}

func boolWord(v bool) []byte {
	word := make([]byte, 32)
	if v {
		word[31] = 1
	}
	return word
}

// Snapshot records the full balance table.
func (t *Token) Snapshot() int {
	copied := make(map[common.Address]*uint256.Int, len(t.balances))
	for k, v := range t.balances {
		copied[k] = v.Clone()
	}
	t.snapshots = append(t.snapshots, copied)
	return len(t.snapshots) - 1
}

// RevertTo restores the balance table recorded at id.
func (t *Token) RevertTo(id int) {
	if id < 0 || id >= len(t.snapshots) {
		return
	}
	t.balances = t.snapshots[id]
	t.snapshots = t.snapshots[:id]
}

// Discard drops the snapshot recorded at id, keeping the current balances.
func (t *Token) Discard(id int) {
	if id < 0 || id >= len(t.snapshots) {
		return
	}
	t.snapshots = t.snapshots[:id]
}
