package token

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityCore/internal/event"
	"liquidityCore/internal/host"
	"liquidityCore/internal/num"
)

const (
	Name     = "LiquidityCore LP"
	Symbol   = "LC-LP"
	Version  = "1"
	Decimals = 18
)

var (
	ErrInsufficientBalance   = errors.New("transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("transfer amount exceeds allowance")
	ErrExpired               = errors.New("authorization expired")
	ErrInvalidSignature      = errors.New("invalid signature")
)

// Ledger is the fungible liquidity-share token of a single pool: balances,
// allowances, mint/burn and a signature-based approval extension.
type Ledger struct {
	self            common.Address
	chainID         uint64
	clock           host.Clock
	events          *event.Recorder
	domainSeparator common.Hash

	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int
	nonces      map[common.Address]uint64

	snapshots []ledgerState
}

type ledgerState struct {
	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int
	nonces      map[common.Address]uint64
}

// NewLedger builds the share ledger for the pool deployed at self on the
// given chain. The domain separator is fixed at construction so signatures
// cannot replay across ledger instances or chains.
func NewLedger(self common.Address, chainID uint64, clock host.Clock, events *event.Recorder) *Ledger {
	return &Ledger{
		self:            self,
		chainID:         chainID,
		clock:           clock,
		events:          events,
		domainSeparator: computeDomainSeparator(self, chainID),
		totalSupply:     new(uint256.Int),
		balances:        make(map[common.Address]*uint256.Int),
		allowances:      make(map[common.Address]map[common.Address]*uint256.Int),
		nonces:          make(map[common.Address]uint64),
	}
}

func (l *Ledger) TotalSupply() *uint256.Int { return l.totalSupply.Clone() }

func (l *Ledger) BalanceOf(account common.Address) *uint256.Int {
	if b, ok := l.balances[account]; ok {
		return b.Clone()
	}
	return new(uint256.Int)
}

func (l *Ledger) Allowance(owner, spender common.Address) *uint256.Int {
	if m, ok := l.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return a.Clone()
		}
	}
	return new(uint256.Int)
}

func (l *Ledger) Nonce(account common.Address) uint64 { return l.nonces[account] }

// Transfer moves value from one holder to another.
func (l *Ledger) Transfer(from, to common.Address, value *uint256.Int) error {
	return l.move(from, to, value)
}

// Approve sets the allowance owner grants spender.
func (l *Ledger) Approve(owner, spender common.Address, value *uint256.Int) error {
	l.setAllowance(owner, spender, value.Clone())
	l.events.Append(event.Record{
		Type:      event.TypeApproval,
		Pool:      l.self.Hex(),
		Owner:     owner.Hex(),
		Spender:   spender.Hex(),
		Value:     value.Dec(),
		Timestamp: l.clock(),
	})
	return nil
}

// TransferFrom spends an allowance. An allowance equal to the maximum
// representable value is treated as infinite and never decremented.
func (l *Ledger) TransferFrom(spender, from, to common.Address, value *uint256.Int) error {
	allowance := l.Allowance(from, spender)
	if !allowance.Eq(num.MaxUint256) {
		remaining, err := num.CheckedSub(allowance, value)
		if err != nil {
			return ErrInsufficientAllowance
		}
		l.setAllowance(from, spender, remaining)
	}
	return l.move(from, to, value)
}

// Mint credits newly created supply to an account. Invoked only by the pool
// engine, which keeps its ledger instance unexported.
func (l *Ledger) Mint(to common.Address, value *uint256.Int) error {
	total, err := num.CheckedAdd(l.totalSupply, value)
	if err != nil {
		return err
	}
	balance, err := num.CheckedAdd(l.BalanceOf(to), value)
	if err != nil {
		return err
	}
	l.totalSupply = total
	l.balances[to] = balance
	l.emitTransfer(common.Address{}, to, value)
	return nil
}

// Burn destroys supply held by an account. Invoked only by the pool engine.
func (l *Ledger) Burn(from common.Address, value *uint256.Int) error {
	balance, err := num.CheckedSub(l.BalanceOf(from), value)
	if err != nil {
		return ErrInsufficientBalance
	}
	total, err := num.CheckedSub(l.totalSupply, value)
	if err != nil {
		return err
	}
	l.balances[from] = balance
	l.totalSupply = total
	l.emitTransfer(from, common.Address{}, value)
	return nil
}

func (l *Ledger) move(from, to common.Address, value *uint256.Int) error {
	fromBalance, err := num.CheckedSub(l.BalanceOf(from), value)
	if err != nil {
		return ErrInsufficientBalance
	}
	toBalance, err := num.CheckedAdd(l.BalanceOf(to), value)
	if err != nil {
		return err
	}
	l.balances[from] = fromBalance
	l.balances[to] = toBalance
	l.emitTransfer(from, to, value)
	return nil
}

func (l *Ledger) setAllowance(owner, spender common.Address, value *uint256.Int) {
	m, ok := l.allowances[owner]
	if !ok {
		m = make(map[common.Address]*uint256.Int)
		l.allowances[owner] = m
	}
	m[spender] = value
}

func (l *Ledger) emitTransfer(from, to common.Address, value *uint256.Int) {
	l.events.Append(event.Record{
		Type:      event.TypeTransfer,
		Pool:      l.self.Hex(),
		From:      from.Hex(),
		To:        to.Hex(),
		Value:     value.Dec(),
		Timestamp: l.clock(),
	})
}

// Snapshot records the full ledger state.
func (l *Ledger) Snapshot() int {
	state := ledgerState{
		totalSupply: l.totalSupply.Clone(),
		balances:    make(map[common.Address]*uint256.Int, len(l.balances)),
		allowances:  make(map[common.Address]map[common.Address]*uint256.Int, len(l.allowances)),
		nonces:      make(map[common.Address]uint64, len(l.nonces)),
	}
	for k, v := range l.balances {
		state.balances[k] = v.Clone()
	}
	for owner, m := range l.allowances {
		copied := make(map[common.Address]*uint256.Int, len(m))
		for spender, v := range m {
			copied[spender] = v.Clone()
		}
		state.allowances[owner] = copied
	}
	for k, v := range l.nonces {
		state.nonces[k] = v
	}
	l.snapshots = append(l.snapshots, state)
	return len(l.snapshots) - 1
}

// RevertTo restores the ledger state recorded at id.
func (l *Ledger) RevertTo(id int) {
	if id < 0 || id >= len(l.snapshots) {
		return
	}
	state := l.snapshots[id]
	l.totalSupply = state.totalSupply
	l.balances = state.balances
	l.allowances = state.allowances
	l.nonces = state.nonces
	l.snapshots = l.snapshots[:id]
}

// Discard drops the snapshot recorded at id, keeping the current state.
func (l *Ledger) Discard(id int) {
	if id < 0 || id >= len(l.snapshots) {
		return
	}
	l.snapshots = l.snapshots[:id]
}
