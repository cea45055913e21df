package token

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityCore/internal/event"
	"liquidityCore/internal/num"
)

var (
	ledgerAddr = common.HexToAddress("0x00000000000000000000000000000000000000AA")
	holder     = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	spender    = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	other      = common.HexToAddress("0x0000000000000000000000000000000000000c0c")
)

func newTestLedger() *Ledger {
	return NewLedger(ledgerAddr, 1, func() uint64 { return 1_700_000_000 }, event.NewRecorder(nil))
}

func supplyConserved(t *testing.T, l *Ledger, accounts ...common.Address) {
	t.Helper()
	sum := new(uint256.Int)
	for _, a := range accounts {
		sum.Add(sum, l.BalanceOf(a))
	}
	if !sum.Eq(l.TotalSupply()) {
		t.Fatalf("supply not conserved: sum %s, total %s", sum.Dec(), l.TotalSupply().Dec())
	}
}

func TestMintBurn(t *testing.T) {
	l := newTestLedger()
	if err := l.Mint(holder, uint256.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if !l.TotalSupply().Eq(uint256.NewInt(1000)) {
		t.Fatalf("total supply: %s", l.TotalSupply().Dec())
	}
	supplyConserved(t, l, holder)

	if err := l.Burn(holder, uint256.NewInt(400)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if !l.BalanceOf(holder).Eq(uint256.NewInt(600)) {
		t.Fatalf("holder balance: %s", l.BalanceOf(holder).Dec())
	}
	supplyConserved(t, l, holder)

	if err := l.Burn(holder, uint256.NewInt(700)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestTransfer(t *testing.T) {
	l := newTestLedger()
	if err := l.Mint(holder, uint256.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Transfer(holder, other, uint256.NewInt(30)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !l.BalanceOf(other).Eq(uint256.NewInt(30)) {
		t.Fatalf("other balance: %s", l.BalanceOf(other).Dec())
	}
	supplyConserved(t, l, holder, other)

	if err := l.Transfer(holder, other, uint256.NewInt(71)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestTransferFromDecrementsAllowance(t *testing.T) {
	l := newTestLedger()
	if err := l.Mint(holder, uint256.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Approve(holder, spender, uint256.NewInt(50)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if err := l.TransferFrom(spender, holder, other, uint256.NewInt(20)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	if !l.Allowance(holder, spender).Eq(uint256.NewInt(30)) {
		t.Fatalf("allowance: %s", l.Allowance(holder, spender).Dec())
	}

	if err := l.TransferFrom(spender, holder, other, uint256.NewInt(31)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected insufficient allowance, got %v", err)
	}
}

func TestInfiniteAllowanceNotDecremented(t *testing.T) {
	l := newTestLedger()
	if err := l.Mint(holder, uint256.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Approve(holder, spender, num.MaxUint256); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := l.TransferFrom(spender, holder, other, uint256.NewInt(60)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	if !l.Allowance(holder, spender).Eq(num.MaxUint256) {
		t.Fatalf("infinite allowance was decremented: %s", l.Allowance(holder, spender).Dec())
	}
}

func TestLedgerSnapshotDiscard(t *testing.T) {
	l := newTestLedger()
	if err := l.Mint(holder, uint256.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	id := l.Snapshot()
	if err := l.Transfer(holder, other, uint256.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	l.Discard(id)

	if n := len(l.snapshots); n != 0 {
		t.Fatalf("snapshot retained after discard: %d", n)
	}
	// A revert to the discarded id must not undo the transfer.
	l.RevertTo(id)
	if !l.BalanceOf(other).Eq(uint256.NewInt(40)) {
		t.Fatalf("discarded snapshot restored: %s", l.BalanceOf(other).Dec())
	}
}

func TestLedgerSnapshotRevert(t *testing.T) {
	l := newTestLedger()
	if err := l.Mint(holder, uint256.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	id := l.Snapshot()
	if err := l.Mint(other, uint256.NewInt(50)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Approve(holder, spender, uint256.NewInt(10)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	l.RevertTo(id)

	if !l.TotalSupply().Eq(uint256.NewInt(100)) {
		t.Fatalf("total supply after revert: %s", l.TotalSupply().Dec())
	}
	if !l.BalanceOf(other).IsZero() {
		t.Fatalf("other balance after revert: %s", l.BalanceOf(other).Dec())
	}
	if !l.Allowance(holder, spender).IsZero() {
		t.Fatalf("allowance after revert: %s", l.Allowance(holder, spender).Dec())
	}
}
