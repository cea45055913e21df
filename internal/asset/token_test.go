package asset

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	alice = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func TestTransferMovesBalance(t *testing.T) {
	tok := NewToken("TKA", common.HexToAddress("0x01"), ReturnEmpty)
	tok.MintTo(alice, uint256.NewInt(100))

	ret, err := tok.Transfer(alice, bob, uint256.NewInt(40))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ret) != 0 {
		t.Fatalf("expected empty return data, got %d bytes", len(ret))
	}
	if !tok.BalanceOf(alice).Eq(uint256.NewInt(60)) {
		t.Fatalf("alice balance: %s", tok.BalanceOf(alice).Dec())
	}
	if !tok.BalanceOf(bob).Eq(uint256.NewInt(40)) {
		t.Fatalf("bob balance: %s", tok.BalanceOf(bob).Dec())
	}
}

func TestTransferInsufficient(t *testing.T) {
	tok := NewToken("TKA", common.HexToAddress("0x01"), ReturnEmpty)
	tok.MintTo(alice, uint256.NewInt(10))

	if _, err := tok.Transfer(alice, bob, uint256.NewInt(11)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestReturnStyles(t *testing.T) {
	cases := []struct {
		style ReturnStyle
		last  byte
	}{
		{ReturnTrue, 1},
		{ReturnFalse, 0},
	}
	for _, c := range cases {
		tok := NewToken("TKB", common.HexToAddress("0x02"), c.style)
		tok.MintTo(alice, uint256.NewInt(1))
		ret, err := tok.Transfer(alice, bob, uint256.NewInt(1))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(ret) != 32 || ret[31] != c.last {
			t.Fatalf("unexpected return word: %x", ret)
		}
	}
}

func TestSnapshotDiscard(t *testing.T) {
	tok := NewToken("TKA", common.HexToAddress("0x01"), ReturnEmpty)
	tok.MintTo(alice, uint256.NewInt(100))

	id := tok.Snapshot()
	if _, err := tok.Transfer(alice, bob, uint256.NewInt(40)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tok.Discard(id)

	if n := len(tok.snapshots); n != 0 {
		t.Fatalf("snapshot retained after discard: %d", n)
	}
	tok.RevertTo(id)
	if !tok.BalanceOf(bob).Eq(uint256.NewInt(40)) {
		t.Fatalf("discarded snapshot restored: %s", tok.BalanceOf(bob).Dec())
	}
}

func TestSnapshotRevert(t *testing.T) {
	tok := NewToken("TKA", common.HexToAddress("0x01"), ReturnEmpty)
	tok.MintTo(alice, uint256.NewInt(100))

	id := tok.Snapshot()
	if _, err := tok.Transfer(alice, bob, uint256.NewInt(100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tok.RevertTo(id)

	if !tok.BalanceOf(alice).Eq(uint256.NewInt(100)) {
		t.Fatalf("alice balance after revert: %s", tok.BalanceOf(alice).Dec())
	}
	if !tok.BalanceOf(bob).IsZero() {
		t.Fatalf("bob balance after revert: %s", tok.BalanceOf(bob).Dec())
	}
}
