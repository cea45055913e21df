package token

import (
	"crypto/ecdsa"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"liquidityCore/internal/event"
)

type permitFixture struct {
	ledger *Ledger
	key    *ecdsa.PrivateKey
	owner  common.Address
	now    uint64
}

func newPermitFixture(t *testing.T) *permitFixture {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	fx := &permitFixture{key: key, owner: crypto.PubkeyToAddress(key.PublicKey), now: 1_700_000_000}
	fx.ledger = NewLedger(ledgerAddr, 1, func() uint64 { return fx.now }, event.NewRecorder(nil))
	return fx
}

func (fx *permitFixture) sign(t *testing.T, spender common.Address, value *uint256.Int, deadline uint64) []byte {
	t.Helper()
	digest := fx.ledger.PermitDigest(fx.owner, spender, value, deadline)
	sig, err := crypto.Sign(digest.Bytes(), fx.key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return sig
}

func TestPermitSetsAllowance(t *testing.T) {
	fx := newPermitFixture(t)
	value := uint256.NewInt(12345)
	deadline := fx.now + 3600
	sig := fx.sign(t, spender, value, deadline)

	if err := fx.ledger.Permit(fx.owner, spender, value, deadline, sig); err != nil {
		t.Fatalf("permit: %v", err)
	}
	if !fx.ledger.Allowance(fx.owner, spender).Eq(value) {
		t.Fatalf("allowance: %s", fx.ledger.Allowance(fx.owner, spender).Dec())
	}
	if fx.ledger.Nonce(fx.owner) != 1 {
		t.Fatalf("nonce: %d", fx.ledger.Nonce(fx.owner))
	}
}

func TestPermitReplayRejected(t *testing.T) {
	fx := newPermitFixture(t)
	value := uint256.NewInt(1)
	deadline := fx.now + 3600
	sig := fx.sign(t, spender, value, deadline)

	if err := fx.ledger.Permit(fx.owner, spender, value, deadline, sig); err != nil {
		t.Fatalf("permit: %v", err)
	}
	// The nonce advanced, so the identical signature no longer recovers owner.
	if err := fx.ledger.Permit(fx.owner, spender, value, deadline, sig); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected invalid signature on replay, got %v", err)
	}
	if fx.ledger.Nonce(fx.owner) != 1 {
		t.Fatalf("nonce advanced on failed permit: %d", fx.ledger.Nonce(fx.owner))
	}
}

func TestPermitExpired(t *testing.T) {
	fx := newPermitFixture(t)
	value := uint256.NewInt(1)
	deadline := fx.now - 1
	sig := fx.sign(t, spender, value, deadline)

	if err := fx.ledger.Permit(fx.owner, spender, value, deadline, sig); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestPermitWrongSigner(t *testing.T) {
	fx := newPermitFixture(t)
	intruder, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	value := uint256.NewInt(1)
	deadline := fx.now + 3600
	digest := fx.ledger.PermitDigest(fx.owner, spender, value, deadline)
	sig, err := crypto.Sign(digest.Bytes(), intruder)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := fx.ledger.Permit(fx.owner, spender, value, deadline, sig); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
	if !fx.ledger.Allowance(fx.owner, spender).IsZero() {
		t.Fatalf("allowance set by invalid permit")
	}
}

func TestPermitMalformedSignature(t *testing.T) {
	fx := newPermitFixture(t)
	err := fx.ledger.Permit(fx.owner, spender, uint256.NewInt(1), fx.now+3600, []byte{1, 2, 3})
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
}

func TestDomainSeparatorBindsInstanceAndChain(t *testing.T) {
	fx := newPermitFixture(t)
	value := uint256.NewInt(7)
	deadline := fx.now + 3600
	sig := fx.sign(t, spender, value, deadline)

	// Same owner and terms on a different ledger identity: replay must fail.
	otherLedger := NewLedger(common.HexToAddress("0xBB"), 1, func() uint64 { return fx.now }, event.NewRecorder(nil))
	if err := otherLedger.Permit(fx.owner, spender, value, deadline, sig); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected cross-instance replay rejection, got %v", err)
	}

	// Same identity on a different chain: replay must fail too.
	otherChain := NewLedger(ledgerAddr, 2, func() uint64 { return fx.now }, event.NewRecorder(nil))
	if err := otherChain.Permit(fx.owner, spender, value, deadline, sig); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected cross-chain replay rejection, got %v", err)
	}
}
