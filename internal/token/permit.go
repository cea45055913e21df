package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"liquidityCore/internal/event"
)

var (
	eip712DomainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	permitTypeHash       = crypto.Keccak256Hash([]byte("Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)"))
)

func computeDomainSeparator(self common.Address, chainID uint64) common.Hash {
	return crypto.Keccak256Hash(
		eip712DomainTypeHash.Bytes(),
		crypto.Keccak256([]byte(Name)),
		crypto.Keccak256([]byte(Version)),
		padUint64(chainID),
		padAddress(self),
	)
}

// DomainSeparator returns the value binding signatures to this ledger
// instance and chain.
func (l *Ledger) DomainSeparator() common.Hash { return l.domainSeparator }

// PermitDigest computes the signing digest for an approval of value from
// owner to spender, bound to the owner's current nonce and the deadline.
// Off-chain signers call this to produce the message they sign.
func (l *Ledger) PermitDigest(owner, spender common.Address, value *uint256.Int, deadline uint64) common.Hash {
	word := value.Bytes32()
	structHash := crypto.Keccak256Hash(
		permitTypeHash.Bytes(),
		padAddress(owner),
		padAddress(spender),
		word[:],
		padUint64(l.nonces[owner]),
		padUint64(deadline),
	)
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, l.domainSeparator.Bytes(), structHash.Bytes())
}

// Permit applies the effect of Approve(owner->spender, value) authorized by
// owner's signature instead of a direct call. The signature is the 65-byte
// [R || S || V] form produced by secp256k1 signing of PermitDigest. Each
// successful permit consumes the owner's current nonce, so a signature can
// never be replayed.
func (l *Ledger) Permit(owner, spender common.Address, value *uint256.Int, deadline uint64, sig []byte) error {
	if l.clock() > deadline {
		return ErrExpired
	}
	if len(sig) != 65 {
		return ErrInvalidSignature
	}

	digest := l.PermitDigest(owner, spender, value, deadline)
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return ErrInvalidSignature
	}
	recovered := crypto.PubkeyToAddress(*pub)
	if recovered == (common.Address{}) || recovered != owner {
		return ErrInvalidSignature
	}

	l.nonces[owner]++
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

func padAddress(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}

func padUint64(v uint64) []byte {
	word := uint256.NewInt(v).Bytes32()
	return word[:]
}
