package asset

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Ledger is the read side a pool needs from a pooled fungible asset.
type Ledger interface {
	Address() common.Address
	BalanceOf(account common.Address) *uint256.Int
}

// Transferer moves pooled assets. The returned bytes mirror the raw return
// data of a low-level call: empty means legacy success, a 32-byte word is
// decoded as a boolean by the caller.
type Transferer interface {
	Transfer(from, to common.Address, amount *uint256.Int) ([]byte, error)
}
