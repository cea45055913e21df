package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityCore/internal/host"
)

// The pool is itself the claim-token instance: the ledger is unexported so
// mint and burn stay engine-only, and the public token surface is delegated
// here. Ledger calls are atomic on their own and do not take the swap lock.

func (p *Pool) TotalSupply() *uint256.Int { return p.shares.TotalSupply() }

func (p *Pool) BalanceOf(account common.Address) *uint256.Int {
	return p.shares.BalanceOf(account)
}

func (p *Pool) Allowance(owner, spender common.Address) *uint256.Int {
	return p.shares.Allowance(owner, spender)
}

func (p *Pool) Nonce(account common.Address) uint64 { return p.shares.Nonce(account) }

func (p *Pool) DomainSeparator() common.Hash { return p.shares.DomainSeparator() }

// Transfer moves shares from the caller to another holder.
func (p *Pool) Transfer(env host.Env, to common.Address, value *uint256.Int) error {
	return p.shares.Transfer(env.Caller, to, value)
}

// Approve sets the allowance the caller grants spender.
func (p *Pool) Approve(env host.Env, spender common.Address, value *uint256.Int) error {
	return p.shares.Approve(env.Caller, spender, value)
}

// TransferFrom moves shares on an allowance held by the caller.
func (p *Pool) TransferFrom(env host.Env, from, to common.Address, value *uint256.Int) error {
	return p.shares.TransferFrom(env.Caller, from, to, value)
}

// PermitDigest exposes the signing digest for gasless approvals.
func (p *Pool) PermitDigest(owner, spender common.Address, value *uint256.Int, deadline uint64) common.Hash {
	return p.shares.PermitDigest(owner, spender, value, deadline)
}

// Permit applies a signature-authorized approval.
func (p *Pool) Permit(owner, spender common.Address, value *uint256.Int, deadline uint64, sig []byte) error {
	return p.shares.Permit(owner, spender, value, deadline, sig)
}
