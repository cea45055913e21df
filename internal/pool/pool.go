package pool

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityCore/internal/asset"
	"liquidityCore/internal/event"
	"liquidityCore/internal/host"
	"liquidityCore/internal/num"
	"liquidityCore/internal/token"
)

var (
	ErrLocked                      = errors.New("reentrant call")
	ErrForbidden                   = errors.New("unauthorized")
	ErrNotInitialized              = errors.New("pool not initialized")
	ErrAlreadyInitialized          = errors.New("pool already initialized")
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	ErrInsufficientLiquidityBurned = errors.New("insufficient liquidity burned")
	ErrInsufficientOutputAmount    = errors.New("insufficient output amount")
	ErrInsufficientLiquidity       = errors.New("insufficient liquidity")
	ErrInsufficientInputAmount     = errors.New("insufficient input amount")
	ErrInvalidRecipient            = errors.New("invalid swap recipient")
	ErrMissingCallback             = errors.New("callback data without a callback")
	ErrInvariantViolation          = errors.New("constant product invariant violated")
	ErrTransferFailed              = errors.New("asset transfer failed")
	ErrReserveOverflow             = errors.New("reserve exceeds 112-bit range")
)

// MinimumLiquidity is permanently locked at the zero address on the first
// deposit, flooring the share price against first-depositor manipulation.
var MinimumLiquidity = uint256.NewInt(1000)

// FeeSource supplies the protocol fee recipient; the zero address disables
// protocol-fee minting.
type FeeSource interface {
	FeeTo() common.Address
}

// Asset bundles the read and transfer sides the pool needs from a pooled
// fungible-asset ledger.
type Asset interface {
	asset.Ledger
	asset.Transferer
}

// Callback is invoked on the swap recipient after outputs have been moved
// optimistically, enabling borrow-now-pay-later flash patterns. Repayment is
// observed only through the balance re-read that follows.
type Callback interface {
	OnSwap(caller common.Address, amount0Out, amount1Out *uint256.Int, data []byte) error
}

// Pool is the reserve state machine for one ordered asset pair. Shares are a
// claim-token ledger owned by the pool itself.
type Pool struct {
	addr     common.Address
	registry common.Address
	fees     FeeSource
	clock    host.Clock
	logger   *zap.Logger
	events   *event.Recorder
	journal  *host.Journal

	asset0, asset1   common.Address
	ledger0, ledger1 Asset

	reserve0           *uint256.Int
	reserve1           *uint256.Int
	blockTimestampLast uint32
	price0Cumulative   *uint256.Int
	price1Cumulative   *uint256.Int
	kLast              *uint256.Int

	shares *token.Ledger
	locked bool

	snapshots []coreState
}

type coreState struct {
	reserve0, reserve1 *uint256.Int
	timestampLast      uint32
	price0, price1     *uint256.Int
	kLast              *uint256.Int
}

// New creates an uninitialized pool at addr. Only the registry identity
// passed here may call Initialize. Pools of one venue share the registry's
// journal so a failed call unwinds across pool boundaries; a nil journal
// gives the pool a private one.
func New(addr, registry common.Address, fees FeeSource, chainID uint64, clock host.Clock, logger *zap.Logger, events *event.Recorder, journal *host.Journal) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if journal == nil {
		journal = host.NewJournal()
	}
	return &Pool{
		addr:             addr,
		registry:         registry,
		fees:             fees,
		clock:            clock,
		logger:           logger,
		events:           events,
		journal:          journal,
		reserve0:         new(uint256.Int),
		reserve1:         new(uint256.Int),
		price0Cumulative: new(uint256.Int),
		price1Cumulative: new(uint256.Int),
		kLast:            new(uint256.Int),
		shares:           token.NewLedger(addr, chainID, clock, events),
	}
}

// Initialize binds the ordered asset pair. Registry-only, once.
func (p *Pool) Initialize(env host.Env, ledger0, ledger1 Asset) error {
	if env.Caller != p.registry {
		return ErrForbidden
	}
	if p.ledger0 != nil {
		return ErrAlreadyInitialized
	}
	p.ledger0 = ledger0
	p.ledger1 = ledger1
	p.asset0 = ledger0.Address()
	p.asset1 = ledger1.Address()

	p.journal.Register(coreSnapshotter{p}, p.shares, p.events)
	if s, ok := ledger0.(host.Snapshotter); ok {
		p.journal.Register(s)
	}
	if s, ok := ledger1.(host.Snapshotter); ok {
		p.journal.Register(s)
	}
	return nil
}

func (p *Pool) Address() common.Address { return p.addr }

func (p *Pool) Assets() (common.Address, common.Address) { return p.asset0, p.asset1 }

// Reserves returns the recorded reserves and the wrapped timestamp of the
// last sync.
func (p *Pool) Reserves() (*uint256.Int, *uint256.Int, uint32) {
	return p.reserve0.Clone(), p.reserve1.Clone(), p.blockTimestampLast
}

// PriceCumulatives returns the time-weighted price accumulators.
func (p *Pool) PriceCumulatives() (*uint256.Int, *uint256.Int) {
	return p.price0Cumulative.Clone(), p.price1Cumulative.Clone()
}

// guard serializes state-mutating entry points: reject reentrant invocation,
// snapshot the journal, and revert everything on failure.
func (p *Pool) guard(fn func() error) error {
	if p.locked {
		return ErrLocked
	}
	if p.ledger0 == nil {
		return ErrNotInitialized
	}
	p.locked = true
	defer func() { p.locked = false }()

	marks := p.journal.Snapshot()
	if err := fn(); err != nil {
		p.journal.RevertTo(marks)
		return err
	}
	p.journal.Discard(marks)
	return nil
}

// Mint credits liquidity shares for assets already transferred to the pool.
// The deposited amounts are the difference between live balances and the
// recorded reserves.
func (p *Pool) Mint(env host.Env, to common.Address) (*uint256.Int, error) {
	var liquidity *uint256.Int
	err := p.guard(func() error {
		balance0 := p.ledger0.BalanceOf(p.addr)
		balance1 := p.ledger1.BalanceOf(p.addr)
		amount0, err := num.CheckedSub(balance0, p.reserve0)
		if err != nil {
			return err
		}
		amount1, err := num.CheckedSub(balance1, p.reserve1)
		if err != nil {
			return err
		}

		feeOn, err := p.mintFee()
		if err != nil {
			return err
		}

		totalSupply := p.shares.TotalSupply()
		if totalSupply.IsZero() {
			k, err := num.CheckedMul(amount0, amount1)
			if err != nil {
				return err
			}
			liquidity, err = num.CheckedSub(num.Sqrt(k), MinimumLiquidity)
			if err != nil {
				return err
			}
			if err := p.shares.Mint(common.Address{}, MinimumLiquidity); err != nil {
				return err
			}
		} else {
			l0, err := num.CheckedMul(amount0, totalSupply)
			if err != nil {
				return err
			}
			l1, err := num.CheckedMul(amount1, totalSupply)
			if err != nil {
				return err
			}
			liquidity = num.Min(l0.Div(l0, p.reserve0), l1.Div(l1, p.reserve1))
		}
		if liquidity.IsZero() {
			return ErrInsufficientLiquidityMinted
		}
		if err := p.shares.Mint(to, liquidity); err != nil {
			return err
		}

		if err := p.update(balance0, balance1); err != nil {
			return err
		}
		if feeOn {
			if p.kLast, err = num.CheckedMul(p.reserve0, p.reserve1); err != nil {
				return err
			}
		}

		p.events.Append(event.Record{
			Type:      event.TypeDeposit,
			Pool:      p.addr.Hex(),
			Actor:     env.Caller.Hex(),
			Recipient: to.Hex(),
			Amount0:   amount0.Dec(),
			Amount1:   amount1.Dec(),
			Timestamp: p.clock(),
		})
		p.logger.Debug("mint",
			zap.String("pool", p.addr.Hex()),
			zap.String("liquidity", liquidity.Dec()),
		)
		return nil
	})
	return liquidity, err
}

// Burn redeems the share balance held by the pool itself for a pro-rata cut
// of both live balances, so previously donated surplus is distributed too.
func (p *Pool) Burn(env host.Env, to common.Address) (*uint256.Int, *uint256.Int, error) {
	var amount0, amount1 *uint256.Int
	err := p.guard(func() error {
		balance0 := p.ledger0.BalanceOf(p.addr)
		balance1 := p.ledger1.BalanceOf(p.addr)
		liquidity := p.shares.BalanceOf(p.addr)

		feeOn, err := p.mintFee()
		if err != nil {
			return err
		}

		totalSupply := p.shares.TotalSupply()
		a0, err := num.CheckedMul(liquidity, balance0)
		if err != nil {
			return err
		}
		a1, err := num.CheckedMul(liquidity, balance1)
		if err != nil {
			return err
		}
		amount0 = a0.Div(a0, totalSupply)
		amount1 = a1.Div(a1, totalSupply)
		if amount0.IsZero() || amount1.IsZero() {
			return ErrInsufficientLiquidityBurned
		}

		if err := p.shares.Burn(p.addr, liquidity); err != nil {
			return err
		}
		if err := p.safeTransfer(p.ledger0, to, amount0); err != nil {
			return err
		}
		if err := p.safeTransfer(p.ledger1, to, amount1); err != nil {
			return err
		}

		balance0 = p.ledger0.BalanceOf(p.addr)
		balance1 = p.ledger1.BalanceOf(p.addr)
		if err := p.update(balance0, balance1); err != nil {
			return err
		}
		if feeOn {
			if p.kLast, err = num.CheckedMul(p.reserve0, p.reserve1); err != nil {
				return err
			}
		}

		p.events.Append(event.Record{
			Type:      event.TypeWithdraw,
			Pool:      p.addr.Hex(),
			Actor:     env.Caller.Hex(),
			Recipient: to.Hex(),
			Amount0:   amount0.Dec(),
			Amount1:   amount1.Dec(),
			Timestamp: p.clock(),
		})
		return nil
	})
	return amount0, amount1, err
}

// Swap trades against the invariant: outputs move optimistically, the
// optional callback runs, inputs are inferred from the balance re-read, and
// the fee-adjusted product must not fall below the pre-trade product.
func (p *Pool) Swap(env host.Env, amount0Out, amount1Out *uint256.Int, to common.Address, data []byte, cb Callback) error {
	return p.guard(func() error {
		if amount0Out.IsZero() && amount1Out.IsZero() {
			return ErrInsufficientOutputAmount
		}
		if amount0Out.Cmp(p.reserve0) >= 0 || amount1Out.Cmp(p.reserve1) >= 0 {
			return ErrInsufficientLiquidity
		}
		if to == p.asset0 || to == p.asset1 {
			return ErrInvalidRecipient
		}

		if !amount0Out.IsZero() {
			if err := p.safeTransfer(p.ledger0, to, amount0Out); err != nil {
				return err
			}
		}
		if !amount1Out.IsZero() {
			if err := p.safeTransfer(p.ledger1, to, amount1Out); err != nil {
				return err
			}
		}
		if len(data) > 0 {
			if cb == nil {
				return ErrMissingCallback
			}
			if err := cb.OnSwap(env.Caller, amount0Out.Clone(), amount1Out.Clone(), data); err != nil {
				return fmt.Errorf("swap callback: %w", err)
			}
		}

		balance0 := p.ledger0.BalanceOf(p.addr)
		balance1 := p.ledger1.BalanceOf(p.addr)
		amount0In := inferInput(balance0, p.reserve0, amount0Out)
		amount1In := inferInput(balance1, p.reserve1, amount1Out)
		if amount0In.IsZero() && amount1In.IsZero() {
			return ErrInsufficientInputAmount
		}

		adjusted0, err := feeAdjusted(balance0, amount0In)
		if err != nil {
			return err
		}
		adjusted1, err := feeAdjusted(balance1, amount1In)
		if err != nil {
			return err
		}
		left, err := num.CheckedMul(adjusted0, adjusted1)
		if err != nil {
			return err
		}
		right, err := num.CheckedMul(p.reserve0, p.reserve1)
		if err != nil {
			return err
		}
		if right, err = num.CheckedMul(right, uint256.NewInt(1_000_000)); err != nil {
			return err
		}
		if left.Lt(right) {
			return ErrInvariantViolation
		}

		if err := p.update(balance0, balance1); err != nil {
			return err
		}

		p.events.Append(event.Record{
			Type:       event.TypeSwap,
			Pool:       p.addr.Hex(),
			Actor:      env.Caller.Hex(),
			Recipient:  to.Hex(),
			Amount0In:  amount0In.Dec(),
			Amount1In:  amount1In.Dec(),
			Amount0Out: amount0Out.Dec(),
			Amount1Out: amount1Out.Dec(),
			Timestamp:  p.clock(),
		})
		return nil
	})
}

// Skim transfers any live balance in excess of the recorded reserves,
// recovering assets sent to the pool without deposit accounting.
func (p *Pool) Skim(env host.Env, to common.Address) error {
	return p.guard(func() error {
		excess0, err := num.CheckedSub(p.ledger0.BalanceOf(p.addr), p.reserve0)
		if err != nil {
			return err
		}
		excess1, err := num.CheckedSub(p.ledger1.BalanceOf(p.addr), p.reserve1)
		if err != nil {
			return err
		}
		if err := p.safeTransfer(p.ledger0, to, excess0); err != nil {
			return err
		}
		return p.safeTransfer(p.ledger1, to, excess1)
	})
}

// Sync forces the recorded reserves to match the live balances.
func (p *Pool) Sync(env host.Env) error {
	return p.guard(func() error {
		return p.update(p.ledger0.BalanceOf(p.addr), p.ledger1.BalanceOf(p.addr))
	})
}

// update overwrites the recorded reserves with live balances and, when time
// has passed with liquidity in place, accrues the paired-reserve ratios into
// the cumulative price counters. Timestamp differences and the accumulators
// use wrapping arithmetic on purpose.
func (p *Pool) update(balance0, balance1 *uint256.Int) error {
	if balance0.Gt(num.MaxUint112) || balance1.Gt(num.MaxUint112) {
		return ErrReserveOverflow
	}

	now := uint32(p.clock())
	elapsed := now - p.blockTimestampLast
	if elapsed > 0 && !p.reserve0.IsZero() && !p.reserve1.IsZero() {
		e := uint256.NewInt(uint64(elapsed))
		price0 := num.DivUQ112(num.EncodeUQ112(p.reserve1), p.reserve0)
		price1 := num.DivUQ112(num.EncodeUQ112(p.reserve0), p.reserve1)
		p.price0Cumulative.Add(p.price0Cumulative, price0.Mul(price0, e))
		p.price1Cumulative.Add(p.price1Cumulative, price1.Mul(price1, e))
	}

	p.reserve0.Set(balance0)
	p.reserve1.Set(balance1)
	p.blockTimestampLast = now

	p.events.Append(event.Record{
		Type:      event.TypeSync,
		Pool:      p.addr.Hex(),
		Reserve0:  p.reserve0.Dec(),
		Reserve1:  p.reserve1.Dec(),
		Timestamp: p.clock(),
	})
	return nil
}

// mintFee dilutes holders by one sixth of the invariant's root growth in
// favor of the protocol fee recipient, when one is configured. Reports
// whether the fee switch is on so callers know to refresh kLast.
func (p *Pool) mintFee() (bool, error) {
	feeTo := p.fees.FeeTo()
	feeOn := feeTo != (common.Address{})
	if !feeOn {
		if !p.kLast.IsZero() {
			p.kLast.Clear()
		}
		return false, nil
	}
	if p.kLast.IsZero() {
		return true, nil
	}

	k, err := num.CheckedMul(p.reserve0, p.reserve1)
	if err != nil {
		return feeOn, err
	}
	rootK := num.Sqrt(k)
	rootKLast := num.Sqrt(p.kLast)
	if rootK.Cmp(rootKLast) <= 0 {
		return true, nil
	}

	growth, err := num.CheckedSub(rootK, rootKLast)
	if err != nil {
		return feeOn, err
	}
	numerator, err := num.CheckedMul(p.shares.TotalSupply(), growth)
	if err != nil {
		return feeOn, err
	}
	denominator, err := num.CheckedMul(rootK, uint256.NewInt(5))
	if err != nil {
		return feeOn, err
	}
	if denominator, err = num.CheckedAdd(denominator, rootKLast); err != nil {
		return feeOn, err
	}
	liquidity := numerator.Div(numerator, denominator)
	if !liquidity.IsZero() {
		if err := p.shares.Mint(feeTo, liquidity); err != nil {
			return feeOn, err
		}
	}
	return true, nil
}

// safeTransfer moves pooled assets out and applies the tolerant success
// interpretation: the call must not error and must return either no data or
// a word decoding to true.
func (p *Pool) safeTransfer(a Asset, to common.Address, value *uint256.Int) error {
	if value.IsZero() {
		return nil
	}
	ret, err := a.Transfer(p.addr, to, value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if len(ret) == 0 {
		return nil
	}
	if len(ret) == 32 && new(uint256.Int).SetBytes(ret).Eq(uint256.NewInt(1)) {
		return nil
	}
	return ErrTransferFailed
}

// inferInput derives the paid-in amount from a live balance: positive part
// of balance - (reserve - out).
func inferInput(balance, reserve, out *uint256.Int) *uint256.Int {
	prior := new(uint256.Int).Sub(reserve, out)
	if balance.Gt(prior) {
		return new(uint256.Int).Sub(balance, prior)
	}
	return new(uint256.Int)
}

// feeAdjusted scales a balance by 1000 and charges 3 per mille of the input,
// the fixed 0.3% trading fee.
func feeAdjusted(balance, amountIn *uint256.Int) (*uint256.Int, error) {
	scaled, err := num.CheckedMul(balance, uint256.NewInt(1000))
	if err != nil {
		return nil, err
	}
	fee, err := num.CheckedMul(amountIn, uint256.NewInt(3))
	if err != nil {
		return nil, err
	}
	return num.CheckedSub(scaled, fee)
}

type coreSnapshotter struct{ p *Pool }

func (c coreSnapshotter) Snapshot() int {
	p := c.p
	p.snapshots = append(p.snapshots, coreState{
		reserve0:      p.reserve0.Clone(),
		reserve1:      p.reserve1.Clone(),
		timestampLast: p.blockTimestampLast,
		price0:        p.price0Cumulative.Clone(),
		price1:        p.price1Cumulative.Clone(),
		kLast:         p.kLast.Clone(),
	})
	return len(p.snapshots) - 1
}

func (c coreSnapshotter) RevertTo(id int) {
	p := c.p
	if id < 0 || id >= len(p.snapshots) {
		return
	}
	state := p.snapshots[id]
	p.reserve0 = state.reserve0
	p.reserve1 = state.reserve1
	p.blockTimestampLast = state.timestampLast
	p.price0Cumulative = state.price0
	p.price1Cumulative = state.price1
	p.kLast = state.kLast
	p.snapshots = p.snapshots[:id]
}

func (c coreSnapshotter) Discard(id int) {
	p := c.p
	if id < 0 || id >= len(p.snapshots) {
		return
	}
	p.snapshots = p.snapshots[:id]
}
