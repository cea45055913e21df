package registry

import (
	"bytes"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"liquidityCore/internal/event"
	"liquidityCore/internal/host"
	"liquidityCore/internal/pool"
)

var (
	ErrIdenticalAssets = errors.New("identical asset identifiers")
	ErrZeroAsset       = errors.New("null asset identifier")
	ErrPairExists      = errors.New("pair already exists")
	ErrForbidden       = errors.New("unauthorized")
)

// Registry creates pools with deterministic identities and holds the
// protocol fee switch. It also owns the venue journal every pool registers
// into, so a failed call reverts atomically even when a callback crossed
// into other pools.
type Registry struct {
	addr    common.Address
	chainID uint64
	clock   host.Clock
	logger  *zap.Logger
	events  *event.Recorder
	journal *host.Journal

	feeTo       common.Address
	feeToSetter common.Address

	pairs map[common.Address]*pool.Pool
	all   []*pool.Pool
}

func New(addr common.Address, chainID uint64, clock host.Clock, feeToSetter common.Address, logger *zap.Logger, events *event.Recorder) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		addr:        addr,
		chainID:     chainID,
		clock:       clock,
		logger:      logger,
		events:      events,
		journal:     host.NewJournal(events),
		feeToSetter: feeToSetter,
		pairs:       make(map[common.Address]*pool.Pool),
	}
}

// FeeTo returns the protocol fee recipient; zero means the fee is off.
// Implements pool.FeeSource.
func (r *Registry) FeeTo() common.Address { return r.feeTo }

// SetFeeTo switches the protocol fee recipient. FeeToSetter only.
func (r *Registry) SetFeeTo(env host.Env, to common.Address) error {
	if env.Caller != r.feeToSetter {
		return ErrForbidden
	}
	r.feeTo = to
	return nil
}

// SetFeeToSetter hands the fee switch to another account. FeeToSetter only.
func (r *Registry) SetFeeToSetter(env host.Env, setter common.Address) error {
	if env.Caller != r.feeToSetter {
		return ErrForbidden
	}
	r.feeToSetter = setter
	return nil
}

// PairAddress derives the deterministic pool identity for an ordered asset
// pair: two parties creating the same pair always land on the same address.
func PairAddress(asset0, asset1 common.Address) common.Address {
	return common.BytesToAddress(crypto.Keccak256(asset0.Bytes(), asset1.Bytes())[12:])
}

// orderAssets returns the pair in canonical order, asset0 < asset1.
func orderAssets(a, b pool.Asset) (pool.Asset, pool.Asset) {
	if bytes.Compare(a.Address().Bytes(), b.Address().Bytes()) < 0 {
		return a, b
	}
	return b, a
}

// CreatePair instantiates the pool for an asset pair and initializes it.
// Creation fails if the derived identity is already registered.
func (r *Registry) CreatePair(env host.Env, assetA, assetB pool.Asset) (*pool.Pool, error) {
	if assetA.Address() == assetB.Address() {
		return nil, ErrIdenticalAssets
	}
	if assetA.Address() == (common.Address{}) || assetB.Address() == (common.Address{}) {
		return nil, ErrZeroAsset
	}

	ledger0, ledger1 := orderAssets(assetA, assetB)
	addr := PairAddress(ledger0.Address(), ledger1.Address())
	if _, ok := r.pairs[addr]; ok {
		return nil, ErrPairExists
	}

	p := pool.New(addr, r.addr, r, r.chainID, r.clock, r.logger, r.events, r.journal)
	if err := p.Initialize(host.Env{Caller: r.addr}, ledger0, ledger1); err != nil {
		return nil, err
	}
	r.pairs[addr] = p
	r.all = append(r.all, p)

	r.events.Append(event.Record{
		Type:      event.TypePairCreated,
		Pool:      addr.Hex(),
		Actor:     env.Caller.Hex(),
		Asset0:    ledger0.Address().Hex(),
		Asset1:    ledger1.Address().Hex(),
		Timestamp: r.clock(),
	})
	r.logger.Info("pair created",
		zap.String("pool", addr.Hex()),
		zap.String("asset0", ledger0.Address().Hex()),
		zap.String("asset1", ledger1.Address().Hex()),
	)
	return p, nil
}

// Pair looks up the pool for an asset pair in either order.
func (r *Registry) Pair(a, b common.Address) (*pool.Pool, bool) {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	p, ok := r.pairs[PairAddress(a, b)]
	return p, ok
}

// AllPairs returns every created pool in creation order.
func (r *Registry) AllPairs() []*pool.Pool {
	out := make([]*pool.Pool, len(r.all))
	copy(out, r.all)
	return out
}
