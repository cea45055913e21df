package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityCore/internal/asset"
	"liquidityCore/internal/config"
	"liquidityCore/internal/event"
	"liquidityCore/internal/event/postgres"
	"liquidityCore/internal/host"
	"liquidityCore/internal/registry"
)

// scenario is the scripted input for a simulation run. Amounts are decimal
// strings; asset references use the declared symbols.
type scenario struct {
	StartTime   uint64            `json:"start_time"`
	Registry    string            `json:"registry"`
	FeeToSetter string            `json:"fee_to_setter"`
	Assets      []scenarioAsset   `json:"assets"`
	Balances    []scenarioBalance `json:"balances"`
	Steps       []scenarioStep    `json:"steps"`
}

type scenarioAsset struct {
	Symbol      string `json:"symbol"`
	Address     string `json:"address"`
	ReturnStyle string `json:"return_style"`
}

type scenarioBalance struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
}

// scenarioStep covers every supported operation; unused fields are ignored.
// amount0_out/amount1_out are relative to the canonical asset ordering.
type scenarioStep struct {
	Op         string `json:"op"`
	Caller     string `json:"caller"`
	AssetA     string `json:"asset_a"`
	AssetB     string `json:"asset_b"`
	AmountA    string `json:"amount_a"`
	AmountB    string `json:"amount_b"`
	AssetIn    string `json:"asset_in"`
	AmountIn   string `json:"amount_in"`
	Amount0Out string `json:"amount0_out"`
	Amount1Out string `json:"amount1_out"`
	Shares     string `json:"shares"`
	To         string `json:"to"`
	Advance    uint64 `json:"advance"`
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.ScenarioPath == "" {
		return fmt.Errorf("scenario path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := os.ReadFile(cfg.ScenarioPath)
	if err != nil {
		return fmt.Errorf("read scenario: %w", err)
	}
	var s scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parse scenario: %w", err)
	}

	records, err := executeScenario(&s, cfg.ChainID, logger)
	if err != nil {
		return err
	}

	sink := event.NewJsonlSink(cfg.Out)
	if err := sink.PutEventBatch(records); err != nil {
		return fmt.Errorf("write events: %w", err)
	}

	if cfg.PgDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		err = event.WithRetry(ctx, cfg.MaxRetries, cfg.RetryBackoff, func(ctx context.Context) error {
			return store.InsertEvents(ctx, cfg.RunID, records)
		})
		if err != nil {
			return fmt.Errorf("persist events: %w", err)
		}
	}

	logger.Info("simulation complete",
		zap.Int("steps", len(s.Steps)),
		zap.Int("events", len(records)),
		zap.String("out", cfg.Out),
	)
	return nil
}

// executeScenario runs every step against a fresh in-memory venue and
// returns the emitted event records.
func executeScenario(s *scenario, chainID uint64, logger *zap.Logger) ([]event.Record, error) {
	now := s.StartTime
	clock := func() uint64 { return now }

	recorder := event.NewRecorder(logger)
	reg := registry.New(
		common.HexToAddress(s.Registry),
		chainID,
		clock,
		common.HexToAddress(s.FeeToSetter),
		logger,
		recorder,
	)

	assets := make(map[string]*asset.Token, len(s.Assets))
	for _, a := range s.Assets {
		style, err := parseReturnStyle(a.ReturnStyle)
		if err != nil {
			return nil, err
		}
		assets[a.Symbol] = asset.NewToken(a.Symbol, common.HexToAddress(a.Address), style)
	}

	for _, b := range s.Balances {
		tok, ok := assets[b.Asset]
		if !ok {
			return nil, fmt.Errorf("unknown asset %q in balances", b.Asset)
		}
		amount, err := parseAmount(b.Amount)
		if err != nil {
			return nil, err
		}
		tok.MintTo(common.HexToAddress(b.Account), amount)
	}

	for i, step := range s.Steps {
		advance := step.Advance
		if advance == 0 {
			advance = 1
		}
		now += advance

		if err := applyStep(reg, assets, step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		logger.Info("step applied", zap.Int("index", i), zap.String("op", step.Op))
	}

	return recorder.Drain(), nil
}

func applyStep(reg *registry.Registry, assets map[string]*asset.Token, step scenarioStep) error {
	env := host.Env{Caller: common.HexToAddress(step.Caller)}

	switch step.Op {
	case "create_pair":
		a, b, err := lookupPairAssets(assets, step)
		if err != nil {
			return err
		}
		_, err = reg.CreatePair(env, a, b)
		return err

	case "set_fee_to":
		return reg.SetFeeTo(env, common.HexToAddress(step.To))

	case "deposit":
		a, b, err := lookupPairAssets(assets, step)
		if err != nil {
			return err
		}
		p, ok := reg.Pair(a.Address(), b.Address())
		if !ok {
			return fmt.Errorf("pair not created")
		}
		amountA, err := parseAmount(step.AmountA)
		if err != nil {
			return err
		}
		amountB, err := parseAmount(step.AmountB)
		if err != nil {
			return err
		}
		// Out-of-band precondition: assets move to the pool first.
		if _, err := a.Transfer(env.Caller, p.Address(), amountA); err != nil {
			return err
		}
		if _, err := b.Transfer(env.Caller, p.Address(), amountB); err != nil {
			return err
		}
		_, err = p.Mint(env, common.HexToAddress(step.To))
		return err

	case "swap":
		a, b, err := lookupPairAssets(assets, step)
		if err != nil {
			return err
		}
		p, ok := reg.Pair(a.Address(), b.Address())
		if !ok {
			return fmt.Errorf("pair not created")
		}
		in, ok := assets[step.AssetIn]
		if !ok {
			return fmt.Errorf("unknown asset %q", step.AssetIn)
		}
		amountIn, err := parseAmount(step.AmountIn)
		if err != nil {
			return err
		}
		amount0Out, err := parseAmount(step.Amount0Out)
		if err != nil {
			return err
		}
		amount1Out, err := parseAmount(step.Amount1Out)
		if err != nil {
			return err
		}
		if _, err := in.Transfer(env.Caller, p.Address(), amountIn); err != nil {
			return err
		}
		return p.Swap(env, amount0Out, amount1Out, common.HexToAddress(step.To), nil, nil)

	case "withdraw":
		a, b, err := lookupPairAssets(assets, step)
		if err != nil {
			return err
		}
		p, ok := reg.Pair(a.Address(), b.Address())
		if !ok {
			return fmt.Errorf("pair not created")
		}
		shares, err := parseAmount(step.Shares)
		if err != nil {
			return err
		}
		if err := p.Transfer(env, p.Address(), shares); err != nil {
			return err
		}
		_, _, err = p.Burn(env, common.HexToAddress(step.To))
		return err

	case "skim":
		a, b, err := lookupPairAssets(assets, step)
		if err != nil {
			return err
		}
		p, ok := reg.Pair(a.Address(), b.Address())
		if !ok {
			return fmt.Errorf("pair not created")
		}
		return p.Skim(env, common.HexToAddress(step.To))

	case "sync":
		a, b, err := lookupPairAssets(assets, step)
		if err != nil {
			return err
		}
		p, ok := reg.Pair(a.Address(), b.Address())
		if !ok {
			return fmt.Errorf("pair not created")
		}
		return p.Sync(env)

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

func lookupPairAssets(assets map[string]*asset.Token, step scenarioStep) (*asset.Token, *asset.Token, error) {
	a, ok := assets[step.AssetA]
	if !ok {
		return nil, nil, fmt.Errorf("unknown asset %q", step.AssetA)
	}
	b, ok := assets[step.AssetB]
	if !ok {
		return nil, nil, fmt.Errorf("unknown asset %q", step.AssetB)
	}
	return a, b, nil
}

func parseReturnStyle(s string) (asset.ReturnStyle, error) {
	switch s {
	case "", "empty":
		return asset.ReturnEmpty, nil
	case "bool":
		return asset.ReturnTrue, nil
	case "false":
		return asset.ReturnFalse, nil
	default:
		return 0, fmt.Errorf("unknown return style %q", s)
	}
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok || b.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	z, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("amount %q exceeds 256 bits", s)
	}
	return z, nil
}
