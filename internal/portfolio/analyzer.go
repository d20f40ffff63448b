// Package portfolio aggregates a user's per-chain balances into a valuation
// snapshot for the strategy stage.
package portfolio

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/id"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/model"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/oracle"
)

// BalanceSource reports a user's balances: chain -> token -> amount.
type BalanceSource interface {
	Balances(ctx context.Context, userID string) (map[string]map[string]float64, error)
}

// StaticBalances serves a fixed balance table for every user.
type StaticBalances struct {
	table map[string]map[string]float64
}

// NewStaticBalances returns the default development balance source.
func NewStaticBalances() *StaticBalances {
	return &StaticBalances{table: map[string]map[string]float64{
		"ethereum": {"ETH": 0.0001, "USDC": 500, "PYUSD": 0},
		"polygon":  {"MATIC": 100, "USDC": 1000, "WETH": 0},
		"arbitrum": {"ETH": 0.05, "USDC": 2000, "ARB": 50},
		"base":     {"ETH": 0.02, "USDC": 800},
	}}
}

// NewFixedBalances returns a source serving exactly the given table; used by
// tests and the one-shot CLI.
func NewFixedBalances(table map[string]map[string]float64) *StaticBalances {
	return &StaticBalances{table: table}
}

func (s *StaticBalances) Balances(_ context.Context, _ string) (map[string]map[string]float64, error) {
	return s.table, nil
}

// Analyzer builds PortfolioSnapshots. A pricing miss on a single token never
// aborts the analysis; the oracle prices unknown tokens at its default.
type Analyzer struct {
	balances BalanceSource
	prices   oracle.PriceOracle
	log      zerolog.Logger
	now      func() time.Time
}

func NewAnalyzer(balances BalanceSource, prices oracle.PriceOracle, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		balances: balances,
		prices:   prices,
		log:      log.With().Str("component", "portfolio").Logger(),
		now:      time.Now,
	}
}

// Snapshot values every non-zero (chain, token) position in USD.
func (a *Analyzer) Snapshot(ctx context.Context, userID string) (model.PortfolioSnapshot, error) {
	balances, err := a.balances.Balances(ctx, userID)
	if err != nil {
		return model.PortfolioSnapshot{}, err
	}

	snapshot := model.PortfolioSnapshot{
		UserID:  userID,
		Assets:  make(map[string]model.PortfolioAsset),
		TakenAt: a.now().UTC(),
	}
	chains := map[string]bool{}

	for chain, tokens := range balances {
		for token, balance := range tokens {
			if balance <= 0 {
				continue
			}
			price, err := a.prices.Price(ctx, token)
			if err != nil {
				// Unknown or unpriceable tokens keep the analysis alive at
				// the default assumption rather than failing the workflow.
				a.log.Warn().Err(err).Str("token", token).Msg("price lookup failed, assuming 1.0 USD")
				price = 1.0
			}
			usd := balance * price
			chains[chain] = true
			snapshot.Assets[id.AssetKey(chain, token)] = model.PortfolioAsset{
				Chain:    chain,
				Token:    id.NormalizeToken(token),
				Balance:  balance,
				USDValue: usd,
			}
			snapshot.TotalValueUSD += usd
		}
	}

	snapshot.Chains = make([]string, 0, len(chains))
	for chain := range chains {
		snapshot.Chains = append(snapshot.Chains, chain)
	}
	sort.Strings(snapshot.Chains)

	a.log.Debug().Str("user", userID).Float64("total_usd", snapshot.TotalValueUSD).
		Int("assets", len(snapshot.Assets)).Msg("portfolio snapshot built")
	return snapshot, nil
}
