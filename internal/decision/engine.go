// Package decision holds the scoring and selection algorithms shared by the
// strategy, bridge, and conversion workers. Everything here is pure: no
// I/O, no state, identical inputs produce identical outputs.
package decision

import (
	"sort"

	clierr "github.com/Dimple-Kanwar/SafeStake.AI/internal/errors"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/model"
)

// Composite score reference points. Times near timeRef seconds and fees near
// feeRef score close to 1; a full span beyond the reference scores 0.
const (
	timeRef  = 300.0
	timeSpan = 1200.0
	feeRef   = 8.0
	feeSpan  = 20.0

	weightTime     = 0.25
	weightFee      = 0.30
	weightSuccess  = 0.25
	weightSecurity = 0.20
	nativeBonus    = 0.10
)

// FundingSources picks which existing balances supply a target USD amount.
// Same-chain assets are strictly preferred over cross-chain ones regardless
// of size; within a tier, larger USD values are consumed first. The last
// consumed source takes only the exact amount still needed. The returned
// total is the committed USD value; when it falls short of targetUSD the
// caller must treat the allocation as insufficient.
func FundingSources(snapshot model.PortfolioSnapshot, targetUSD float64, preferredChain string) ([]model.FundingSource, float64) {
	candidates := make([]model.PortfolioAsset, 0, len(snapshot.Assets))
	for _, asset := range snapshot.Assets {
		if asset.Balance > 0 && asset.USDValue > 0 {
			candidates = append(candidates, asset)
		}
	}
	// Map iteration order is random; fix it before the ranking sort so ties
	// resolve the same way on every call.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Chain != candidates[j].Chain {
			return candidates[i].Chain < candidates[j].Chain
		}
		return candidates[i].Token < candidates[j].Token
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		ti, tj := chainTier(candidates[i].Chain, preferredChain), chainTier(candidates[j].Chain, preferredChain)
		if ti != tj {
			return ti < tj
		}
		return candidates[i].USDValue > candidates[j].USDValue
	})

	var sources []model.FundingSource
	var committed float64
	remaining := targetUSD
	for _, asset := range candidates {
		if remaining <= 0 {
			break
		}
		price := asset.USDValue / asset.Balance
		amount := asset.Balance
		if needed := remaining / price; needed < amount {
			amount = needed
		}
		usd := amount * price
		sources = append(sources, model.FundingSource{
			Chain:    asset.Chain,
			Token:    asset.Token,
			Amount:   amount,
			USDValue: usd,
		})
		committed += usd
		remaining -= usd
	}
	return sources, committed
}

func chainTier(chain, preferred string) int {
	if chain == preferred {
		return 0
	}
	return 1
}

// CompositeScore ranks an option by normalized time and fee, raw success
// rate and security score, plus a bonus for the natively integrated
// provider.
func CompositeScore(estimatedTimeS int64, fee, successRate, securityScore float64, native bool) float64 {
	score := weightTime*clamp01(1-(float64(estimatedTimeS)-timeRef)/timeSpan) +
		weightFee*clamp01(1-(fee-feeRef)/feeSpan) +
		weightSuccess*successRate +
		weightSecurity*securityScore
	if native {
		score += nativeBonus
	}
	return score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SelectBridgeOption returns the supported option with the greatest
// composite score. Ties resolve to the first option in input order.
func SelectBridgeOption(options []model.BridgeOption) (model.BridgeOption, float64, error) {
	var best model.BridgeOption
	bestScore := -1.0
	found := false
	for _, opt := range options {
		if !opt.Supported {
			continue
		}
		score := CompositeScore(opt.EstimatedTimeS, opt.Fee, opt.SuccessRate, opt.SecurityScore, opt.NativeIntegration)
		if score > bestScore {
			best, bestScore, found = opt, score, true
		}
	}
	if !found {
		return model.BridgeOption{}, 0, clierr.New(clierr.CodeNoOptions, "no supported bridge options for route")
	}
	return best, bestScore, nil
}

// GasPricing converts a route's gas units into a cost denominated in the
// conversion's target token. Gas is priced in the chain's native token.
type GasPricing struct {
	GasPriceGwei   float64
	NativeTokenUSD float64
	TargetTokenUSD float64
}

// CostInTarget returns the target-token cost of spending gasUnits.
func (g GasPricing) CostInTarget(gasUnits int64) float64 {
	if g.TargetTokenUSD <= 0 {
		return 0
	}
	costNative := float64(gasUnits) * g.GasPriceGwei * 1e-9
	return costNative * g.NativeTokenUSD / g.TargetTokenUSD
}

// SelectConversionRoute filters routes by the slippage tolerance and picks
// the one with the greatest net output (gross output minus gas cost in the
// target token). Ties resolve to the first eligible route in input order.
func SelectConversionRoute(routes []model.ConversionRoute, tolerance float64, gas GasPricing) (model.ConversionRoute, float64, error) {
	var best model.ConversionRoute
	bestNet := 0.0
	found := false
	for _, route := range routes {
		if route.Slippage > tolerance {
			continue
		}
		net := route.Output - gas.CostInTarget(route.GasEstimate)
		if !found || net > bestNet {
			best, bestNet, found = route, net, true
		}
	}
	if !found {
		return model.ConversionRoute{}, 0, clierr.New(clierr.CodeNoRoute, "no conversion route within slippage tolerance")
	}
	return best, bestNet, nil
}
