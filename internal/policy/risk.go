package policy

import "github.com/Dimple-Kanwar/SafeStake.AI/internal/model"

// CollateralRatio is the minimum portfolio value, as a multiple of the
// target stake value, required before a strategy is produced.
const CollateralRatio = 1.5

// DefaultSlippageTolerance applies when a conversion request does not carry
// an explicit bound.
const DefaultSlippageTolerance = 0.005

const (
	minRiskScore           = 10
	maxDiversificationDrop = 20
	perChainDiversityDrop  = 5
)

// YieldMultiplier scales a chain's base yield by the requested risk
// tolerance.
func YieldMultiplier(r model.RiskTolerance) float64 {
	switch r {
	case model.RiskConservative:
		return 0.8
	case model.RiskAggressive:
		return 1.3
	default:
		return 1.0
	}
}

// RiskScore adjusts a chain's base risk for portfolio diversification: each
// chain held drops the score, capped, with a floor.
func RiskScore(baseRisk float64, chainsHeld int) float64 {
	bonus := float64(chainsHeld * perChainDiversityDrop)
	if bonus > maxDiversificationDrop {
		bonus = maxDiversificationDrop
	}
	score := baseRisk - bonus
	if score < minRiskScore {
		return minRiskScore
	}
	return score
}

// SufficientCollateral reports whether a portfolio can back the target
// stake value at the required collateral ratio.
func SufficientCollateral(portfolioUSD, targetUSD float64) bool {
	return portfolioUSD >= targetUSD*CollateralRatio
}
