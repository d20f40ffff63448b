package registry

import "strings"

// ChainInfo carries the static per-chain parameters used by the workers.
// Live counterparts sit behind the small interfaces below so they can be
// swapped without touching selection or state machine logic.
type ChainInfo struct {
	Slug            string
	EVMChainID      int64
	RPCEndpoint     string
	NativeToken     string // token gas is priced in on this chain
	GasPriceGwei    float64
	Congestion      float64
	BaseYieldPct    float64
	BaseRiskScore   float64
	StakingContract string
}

var chains = map[string]ChainInfo{
	"ethereum": {
		Slug:            "ethereum",
		EVMChainID:      1,
		RPCEndpoint:     "https://eth.llamarpc.com",
		NativeToken:     "ETH",
		GasPriceGwei:    20,
		Congestion:      1.5,
		BaseYieldPct:    5.2,
		BaseRiskScore:   25,
		StakingContract: "0x3F1c547b21f65e10480dE3ad8E19fAAC46C95034",
	},
	"polygon": {
		Slug:            "polygon",
		EVMChainID:      137,
		RPCEndpoint:     "https://polygon-rpc.com",
		NativeToken:     "MATIC",
		GasPriceGwei:    30,
		Congestion:      1.1,
		BaseYieldPct:    7.8,
		BaseRiskScore:   45,
		StakingContract: "0x5E3Ef299fDDf15eAa0432E6e66473ace8c13D908",
	},
	"arbitrum": {
		Slug:            "arbitrum",
		EVMChainID:      42161,
		RPCEndpoint:     "https://arb1.arbitrum.io/rpc",
		NativeToken:     "ETH",
		GasPriceGwei:    0.1,
		Congestion:      1.2,
		BaseYieldPct:    6.1,
		BaseRiskScore:   35,
		StakingContract: "0x9cD438d8a7F1A5a788CbF354cbD68eaf27eB2b4A",
	},
	"base": {
		Slug:            "base",
		EVMChainID:      8453,
		RPCEndpoint:     "https://mainnet.base.org",
		NativeToken:     "ETH",
		GasPriceGwei:    0.05,
		Congestion:      1.0,
		BaseYieldPct:    5.9,
		BaseRiskScore:   30,
		StakingContract: "0x4200000000000000000000000000000000000800",
	},
}

const (
	defaultCongestion = 1.2
	defaultYieldPct   = 5.0
	defaultRiskScore  = 40
)

// Lookup returns the chain table entry for a slug.
func Lookup(chain string) (ChainInfo, bool) {
	info, ok := chains[strings.ToLower(strings.TrimSpace(chain))]
	return info, ok
}

// NativeToken returns the token gas is priced in on the given chain.
// Gas is paid in the chain's native token, not always ETH.
func NativeToken(chain string) string {
	if info, ok := Lookup(chain); ok {
		return info.NativeToken
	}
	return "ETH"
}

// StakingContract returns the staking proxy address for a chain, or "" when
// the chain is unknown.
func StakingContract(chain string) string {
	if info, ok := Lookup(chain); ok {
		return info.StakingContract
	}
	return ""
}

// BaseYield returns the chain's base staking yield in percent.
func BaseYield(chain string) float64 {
	if info, ok := Lookup(chain); ok {
		return info.BaseYieldPct
	}
	return defaultYieldPct
}

// BaseRisk returns the chain's base risk score.
func BaseRisk(chain string) float64 {
	if info, ok := Lookup(chain); ok {
		return info.BaseRiskScore
	}
	return defaultRiskScore
}

// CongestionModel estimates a time multiplier for operations settling on a
// chain.
type CongestionModel interface {
	Multiplier(chain string) float64
}

// StaticCongestion serves the fixed congestion table.
type StaticCongestion struct{}

func (StaticCongestion) Multiplier(chain string) float64 {
	if info, ok := Lookup(chain); ok {
		return info.Congestion
	}
	return defaultCongestion
}
