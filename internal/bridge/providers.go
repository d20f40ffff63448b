// Package bridge selects cross-chain transfer providers for a requested
// (source chain, target chain, token, amount) route and simulates the
// chosen provider's transfer.
package bridge

import (
	"strings"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/model"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/registry"
)

// Nexus fee and timing model. Fees are flat plus a percentage of the
// bridged amount; the time estimate scales with target chain congestion.
const (
	nexusBaseTimeS   = 300
	nexusBaseFeeUSD  = 8.0
	nexusFeePct      = 0.001
	nexusSuccessRate = 0.995
	nexusSecurity    = 0.98
)

type routePair struct {
	source string
	target string
}

// Per-provider route support. Nexus covers every pair of known chains;
// the comparison providers only run a subset.
var supportMatrix = map[string]map[routePair]bool{
	"layerzero": {
		{"ethereum", "polygon"}:  true,
		{"ethereum", "arbitrum"}: true,
		{"polygon", "ethereum"}:  true,
		{"arbitrum", "ethereum"}: true,
	},
	"wormhole": {
		{"ethereum", "polygon"}: true,
		{"ethereum", "base"}:    true,
		{"polygon", "ethereum"}: true,
		{"base", "ethereum"}:    true,
	},
}

func routeSupported(provider, source, target string) bool {
	return supportMatrix[provider][routePair{source: source, target: target}]
}

// Catalog enumerates candidate bridge options for a request. Time and fee
// for the native provider are computed per request; the others carry fixed
// published estimates.
type Catalog struct {
	congestion registry.CongestionModel
}

func NewCatalog(congestion registry.CongestionModel) *Catalog {
	return &Catalog{congestion: congestion}
}

func (c *Catalog) Options(req model.BridgeRequest) []model.BridgeOption {
	source := strings.ToLower(strings.TrimSpace(req.SourceChain))
	target := strings.ToLower(strings.TrimSpace(req.TargetChain))

	_, sourceKnown := registry.Lookup(source)
	_, targetKnown := registry.Lookup(target)

	return []model.BridgeOption{
		{
			Provider:          "Nexus",
			EstimatedTimeS:    int64(nexusBaseTimeS * c.congestion.Multiplier(target)),
			Fee:               nexusBaseFeeUSD + req.Amount*nexusFeePct,
			SuccessRate:       nexusSuccessRate,
			SecurityScore:     nexusSecurity,
			Supported:         sourceKnown && targetKnown,
			NativeIntegration: true,
		},
		{
			Provider:       "LayerZero",
			EstimatedTimeS: 600,
			Fee:            12.5,
			SuccessRate:    0.98,
			SecurityScore:  0.95,
			Supported:      routeSupported("layerzero", source, target),
		},
		{
			Provider:       "Wormhole",
			EstimatedTimeS: 900,
			Fee:            15.0,
			SuccessRate:    0.97,
			SecurityScore:  0.93,
			Supported:      routeSupported("wormhole", source, target),
		},
	}
}
