package id

import (
	"strconv"
	"strings"

	clierr "github.com/Dimple-Kanwar/SafeStake.AI/internal/errors"
)

type Chain struct {
	Name       string
	Slug       string
	EVMChainID int64
}

var chainBySlug = map[string]Chain{
	"ethereum": {Name: "Ethereum", Slug: "ethereum", EVMChainID: 1},
	"mainnet":  {Name: "Ethereum", Slug: "ethereum", EVMChainID: 1},
	"polygon":  {Name: "Polygon", Slug: "polygon", EVMChainID: 137},
	"arbitrum": {Name: "Arbitrum", Slug: "arbitrum", EVMChainID: 42161},
	"base":     {Name: "Base", Slug: "base", EVMChainID: 8453},
}

var chainByID = map[int64]Chain{
	1:     chainBySlug["ethereum"],
	137:   chainBySlug["polygon"],
	8453:  chainBySlug["base"],
	42161: chainBySlug["arbitrum"],
}

// ParseChain resolves a chain slug or numeric EVM chain id to a supported
// chain. Unknown chains are rejected: every stage relies on the registry
// tables keyed by slug.
func ParseChain(input string) (Chain, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Chain{}, clierr.New(clierr.CodeUsage, "chain is required")
	}
	norm := strings.ToLower(raw)

	if chain, ok := chainBySlug[norm]; ok {
		return chain, nil
	}
	if id, err := strconv.ParseInt(norm, 10, 64); err == nil {
		if chain, ok := chainByID[id]; ok {
			return chain, nil
		}
	}
	return Chain{}, clierr.Newf(clierr.CodeUnsupported, "unsupported chain: %s", input)
}

// Chains returns the supported chain slugs.
func Chains() []string {
	return []string{"ethereum", "polygon", "arbitrum", "base"}
}

// NormalizeToken canonicalizes a token symbol.
func NormalizeToken(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// AssetKey is the snapshot map key for a (chain, token) position.
func AssetKey(chain, token string) string {
	return strings.ToLower(strings.TrimSpace(chain)) + ":" + NormalizeToken(token)
}
