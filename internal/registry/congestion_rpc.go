package registry

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/params"
	"github.com/rs/zerolog"
)

const (
	rpcCongestionTTL     = 30 * time.Second
	rpcCongestionTimeout = 5 * time.Second
	maxCongestion        = 3.0
)

// RPCCongestion derives a congestion multiplier from the chain's current
// suggested gas price relative to the table baseline. Results are cached
// briefly; any RPC failure falls back to the static table so selection never
// blocks on a flaky endpoint.
type RPCCongestion struct {
	log      zerolog.Logger
	fallback StaticCongestion

	mu     sync.Mutex
	cached map[string]cachedMultiplier
}

type cachedMultiplier struct {
	value   float64
	expires time.Time
}

func NewRPCCongestion(log zerolog.Logger) *RPCCongestion {
	return &RPCCongestion{
		log:    log.With().Str("component", "congestion").Logger(),
		cached: make(map[string]cachedMultiplier),
	}
}

func (r *RPCCongestion) Multiplier(chain string) float64 {
	info, ok := Lookup(chain)
	if !ok {
		return defaultCongestion
	}

	r.mu.Lock()
	if entry, ok := r.cached[info.Slug]; ok && time.Now().Before(entry.expires) {
		r.mu.Unlock()
		return entry.value
	}
	r.mu.Unlock()

	multiplier, err := r.probe(info)
	if err != nil {
		r.log.Warn().Err(err).Str("chain", info.Slug).Msg("gas price probe failed, using static congestion")
		return r.fallback.Multiplier(chain)
	}

	r.mu.Lock()
	r.cached[info.Slug] = cachedMultiplier{value: multiplier, expires: time.Now().Add(rpcCongestionTTL)}
	r.mu.Unlock()
	return multiplier
}

func (r *RPCCongestion) probe(info ChainInfo) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), rpcCongestionTimeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, info.RPCEndpoint)
	if err != nil {
		return 0, err
	}
	defer client.Close()

	suggested, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return 0, err
	}

	baseline := new(big.Float).SetFloat64(info.GasPriceGwei * params.GWei)
	current := new(big.Float).SetInt(suggested)
	ratio, _ := new(big.Float).Quo(current, baseline).Float64()
	if ratio < 1.0 {
		ratio = 1.0
	}
	if ratio > maxCongestion {
		ratio = maxCongestion
	}
	return ratio, nil
}
