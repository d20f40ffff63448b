// Package oracle prices tokens in USD. The default implementation is a
// static table matching the mock data the system currently runs on; the
// live and cached implementations can be swapped in without touching the
// decision engine or the workers.
package oracle

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/id"
)

// PriceOracle returns the USD price of a token.
type PriceOracle interface {
	Price(ctx context.Context, token string) (float64, error)
}

// defaultPrice is assumed for tokens the table does not know. Analysis must
// not abort on an unknown token; the assumption is logged instead.
const defaultPrice = 1.0

// Static serves the fixed price table.
type Static struct {
	prices map[string]float64
	log    zerolog.Logger
}

func NewStatic(log zerolog.Logger) *Static {
	return &Static{
		prices: map[string]float64{
			"ETH":   2500,
			"WETH":  2500,
			"USDC":  1.0,
			"USDT":  1.0,
			"PYUSD": 1.0,
			"DAI":   1.0,
			"MATIC": 0.8,
			"ARB":   1.2,
		},
		log: log.With().Str("component", "oracle").Logger(),
	}
}

func (s *Static) Price(_ context.Context, token string) (float64, error) {
	symbol := id.NormalizeToken(token)
	if price, ok := s.prices[symbol]; ok {
		return price, nil
	}
	s.log.Warn().Str("token", symbol).Float64("assumed_price", defaultPrice).
		Msg("token not in price table, assuming default")
	return defaultPrice, nil
}
