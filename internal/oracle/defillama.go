package oracle

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	clierr "github.com/Dimple-Kanwar/SafeStake.AI/internal/errors"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/httpx"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/id"
)

const defaultCoinsBase = "https://coins.llama.fi"

// coingeckoIDs maps the token symbols the workers deal in to DefiLlama coin
// identifiers.
var coingeckoIDs = map[string]string{
	"ETH":   "coingecko:ethereum",
	"WETH":  "coingecko:weth",
	"USDC":  "coingecko:usd-coin",
	"USDT":  "coingecko:tether",
	"PYUSD": "coingecko:paypal-usd",
	"DAI":   "coingecko:dai",
	"MATIC": "coingecko:matic-network",
	"ARB":   "coingecko:arbitrum",
}

// DefiLlama is the live price feed. It fulfils the same contract as the
// static table and is expected to be wrapped in Cached.
type DefiLlama struct {
	http      *httpx.Client
	coinsBase string
}

func NewDefiLlama(httpClient *httpx.Client) *DefiLlama {
	return &DefiLlama{http: httpClient, coinsBase: defaultCoinsBase}
}

type llamaPriceResponse struct {
	Coins map[string]struct {
		Price  float64 `json:"price"`
		Symbol string  `json:"symbol"`
	} `json:"coins"`
}

func (c *DefiLlama) Price(ctx context.Context, token string) (float64, error) {
	symbol := id.NormalizeToken(token)
	coinID, ok := coingeckoIDs[symbol]
	if !ok {
		return 0, clierr.Newf(clierr.CodeUnsupported, "no price feed mapping for token %s", symbol)
	}

	endpoint := fmt.Sprintf("%s/prices/current/%s", c.coinsBase, url.PathEscape(coinID))
	var decoded llamaPriceResponse
	if err := c.http.GetJSON(ctx, endpoint, &decoded); err != nil {
		return 0, err
	}

	entry, ok := decoded.Coins[coinID]
	if !ok || entry.Price <= 0 {
		return 0, clierr.Newf(clierr.CodeUnavailable, "price feed returned no price for %s", symbol)
	}
	if entry.Symbol != "" && !strings.EqualFold(entry.Symbol, symbol) {
		return 0, clierr.Newf(clierr.CodeUnavailable, "price feed symbol mismatch for %s", symbol)
	}
	return entry.Price, nil
}
