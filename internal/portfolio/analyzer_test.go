package portfolio

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/oracle"
)

func TestSnapshotValuesAndTotals(t *testing.T) {
	source := NewFixedBalances(map[string]map[string]float64{
		"ethereum": {"ETH": 1, "USDC": 100},
		"polygon":  {"MATIC": 100},
	})
	analyzer := NewAnalyzer(source, oracle.NewStatic(zerolog.Nop()), zerolog.Nop())

	snap, err := analyzer.Snapshot(context.Background(), "user-1")
	require.NoError(t, err)

	assert.InDelta(t, 2500+100+80, snap.TotalValueUSD, 1e-9)
	assert.Equal(t, []string{"ethereum", "polygon"}, snap.Chains)

	eth := snap.Assets["ethereum:ETH"]
	assert.InDelta(t, 2500, eth.USDValue, 1e-9)
	assert.InDelta(t, 1, eth.Balance, 1e-9)
}

func TestSnapshotSkipsZeroBalances(t *testing.T) {
	source := NewFixedBalances(map[string]map[string]float64{
		"ethereum": {"PYUSD": 0, "USDC": 10},
	})
	analyzer := NewAnalyzer(source, oracle.NewStatic(zerolog.Nop()), zerolog.Nop())

	snap, err := analyzer.Snapshot(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, snap.Assets, 1)
	_, hasPYUSD := snap.Assets["ethereum:PYUSD"]
	assert.False(t, hasPYUSD)
}

func TestSnapshotUnknownTokenDefaultsToOneUSD(t *testing.T) {
	source := NewFixedBalances(map[string]map[string]float64{
		"polygon": {"MYSTERY": 42},
	})
	analyzer := NewAnalyzer(source, oracle.NewStatic(zerolog.Nop()), zerolog.Nop())

	snap, err := analyzer.Snapshot(context.Background(), "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 42, snap.TotalValueUSD, 1e-9)
}
