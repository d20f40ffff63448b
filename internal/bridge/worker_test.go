package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/bus"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/id"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/model"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/registry"
)

func newTestWorker() (*Worker, *bus.Bus, <-chan bus.Envelope) {
	b := bus.New(zerolog.Nop())
	coordinatorInbox := b.Register(bus.AddrCoordinator)
	w := NewWorker(b, NewCatalog(registry.StaticCongestion{}), id.NewSequence(), zerolog.Nop())
	w.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return w, b, coordinatorInbox
}

func TestSelectPrefersNativeProvider(t *testing.T) {
	w, _, _ := newTestWorker()

	resp, err := w.Select(model.BridgeRequest{
		WorkflowID:  "wf_0001",
		UserID:      "alice",
		SourceChain: "polygon",
		TargetChain: "ethereum",
		Token:       "USDC",
		Amount:      500,
	})
	require.NoError(t, err)
	require.Equal(t, "Nexus", resp.Provider)
	require.NotEmpty(t, resp.ProviderOperationID)

	// 300s base scaled by ethereum congestion, fee is 8 USD plus 0.1%.
	require.Equal(t, int64(450), resp.EstimatedTimeS)
	require.InDelta(t, 8.5, resp.Fee, 1e-9)
	require.InDelta(t, 0.995, resp.SuccessProbability, 1e-9)
	require.Equal(t, time.Unix(1_700_000_000, 0).Add(450*time.Second).Unix(), resp.EstimatedCompletion)
}

func TestCatalogRouteSupport(t *testing.T) {
	catalog := NewCatalog(registry.StaticCongestion{})

	options := catalog.Options(model.BridgeRequest{SourceChain: "arbitrum", TargetChain: "base"})
	byProvider := map[string]model.BridgeOption{}
	for _, opt := range options {
		byProvider[opt.Provider] = opt
	}
	require.True(t, byProvider["Nexus"].Supported)
	require.False(t, byProvider["LayerZero"].Supported)
	require.False(t, byProvider["Wormhole"].Supported)

	options = catalog.Options(model.BridgeRequest{SourceChain: "ethereum", TargetChain: "base"})
	byProvider = map[string]model.BridgeOption{}
	for _, opt := range options {
		byProvider[opt.Provider] = opt
	}
	require.True(t, byProvider["Wormhole"].Supported)
	require.False(t, byProvider["LayerZero"].Supported)
}

func TestUnknownRouteFailsWholeRequest(t *testing.T) {
	w, b, coordinatorInbox := newTestWorker()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	b.Send(bus.AddrCoordinator, bus.AddrBridge, model.BridgeRequest{
		WorkflowID:  "wf_0002",
		SourceChain: "solana",
		TargetChain: "ethereum",
		Token:       "USDC",
		Amount:      100,
	})
	env := <-coordinatorInbox
	failure, ok := env.Body.(model.StageFailure)
	require.True(t, ok)
	require.Equal(t, "wf_0002", failure.WorkflowID)
	require.Equal(t, model.StageBridge, failure.Stage)
	require.Equal(t, "NO_OPTIONS_AVAILABLE", failure.Code)

	cancel()
	<-done
}

func TestRunEmitsResponse(t *testing.T) {
	w, b, coordinatorInbox := newTestWorker()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	b.Send(bus.AddrCoordinator, bus.AddrBridge, model.BridgeRequest{
		WorkflowID:  "wf_0003",
		SourceChain: "ethereum",
		TargetChain: "arbitrum",
		Token:       "USDC",
		Amount:      1000,
	})
	env := <-coordinatorInbox
	resp, ok := env.Body.(model.BridgeResponse)
	require.True(t, ok)
	require.Equal(t, "wf_0003", resp.WorkflowID)
	require.Equal(t, "Nexus", resp.Provider)
	require.InDelta(t, 9.0, resp.Fee, 1e-9)

	cancel()
	<-done
}
