package coordinator

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "workflows.db"), filepath.Join(dir, "workflows.lock"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)

	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	wf := model.Workflow{
		ID:        "wf_0001",
		UserID:    "alice",
		Status:    model.StatusCreated,
		CreatedAt: created,
		Request: model.OptimizationRequest{
			WorkflowID:    "wf_0001",
			UserID:        "alice",
			TargetAmount:  0.1,
			TargetChain:   "ethereum",
			TargetToken:   "ETH",
			RiskTolerance: model.RiskModerate,
		},
	}
	require.NoError(t, store.Save(wf))

	got, err := store.Get("wf_0001")
	require.NoError(t, err)
	require.Equal(t, wf.ID, got.ID)
	require.Equal(t, model.StatusCreated, got.Status)
	require.Equal(t, "ethereum", got.Request.TargetChain)

	// Transitions overwrite in place; a failed workflow keeps the partial
	// progress that was recorded before the failure.
	wf.Status = model.StatusFailed
	wf.FailureCode = "NO_OPTIONS_AVAILABLE"
	wf.FailureReason = "no supported bridge options for route"
	wf.BridgeResult = &model.BridgeResponse{WorkflowID: "wf_0001", Provider: "Nexus"}
	completed := created.Add(time.Minute)
	wf.CompletedAt = &completed
	require.NoError(t, store.Save(wf))

	got, err = store.Get("wf_0001")
	require.NoError(t, err)
	require.Equal(t, model.StatusFailed, got.Status)
	require.Equal(t, "NO_OPTIONS_AVAILABLE", got.FailureCode)
	require.NotNil(t, got.BridgeResult)

	_, err = store.Get("wf_missing")
	require.Error(t, err)
}

func TestStoreList(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, status := range []model.WorkflowStatus{model.StatusCompleted, model.StatusFailed, model.StatusCompleted} {
		require.NoError(t, store.Save(model.Workflow{
			ID:        "wf_000" + string(rune('1'+i)),
			UserID:    "alice",
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := store.List("", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Most recently updated first.
	require.Equal(t, "wf_0003", all[0].ID)

	completed, err := store.List(string(model.StatusCompleted), 10)
	require.NoError(t, err)
	require.Len(t, completed, 2)

	limited, err := store.List("", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}
