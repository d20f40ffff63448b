package execution

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/bus"
	clierr "github.com/Dimple-Kanwar/SafeStake.AI/internal/errors"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/id"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/model"
)

func newTestExecutor() *Executor {
	b := bus.New(zerolog.Nop())
	return NewExecutor(b, id.NewSequence(), zerolog.Nop())
}

func TestExecuteIssuesDeterministicRef(t *testing.T) {
	e := newTestExecutor()

	req := model.ExecutionRequest{
		WorkflowID:     "wf_0001",
		UserID:         "alice",
		FinalAmount:    0.4,
		TargetContract: "0x3F1c547b21f65e10480dE3ad8E19fAAC46C95034",
	}
	resp, err := e.Execute(req)
	require.NoError(t, err)
	require.Equal(t, "wf_0001", resp.WorkflowID)
	require.Equal(t, "exec_0001", resp.ExecutionID)
	require.Equal(t, "success", resp.Status)
	require.InDelta(t, 0.4, resp.IssuedAmount, 1e-9)
	require.True(t, strings.HasPrefix(resp.TransactionRef, "0x"))
	require.Len(t, resp.TransactionRef, 66)

	// Same inputs and id sequence produce the same reference.
	resp2, err := newTestExecutor().Execute(req)
	require.NoError(t, err)
	require.Equal(t, resp.TransactionRef, resp2.TransactionRef)
}

func TestExecuteRejectsBadInput(t *testing.T) {
	e := newTestExecutor()

	_, err := e.Execute(model.ExecutionRequest{
		WorkflowID:     "wf_0002",
		FinalAmount:    1,
		TargetContract: "not-an-address",
	})
	require.Error(t, err)
	require.Equal(t, clierr.CodeUsage, clierr.CodeOf(err))

	_, err = e.Execute(model.ExecutionRequest{
		WorkflowID:     "wf_0003",
		FinalAmount:    0,
		TargetContract: "0x3F1c547b21f65e10480dE3ad8E19fAAC46C95034",
	})
	require.Error(t, err)
	require.Equal(t, clierr.CodeUsage, clierr.CodeOf(err))
}
