// Package execution settles a workflow against the target staking
// contract, issuing liquid tokens for the final amount. Settlement is
// simulated; the wire format of the response matches what an on-chain
// executor would report.
package execution

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/bus"
	clierr "github.com/Dimple-Kanwar/SafeStake.AI/internal/errors"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/id"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/model"
)

type Executor struct {
	bus   *bus.Bus
	inbox <-chan bus.Envelope
	ids   id.Generator
	log   zerolog.Logger
}

func NewExecutor(b *bus.Bus, ids id.Generator, log zerolog.Logger) *Executor {
	return &Executor{
		bus:   b,
		inbox: b.Register(bus.AddrExecution),
		ids:   ids,
		log:   log.With().Str("component", "execution").Logger(),
	}
}

func (e *Executor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-e.inbox:
			if !ok {
				return
			}
			req, ok := env.Body.(model.ExecutionRequest)
			if !ok {
				e.log.Warn().Type("body", env.Body).Msg("ignoring unexpected message")
				continue
			}
			e.handle(req)
		}
	}
}

func (e *Executor) handle(req model.ExecutionRequest) {
	resp, err := e.Execute(req)
	if err != nil {
		e.log.Error().Err(err).Str("workflow", req.WorkflowID).Msg("execution stage failed")
		e.bus.Send(bus.AddrExecution, bus.AddrCoordinator, model.StageFailure{
			WorkflowID: req.WorkflowID,
			Stage:      model.StageExecute,
			Code:       clierr.CodeOf(err).String(),
			Reason:     err.Error(),
		})
		return
	}
	e.bus.Send(bus.AddrExecution, bus.AddrCoordinator, resp)
}

// Execute validates the request and settles it, returning the terminal
// execution record.
func (e *Executor) Execute(req model.ExecutionRequest) (model.ExecutionResponse, error) {
	if !common.IsHexAddress(req.TargetContract) {
		return model.ExecutionResponse{}, clierr.Newf(clierr.CodeUsage,
			"invalid target contract address %q", req.TargetContract)
	}
	if req.FinalAmount <= 0 {
		return model.ExecutionResponse{}, clierr.Newf(clierr.CodeUsage,
			"final amount must be positive, got %g", req.FinalAmount)
	}

	executionID := e.ids.OperationID("exec")
	txRef := crypto.Keccak256Hash([]byte(fmt.Sprintf("%s|%s|%.18f",
		executionID, req.TargetContract, req.FinalAmount))).Hex()

	e.log.Info().Str("workflow", req.WorkflowID).Str("execution", executionID).
		Str("contract", req.TargetContract).Float64("amount", req.FinalAmount).
		Str("tx_ref", txRef).Msg("stake executed")

	return model.ExecutionResponse{
		WorkflowID:     req.WorkflowID,
		ExecutionID:    executionID,
		TransactionRef: txRef,
		Status:         "success",
		IssuedAmount:   req.FinalAmount,
	}, nil
}
