package bridge

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/bus"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/decision"
	clierr "github.com/Dimple-Kanwar/SafeStake.AI/internal/errors"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/id"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/model"
)

// phase tracks where the worker is within one request. Requests are
// processed one at a time, so the phase never interleaves across workflows.
type phase string

const (
	phaseIdle      phase = "idle"
	phaseAnalyzing phase = "analyzing"
	phaseScoring   phase = "scoring"
	phaseExecuting phase = "executing"
	phaseDone      phase = "done"
)

type Worker struct {
	bus     *bus.Bus
	inbox   <-chan bus.Envelope
	catalog *Catalog
	ids     id.Generator
	now     func() time.Time
	log     zerolog.Logger

	phase phase
}

func NewWorker(b *bus.Bus, catalog *Catalog, ids id.Generator, log zerolog.Logger) *Worker {
	return &Worker{
		bus:     b,
		inbox:   b.Register(bus.AddrBridge),
		catalog: catalog,
		ids:     ids,
		now:     time.Now,
		log:     log.With().Str("component", "bridge").Logger(),
		phase:   phaseIdle,
	}
}

func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-w.inbox:
			if !ok {
				return
			}
			req, ok := env.Body.(model.BridgeRequest)
			if !ok {
				w.log.Warn().Type("body", env.Body).Msg("ignoring unexpected message")
				continue
			}
			w.handle(req)
		}
	}
}

func (w *Worker) handle(req model.BridgeRequest) {
	w.log.Info().Str("workflow", req.WorkflowID).
		Str("source", req.SourceChain).Str("target", req.TargetChain).
		Str("token", req.Token).Float64("amount", req.Amount).
		Msg("processing bridge request")

	resp, err := w.Select(req)
	w.phase = phaseDone
	defer func() { w.phase = phaseIdle }()
	if err != nil {
		w.log.Error().Err(err).Str("workflow", req.WorkflowID).Msg("bridge stage failed")
		w.bus.Send(bus.AddrBridge, bus.AddrCoordinator, model.StageFailure{
			WorkflowID: req.WorkflowID,
			Stage:      model.StageBridge,
			Code:       clierr.CodeOf(err).String(),
			Reason:     err.Error(),
		})
		return
	}
	w.bus.Send(bus.AddrBridge, bus.AddrCoordinator, resp)
}

// Select enumerates providers for the route, scores them and simulates the
// transfer through the winner. The whole request fails when no provider
// supports the route; there is no partial result.
func (w *Worker) Select(req model.BridgeRequest) (model.BridgeResponse, error) {
	w.phase = phaseAnalyzing
	options := w.catalog.Options(req)

	w.phase = phaseScoring
	best, score, err := decision.SelectBridgeOption(options)
	if err != nil {
		return model.BridgeResponse{}, err
	}
	w.log.Info().Str("workflow", req.WorkflowID).Str("provider", best.Provider).
		Float64("score", score).Int64("estimated_time_s", best.EstimatedTimeS).
		Float64("fee", best.Fee).Msg("selected bridge provider")

	w.phase = phaseExecuting
	operationID := ""
	if best.NativeIntegration {
		operationID = w.ids.OperationID("nexus")
	}
	return model.BridgeResponse{
		WorkflowID:          req.WorkflowID,
		BridgeID:            w.ids.OperationID("bridge"),
		Provider:            best.Provider,
		EstimatedTimeS:      best.EstimatedTimeS,
		Fee:                 best.Fee,
		SuccessProbability:  best.SuccessRate,
		ProviderOperationID: operationID,
		EstimatedCompletion: w.now().Add(time.Duration(best.EstimatedTimeS) * time.Second).Unix(),
	}, nil
}
