// Package strategy runs the optimization stage: it turns a portfolio
// snapshot into an ordered action plan for the requested stake.
package strategy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/bus"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/decision"
	clierr "github.com/Dimple-Kanwar/SafeStake.AI/internal/errors"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/id"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/model"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/oracle"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/policy"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/portfolio"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/registry"
)

// Gas cost assumptions per action, in USD.
const (
	bridgeGasUSD  = 15.0
	convertGasUSD = 5.0
	stakeGasUSD   = 8.0
)

type Worker struct {
	bus      *bus.Bus
	inbox    <-chan bus.Envelope
	analyzer *portfolio.Analyzer
	prices   oracle.PriceOracle
	log      zerolog.Logger
}

func NewWorker(b *bus.Bus, analyzer *portfolio.Analyzer, prices oracle.PriceOracle, log zerolog.Logger) *Worker {
	return &Worker{
		bus:      b,
		inbox:    b.Register(bus.AddrStrategy),
		analyzer: analyzer,
		prices:   prices,
		log:      log.With().Str("component", "strategy").Logger(),
	}
}

// Run drains the mailbox until it closes or ctx is cancelled. One message is
// processed to completion before the next is accepted.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-w.inbox:
			if !ok {
				return
			}
			req, ok := env.Body.(model.OptimizationRequest)
			if !ok {
				w.log.Warn().Type("body", env.Body).Msg("ignoring unexpected message")
				continue
			}
			w.handle(ctx, req)
		}
	}
}

func (w *Worker) handle(ctx context.Context, req model.OptimizationRequest) {
	w.log.Info().Str("workflow", req.WorkflowID).Str("user", req.UserID).
		Str("target_chain", req.TargetChain).Msg("processing optimization request")

	strat, err := w.Optimize(ctx, req)
	if err != nil {
		w.fail(req.WorkflowID, err)
		return
	}
	w.bus.Send(bus.AddrStrategy, bus.AddrCoordinator, model.OptimizationResponse{
		WorkflowID: req.WorkflowID,
		Strategy:   strat,
	})
}

// Optimize computes the strategy for a request. Exposed for the one-shot
// CLI mode and tests; Run wraps it with mailbox plumbing.
func (w *Worker) Optimize(ctx context.Context, req model.OptimizationRequest) (model.Strategy, error) {
	snapshot, err := w.analyzer.Snapshot(ctx, req.UserID)
	if err != nil {
		return model.Strategy{}, clierr.Wrap(clierr.CodeUnavailable, "portfolio analysis failed", err)
	}

	targetPrice, err := w.prices.Price(ctx, req.TargetToken)
	if err != nil {
		return model.Strategy{}, clierr.Wrap(clierr.CodeUnavailable, "target token pricing failed", err)
	}
	targetUSD := req.TargetAmount * targetPrice

	if !policy.SufficientCollateral(snapshot.TotalValueUSD, targetUSD) {
		w.log.Warn().Str("workflow", req.WorkflowID).
			Float64("portfolio_usd", snapshot.TotalValueUSD).
			Float64("target_usd", targetUSD).
			Msg("portfolio value below preferred collateral ratio")
	}

	sources, committed := decision.FundingSources(snapshot, targetUSD, req.TargetChain)
	if committed < targetUSD {
		return model.Strategy{}, clierr.Newf(clierr.CodeInsufficientFunding,
			"portfolio value %.2f USD cannot fund target of %.2f USD", committed, targetUSD)
	}

	strat := model.Strategy{
		ExpectedYield: registry.BaseYield(req.TargetChain) * policy.YieldMultiplier(req.RiskTolerance),
		RiskScore:     policy.RiskScore(registry.BaseRisk(req.TargetChain), len(snapshot.Chains)),
	}

	for _, source := range sources {
		if source.Chain == req.TargetChain {
			continue
		}
		strat.RequiresBridging = true
		if strat.BridgeRoute == nil {
			strat.BridgeRoute = &model.BridgeRoute{
				UserID:              req.UserID,
				SourceChain:         source.Chain,
				TargetChain:         req.TargetChain,
				Token:               source.Token,
				Amount:              source.Amount,
				DestinationContract: registry.StakingContract(req.TargetChain),
			}
		}
		strat.Actions = append(strat.Actions, model.Action{
			Type:      model.ActionBridge,
			FromChain: source.Chain,
			ToChain:   req.TargetChain,
			Token:     source.Token,
			Amount:    source.Amount,
		})
		strat.ExecutionSteps = append(strat.ExecutionSteps,
			fmt.Sprintf("Bridge %g %s from %s to %s", source.Amount, source.Token, source.Chain, req.TargetChain))
	}

	// Funding in a different token than the stake target needs one
	// conversion on the target chain before staking.
	targetToken := id.NormalizeToken(req.TargetToken)
	for _, source := range sources {
		if id.NormalizeToken(source.Token) == targetToken {
			continue
		}
		strat.Actions = append(strat.Actions, model.Action{
			Type:      model.ActionConvert,
			Chain:     req.TargetChain,
			FromToken: source.Token,
			ToToken:   req.TargetToken,
			Amount:    source.Amount,
		})
		strat.ExecutionSteps = append(strat.ExecutionSteps,
			fmt.Sprintf("Convert %g %s to %s on %s", source.Amount, source.Token, req.TargetToken, req.TargetChain))
		break
	}

	strat.Actions = append(strat.Actions, model.Action{
		Type:          model.ActionStake,
		Chain:         req.TargetChain,
		Token:         req.TargetToken,
		Amount:        req.TargetAmount,
		ExpectedYield: strat.ExpectedYield,
	})
	strat.ExecutionSteps = append(strat.ExecutionSteps,
		fmt.Sprintf("Stake %g %s on %s", req.TargetAmount, req.TargetToken, req.TargetChain))

	strat.GasCostEstimate = estimateGasCosts(strat.Actions)

	w.log.Info().Str("workflow", req.WorkflowID).
		Float64("expected_yield", strat.ExpectedYield).
		Bool("requires_bridging", strat.RequiresBridging).
		Bool("requires_conversion", strat.RequiresConversion()).
		Msg("strategy calculated")
	return strat, nil
}

func estimateGasCosts(actions []model.Action) float64 {
	var total float64
	for _, action := range actions {
		switch action.Type {
		case model.ActionBridge:
			total += bridgeGasUSD
		case model.ActionConvert:
			total += convertGasUSD
		case model.ActionStake:
			total += stakeGasUSD
		}
	}
	return total
}

func (w *Worker) fail(workflowID string, err error) {
	code := clierr.CodeOf(err)
	w.log.Error().Err(err).Str("workflow", workflowID).Msg("optimization stage failed")
	w.bus.Send(bus.AddrStrategy, bus.AddrCoordinator, model.StageFailure{
		WorkflowID: workflowID,
		Stage:      model.StageOptimize,
		Code:       code.String(),
		Reason:     err.Error(),
	})
}
