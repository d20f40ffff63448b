package conversion

import (
	"context"
	"math/rand"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/bus"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/decision"
	clierr "github.com/Dimple-Kanwar/SafeStake.AI/internal/errors"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/id"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/model"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/oracle"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/policy"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/registry"
)

// settlementJitter is the half-width of the slippage perturbation applied
// when a conversion settles.
const settlementJitter = 0.0005

type Worker struct {
	bus    *bus.Bus
	inbox  <-chan bus.Envelope
	prices oracle.PriceOracle
	ids    id.Generator
	rng    *rand.Rand
	log    zerolog.Logger
}

func NewWorker(b *bus.Bus, prices oracle.PriceOracle, ids id.Generator, rng *rand.Rand, log zerolog.Logger) *Worker {
	return &Worker{
		bus:    b,
		inbox:  b.Register(bus.AddrConversion),
		prices: prices,
		ids:    ids,
		rng:    rng,
		log:    log.With().Str("component", "conversion").Logger(),
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
			req, ok := env.Body.(model.ConversionRequest)
			if !ok {
				w.log.Warn().Type("body", env.Body).Msg("ignoring unexpected message")
				continue
			}
			w.handle(ctx, req)
		}
	}
}

func (w *Worker) handle(ctx context.Context, req model.ConversionRequest) {
	w.log.Info().Str("workflow", req.WorkflowID).
		Str("source_token", req.SourceToken).Str("target_token", req.TargetToken).
		Str("chain", req.Chain).Float64("amount", req.Amount).
		Msg("processing conversion request")

	resp, err := w.Convert(ctx, req)
	if err != nil {
		w.log.Error().Err(err).Str("workflow", req.WorkflowID).Msg("conversion stage failed")
		w.bus.Send(bus.AddrConversion, bus.AddrCoordinator, model.StageFailure{
			WorkflowID: req.WorkflowID,
			Stage:      model.StageConvert,
			Code:       clierr.CodeOf(err).String(),
			Reason:     err.Error(),
		})
		return
	}
	w.bus.Send(bus.AddrConversion, bus.AddrCoordinator, resp)
}

// Convert quotes every venue on the chain, selects the route with the best
// net output within the slippage tolerance and settles through it.
func (w *Worker) Convert(ctx context.Context, req model.ConversionRequest) (model.ConversionResponse, error) {
	routes, err := Quotes(ctx, w.prices, req)
	if err != nil {
		return model.ConversionResponse{}, clierr.Wrap(clierr.CodeUnavailable, "route quoting failed", err)
	}
	if len(routes) == 0 {
		return model.ConversionResponse{}, clierr.Newf(clierr.CodeNoOptions,
			"no venue on %s lists both %s and %s", req.Chain, req.SourceToken, req.TargetToken)
	}

	tolerance := req.SlippageTolerance
	if tolerance <= 0 {
		tolerance = policy.DefaultSlippageTolerance
	}
	gas := w.gasPricing(ctx, req)
	best, netOutput, err := decision.SelectConversionRoute(routes, tolerance, gas)
	if err != nil {
		return model.ConversionResponse{}, err
	}
	w.log.Info().Str("workflow", req.WorkflowID).Str("venue", best.Venue).
		Float64("net_output", netOutput).Msg("selected conversion route")

	// Settlement lands within a small band around the quoted slippage.
	actualSlippage := best.Slippage + (w.rng.Float64()*2-1)*settlementJitter
	rate, err := exchangeRate(ctx, w.prices, req.SourceToken, req.TargetToken)
	if err != nil {
		return model.ConversionResponse{}, clierr.Wrap(clierr.CodeUnavailable, "settlement pricing failed", err)
	}

	conversionID := w.ids.OperationID("conv")
	return model.ConversionResponse{
		WorkflowID:     req.WorkflowID,
		ConversionID:   conversionID,
		Venue:          best.Venue,
		ExpectedOutput: req.Amount * rate * (1 - actualSlippage),
		ActualSlippage: actualSlippage,
		Route:          best.Path,
		GasEstimate:    best.GasEstimate,
		TransactionRef: crypto.Keccak256Hash([]byte(conversionID)).Hex(),
	}, nil
}

func (w *Worker) gasPricing(ctx context.Context, req model.ConversionRequest) decision.GasPricing {
	info, ok := registry.Lookup(req.Chain)
	if !ok {
		return decision.GasPricing{}
	}
	nativeUSD, err := w.prices.Price(ctx, info.NativeToken)
	if err != nil {
		nativeUSD = 0
	}
	targetUSD, err := w.prices.Price(ctx, req.TargetToken)
	if err != nil {
		targetUSD = 0
	}
	return decision.GasPricing{
		GasPriceGwei:   info.GasPriceGwei,
		NativeTokenUSD: nativeUSD,
		TargetTokenUSD: targetUSD,
	}
}
