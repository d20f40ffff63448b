// Package coordinator owns the per-workflow state machine. It routes each
// request through a variable-length pipeline of worker stages and records
// every transition. Workflow status only moves forward; responses correlate
// by workflow id alone and may arrive in any interleaving across workflows,
// but a single workflow never has more than one stage outstanding.
package coordinator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/bus"
	clierr "github.com/Dimple-Kanwar/SafeStake.AI/internal/errors"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/id"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/model"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/policy"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/registry"
)

const (
	// DefaultStageDeadline bounds how long one stage may stay outstanding
	// before the workflow fails with a stage timeout.
	DefaultStageDeadline = 2 * time.Minute

	deadlineSweepInterval = time.Second
	conversionDeadline    = 30 * time.Minute
)

type Coordinator struct {
	bus           *bus.Bus
	inbox         <-chan bus.Envelope
	ids           id.Generator
	store         *Store
	stageDeadline time.Duration
	now           func() time.Time
	log           zerolog.Logger

	mu        sync.RWMutex
	workflows map[string]*model.Workflow
}

// New wires a coordinator onto the bus. store may be nil, in which case
// records live only in memory.
func New(b *bus.Bus, ids id.Generator, store *Store, stageDeadline time.Duration, log zerolog.Logger) *Coordinator {
	if stageDeadline <= 0 {
		stageDeadline = DefaultStageDeadline
	}
	return &Coordinator{
		bus:           b,
		inbox:         b.Register(bus.AddrCoordinator),
		ids:           ids,
		store:         store,
		stageDeadline: stageDeadline,
		now:           time.Now,
		log:           log.With().Str("component", "coordinator").Logger(),
		workflows:     make(map[string]*model.Workflow),
	}
}

// Submit validates a request, creates the workflow record and dispatches
// the optimization stage. It returns the workflow id immediately; progress
// is tracked asynchronously.
func (c *Coordinator) Submit(req model.OptimizationRequest) (string, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return "", clierr.New(clierr.CodeUsage, "user_id is required")
	}
	if req.TargetAmount <= 0 {
		return "", clierr.New(clierr.CodeUsage, "target_amount must be positive")
	}
	if strings.TrimSpace(req.TargetToken) == "" {
		return "", clierr.New(clierr.CodeUsage, "target_token is required")
	}
	if !model.ValidRiskTolerance(req.RiskTolerance) {
		return "", clierr.Newf(clierr.CodeUsage, "unknown risk tolerance %q", req.RiskTolerance)
	}
	chain, err := id.ParseChain(req.TargetChain)
	if err != nil {
		return "", err
	}
	req.TargetChain = chain.Slug
	req.TargetToken = id.NormalizeToken(req.TargetToken)
	req.WorkflowID = c.ids.WorkflowID()

	now := c.now()
	wf := &model.Workflow{
		ID:            req.WorkflowID,
		UserID:        req.UserID,
		Status:        model.StatusCreated,
		Request:       req,
		PendingStage:  model.StageOptimize,
		StageDeadline: now.Add(c.stageDeadline),
		CreatedAt:     now,
	}
	c.mu.Lock()
	c.workflows[wf.ID] = wf
	c.mu.Unlock()
	c.persist(wf)

	c.log.Info().Str("workflow", wf.ID).Str("user", req.UserID).
		Str("target_chain", req.TargetChain).Str("target_token", req.TargetToken).
		Float64("target_amount", req.TargetAmount).Msg("workflow created")
	c.bus.Send(bus.AddrCoordinator, bus.AddrStrategy, req)
	return wf.ID, nil
}

// Get returns a copy of the workflow record.
func (c *Coordinator) Get(workflowID string) (model.Workflow, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	wf, ok := c.workflows[workflowID]
	if !ok {
		return model.Workflow{}, false
	}
	return *wf, true
}

// Run drains worker responses and sweeps stage deadlines until ctx is
// cancelled or the bus closes.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(deadlineSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.expireDeadlines(c.now())
		case env, ok := <-c.inbox:
			if !ok {
				return
			}
			c.dispatch(env)
		}
	}
}

func (c *Coordinator) dispatch(env bus.Envelope) {
	switch msg := env.Body.(type) {
	case model.OptimizationResponse:
		c.onOptimizationResult(msg)
	case model.BridgeResponse:
		c.onBridgeResult(msg)
	case model.ConversionResponse:
		c.onConversionResult(msg)
	case model.ExecutionResponse:
		c.onExecutionResult(msg)
	case model.StageFailure:
		c.onStageFailure(msg)
	default:
		c.log.Warn().Str("from", env.From).Type("body", env.Body).
			Msg("ignoring unexpected message")
	}
}

// open returns the workflow if it is known, not terminal, and waiting on
// the given stage. Anything else is a duplicate or stale response and is
// discarded with a warning; it never creates a workflow as a side effect.
func (c *Coordinator) open(workflowID string, stage model.Stage) (*model.Workflow, bool) {
	wf, ok := c.workflows[workflowID]
	if !ok {
		c.log.Warn().Str("workflow", workflowID).Str("stage", string(stage)).
			Msg("discarding response for unknown workflow")
		return nil, false
	}
	if wf.Status.Terminal() || wf.PendingStage != stage {
		c.log.Warn().Str("workflow", workflowID).Str("status", string(wf.Status)).
			Str("pending", string(wf.PendingStage)).Str("got", string(stage)).
			Msg("discarding duplicate or stale response")
		return nil, false
	}
	return wf, true
}

func (c *Coordinator) onOptimizationResult(resp model.OptimizationResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wf, ok := c.open(resp.WorkflowID, model.StageOptimize)
	if !ok {
		return
	}
	strat := resp.Strategy
	wf.Strategy = &strat
	c.advance(wf, model.StatusOptimized)

	switch {
	case strat.RequiresBridging && strat.BridgeRoute != nil:
		c.dispatchBridge(wf)
	case strat.RequiresConversion():
		c.dispatchConversion(wf)
	default:
		c.dispatchExecution(wf)
	}
}

func (c *Coordinator) onBridgeResult(resp model.BridgeResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wf, ok := c.open(resp.WorkflowID, model.StageBridge)
	if !ok {
		return
	}
	wf.BridgeResult = &resp
	c.advance(wf, model.StatusBridged)

	// Re-evaluate whether a conversion is still required now that funds
	// sit on the target chain.
	if wf.Strategy.RequiresConversion() {
		c.dispatchConversion(wf)
		return
	}
	c.dispatchExecution(wf)
}

func (c *Coordinator) onConversionResult(resp model.ConversionResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wf, ok := c.open(resp.WorkflowID, model.StageConvert)
	if !ok {
		return
	}
	wf.ConversionResult = &resp
	c.advance(wf, model.StatusConverted)
	c.dispatchExecution(wf)
}

func (c *Coordinator) onExecutionResult(resp model.ExecutionResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wf, ok := c.open(resp.WorkflowID, model.StageExecute)
	if !ok {
		return
	}
	wf.ExecutionResult = &resp
	if resp.Status != "success" {
		c.fail(wf, clierr.CodeInternal, "execution reported failure")
		return
	}
	now := c.now()
	wf.Status = model.StatusCompleted
	wf.PendingStage = ""
	wf.StageDeadline = time.Time{}
	wf.CompletedAt = &now
	c.persist(wf)
	c.log.Info().Str("workflow", wf.ID).Str("tx_ref", resp.TransactionRef).
		Float64("issued", resp.IssuedAmount).Msg("workflow completed")
}

func (c *Coordinator) onStageFailure(failure model.StageFailure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wf, ok := c.workflows[failure.WorkflowID]
	if !ok {
		c.log.Warn().Str("workflow", failure.WorkflowID).
			Msg("discarding failure for unknown workflow")
		return
	}
	if wf.Status.Terminal() {
		c.log.Warn().Str("workflow", failure.WorkflowID).
			Msg("discarding failure for terminal workflow")
		return
	}
	c.failWith(wf, failure.Code, failure.Reason)
}

func (c *Coordinator) dispatchBridge(wf *model.Workflow) {
	route := wf.Strategy.BridgeRoute
	c.await(wf, model.StageBridge)
	c.bus.Send(bus.AddrCoordinator, bus.AddrBridge, model.BridgeRequest{
		WorkflowID:          wf.ID,
		UserID:              wf.UserID,
		SourceChain:         route.SourceChain,
		TargetChain:         route.TargetChain,
		Token:               route.Token,
		Amount:              route.Amount,
		DestinationContract: route.DestinationContract,
	})
}

func (c *Coordinator) dispatchConversion(wf *model.Workflow) {
	action, ok := wf.Strategy.ConvertAction()
	if !ok {
		c.fail(wf, clierr.CodeInternal, "conversion dispatched without a convert action")
		return
	}
	c.await(wf, model.StageConvert)
	c.bus.Send(bus.AddrCoordinator, bus.AddrConversion, model.ConversionRequest{
		WorkflowID:        wf.ID,
		UserID:            wf.UserID,
		SourceToken:       action.FromToken,
		TargetToken:       action.ToToken,
		Amount:            action.Amount,
		Chain:             action.Chain,
		SlippageTolerance: policy.DefaultSlippageTolerance,
		DeadlineUnix:      c.now().Add(conversionDeadline).Unix(),
	})
}

func (c *Coordinator) dispatchExecution(wf *model.Workflow) {
	c.await(wf, model.StageExecute)
	c.bus.Send(bus.AddrCoordinator, bus.AddrExecution, model.ExecutionRequest{
		WorkflowID:       wf.ID,
		UserID:           wf.UserID,
		BridgeResult:     wf.BridgeResult,
		ConversionResult: wf.ConversionResult,
		FinalAmount:      finalAmount(wf),
		TargetContract:   registry.StakingContract(wf.Request.TargetChain),
	})
}

// finalAmount derives the amount handed to execution from whatever stages
// actually ran. A conversion's settled output wins; a bridge without a
// conversion passes the bridged amount through; otherwise the original
// request amount stands.
func finalAmount(wf *model.Workflow) float64 {
	if wf.ConversionResult != nil {
		return wf.ConversionResult.ExpectedOutput
	}
	if wf.BridgeResult != nil && wf.Strategy != nil && wf.Strategy.BridgeRoute != nil {
		return wf.Strategy.BridgeRoute.Amount
	}
	return wf.Request.TargetAmount
}

func (c *Coordinator) advance(wf *model.Workflow, next model.WorkflowStatus) {
	if !wf.Status.CanAdvance(next) {
		c.log.Error().Str("workflow", wf.ID).Str("from", string(wf.Status)).
			Str("to", string(next)).Msg("refusing status regression")
		return
	}
	wf.Status = next
	c.persist(wf)
}

func (c *Coordinator) await(wf *model.Workflow, stage model.Stage) {
	wf.PendingStage = stage
	wf.StageDeadline = c.now().Add(c.stageDeadline)
	c.persist(wf)
}

func (c *Coordinator) fail(wf *model.Workflow, code clierr.Code, reason string) {
	c.failWith(wf, code.String(), reason)
}

// failWith records a terminal failure. Results already recorded stay on the
// workflow for audit rather than being rolled back.
func (c *Coordinator) failWith(wf *model.Workflow, code, reason string) {
	now := c.now()
	wf.Status = model.StatusFailed
	wf.FailureCode = code
	wf.FailureReason = reason
	wf.PendingStage = ""
	wf.StageDeadline = time.Time{}
	wf.CompletedAt = &now
	c.persist(wf)
	c.log.Error().Str("workflow", wf.ID).Str("code", code).Str("reason", reason).
		Msg("workflow failed")
}

func (c *Coordinator) expireDeadlines(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, wf := range c.workflows {
		if wf.Status.Terminal() || wf.PendingStage == "" {
			continue
		}
		if now.After(wf.StageDeadline) {
			c.failWith(wf, clierr.CodeStageTimeout.String(),
				"stage "+string(wf.PendingStage)+" exceeded its deadline")
		}
	}
}

func (c *Coordinator) persist(wf *model.Workflow) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(*wf); err != nil {
		c.log.Error().Err(err).Str("workflow", wf.ID).Msg("workflow persist failed")
	}
}
