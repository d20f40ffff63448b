package model

import "time"

const EnvelopeVersion = "v1"

type Envelope struct {
	Version  string       `json:"version"`
	Success  bool         `json:"success"`
	Data     any          `json:"data,omitempty"`
	Error    *ErrorBody   `json:"error"`
	Warnings []string     `json:"warnings,omitempty"`
	Meta     EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type EnvelopeMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
}

type RiskTolerance string

const (
	RiskConservative RiskTolerance = "conservative"
	RiskModerate     RiskTolerance = "moderate"
	RiskAggressive   RiskTolerance = "aggressive"
)

func ValidRiskTolerance(r RiskTolerance) bool {
	switch r {
	case RiskConservative, RiskModerate, RiskAggressive:
		return true
	default:
		return false
	}
}

// Stage names a pipeline step of a workflow. The coordinator tracks at most
// one outstanding stage per workflow.
type Stage string

const (
	StageOptimize Stage = "optimize"
	StageBridge   Stage = "bridge"
	StageConvert  Stage = "convert"
	StageExecute  Stage = "execute"
)

type WorkflowStatus string

const (
	StatusCreated   WorkflowStatus = "created"
	StatusOptimized WorkflowStatus = "optimized"
	StatusBridged   WorkflowStatus = "bridged"
	StatusConverted WorkflowStatus = "converted"
	StatusCompleted WorkflowStatus = "completed"
	StatusFailed    WorkflowStatus = "failed"
)

var statusRank = map[WorkflowStatus]int{
	StatusCreated:   0,
	StatusOptimized: 1,
	StatusBridged:   2,
	StatusConverted: 3,
	StatusCompleted: 4,
	StatusFailed:    4,
}

// Terminal reports whether a workflow in this status accepts no further
// transitions.
func (s WorkflowStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanAdvance reports whether moving from s to next goes strictly forward.
// Status never regresses and terminal states are frozen.
func (s WorkflowStatus) CanAdvance(next WorkflowStatus) bool {
	if s.Terminal() {
		return false
	}
	return statusRank[next] > statusRank[s]
}

type ActionType string

const (
	ActionBridge  ActionType = "bridge"
	ActionConvert ActionType = "convert"
	ActionStake   ActionType = "stake"
)

// Action is one step of a strategy. Fields are populated per type: bridge
// actions carry FromChain/ToChain, convert actions carry FromToken/ToToken,
// stake actions carry ExpectedYield.
type Action struct {
	Type          ActionType `json:"type"`
	Chain         string     `json:"chain,omitempty"`
	FromChain     string     `json:"from_chain,omitempty"`
	ToChain       string     `json:"to_chain,omitempty"`
	Token         string     `json:"token,omitempty"`
	FromToken     string     `json:"from_token,omitempty"`
	ToToken       string     `json:"to_token,omitempty"`
	Amount        float64    `json:"amount"`
	ExpectedYield float64    `json:"expected_yield,omitempty"`
}

type BridgeRoute struct {
	UserID              string  `json:"user_id"`
	SourceChain         string  `json:"source_chain"`
	TargetChain         string  `json:"target_chain"`
	Token               string  `json:"token"`
	Amount              float64 `json:"amount"`
	DestinationContract string  `json:"destination_contract"`
}

// Strategy is immutable once produced by the optimization stage.
type Strategy struct {
	Actions          []Action     `json:"actions"`
	ExpectedYield    float64      `json:"expected_yield"`
	RiskScore        float64      `json:"risk_score"`
	GasCostEstimate  float64      `json:"gas_cost_estimate"`
	ExecutionSteps   []string     `json:"execution_steps"`
	RequiresBridging bool         `json:"requires_bridging"`
	BridgeRoute      *BridgeRoute `json:"bridge_route,omitempty"`
}

// RequiresConversion derives the conversion requirement from the typed action
// list rather than matching step strings.
func (s *Strategy) RequiresConversion() bool {
	if s == nil {
		return false
	}
	for _, a := range s.Actions {
		if a.Type == ActionConvert {
			return true
		}
	}
	return false
}

// ConvertAction returns the first convert action, if any.
func (s *Strategy) ConvertAction() (Action, bool) {
	if s == nil {
		return Action{}, false
	}
	for _, a := range s.Actions {
		if a.Type == ActionConvert {
			return a, true
		}
	}
	return Action{}, false
}

type PortfolioAsset struct {
	Chain    string  `json:"chain"`
	Token    string  `json:"token"`
	Balance  float64 `json:"balance"`
	USDValue float64 `json:"usd_value"`
}

// PortfolioSnapshot is derived per request and never mutated after creation.
type PortfolioSnapshot struct {
	UserID        string                    `json:"user_id"`
	TotalValueUSD float64                   `json:"total_value_usd"`
	Assets        map[string]PortfolioAsset `json:"assets"` // keyed "chain:token"
	Chains        []string                  `json:"chains"`
	TakenAt       time.Time                 `json:"taken_at"`
}

type FundingSource struct {
	Chain    string  `json:"chain"`
	Token    string  `json:"token"`
	Amount   float64 `json:"amount"`
	USDValue float64 `json:"usd_value"`
}

type BridgeOption struct {
	Provider          string  `json:"provider"`
	EstimatedTimeS    int64   `json:"estimated_time_s"`
	Fee               float64 `json:"fee"`
	SuccessRate       float64 `json:"success_rate"`
	SecurityScore     float64 `json:"security_score"`
	Supported         bool    `json:"supported"`
	NativeIntegration bool    `json:"native_integration,omitempty"`
}

type ConversionRoute struct {
	Venue       string   `json:"venue"`
	Output      float64  `json:"output"`
	Slippage    float64  `json:"slippage"`
	GasEstimate int64    `json:"gas_estimate"`
	Path        []string `json:"path"`
}

// Messages exchanged between the coordinator and workers. Correlation is by
// WorkflowID only, never by arrival order.

type OptimizationRequest struct {
	WorkflowID      string        `json:"workflow_id"`
	UserID          string        `json:"user_id"`
	TargetAmount    float64       `json:"target_amount"`
	TargetChain     string        `json:"target_chain"`
	TargetToken     string        `json:"target_token"`
	RiskTolerance   RiskTolerance `json:"risk_tolerance"`
	TimeHorizonDays int           `json:"time_horizon_days"`
}

type OptimizationResponse struct {
	WorkflowID string   `json:"workflow_id"`
	Strategy   Strategy `json:"strategy"`
}

type BridgeRequest struct {
	WorkflowID          string  `json:"workflow_id"`
	UserID              string  `json:"user_id"`
	SourceChain         string  `json:"source_chain"`
	TargetChain         string  `json:"target_chain"`
	Token               string  `json:"token"`
	Amount              float64 `json:"amount"`
	DestinationContract string  `json:"destination_contract"`
	ExecutionPayload    []byte  `json:"execution_payload,omitempty"`
}

type BridgeResponse struct {
	WorkflowID          string  `json:"workflow_id"`
	BridgeID            string  `json:"bridge_id"`
	Provider            string  `json:"provider"`
	EstimatedTimeS      int64   `json:"estimated_time_s"`
	Fee                 float64 `json:"fee"`
	SuccessProbability  float64 `json:"success_probability"`
	ProviderOperationID string  `json:"provider_operation_id,omitempty"`
	EstimatedCompletion int64   `json:"estimated_completion_unix"`
}

type ConversionRequest struct {
	WorkflowID        string  `json:"workflow_id"`
	UserID            string  `json:"user_id"`
	SourceToken       string  `json:"source_token"`
	TargetToken       string  `json:"target_token"`
	Amount            float64 `json:"amount"`
	Chain             string  `json:"chain"`
	SlippageTolerance float64 `json:"slippage_tolerance"`
	DeadlineUnix      int64   `json:"deadline_unix"`
}

type ConversionResponse struct {
	WorkflowID     string   `json:"workflow_id"`
	ConversionID   string   `json:"conversion_id"`
	Venue          string   `json:"venue"`
	ExpectedOutput float64  `json:"expected_output"`
	ActualSlippage float64  `json:"actual_slippage"`
	Route          []string `json:"route"`
	GasEstimate    int64    `json:"gas_estimate"`
	TransactionRef string   `json:"transaction_ref"`
}

type ExecutionRequest struct {
	WorkflowID       string              `json:"workflow_id"`
	UserID           string              `json:"user_id"`
	BridgeResult     *BridgeResponse     `json:"bridge_result,omitempty"`
	ConversionResult *ConversionResponse `json:"conversion_result,omitempty"`
	FinalAmount      float64             `json:"final_amount"`
	TargetContract   string              `json:"target_contract"`
}

type ExecutionResponse struct {
	WorkflowID     string  `json:"workflow_id"`
	ExecutionID    string  `json:"execution_id"`
	TransactionRef string  `json:"transaction_ref"`
	Status         string  `json:"status"` // success or failed
	IssuedAmount   float64 `json:"issued_amount"`
}

// StageFailure reports a terminal worker-side failure back to the
// coordinator. One workflow's failure is isolated from all others.
type StageFailure struct {
	WorkflowID string `json:"workflow_id"`
	Stage      Stage  `json:"stage"`
	Code       string `json:"code"`
	Reason     string `json:"reason"`
}

// Workflow is the coordinator-owned record of one end-to-end request.
type Workflow struct {
	ID               string              `json:"id"`
	UserID           string              `json:"user_id"`
	Status           WorkflowStatus      `json:"status"`
	Request          OptimizationRequest `json:"request"`
	Strategy         *Strategy           `json:"strategy,omitempty"`
	BridgeResult     *BridgeResponse     `json:"bridge_result,omitempty"`
	ConversionResult *ConversionResponse `json:"conversion_result,omitempty"`
	ExecutionResult  *ExecutionResponse  `json:"execution_result,omitempty"`
	FailureCode      string              `json:"failure_code,omitempty"`
	FailureReason    string              `json:"failure_reason,omitempty"`
	PendingStage     Stage               `json:"pending_stage,omitempty"`
	StageDeadline    time.Time           `json:"stage_deadline,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	CompletedAt      *time.Time          `json:"completed_at,omitempty"`
}
