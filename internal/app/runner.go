// Package app wires the pipeline and exposes it through the safestaked
// command tree.
package app

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/bridge"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/bus"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/cache"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/config"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/conversion"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/coordinator"
	clierr "github.com/Dimple-Kanwar/SafeStake.AI/internal/errors"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/execution"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/httpx"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/id"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/logger"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/model"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/oracle"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/out"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/portfolio"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/registry"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/schema"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/server"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/strategy"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/version"
)

type Runner struct {
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}
}

type runtimeState struct {
	runner      *Runner
	root        *cobra.Command
	flags       config.GlobalFlags
	settings    config.Settings
	log         zerolog.Logger
	lastCommand string
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.Execute()
	err = normalizeRunError(err)
	if err == nil {
		return 0
	}
	state.renderError(err)
	return clierr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.Name,
		Short: "Cross-chain staking workflow orchestrator",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "load configuration", err)
			}
			s.settings = settings
			s.log = logger.New(logger.Config{Level: settings.LogLevel, Pretty: settings.LogPretty})
			s.lastCommand = trimRootPath(cmd.CommandPath())
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})

	cmd.PersistentFlags().BoolVar(&s.flags.JSON, "json", false, "Output JSON (default)")
	cmd.PersistentFlags().BoolVar(&s.flags.Plain, "plain", false, "Output plain text")
	cmd.PersistentFlags().StringVar(&s.flags.Select, "select", "", "Select fields from data (comma-separated)")
	cmd.PersistentFlags().BoolVar(&s.flags.ResultsOnly, "results-only", false, "Output only data payload")
	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")
	cmd.PersistentFlags().IntVar(&s.flags.Port, "port", 0, "HTTP listen port")
	cmd.PersistentFlags().StringVar(&s.flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&s.flags.LogPretty, "log-pretty", false, "Pretty console log output")
	cmd.PersistentFlags().StringVar(&s.flags.Timeout, "timeout", "", "Outbound request timeout")
	cmd.PersistentFlags().IntVar(&s.flags.Retries, "retries", -1, "Retries per outbound request")
	cmd.PersistentFlags().BoolVar(&s.flags.NoCache, "no-cache", false, "Disable the price cache")
	cmd.PersistentFlags().StringVar(&s.flags.Oracle, "oracle", "", "Price oracle mode (static or live)")
	cmd.PersistentFlags().StringVar(&s.flags.StageWait, "stage-deadline", "", "Per-stage completion deadline")

	cmd.AddCommand(s.newServeCommand())
	cmd.AddCommand(s.newOptimizeCommand())
	cmd.AddCommand(s.newWorkflowCommand())
	cmd.AddCommand(s.newChainsCommand())
	cmd.AddCommand(s.newSchemaCommand())
	cmd.AddCommand(newVersionCommand())
	s.root = cmd
	return cmd
}

func (s *runtimeState) newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [command path]",
		Short: "Print machine-readable command schema",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = strings.Join(args, " ")
			}
			data, err := schema.Build(s.root, path)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "build schema", err)
			}
			return s.emit(data)
		},
	}
}

// pipeline is one fully wired actor set sharing a bus.
type pipeline struct {
	bus        *bus.Bus
	coord      *coordinator.Coordinator
	priceCache *cache.Store
	store      *coordinator.Store
	cancel     context.CancelFunc
}

func (s *runtimeState) buildPipeline(withStore bool) (*pipeline, error) {
	prices, priceCache, err := s.buildOracle()
	if err != nil {
		return nil, err
	}

	var store *coordinator.Store
	if withStore {
		store, err = coordinator.OpenStore(s.settings.WorkflowStorePath, s.settings.WorkflowLockPath)
		if err != nil {
			if priceCache != nil {
				_ = priceCache.Close()
			}
			return nil, clierr.Wrap(clierr.CodeInternal, "open workflow store", err)
		}
	}

	var congestion registry.CongestionModel = registry.StaticCongestion{}
	if s.settings.LiveCongestion {
		congestion = registry.NewRPCCongestion(s.log)
	}

	b := bus.New(s.log)
	ids := id.NewGenerator()
	coord := coordinator.New(b, ids, store, s.settings.StageDeadline, s.log)
	analyzer := portfolio.NewAnalyzer(portfolio.NewStaticBalances(), prices, s.log)
	optimizer := strategy.NewWorker(b, analyzer, prices, s.log)
	bridger := bridge.NewWorker(b, bridge.NewCatalog(congestion), ids, s.log)
	converter := conversion.NewWorker(b, prices, ids, rand.New(rand.NewSource(time.Now().UnixNano())), s.log)
	executor := execution.NewExecutor(b, ids, s.log)

	ctx, cancel := context.WithCancel(context.Background())
	go coord.Run(ctx)
	go optimizer.Run(ctx)
	go bridger.Run(ctx)
	go converter.Run(ctx)
	go executor.Run(ctx)

	return &pipeline{bus: b, coord: coord, priceCache: priceCache, store: store, cancel: cancel}, nil
}

func (s *runtimeState) buildOracle() (oracle.PriceOracle, *cache.Store, error) {
	if s.settings.Oracle != "live" {
		return oracle.NewStatic(s.log), nil, nil
	}
	httpClient := httpx.New(s.settings.Timeout, s.settings.Retries)
	live := oracle.NewDefiLlama(httpClient)
	if !s.settings.CacheEnabled {
		return live, nil, nil
	}
	priceCache, err := cache.Open(s.settings.CachePath, s.settings.CacheLockPath)
	if err != nil {
		return nil, nil, clierr.Wrap(clierr.CodeInternal, "open price cache", err)
	}
	return oracle.NewCached(live, priceCache, s.settings.PriceTTL), priceCache, nil
}

func (p *pipeline) close() {
	p.cancel()
	p.bus.Close()
	if p.priceCache != nil {
		_ = p.priceCache.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}

func (s *runtimeState) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the workflow API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := s.buildPipeline(true)
			if err != nil {
				return err
			}
			defer pipe.close()

			srv := server.New(server.Config{Port: s.settings.Port, Log: s.log}, pipe.coord)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return clierr.Wrap(clierr.CodeInternal, "http server", err)
			case sig := <-stop:
				s.log.Info().Str("signal", sig.String()).Msg("shutting down")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return clierr.Wrap(clierr.CodeInternal, "shutdown http server", err)
			}
			return nil
		},
	}
}

func (s *runtimeState) newOptimizeCommand() *cobra.Command {
	var (
		userID        string
		amount        float64
		targetChain   string
		targetToken   string
		riskTolerance string
		horizonDays   int
		wait          string
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Submit one workflow and wait for its terminal status",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := s.buildPipeline(true)
			if err != nil {
				return err
			}
			defer pipe.close()

			workflowID, err := pipe.coord.Submit(model.OptimizationRequest{
				UserID:          userID,
				TargetAmount:    amount,
				TargetChain:     targetChain,
				TargetToken:     targetToken,
				RiskTolerance:   model.RiskTolerance(riskTolerance),
				TimeHorizonDays: horizonDays,
			})
			if err != nil {
				return err
			}

			maxWait := s.settings.StageDeadline*4 + 5*time.Second
			if wait != "" {
				d, err := time.ParseDuration(wait)
				if err != nil {
					return clierr.Wrap(clierr.CodeUsage, "parse --wait", err)
				}
				maxWait = d
			}

			deadline := time.Now().Add(maxWait)
			for {
				wf, ok := pipe.coord.Get(workflowID)
				if ok && wf.Status.Terminal() {
					return s.emit(wf)
				}
				if time.Now().After(deadline) {
					return clierr.Newf(clierr.CodeStageTimeout,
						"workflow %s did not reach a terminal status within %s", workflowID, maxWait)
				}
				time.Sleep(25 * time.Millisecond)
			}
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User identifier")
	cmd.Flags().Float64Var(&amount, "amount", 0, "Target stake amount in target token units")
	cmd.Flags().StringVar(&targetChain, "chain", "", "Target chain")
	cmd.Flags().StringVar(&targetToken, "token", "", "Target token")
	cmd.Flags().StringVar(&riskTolerance, "risk", "moderate", "Risk tolerance (conservative, moderate, aggressive)")
	cmd.Flags().IntVar(&horizonDays, "horizon-days", 30, "Investment time horizon in days")
	cmd.Flags().StringVar(&wait, "wait", "", "Maximum time to wait for completion")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("chain")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func (s *runtimeState) newWorkflowCommand() *cobra.Command {
	root := &cobra.Command{Use: "workflow", Short: "Inspect recorded workflows"}

	get := &cobra.Command{
		Use:   "get <workflow-id>",
		Short: "Show one workflow record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := coordinator.OpenStore(s.settings.WorkflowStorePath, s.settings.WorkflowLockPath)
			if err != nil {
				return clierr.Wrap(clierr.CodeInternal, "open workflow store", err)
			}
			defer store.Close()

			wf, err := store.Get(args[0])
			if err != nil {
				return clierr.Wrap(clierr.CodeUnknownWorkflow, "load workflow", err)
			}
			return s.emit(wf)
		},
	}

	var status string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded workflows, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := coordinator.OpenStore(s.settings.WorkflowStorePath, s.settings.WorkflowLockPath)
			if err != nil {
				return clierr.Wrap(clierr.CodeInternal, "open workflow store", err)
			}
			defer store.Close()

			workflows, err := store.List(status, limit)
			if err != nil {
				return clierr.Wrap(clierr.CodeInternal, "list workflows", err)
			}
			return s.emit(workflows)
		},
	}
	list.Flags().StringVar(&status, "status", "", "Filter by workflow status")
	list.Flags().IntVar(&limit, "limit", 20, "Number of workflows to return")

	root.AddCommand(get)
	root.AddCommand(list)
	return root
}

func (s *runtimeState) newChainsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chains",
		Short: "List supported chains and their staking parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			chains := id.Chains()
			rows := make([]map[string]any, 0, len(chains))
			for _, c := range chains {
				info, _ := registry.Lookup(c)
				rows = append(rows, map[string]any{
					"chain":            info.Slug,
					"evm_chain_id":     info.EVMChainID,
					"native_token":     info.NativeToken,
					"base_yield_pct":   info.BaseYieldPct,
					"base_risk_score":  info.BaseRiskScore,
					"staking_contract": info.StakingContract,
				})
			}
			return s.emit(rows)
		},
	}
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Version)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func (s *runtimeState) emit(data any) error {
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: true,
		Data:    data,
		Meta: model.EnvelopeMeta{
			RequestID: newRequestID(),
			Timestamp: s.runner.now().UTC(),
			Command:   s.lastCommand,
		},
	}
	return out.Render(s.runner.stdout, env, s.settings)
}

func (s *runtimeState) renderError(err error) {
	command := s.lastCommand
	if command == "" {
		command = version.Name
	}
	code := clierr.CodeOf(err)

	settings := s.settings
	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	settings.ResultsOnly = false
	settings.SelectFields = nil

	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: false,
		Error: &model.ErrorBody{
			Code:    int(code),
			Type:    code.String(),
			Message: err.Error(),
		},
		Meta: model.EnvelopeMeta{
			RequestID: newRequestID(),
			Timestamp: s.runner.now().UTC(),
			Command:   command,
		},
	}
	_ = out.Render(s.runner.stderr, env, settings)
}

func newRequestID() string {
	return "req_" + uuid.NewString()
}

func trimRootPath(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return path
	}
	return strings.Join(parts[1:], " ")
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeUsage, "invalid command input", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"unknown shorthand flag",
		"required flag(s)",
		"flag needs an argument",
		"requires at least",
		"accepts at most",
		"accepts ",
		"invalid argument",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
