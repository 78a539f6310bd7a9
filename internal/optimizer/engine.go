package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
	"github.com/Kevocado/FPL-Optimizer/pkg/logger"
)

// EngineConfig carries the defaults applied to every request.
type EngineConfig struct {
	Rules              SquadRules
	Weights            WeightTable
	Normalization      NormalizationMethod
	Mode               SolverMode
	Timeout            time.Duration
	MinMinutes         int
	MinChanceOfPlaying int
	TransferLimit      int
	FreeTransfers      int
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Rules:              DefaultSquadRules(),
		Weights:            DefaultWeightTable(),
		Normalization:      NormalizeMinMax,
		Mode:               SolverExact,
		Timeout:            10 * time.Second,
		MinMinutes:         0,
		MinChanceOfPlaying: 75,
		TransferLimit:      1,
		FreeTransfers:      1,
	}
}

// Engine is the entry point for valuation, squad selection and transfer
// advice. It holds no per-request state and is safe for concurrent use.
type Engine struct {
	cfg        EngineConfig
	normalizer *Normalizer
	scorer     *Scorer
	log        *logrus.Logger
}

func NewEngine(cfg EngineConfig, log *logrus.Logger) (*Engine, error) {
	if err := cfg.Rules.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode == "" {
		cfg.Mode = SolverExact
	}
	scorer, err := NewScorer(cfg.Weights)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Engine{
		cfg:        cfg,
		normalizer: NewNormalizer(cfg.Normalization),
		scorer:     scorer,
		log:        log,
	}, nil
}

func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Weights returns the weight vector in use for strategy.
func (e *Engine) Weights(strategy Strategy) (Weights, error) {
	return e.scorer.Weights(strategy)
}

// Score normalizes the pool and values every player under strategy.
func (e *Engine) Score(players []models.Player, strategy Strategy) ([]ScoredPlayer, error) {
	return e.scorer.Score(players, e.normalizer.Normalize(players), strategy)
}

// RankPlayers returns the top players of the pool under strategy.
func (e *Engine) RankPlayers(players []models.Player, strategyName string, limit int) ([]ScoredPlayer, error) {
	strategy, err := ParseStrategy(strategyName)
	if err != nil {
		return nil, err
	}
	scored, err := e.Score(players, strategy)
	if err != nil {
		return nil, err
	}
	return RankPlayers(scored, strategy, limit), nil
}

// OptimizeRequest is one squad optimization.
type OptimizeRequest struct {
	Strategy string
	// Budget overrides the configured budget when set.
	Budget   *models.Price
	Mode     SolverMode
	Locked   []int
	Excluded []int
	MaxPrice map[models.Position]models.Price
	// Formation forces a named formation for the lineup; empty picks the best.
	Formation string
}

// OptimizeResult is the outcome of a successful optimization.
type OptimizeResult struct {
	ID       string        `json:"id"`
	Strategy Strategy      `json:"strategy"`
	Squad    *Squad        `json:"squad"`
	Lineup   *Lineup       `json:"lineup"`
	Analysis SquadAnalysis `json:"analysis"`
	Duration time.Duration `json:"duration_ns"`
}

// OptimizeSquad selects the best squad and lineup for the request. The
// strategy is resolved before any scoring.
func (e *Engine) OptimizeSquad(ctx context.Context, players []models.Player, req OptimizeRequest) (*OptimizeResult, error) {
	strategy, err := ParseStrategy(req.Strategy)
	if err != nil {
		return nil, err
	}
	scored, err := e.Score(players, strategy)
	if err != nil {
		return nil, err
	}
	return e.optimizeScored(ctx, scored, strategy, req)
}

func (e *Engine) optimizeScored(ctx context.Context, scored []ScoredPlayer, strategy Strategy, req OptimizeRequest) (*OptimizeResult, error) {
	start := time.Now()
	id := uuid.New().String()

	if req.Formation != "" {
		if _, err := ParseFormation(req.Formation); err != nil {
			return nil, err
		}
	}

	mode := req.Mode
	if mode == "" {
		mode = e.cfg.Mode
	}
	rules := e.cfg.Rules
	if req.Budget != nil {
		rules = rules.WithBudget(*req.Budget)
	}

	log := logger.WithOptimizationContext(e.log, id, string(strategy), string(mode))
	log.WithFields(logrus.Fields{
		"pool_size": len(scored),
		"budget":    rules.Budget.String(),
		"locked":    len(req.Locked),
		"excluded":  len(req.Excluded),
	}).Info("Starting squad optimization")

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	squad, err := SelectSquad(ctx, scored, SelectionRequest{
		Rules:              rules,
		Mode:               mode,
		Locked:             req.Locked,
		Excluded:           req.Excluded,
		MinMinutes:         e.cfg.MinMinutes,
		MinChanceOfPlaying: e.cfg.MinChanceOfPlaying,
		MaxPrice:           req.MaxPrice,
	})
	if err != nil {
		log.WithError(err).Warn("Squad optimization failed")
		return nil, err
	}

	var lineup *Lineup
	if req.Formation != "" {
		lineup, err = LineupForFormation(squad.Players, req.Formation)
	} else {
		lineup, err = BestLineup(squad.Players)
	}
	if err != nil {
		return nil, err
	}

	result := &OptimizeResult{
		ID:       id,
		Strategy: strategy,
		Squad:    squad,
		Lineup:   lineup,
		Analysis: AnalyzeSquad(squad.Players),
		Duration: time.Since(start),
	}

	log.WithFields(logrus.Fields{
		"total_value":    squad.TotalValue,
		"total_price":    squad.TotalPrice.String(),
		"formation":      lineup.Formation.String(),
		"nodes_explored": squad.NodesExplored,
		"approximate":    squad.Approximate,
		"duration_ms":    result.Duration.Milliseconds(),
	}).Info("Squad optimization completed")

	return result, nil
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, e.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// StrategyOutcome is one strategy's entry in a comparison. Infeasible
// strategies carry an error message instead of a result.
type StrategyOutcome struct {
	Strategy Strategy        `json:"strategy"`
	Result   *OptimizeResult `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Comparison holds one outcome per strategy, in Strategies order.
type Comparison struct {
	ID       string            `json:"id"`
	Outcomes []StrategyOutcome `json:"outcomes"`
}

// CompareStrategies optimizes the same pool under every strategy in
// parallel. req.Strategy is ignored. A timeout in any strategy fails the
// whole comparison.
func (e *Engine) CompareStrategies(ctx context.Context, players []models.Player, req OptimizeRequest) (*Comparison, error) {
	normalized := e.normalizer.Normalize(players)
	outcomes := make([]StrategyOutcome, len(Strategies))

	g, gctx := errgroup.WithContext(ctx)
	for i, strategy := range Strategies {
		g.Go(func() error {
			outcomes[i].Strategy = strategy
			scored, err := e.scorer.Score(players, normalized, strategy)
			if err != nil {
				return err
			}
			result, err := e.optimizeScored(gctx, scored, strategy, req)
			switch {
			case err == nil:
				outcomes[i].Result = result
			case errors.Is(err, ErrInfeasibleSquad):
				outcomes[i].Error = err.Error()
			default:
				return fmt.Errorf("strategy %s: %w", strategy, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Comparison{ID: uuid.New().String(), Outcomes: outcomes}, nil
}

// LineupRequest asks for the lineup of an existing squad.
type LineupRequest struct {
	Strategy  string
	PlayerIDs []int
	Formation string
}

// Lineup values the given squad and picks its starting eleven.
func (e *Engine) Lineup(players []models.Player, req LineupRequest) (*Lineup, error) {
	strategy, err := ParseStrategy(req.Strategy)
	if err != nil {
		return nil, err
	}
	scored, err := e.Score(players, strategy)
	if err != nil {
		return nil, err
	}
	squad, err := pickByID(scored, req.PlayerIDs)
	if err != nil {
		return nil, err
	}
	if err := e.cfg.Rules.validateComposition(squad); err != nil {
		return nil, err
	}
	if req.Formation == "" {
		return BestLineup(squad)
	}
	return LineupForFormation(squad, req.Formation)
}

// TransferRequest asks for transfer advice on a held squad.
type TransferRequest struct {
	Strategy   string
	CurrentIDs []int
	// TargetIDs, when set, is the squad to move towards. Otherwise the
	// engine re-optimizes with the squad value plus bank as budget, or
	// considers every eligible pool player when SearchPool is set.
	TargetIDs     []int
	SearchPool    bool
	MaxTransfers  *int
	FreeTransfers *int
	Bank          models.Price
}

// TransferAdvice is the outcome of AdviseTransfers.
type TransferAdvice struct {
	ID        string        `json:"id"`
	Strategy  Strategy      `json:"strategy"`
	Plan      *TransferPlan `json:"plan"`
	TargetIDs []int         `json:"target_ids,omitempty"`
	Current   SquadAnalysis `json:"current_analysis"`
}

// AdviseTransfers proposes swaps from the current squad.
func (e *Engine) AdviseTransfers(ctx context.Context, players []models.Player, req TransferRequest) (*TransferAdvice, error) {
	strategy, err := ParseStrategy(req.Strategy)
	if err != nil {
		return nil, err
	}
	scored, err := e.Score(players, strategy)
	if err != nil {
		return nil, err
	}
	current, err := pickByID(scored, req.CurrentIDs)
	if err != nil {
		return nil, err
	}

	opts := TransferOptions{
		MaxTransfers:  e.cfg.TransferLimit,
		FreeTransfers: e.cfg.FreeTransfers,
		Bank:          req.Bank,
		Rules:         e.cfg.Rules,
	}
	if req.MaxTransfers != nil {
		opts.MaxTransfers = *req.MaxTransfers
	}
	if req.FreeTransfers != nil {
		opts.FreeTransfers = *req.FreeTransfers
	}

	id := uuid.New().String()
	log := logger.WithOptimizationContext(e.log, id, string(strategy), string(e.cfg.Mode))

	var (
		candidates []ScoredPlayer
		targetIDs  []int
	)
	switch {
	case opts.MaxTransfers == 0:
	case len(req.TargetIDs) > 0:
		candidates, err = pickByID(scored, req.TargetIDs)
		if err != nil {
			return nil, err
		}
		targetIDs = req.TargetIDs
	case req.SearchPool:
		sel := SelectionRequest{MinMinutes: e.cfg.MinMinutes, MinChanceOfPlaying: e.cfg.MinChanceOfPlaying}
		for i := range scored {
			if sel.eligible(&scored[i]) {
				candidates = append(candidates, scored[i])
			}
		}
	default:
		budget := totalPrice(current) + req.Bank
		result, err := e.optimizeScored(ctx, scored, strategy, OptimizeRequest{Strategy: string(strategy), Budget: &budget})
		switch {
		case err == nil:
			candidates = result.Squad.Players
			targetIDs = result.Squad.PlayerIDs()
		case errors.Is(err, ErrInfeasibleSquad):
			log.WithError(err).Info("No target squad within the available budget")
		default:
			return nil, err
		}
	}

	plan, err := PlanTransfers(current, candidates, opts)
	if err != nil {
		log.WithError(err).Warn("Transfer planning failed")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"transfers":     len(plan.Transfers),
		"total_gain":    plan.TotalGain,
		"net_benefit":   plan.NetBenefit,
		"max_transfers": opts.MaxTransfers,
	}).Info("Transfer advice computed")

	return &TransferAdvice{
		ID:        id,
		Strategy:  strategy,
		Plan:      plan,
		TargetIDs: targetIDs,
		Current:   AnalyzeSquad(current),
	}, nil
}

// pickByID resolves ids against the scored pool, preserving id order.
func pickByID(scored []ScoredPlayer, ids []int) ([]ScoredPlayer, error) {
	byID := make(map[int]*ScoredPlayer, len(scored))
	for i := range scored {
		byID[scored[i].ID] = &scored[i]
	}
	out := make([]ScoredPlayer, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, id)
		}
		out = append(out, *p)
	}
	return out, nil
}
