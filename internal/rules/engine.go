// Package rules provides the CEL-Go based supplemental flag-rule engine.
// Flag rules let a deployment raise extra anomaly flags from boolean
// expressions over an operator's metrics, baseline and Z-scores, without
// touching the scoring formula.
package rules

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/fieldsight/sentinel/internal/domain"
)

// Engine compiles and evaluates flag rules.
type Engine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled map[string]*CompiledRule
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  domain.FlagRule
	Program cel.Program
}

// NewEngine creates a new flag-rule engine with the scoring variables
// declared.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("operator_id", cel.StringType),
		cel.Variable("district", cel.StringType),
		cel.Variable("risk_score", cel.IntType),
		// Operator daily metrics
		cel.Variable("op_avg_duration_sec", cel.DoubleType),
		cel.Variable("op_biometric_exception_rate", cel.DoubleType),
		cel.Variable("op_duplicate_error_rate", cel.DoubleType),
		cel.Variable("op_activity_hour_stddev", cel.DoubleType),
		// District baseline
		cel.Variable("base_mean_duration_sec", cel.DoubleType),
		cel.Variable("base_stddev_duration_sec", cel.DoubleType),
		cel.Variable("base_biometric_exception_rate", cel.DoubleType),
		cel.Variable("base_duplicate_error_rate", cel.DoubleType),
		cel.Variable("base_activity_hour_stddev", cel.DoubleType),
		// Z-scores
		cel.Variable("z_duration", cel.DoubleType),
		cel.Variable("z_biometric_exception", cel.DoubleType),
		cel.Variable("z_duplicate_error", cel.DoubleType),
		cel.Variable("z_activity_hours", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:      env,
		compiled: make(map[string]*CompiledRule),
	}, nil
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(cfg domain.FlagRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiled[cfg.ID] = compiled
	return nil
}

// LoadRules compiles and loads every enabled rule. An invalid expression
// fails the whole load so misconfiguration surfaces at startup, not
// mid-run.
func (e *Engine) LoadRules(configs []domain.FlagRule) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// Evaluate runs every loaded rule against the activation map and returns
// the flags of the rules that fired, sorted for stable output. A rule
// evaluation error never fails scoring; it is logged and the rule skipped.
func (e *Engine) Evaluate(activation map[string]any) []string {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiled))
	for _, rule := range e.compiled {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	var flags []string
	for _, rule := range rules {
		out, _, err := rule.Program.Eval(activation)
		if err != nil {
			slog.Warn("flag rule evaluation failed",
				"rule_id", rule.Config.ID,
				"error", err,
			)
			continue
		}

		if fired, ok := out.(types.Bool); ok && bool(fired) {
			flags = append(flags, rule.Config.Flag)
		}
	}

	sort.Strings(flags)
	return flags
}

// Activation builds the CEL variable map for one scored operator.
func Activation(m *domain.OperatorDailyMetrics, b *domain.DistrictBaseline, score int, zScores map[string]float64) map[string]any {
	activation := map[string]any{
		"operator_id": m.OperatorID,
		"district":    m.District,
		"risk_score":  int64(score),

		"op_avg_duration_sec":         m.Metrics.AvgDurationSec,
		"op_biometric_exception_rate": m.Metrics.BiometricExceptionRate,
		"op_duplicate_error_rate":     m.Metrics.DuplicateErrorRate,
		"op_activity_hour_stddev":     m.Metrics.ActivityHourStdDev,

		"base_mean_duration_sec":        b.Metrics.MeanDurationSec,
		"base_stddev_duration_sec":      b.Metrics.StdDevDurationSec,
		"base_biometric_exception_rate": b.Metrics.BiometricExceptionRate,
		"base_duplicate_error_rate":     b.Metrics.DuplicateErrorRate,
		"base_activity_hour_stddev":     b.Metrics.ActivityHourStdDev,

		"z_duration":            0.0,
		"z_biometric_exception": 0.0,
		"z_duplicate_error":     0.0,
		"z_activity_hours":      0.0,
	}

	for metric, z := range zScores {
		activation["z_"+metric] = z
	}

	return activation
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiled = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg domain.FlagRule) (*CompiledRule, error) {
	if cfg.Flag == "" {
		return nil, fmt.Errorf("rule %s: flag is required", cfg.ID)
	}

	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
