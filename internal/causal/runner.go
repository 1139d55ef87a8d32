package causal

import (
	"context"
	"fmt"
)

// Runner executes one causal method. The computations are opaque to the job
// pipeline: long-running, cancellable through the context, returning an
// estimate payload on success.
type Runner interface {
	Run(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)

func (f RunnerFunc) Run(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	return f(ctx, params)
}

// Runners maps every supported method to its estimator. The estimators consult
// the context at their internal iteration boundaries so a soft-limit cancel
// winds the computation down cooperatively.
func Runners(estimators Estimators) map[Method]Runner {
	return map[Method]Runner{
		MethodDiD:          RunnerFunc(estimators.DiD),
		MethodIV:           RunnerFunc(estimators.IV),
		MethodPanelIV:      RunnerFunc(estimators.PanelIV),
		MethodEventStudy:   RunnerFunc(estimators.EventStudy),
		MethodCompare:      RunnerFunc(estimators.Compare),
		MethodSCM:          RunnerFunc(estimators.SCM),
		MethodAugmentedSCM: RunnerFunc(estimators.AugmentedSCM),
	}
}

// Estimators bundles the statistical backends. The default implementation
// delegates to the estimation engine; tests substitute cheap stand-ins.
type Estimators interface {
	DiD(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)
	IV(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)
	PanelIV(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)
	EventStudy(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)
	Compare(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)
	SCM(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)
	AugmentedSCM(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)
}

// ErrCancelled reports a computation stopped at a cooperative checkpoint.
var ErrCancelled = fmt.Errorf("computation cancelled")
