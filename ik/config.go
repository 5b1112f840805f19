package ik

import (
	"fmt"
	"math"

	"go.uber.org/multierr"

	"github.com/npillmayer/planarm/kinematics"
)

// Default solver parameters.
const (
	DefaultMaxIterations        = 2000
	DefaultLearningRate         = 0.01
	DefaultTolerance            = 1e-3
	DefaultFiniteDifferenceStep = 1e-6
)

// ErrContractViolation is the same sentinel as kinematics.ErrContractViolation,
// so callers may check solver and kinematics errors alike.
var ErrContractViolation = kinematics.ErrContractViolation

// ErrInvalidConfig indicates a solver parameter out of range.
var ErrInvalidConfig = fmt.Errorf("%w: invalid solver configuration", ErrContractViolation)

// Config holds the parameters of a single solve. Configs are plain values;
// concurrent solves with different configs do not interfere.
type Config struct {
	MaxIterations        int     // iteration budget, > 0
	LearningRate         float64 // gradient descent step factor, > 0
	Tolerance            float64 // convergence threshold on the positional error, > 0
	FiniteDifferenceStep float64 // perturbation for the numerical gradient, > 0
	// Workers > 1 evaluates the partial derivatives of an iteration
	// concurrently. Results do not depend on the number of workers.
	Workers int
}

// DefaultConfig returns the default solver parameters.
func DefaultConfig() Config {
	return Config{
		MaxIterations:        DefaultMaxIterations,
		LearningRate:         DefaultLearningRate,
		Tolerance:            DefaultTolerance,
		FiniteDifferenceStep: DefaultFiniteDifferenceStep,
		Workers:              1,
	}
}

// Validate checks all parameters and reports every offending one.
func (cfg Config) Validate() error {
	var err error
	if cfg.MaxIterations <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: max iterations = %d", ErrInvalidConfig, cfg.MaxIterations))
	}
	if !positive(cfg.LearningRate) {
		err = multierr.Append(err, fmt.Errorf("%w: learning rate = %g", ErrInvalidConfig, cfg.LearningRate))
	}
	if !positive(cfg.Tolerance) {
		err = multierr.Append(err, fmt.Errorf("%w: tolerance = %g", ErrInvalidConfig, cfg.Tolerance))
	}
	if !positive(cfg.FiniteDifferenceStep) {
		err = multierr.Append(err, fmt.Errorf("%w: finite difference step = %g", ErrInvalidConfig, cfg.FiniteDifferenceStep))
	}
	if cfg.Workers < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: workers = %d", ErrInvalidConfig, cfg.Workers))
	}
	return err
}

func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 0)
}

func (cfg Config) String() string {
	return fmt.Sprintf("{max-iter=%d, lr=%g, tol=%g, h=%g, workers=%d}", cfg.MaxIterations,
		cfg.LearningRate, cfg.Tolerance, cfg.FiniteDifferenceStep, cfg.Workers)
}
