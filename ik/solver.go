/*
Package ik solves the inverse kinematics problem for planar serial chains
by numerical gradient descent.

The solver starts with all joint angles at zero and repeatedly

  - computes the error e = |endeffector(θ) - target|, stopping if e < tolerance,
  - estimates the gradient of e by one-sided finite differences, one joint at a time,
  - updates all joints at once: θ[i] -= learningRate * grad[i],
  - records a snapshot of θ.

The gradient is taken of the scalar distance itself, not of its square or
of the positional residual vector. This determines the convergence
behaviour, including the noise of the difference quotient near the step
size.

Targets which cannot be reached are not an error. The solver spends its
whole iteration budget and returns the best configuration it has, together
with the complete trajectory. Callers have to look at Result.Converged (or
compute the residual themselves) to tell the two outcomes apart.

An update step which overflows (for example with an absurd learning rate)
is discarded and ends the solve with Result.Diverged set. The trajectory
therefore never contains non-finite angles.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package ik

import (
	"context"
	"fmt"

	"github.com/npillmayer/schuko/tracing"
	"gonum.org/v1/gonum/floats"

	"github.com/npillmayer/planarm"
	"github.com/npillmayer/planarm/kinematics"
)

// tracer writes to trace with key 'planarm.ik'
func tracer() tracing.Trace {
	return tracing.Select("planarm.ik")
}

// Result is the outcome of a solve.
type Result struct {
	Angles     kinematics.JointAngles // final joint angles
	History    Trajectory             // every configuration, starting with the initial one
	Iterations int                    // number of update steps performed
	Error      float64                // distance of the final end effector to the target
	Converged  bool                   // Error < Tolerance
	Diverged   bool                   // stopped because an update produced non-finite angles
}

// Solve runs the gradient descent for chain and target. It returns an error
// only for invalid input (wrapping ErrContractViolation); failing to reach
// the target is reported through Result.Converged.
func Solve(chain *kinematics.Chain, target planarm.Pair, cfg Config) (*Result, error) {
	return SolveContext(context.Background(), chain, target, cfg)
}

// SolveContext is Solve with cancellation. ctx is checked once per
// iteration, before the convergence test. If ctx is done, the result so far
// is returned together with an error wrapping ctx.Err().
func SolveContext(ctx context.Context, chain *kinematics.Chain, target planarm.Pair, cfg Config) (*Result, error) {
	if chain == nil {
		return nil, fmt.Errorf("%w: chain must not be nil", ErrContractViolation)
	}
	if !target.IsFinite() {
		return nil, fmt.Errorf("%w: target %v is not finite", ErrContractViolation, target)
	}
	if err := cfg.Validate(); err != nil {
		tracer().Errorf("solver configuration: %v", err)
		return nil, err
	}
	obj := objective{chain: chain, target: target}
	tracer().Infof("solving for target %v, reach = %g, config = %v", target, chain.Reach(), cfg)
	if !chain.CanReach(target) {
		tracer().Infof("target %v is out of reach, expect no convergence", target)
	}
	n := chain.N()
	theta := kinematics.Zero(n)
	grad := make([]float64, n)
	prev := make(kinematics.JointAngles, n)
	res := &Result{}
	res.History.steps = make([]kinematics.JointAngles, 0, min(cfg.MaxIterations, 256)+1)
	res.History.record(theta)
	var err error
	for it := 0; it < cfg.MaxIterations; it++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("solve interrupted after %d iterations: %w", it, ctxErr)
			break
		}
		e := obj.eval(theta)
		tracer().P("iter", it).Debugf("error = %.6g, θ = %v", e, theta)
		if e < cfg.Tolerance {
			break
		}
		obj.gradient(theta, e, cfg.FiniteDifferenceStep, cfg.Workers, grad)
		copy(prev, theta)
		floats.AddScaled(theta, -cfg.LearningRate, grad)
		if !theta.IsFinite() {
			tracer().Errorf("update to %v diverged at iteration %d, keeping %v", theta, it, prev)
			copy(theta, prev)
			res.Diverged = true
			break
		}
		res.History.record(theta)
		res.Iterations++
	}
	res.Angles = theta
	res.Error = obj.eval(theta)
	res.Converged = res.Error < cfg.Tolerance
	switch {
	case res.Converged:
		tracer().Infof("converged after %d iterations, error = %.6g", res.Iterations, res.Error)
	case !res.Diverged:
		tracer().Infof("stopped after %d iterations, error = %.6g", res.Iterations, res.Error)
	}
	return res, err
}
