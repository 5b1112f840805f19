package ik

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/npillmayer/planarm"
	"github.com/npillmayer/planarm/kinematics"
)

func threeLinks() *kinematics.Chain {
	return kinematics.MustNewChain(1, 1, 1)
}

func TestReachableTarget(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	chain := threeLinks()
	target := planarm.P(0.5, 2.0)
	cfg := DefaultConfig()
	res, err := Solve(chain, target, cfg)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.False(t, res.Diverged)
	assert.Less(t, res.Error, cfg.Tolerance)
	assert.Less(t, res.Iterations, cfg.MaxIterations)
	assert.Less(t, res.History.Len(), cfg.MaxIterations+1)
	assert.Equal(t, res.Iterations+1, res.History.Len())
	ee, _, err := chain.Forward(res.Angles)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, ee.Dist(target), cfg.Tolerance)
	assert.Equal(t, res.Angles, res.History.Final())
	t.Logf("converged after %d iterations, θ = %v", res.Iterations, res.Angles)
}

func TestErrorDecreases(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	chain := threeLinks()
	target := planarm.P(0.5, 2.0)
	res, err := Solve(chain, target, DefaultConfig())
	require.NoError(t, err)
	errs, err := res.History.Errors(chain, target)
	require.NoError(t, err)
	require.Equal(t, res.History.Len(), len(errs))
	assert.Greater(t, errs[0], errs[len(errs)-1])
	assert.InDelta(t, math.Sqrt(2.5*2.5+2*2), errs[0], 1e-12)
}

func TestUnreachableTarget(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	chain := threeLinks()
	target := planarm.P(10, 10)
	cfg := DefaultConfig()
	res, err := Solve(chain, target, cfg)
	require.NoError(t, err, "non-convergence must not be an error")
	assert.False(t, res.Converged)
	assert.Equal(t, cfg.MaxIterations, res.Iterations)
	assert.Equal(t, cfg.MaxIterations+1, res.History.Len())
	assert.GreaterOrEqual(t, res.Error, cfg.Tolerance)
	// the best the arm can do is to point at the target
	assert.InDelta(t, target.Abs()-chain.Reach(), res.Error, 0.05)
}

func TestOverflowingUpdateIsDiscarded(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	chain := threeLinks()
	target := planarm.P(0.5, 2.0)
	cfg := DefaultConfig()
	cfg.LearningRate = 1e308
	cfg.MaxIterations = 5
	res, err := Solve(chain, target, cfg)
	require.NoError(t, err)
	assert.True(t, res.Diverged)
	assert.False(t, res.Converged)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, 1, res.History.Len())
	assert.Equal(t, kinematics.Zero(3), res.Angles)
	assert.True(t, res.Angles.IsFinite())
	assert.InDelta(t, math.Sqrt(6.25+4), res.Error, 1e-12)
	// the trajectory stays usable for rendering
	frames, err := res.History.Frames(chain)
	require.NoError(t, err)
	assert.Len(t, frames, 1)
	errs, err := res.History.Errors(chain, target)
	require.NoError(t, err)
	assert.Equal(t, res.Error, errs[0])
}

func TestInitialConfiguration(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	res, err := Solve(threeLinks(), planarm.P(1, 1), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, kinematics.JointAngles{0, 0, 0}, res.History.Initial())
	assert.Equal(t, kinematics.JointAngles{0, 0, 0}, res.History.At(0))
}

func TestAlreadyAtTarget(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	// the stretched chain touches (3,0): nothing to do
	res, err := Solve(threeLinks(), planarm.P(3, 0), DefaultConfig())
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, 1, res.History.Len())
}

func TestFirstStep(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	chain := threeLinks()
	target := planarm.P(0.5, 2.0)
	cfg := DefaultConfig()
	cfg.MaxIterations = 1
	res, err := Solve(chain, target, cfg)
	require.NoError(t, err)
	require.Equal(t, 2, res.History.Len())
	// recompute the single step by hand
	obj := objective{chain: chain, target: target}
	theta := kinematics.Zero(3)
	e := obj.eval(theta)
	want := make(kinematics.JointAngles, 3)
	for i := range theta {
		p := theta.Copy()
		p[i] += cfg.FiniteDifferenceStep
		g := (obj.eval(p) - e) / cfg.FiniteDifferenceStep
		want[i] = theta[i] - cfg.LearningRate*g
	}
	assert.Equal(t, want, res.History.At(1))
	// turning counter-clockwise brings (3,0) closer to (0.5,2)
	for i, a := range want {
		assert.Greater(t, a, 0.0, "joint %d", i)
	}
}

func TestParallelGradientIsIdentical(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	chain := kinematics.MustNewChain(1, 0.8, 0.6, 0.4, 0.3, 0.2)
	target := planarm.P(-0.7, 1.9)
	cfg := DefaultConfig()
	cfg.MaxIterations = 300
	seq, err := Solve(chain, target, cfg)
	require.NoError(t, err)
	cfg.Workers = 4
	par, err := Solve(chain, target, cfg)
	require.NoError(t, err)
	assert.Equal(t, seq.Iterations, par.Iterations)
	assert.Equal(t, seq.Angles, par.Angles)
	require.Equal(t, seq.History.Len(), par.History.Len())
	for i := 0; i < seq.History.Len(); i++ {
		require.Equal(t, seq.History.At(i), par.History.At(i), "step %d", i)
	}
}

func TestCancelledSolve(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := SolveContext(ctx, threeLinks(), planarm.P(0.5, 2.0), DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, ErrContractViolation))
	require.NotNil(t, res)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, 1, res.History.Len())
}

func TestContractViolations(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	chain := threeLinks()
	target := planarm.P(1, 1)
	_, err := Solve(nil, target, DefaultConfig())
	assert.ErrorIs(t, err, ErrContractViolation)
	_, err = Solve(chain, planarm.P(math.NaN(), 0), DefaultConfig())
	assert.ErrorIs(t, err, ErrContractViolation)

	bad := []func(*Config){
		func(c *Config) { c.MaxIterations = 0 },
		func(c *Config) { c.LearningRate = 0 },
		func(c *Config) { c.Tolerance = -1e-3 },
		func(c *Config) { c.FiniteDifferenceStep = 0 },
		func(c *Config) { c.LearningRate = math.Inf(1) },
		func(c *Config) { c.Workers = -1 },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		res, err := Solve(chain, target, cfg)
		assert.Nil(t, res, "case %d", i)
		assert.ErrorIs(t, err, ErrContractViolation, "case %d", i)
		assert.ErrorIs(t, err, ErrInvalidConfig, "case %d", i)
	}
}

func TestValidateReportsAll(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	assert.NoError(t, DefaultConfig().Validate())
	cfg := Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 4)
	assert.ErrorIs(t, err, ErrContractViolation)
}

func TestConcurrentSolves(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	chain := threeLinks()
	targets := []planarm.Pair{planarm.P(0.5, 2), planarm.P(1, 1), planarm.P(2, -1), planarm.P(-1.5, 1)}
	results := make([]*Result, len(targets))
	done := make(chan int)
	for i, tg := range targets {
		go func() {
			cfg := DefaultConfig()
			cfg.LearningRate = 0.01 + 0.001*float64(i)
			res, err := Solve(chain, tg, cfg)
			assert.NoError(t, err)
			results[i] = res
			done <- i
		}()
	}
	for range targets {
		<-done
	}
	for i, res := range results {
		require.NotNil(t, res, "target %d", i)
		errs, err := res.History.Errors(chain, targets[i])
		require.NoError(t, err)
		assert.Greater(t, errs[0], res.Error, "target %d", i)
	}
}
