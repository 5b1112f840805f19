package ik

import (
	"golang.org/x/sync/errgroup"

	"github.com/npillmayer/planarm"
	"github.com/npillmayer/planarm/kinematics"
)

// objective is the scalar function minimized by the solver: the Euclidean
// distance between end effector and target.
type objective struct {
	chain  *kinematics.Chain
	target planarm.Pair
}

// eval expects one angle per link, which the solver guarantees.
func (o objective) eval(theta kinematics.JointAngles) float64 {
	ee, _ := o.chain.EndEffector(theta)
	return ee.Dist(o.target)
}

// partial estimates ∂error/∂θ[i] by a one-sided finite difference. It
// perturbs a private copy of theta; theta itself is left alone.
func (o objective) partial(theta kinematics.JointAngles, i int, e, h float64) float64 {
	perturbed := theta.Copy()
	perturbed[i] += h
	return (o.eval(perturbed) - e) / h
}

// gradient fills grad with the numerical gradient of the error at theta,
// where e is the error at theta. With workers > 1 the partial derivatives
// are computed concurrently; each one only writes grad[i], so the result is
// the same as for the sequential loop.
func (o objective) gradient(theta kinematics.JointAngles, e, h float64, workers int, grad []float64) {
	if workers <= 1 || len(theta) < 2 {
		for i := range theta {
			grad[i] = o.partial(theta, i, e, h)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range theta {
		g.Go(func() error {
			grad[i] = o.partial(theta, i, e, h)
			return nil
		})
	}
	_ = g.Wait() // partials never fail
}
