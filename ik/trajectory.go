package ik

import (
	"iter"

	"gonum.org/v1/gonum/floats"

	"github.com/npillmayer/planarm"
	"github.com/npillmayer/planarm/kinematics"
)

// Trajectory is the sequence of joint configurations visited by a solve,
// one entry per iteration, starting with the initial configuration. A
// Trajectory is read-only: accessors hand out copies.
type Trajectory struct {
	steps []kinematics.JointAngles
}

// Len is the number of recorded configurations.
func (tr Trajectory) Len() int {
	return len(tr.steps)
}

// At returns a copy of configuration i. It panics if i is out of range.
func (tr Trajectory) At(i int) kinematics.JointAngles {
	return tr.steps[i].Copy()
}

// Initial returns a copy of the first configuration, or nil for an empty
// trajectory.
func (tr Trajectory) Initial() kinematics.JointAngles {
	if len(tr.steps) == 0 {
		return nil
	}
	return tr.steps[0].Copy()
}

// Final returns a copy of the last configuration, or nil for an empty
// trajectory.
func (tr Trajectory) Final() kinematics.JointAngles {
	if len(tr.steps) == 0 {
		return nil
	}
	return tr.steps[len(tr.steps)-1].Copy()
}

// All iterates over the configurations in order. The sequence may be
// consumed any number of times.
func (tr Trajectory) All() iter.Seq2[int, kinematics.JointAngles] {
	return func(yield func(int, kinematics.JointAngles) bool) {
		for i, step := range tr.steps {
			if !yield(i, step.Copy()) {
				return
			}
		}
	}
}

// Frames computes the joint positions of chain for every configuration,
// i.e. one drawable polyline (base to end effector) per animation frame.
func (tr Trajectory) Frames(chain *kinematics.Chain) ([][]planarm.Pair, error) {
	frames := make([][]planarm.Pair, len(tr.steps))
	for i, step := range tr.steps {
		_, joints, err := chain.Forward(step)
		if err != nil {
			return nil, err
		}
		frames[i] = joints
	}
	return frames, nil
}

// Errors computes the distance between end effector and target for every
// configuration.
func (tr Trajectory) Errors(chain *kinematics.Chain, target planarm.Pair) ([]float64, error) {
	errs := make([]float64, len(tr.steps))
	for i, step := range tr.steps {
		if err := chain.Check(step); err != nil {
			return nil, err
		}
		ee, err := chain.EndEffector(step)
		if err != nil {
			return nil, err
		}
		errs[i] = ee.Dist(target)
	}
	return errs, nil
}

// StepLengths returns the joint-space L2 distance between consecutive
// configurations. The result has Len()-1 entries.
func (tr Trajectory) StepLengths() []float64 {
	if len(tr.steps) < 2 {
		return nil
	}
	d := make([]float64, len(tr.steps)-1)
	for i := 1; i < len(tr.steps); i++ {
		d[i-1] = floats.Distance(tr.steps[i], tr.steps[i-1], 2)
	}
	return d
}

// record appends a snapshot of theta.
func (tr *Trajectory) record(theta kinematics.JointAngles) {
	tr.steps = append(tr.steps, theta.Copy())
}
