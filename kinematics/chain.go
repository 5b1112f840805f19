/*
Package kinematics computes forward kinematics for planar serial chains of
rigid links connected by revolute joints.

The base of a chain is fixed at the origin. With all joint angles at zero,
all links are collinear along the positive x-axis. Each joint angle is
measured relative to the orientation of the preceding link, so the world
orientation of link i is the sum of the joint angles 0…i.

Forward kinematics is a pure function: it has no side effects and the only
failure is a contract violation (wrong number of angles, bad geometry),
which is detected before anything is computed.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package kinematics

import (
	"fmt"
	"math"

	"github.com/npillmayer/planarm"
)

// Chain is the geometry of a planar serial manipulator: an ordered list of
// link lengths. A chain is immutable after construction and may be shared
// between goroutines.
type Chain struct {
	links []float64
	reach float64
}

// NewChain creates a chain from link lengths, base to tip. Every length must
// be positive and finite.
func NewChain(linkLengths ...float64) (*Chain, error) {
	if len(linkLengths) == 0 {
		tracer().Errorf("refusing to create chain without links")
		return nil, ErrEmptyChain
	}
	chain := &Chain{links: make([]float64, len(linkLengths))}
	for i, l := range linkLengths {
		if !(l > 0) || math.IsInf(l, 0) {
			tracer().Errorf("link %d has invalid length %g", i, l)
			return nil, fmt.Errorf("%w: link %d has length %g", ErrInvalidLink, i, l)
		}
		chain.links[i] = l
		chain.reach += l
	}
	return chain, nil
}

// MustNewChain is a helper for tests and fixed geometries which panics on
// invalid link lengths.
func MustNewChain(linkLengths ...float64) *Chain {
	chain, err := NewChain(linkLengths...)
	if err != nil {
		panic(err)
	}
	return chain
}

// N is the number of links (and joints) of the chain.
func (chain *Chain) N() int {
	return len(chain.links)
}

// LinkLengths returns a copy of the chain's link lengths.
func (chain *Chain) LinkLengths() []float64 {
	c := make([]float64, len(chain.links))
	copy(c, chain.links)
	return c
}

// Reach is the maximum distance of the end effector from the base, i.e. the
// sum of all link lengths.
func (chain *Chain) Reach() float64 {
	return chain.reach
}

// CanReach is a predicate: is target within the reach of the chain?
// Targets closer to the base than the chain can fold are not detected; the
// solver handles those as non-convergent.
func (chain *Chain) CanReach(target planarm.Pair) bool {
	return target.Abs() <= chain.reach
}

// Check validates joint angles against the chain.
func (chain *Chain) Check(angles JointAngles) error {
	if len(angles) != len(chain.links) {
		return fmt.Errorf("%w: got %d angles for %d links", ErrLengthMismatch,
			len(angles), len(chain.links))
	}
	for i, a := range angles {
		if !planarm.IsFinite(a) {
			return fmt.Errorf("%w: joint %d is %g", ErrInvalidAngle, i, a)
		}
	}
	return nil
}

// Forward computes the end effector position and the positions of all
// joints for a set of joint angles. joints has N+1 entries: the base (the
// origin) followed by the end of every link; the last entry equals the end
// effector.
func (chain *Chain) Forward(angles JointAngles) (planarm.Pair, []planarm.Pair, error) {
	if err := chain.Check(angles); err != nil {
		tracer().Errorf("forward kinematics: %v", err)
		return planarm.Origin, nil, err
	}
	joints := make([]planarm.Pair, 1, len(chain.links)+1)
	joints[0] = planarm.Origin
	var x, y, angle float64
	for i, l := range chain.links {
		angle += angles[i]
		x += l * math.Cos(angle)
		y += l * math.Sin(angle)
		joints = append(joints, planarm.P(x, y))
	}
	return planarm.P(x, y), joints, nil
}

// EndEffector computes the end effector position only. It does the same
// arithmetic as Forward, without allocating joint positions. Only the number
// of angles is checked; non-finite angles yield a non-finite position.
func (chain *Chain) EndEffector(angles JointAngles) (planarm.Pair, error) {
	if len(angles) != len(chain.links) {
		return planarm.Origin, fmt.Errorf("%w: got %d angles for %d links", ErrLengthMismatch,
			len(angles), len(chain.links))
	}
	var x, y, angle float64
	for i, l := range chain.links {
		angle += angles[i]
		x += l * math.Cos(angle)
		y += l * math.Sin(angle)
	}
	return planarm.P(x, y), nil
}

// Frames returns an affine transform for every link, mapping coordinates
// local to the end of link i (x-axis pointing along the link) to world
// coordinates. frames[i].Origin() is the position of joint i+1.
func (chain *Chain) Frames(angles JointAngles) ([]planarm.AT, error) {
	if err := chain.Check(angles); err != nil {
		tracer().Errorf("link frames: %v", err)
		return nil, err
	}
	frames := make([]planarm.AT, len(chain.links))
	frame := planarm.Identity()
	for i, l := range chain.links {
		// rotate by the joint, then move along the link
		local := planarm.Translation(planarm.P(l, 0)).Combine(planarm.Rotation(angles[i]))
		frame = local.Combine(frame)
		frames[i] = frame
	}
	return frames, nil
}

// ForwardKinematics is the stateless variant of Chain.Forward. It validates
// linkLengths and jointAngles on every call.
func ForwardKinematics(linkLengths, jointAngles []float64) (planarm.Pair, []planarm.Pair, error) {
	if len(linkLengths) != len(jointAngles) {
		err := fmt.Errorf("%w: got %d angles for %d links", ErrLengthMismatch,
			len(jointAngles), len(linkLengths))
		tracer().Errorf("forward kinematics: %v", err)
		return planarm.Origin, nil, err
	}
	chain, err := NewChain(linkLengths...)
	if err != nil {
		return planarm.Origin, nil, err
	}
	return chain.Forward(jointAngles)
}
