package kinematics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/npillmayer/schuko/tracing"

	"github.com/npillmayer/planarm"
)

// tracer writes to trace with key 'planarm.kinematics'
func tracer() tracing.Trace {
	return tracing.Select("planarm.kinematics")
}

var (
	// ErrContractViolation is wrapped by every error caused by invalid input
	// to a kinematics or solver call. Such errors are reported before any
	// computation starts.
	ErrContractViolation = errors.New("contract violation")
	// ErrEmptyChain indicates a chain without links.
	ErrEmptyChain = fmt.Errorf("%w: chain has no links", ErrContractViolation)
	// ErrInvalidLink indicates a link length which is not a positive finite number.
	ErrInvalidLink = fmt.Errorf("%w: link length must be positive and finite", ErrContractViolation)
	// ErrLengthMismatch indicates a joint angle vector not matching the number of links.
	ErrLengthMismatch = fmt.Errorf("%w: number of joint angles differs from number of links", ErrContractViolation)
	// ErrInvalidAngle indicates a joint angle which is NaN or infinite.
	ErrInvalidAngle = fmt.Errorf("%w: joint angle must be finite", ErrContractViolation)
)

// JointAngles holds one angle per joint, in radians. Angles are relative:
// joint i is rotated against the orientation of link i-1, not against the
// world frame.
type JointAngles []float64

// Zero returns n joint angles of 0, i.e. a fully stretched chain along the
// x-axis.
func Zero(n int) JointAngles {
	return make(JointAngles, n)
}

// Copy returns an independent copy of the angles.
func (ja JointAngles) Copy() JointAngles {
	if ja == nil {
		return nil
	}
	c := make(JointAngles, len(ja))
	copy(c, ja)
	return c
}

// N is the number of joints.
func (ja JointAngles) N() int {
	return len(ja)
}

// IsFinite is a predicate: is every angle neither NaN nor ±Inf ?
func (ja JointAngles) IsFinite() bool {
	for _, a := range ja {
		if !planarm.IsFinite(a) {
			return false
		}
	}
	return true
}

func (ja JointAngles) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, a := range ja {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%.6g", a)
	}
	b.WriteByte(']')
	return b.String()
}
