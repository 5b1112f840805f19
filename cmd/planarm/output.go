package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/npillmayer/planarm"
	"github.com/npillmayer/planarm/ik"
	"github.com/npillmayer/planarm/kinematics"
)

// Output formats.
const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

// frame is one recorded configuration together with everything a renderer
// needs to draw it.
type frame struct {
	Iteration int                    `json:"iteration"`
	Angles    kinematics.JointAngles `json:"angles"`
	Joints    [][2]float64           `json:"joints"`
	Error     float64                `json:"error"`
}

type report struct {
	Links      []float64    `json:"links"`
	Target     [2]float64   `json:"target"`
	Converged  bool         `json:"converged"`
	Diverged   bool         `json:"diverged,omitempty"`
	Iterations int          `json:"iterations"`
	Error      float64      `json:"error"`
	Angles     []float64    `json:"angles"`
	Frames     []frame      `json:"frames"`
	Config     reportConfig `json:"config"`
}

type reportConfig struct {
	MaxIterations int     `json:"max_iterations"`
	LearningRate  float64 `json:"learning_rate"`
	Tolerance     float64 `json:"tolerance"`
	Step          float64 `json:"step"`
}

// newReport collects every k-th frame of the solver's history. The last
// frame is always included.
func newReport(p problem, res *ik.Result, every int) (*report, error) {
	if every < 1 {
		every = 1
	}
	joints, err := res.History.Frames(p.chain)
	if err != nil {
		return nil, err
	}
	errs, err := res.History.Errors(p.chain, p.target)
	if err != nil {
		return nil, err
	}
	rep := &report{
		Links:      p.chain.LinkLengths(),
		Target:     [2]float64{p.target.X(), p.target.Y()},
		Converged:  res.Converged,
		Diverged:   res.Diverged,
		Iterations: res.Iterations,
		Error:      res.Error,
		Angles:     res.Angles.Copy(),
		Config: reportConfig{
			MaxIterations: p.config.MaxIterations,
			LearningRate:  p.config.LearningRate,
			Tolerance:     p.config.Tolerance,
			Step:          p.config.FiniteDifferenceStep,
		},
	}
	last := res.History.Len() - 1
	for i, angles := range res.History.All() {
		if i%every != 0 && i != last {
			continue
		}
		rep.Frames = append(rep.Frames, frame{
			Iteration: i,
			Angles:    angles,
			Joints:    pairs(joints[i]),
			Error:     errs[i],
		})
	}
	return rep, nil
}

func pairs(ps []planarm.Pair) [][2]float64 {
	xy := make([][2]float64, len(ps))
	for i, p := range ps {
		xy[i] = [2]float64{p.X(), p.Y()}
	}
	return xy
}

func (rep *report) summary() string {
	outcome := "converged"
	switch {
	case rep.Diverged:
		outcome = "diverged"
	case !rep.Converged:
		outcome = "iteration budget exhausted"
	}
	return fmt.Sprintf("%s after %d iterations, error = %.6g, angles = %v",
		outcome, rep.Iterations, rep.Error, kinematics.JointAngles(rep.Angles))
}

func (rep *report) write(w io.Writer, format string) error {
	switch format {
	case formatTable:
		return rep.writeTable(w)
	case formatCSV:
		return rep.writeCSV(w)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func (rep *report) header() []string {
	h := []string{"iteration"}
	for i := range rep.Links {
		h = append(h, "theta"+strconv.Itoa(i))
	}
	return append(h, "x", "y", "error")
}

func (f frame) endEffector() [2]float64 {
	return f.Joints[len(f.Joints)-1]
}

func (rep *report) writeTable(w io.Writer) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	header := table.Row{}
	for _, h := range rep.header() {
		header = append(header, h)
	}
	t.AppendHeader(header)
	for _, f := range rep.Frames {
		row := table.Row{f.Iteration}
		for _, a := range f.Angles {
			row = append(row, fmt.Sprintf("%.6f", a))
		}
		ee := f.endEffector()
		row = append(row, fmt.Sprintf("%.6f", ee[0]), fmt.Sprintf("%.6f", ee[1]), fmt.Sprintf("%.3e", f.Error))
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{rep.summary()})
	t.Render()
	return nil
}

func (rep *report) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rep.header()); err != nil {
		return err
	}
	for _, f := range rep.Frames {
		rec := []string{strconv.Itoa(f.Iteration)}
		for _, a := range f.Angles {
			rec = append(rec, formatFloat(a))
		}
		ee := f.endEffector()
		rec = append(rec, formatFloat(ee[0]), formatFloat(ee[1]), formatFloat(f.Error))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

// writeJoints prints the joint positions of a single configuration, together
// with the world heading (in degrees) of the link ending at each joint.
func writeJoints(w io.Writer, ee planarm.Pair, joints []planarm.Pair, frames []planarm.AT) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"joint", "x", "y", "heading"})
	for i, j := range joints {
		heading := ""
		if i > 0 {
			heading = fmt.Sprintf("%.6g", planarm.Zap(frames[i-1].Heading()/planarm.Deg2Rad))
		}
		t.AppendRow(table.Row{i, formatFloat(j.X()), formatFloat(j.Y()), heading})
	}
	t.AppendFooter(table.Row{"end effector", formatFloat(ee.X()), formatFloat(ee.Y())})
	t.Render()
}
