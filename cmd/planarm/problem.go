package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/npillmayer/planarm"
	"github.com/npillmayer/planarm/ik"
	"github.com/npillmayer/planarm/kinematics"
)

// problemFile is the YAML layout of a problem description, e.g.
//
//	links: [1, 1, 1]
//	target: [0.5, 2.0]
//	solver:
//	  max-iterations: 2000
//	  learning-rate: 0.01
//	  tolerance: 0.001
//	  step: 1e-6
//	  workers: 1
type problemFile struct {
	Links  []float64    `yaml:"links"`
	Target []float64    `yaml:"target"`
	Solver solverParams `yaml:"solver"`
}

// Absent keys are nil. Explicit values, zero included, are passed on to
// ik.Config.Validate.
type solverParams struct {
	MaxIterations *int     `yaml:"max-iterations"`
	LearningRate  *float64 `yaml:"learning-rate"`
	Tolerance     *float64 `yaml:"tolerance"`
	Step          *float64 `yaml:"step"`
	Workers       *int     `yaml:"workers"`
}

// problem is a fully resolved solve request.
type problem struct {
	chain  *kinematics.Chain
	target planarm.Pair
	config ik.Config
}

var errBadProblem = errors.New("bad problem description")

// The notebook's demo problem: three unit links, target (0.5, 2).
var (
	defaultLinks  = []float64{1, 1, 1}
	defaultTarget = []float64{0.5, 2.0}
)

func readProblemFile(r io.Reader) (problemFile, error) {
	var pf problemFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil && !errors.Is(err, io.EOF) {
		return pf, fmt.Errorf("%w: %v", errBadProblem, err)
	}
	return pf, nil
}

func loadProblemFile(path string) (problemFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return problemFile{}, err
	}
	defer f.Close()
	tracer().Infof("reading problem from %s", path)
	return readProblemFile(f)
}

// merge resolves a problem: command line flags win over the problem file,
// which wins over the defaults.
func (pf problemFile) merge(c *cli.Context) (problem, error) {
	links, target := defaultLinks, defaultTarget
	if len(pf.Links) > 0 {
		links = pf.Links
	}
	if len(pf.Target) > 0 {
		target = pf.Target
	}
	if c.IsSet(flagLinks) {
		links = c.Float64Slice(flagLinks)
	}
	if c.IsSet(flagTarget) {
		target = c.Float64Slice(flagTarget)
	}
	cfg := ik.DefaultConfig()
	pf.Solver.applyTo(&cfg)
	if c.IsSet(flagMaxIterations) {
		cfg.MaxIterations = c.Int(flagMaxIterations)
	}
	if c.IsSet(flagLearningRate) {
		cfg.LearningRate = c.Float64(flagLearningRate)
	}
	if c.IsSet(flagTolerance) {
		cfg.Tolerance = c.Float64(flagTolerance)
	}
	if c.IsSet(flagStep) {
		cfg.FiniteDifferenceStep = c.Float64(flagStep)
	}
	if c.IsSet(flagWorkers) {
		cfg.Workers = c.Int(flagWorkers)
	}
	return newProblem(links, target, cfg)
}

func (sp solverParams) applyTo(cfg *ik.Config) {
	if sp.MaxIterations != nil {
		cfg.MaxIterations = *sp.MaxIterations
	}
	if sp.LearningRate != nil {
		cfg.LearningRate = *sp.LearningRate
	}
	if sp.Tolerance != nil {
		cfg.Tolerance = *sp.Tolerance
	}
	if sp.Step != nil {
		cfg.FiniteDifferenceStep = *sp.Step
	}
	if sp.Workers != nil {
		cfg.Workers = *sp.Workers
	}
}

func newProblem(links, target []float64, cfg ik.Config) (problem, error) {
	if len(target) != 2 {
		return problem{}, fmt.Errorf("%w: target needs 2 coordinates, got %d", errBadProblem, len(target))
	}
	chain, err := kinematics.NewChain(links...)
	if err != nil {
		return problem{}, err
	}
	if err := cfg.Validate(); err != nil {
		return problem{}, err
	}
	return problem{
		chain:  chain,
		target: planarm.P(target[0], target[1]),
		config: cfg,
	}, nil
}
