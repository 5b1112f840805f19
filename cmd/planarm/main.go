// Command planarm solves the inverse kinematics of a planar serial arm and
// prints the solver's trajectory, one configuration per line.
//
//	planarm solve --links 1,1,1 --target 0.5,2 --format csv
//	planarm fk --links 1,1 --angles 90,0 --degrees
//
// The CSV and JSON output carry the joint positions of every recorded
// configuration, ready to be animated by an external renderer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/npillmayer/schuko/tracing"
	"github.com/urfave/cli/v2"

	"github.com/npillmayer/planarm"
	"github.com/npillmayer/planarm/ik"
	"github.com/npillmayer/planarm/kinematics"
)

// tracer writes to trace with key 'planarm.cli'
func tracer() tracing.Trace {
	return tracing.Select("planarm.cli")
}

const (
	// Flags.
	flagConfig        = "config"
	flagDebug         = "debug"
	flagLinks         = "links"
	flagTarget        = "target"
	flagAngles        = "angles"
	flagDegrees       = "degrees"
	flagMaxIterations = "max-iterations"
	flagLearningRate  = "learning-rate"
	flagTolerance     = "tolerance"
	flagStep          = "step"
	flagWorkers       = "workers"
	flagFormat        = "format"
	flagEvery         = "every"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "planarm: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "planarm",
		Usage: "inverse kinematics for planar serial arms",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "trace every solver iteration",
			},
		},
		Before: func(c *cli.Context) error {
			level := tracing.LevelInfo
			if c.Bool(flagDebug) {
				level = tracing.LevelDebug
			}
			for _, key := range []string{"planarm.ik", "planarm.kinematics", "planarm.cli"} {
				tracing.Select(key).SetTraceLevel(level)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "solve",
				Usage:  "move the end effector to a target and print the trajectory",
				Action: solveAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "load problem description from YAML `FILE`",
					},
					&cli.Float64SliceFlag{
						Name:  flagLinks,
						Usage: "link lengths, base to tip (default 1,1,1)",
					},
					&cli.Float64SliceFlag{
						Name:  flagTarget,
						Usage: "target position x,y (default 0.5,2)",
					},
					&cli.IntFlag{
						Name:  flagMaxIterations,
						Usage: "iteration budget",
						Value: ik.DefaultMaxIterations,
					},
					&cli.Float64Flag{
						Name:  flagLearningRate,
						Usage: "gradient descent learning rate",
						Value: ik.DefaultLearningRate,
					},
					&cli.Float64Flag{
						Name:  flagTolerance,
						Usage: "convergence tolerance",
						Value: ik.DefaultTolerance,
					},
					&cli.Float64Flag{
						Name:  flagStep,
						Usage: "finite difference step",
						Value: ik.DefaultFiniteDifferenceStep,
					},
					&cli.IntFlag{
						Name:  flagWorkers,
						Usage: "goroutines for the gradient estimate",
						Value: 1,
					},
					&cli.StringFlag{
						Name:  flagFormat,
						Usage: "output format: table, csv or json",
						Value: formatTable,
					},
					&cli.IntFlag{
						Name:  flagEvery,
						Usage: "print every `N`th configuration (the last one is always printed)",
						Value: 1,
					},
				},
			},
			{
				Name:   "fk",
				Usage:  "print the joint positions for a set of joint angles",
				Action: fkAction,
				Flags: []cli.Flag{
					&cli.Float64SliceFlag{
						Name:     flagLinks,
						Usage:    "link lengths, base to tip",
						Required: true,
					},
					&cli.Float64SliceFlag{
						Name:     flagAngles,
						Usage:    "relative joint angles in radians",
						Required: true,
					},
				},
			},
		},
	}
}

func solveAction(c *cli.Context) error {
	var pf problemFile
	if path := c.String(flagConfig); path != "" {
		var err error
		if pf, err = loadProblemFile(path); err != nil {
			return err
		}
	}
	p, err := pf.merge(c)
	if err != nil {
		return err
	}
	res, err := ik.SolveContext(c.Context, p.chain, p.target, p.config)
	if err != nil {
		return err
	}
	rep, err := newReport(p, res, c.Int(flagEvery))
	if err != nil {
		return err
	}
	if err := rep.write(c.App.Writer, c.String(flagFormat)); err != nil {
		return err
	}
	if c.String(flagFormat) != formatTable {
		fmt.Fprintln(c.App.ErrWriter, rep.summary())
	}
	return nil
}

func fkAction(c *cli.Context) error {
	links := c.Float64Slice(flagLinks)
	angles := kinematics.JointAngles(c.Float64Slice(flagAngles)).Copy()
	if c.Bool(flagDegrees) {
		for i := range angles {
			angles[i] *= planarm.Deg2Rad
		}
	}
	ee, joints, err := kinematics.ForwardKinematics(links, angles)
	if err != nil {
		return err
	}
	chain := kinematics.MustNewChain(links...)
	frames, err := chain.Frames(angles)
	if err != nil {
		return err
	}
	writeJoints(c.App.Writer, ee, joints, frames)
	return nil
}
