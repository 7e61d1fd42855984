// Package main provides the gradient check CLI.
//
// It runs the reference scenarios through the checker and prints a report
// per variant:
//
//	gradcheck                         # every scenario, every variant
//	gradcheck -scenario cnn-subsampling -workers 4
//	gradcheck -max-rel-error 1e-6 -snapshot ./failing
//	gradcheck -replay ./failing/dense-output-3.gchk
//	gradcheck -list
//	gradcheck version
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/born-ml/gradcheck/internal/gradcheck"
	"github.com/born-ml/gradcheck/internal/scenario"
)

const version = "v0.1.0-dev"

var errFailed = errors.New("gradient check failed")

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("gradcheck %s\n", version)
		return
	}
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "gradcheck:", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("gradcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)

	defaults := gradcheck.DefaultConfig()
	var (
		name      = fs.String("scenario", "", "run only the named scenario")
		list      = fs.Bool("list", false, "list scenarios and exit")
		eps       = fs.Float64("eps", defaults.Epsilon, "finite difference epsilon")
		maxRel    = fs.Float64("max-rel-error", defaults.MaxRelError, "maximum relative error")
		minAbs    = fs.Float64("min-abs-error", defaults.MinAbsError, "absolute error threshold for near-zero gradients")
		printAll  = fs.Bool("print", false, "log every parameter")
		firstFail = fs.Bool("first-failure", false, "stop each sweep at the first failure")
		workers   = fs.Int("workers", 1, "parallel sweep workers")
		verbose   = fs.Bool("v", false, "debug logging")
		snapDir   = fs.String("snapshot", "", "write a parameter snapshot of every failing variant to this directory")
		replayOf  = fs.String("replay", "", "check the variant stored in this snapshot with its saved parameters")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *list {
		for _, s := range scenario.All() {
			fmt.Fprintf(stdout, "%-16s minibatches=%v variants=%d\n", s.Name, s.Minibatches, len(s.Variants()))
		}
		return nil
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	cfg := gradcheck.Config{
		Epsilon:              *eps,
		MaxRelError:          *maxRel,
		MinAbsError:          *minAbs,
		PrintResults:         *printAll,
		ReturnOnFirstFailure: *firstFail,
		Workers:              *workers,
		Logger:               slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if *replayOf != "" {
		return replay(*replayOf, cfg, stdout)
	}

	scenarios := scenario.All()
	if *name != "" {
		s, ok := scenario.ByName(*name)
		if !ok {
			return fmt.Errorf("unknown scenario %q (see -list)", *name)
		}
		scenarios = []scenario.Scenario{s}
	}

	failed := 0
	for _, s := range scenarios {
		for i, o := range s.Variants() {
			c, err := s.Build(o)
			if err != nil {
				return fmt.Errorf("building %s: %w", s.Name, err)
			}
			fmt.Fprintln(stdout, c.Name)
			res, err := gradcheck.Check(c.Network, c.Input, c.Labels, cfg)
			if err != nil {
				return fmt.Errorf("%s: %w", c.Name, err)
			}
			if err := res.Report(stdout); err != nil {
				return err
			}
			if !res.Pass {
				failed++
				if *snapDir != "" {
					path := filepath.Join(*snapDir, fmt.Sprintf("%s-%d.gchk", s.Name, i))
					if err := writeSnapshot(path, s.Name, o, c, res); err != nil {
						return err
					}
					fmt.Fprintf(stdout, "  snapshot written to %s\n", path)
				}
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d variant(s)", errFailed, failed)
	}
	return nil
}
