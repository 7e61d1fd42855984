package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/born-ml/gradcheck/internal/gradcheck"
	"github.com/born-ml/gradcheck/internal/scenario"
	"github.com/born-ml/gradcheck/internal/serialization"
)

// Snapshot metadata keys identifying the variant a snapshot was taken from.
const (
	metaScenario     = "scenario"
	metaMinibatch    = "minibatch"
	metaNoBias       = "no_bias"
	metaOutputNoBias = "output_no_bias"
	metaTimeSteps    = "time_steps"
)

func writeSnapshot(path, name string, o scenario.Options, c *scenario.Case, res *gradcheck.Result) error {
	snap, err := serialization.Capture(c.Network, c.Name)
	if err != nil {
		return err
	}
	snap.SetCheck(res)
	snap.Header.Metadata[metaScenario] = name
	snap.Header.Metadata[metaMinibatch] = strconv.Itoa(o.Minibatch)
	snap.Header.Metadata[metaNoBias] = strconv.FormatBool(o.NoBias)
	snap.Header.Metadata[metaOutputNoBias] = strconv.FormatBool(o.OutputNoBias)
	snap.Header.Metadata[metaTimeSteps] = strconv.Itoa(o.TimeSteps)
	return snap.WriteFile(path)
}

// variantOf recovers the scenario and options recorded by writeSnapshot.
func variantOf(snap *serialization.Snapshot) (scenario.Scenario, scenario.Options, error) {
	meta := snap.Header.Metadata
	s, ok := scenario.ByName(meta[metaScenario])
	if !ok {
		return scenario.Scenario{}, scenario.Options{}, fmt.Errorf("snapshot names unknown scenario %q", meta[metaScenario])
	}

	var (
		o   scenario.Options
		err error
	)
	if o.Minibatch, err = strconv.Atoi(meta[metaMinibatch]); err != nil {
		return s, o, fmt.Errorf("snapshot %s: %w", metaMinibatch, err)
	}
	if o.NoBias, err = strconv.ParseBool(meta[metaNoBias]); err != nil {
		return s, o, fmt.Errorf("snapshot %s: %w", metaNoBias, err)
	}
	if o.OutputNoBias, err = strconv.ParseBool(meta[metaOutputNoBias]); err != nil {
		return s, o, fmt.Errorf("snapshot %s: %w", metaOutputNoBias, err)
	}
	if o.TimeSteps, err = strconv.Atoi(meta[metaTimeSteps]); err != nil {
		return s, o, fmt.Errorf("snapshot %s: %w", metaTimeSteps, err)
	}
	return s, o, nil
}

// replay rebuilds the variant a snapshot was taken from, loads the stored
// parameters into it and checks it again with cfg.
func replay(path string, cfg gradcheck.Config, stdout io.Writer) error {
	snap, err := serialization.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	s, o, err := variantOf(snap)
	if err != nil {
		return err
	}
	c, err := s.Build(o)
	if err != nil {
		return fmt.Errorf("building %s: %w", s.Name, err)
	}
	if err := snap.Restore(c.Network); err != nil {
		return fmt.Errorf("restoring %s: %w", path, err)
	}

	fmt.Fprintf(stdout, "%s (replayed from %s)\n", c.Name, path)
	res, err := gradcheck.Check(c.Network, c.Input, c.Labels, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	if err := res.Report(stdout); err != nil {
		return err
	}
	if !res.Pass {
		return fmt.Errorf("%w: replay of %s", errFailed, path)
	}
	return nil
}
