package experiment

import (
	"fmt"
	"log/slog"
	"strings"
)

// Composition selects the advise flags of the two trials of a pair
type Composition int

const (
	// AdvisedVsPlain pairs an advised trial with a non advised one
	AdvisedVsPlain Composition = iota
	// AdvisedTwice runs the advised trial twice, checking repeatability
	AdvisedTwice
	// PlainTwice runs the non advised trial twice
	PlainTwice
)

var compositionMap = map[string]Composition{
	"advised_vs_plain": AdvisedVsPlain,
	"advised_twice":    AdvisedTwice,
	"plain_twice":      PlainTwice,
}

// ParseComposition parses a composition name
func ParseComposition(s string) (Composition, error) {
	c, ok := compositionMap[strings.ToLower(s)]
	if !ok {
		return c, fmt.Errorf("unknown composition: %v", s)
	}
	return c, nil
}

func (c Composition) String() string {
	for name, v := range compositionMap {
		if v == c {
			return name
		}
	}
	return "unknown"
}

// Advise returns the advise flags of trial A and trial B
func (c Composition) Advise() (a bool, b bool) {
	switch c {
	case AdvisedTwice:
		return true, true
	case PlainTwice:
		return false, false
	}
	return true, false
}

// Config describes an experiment
type Config struct {
	Trial TrialConfig
	// Trials is the number of trials, an even number of at least two
	Trials      int
	Composition Composition
}

// Pair holds the two trials of a pair and their comparison
type Pair struct {
	A          TrialResult
	B          TrialResult
	Comparison Comparison
}

// Report is the outcome of an experiment
type Report struct {
	Config Config
	Pairs  []Pair
}

// Driver runs the trials of an experiment
type Driver struct {
	Runner *Runner
}

// Validate checks the experiment configuration
func (c Config) Validate() error {
	if c.Trials < 2 || c.Trials%2 != 0 {
		return fmt.Errorf("trials must be an even number of at least 2, got %d", c.Trials)
	}
	if c.Trial.SampleInterval < 0 {
		return fmt.Errorf("sample interval must be positive, got %d", c.Trial.SampleInterval)
	}
	return nil
}

// Run runs the trials sequentially and compares each pair index by index.
// The first fatal trial error stops the experiment.
func (d *Driver) Run(ctx *Context, cfg Config) (report Report, err error) {
	report.Config = cfg
	err = cfg.Validate()
	if err != nil {
		return
	}
	adviseA, adviseB := cfg.Composition.Advise()

	for i := 0; i < cfg.Trials/2; i++ {
		var pair Pair

		trialA := cfg.Trial
		trialA.Advise = adviseA
		slog.Info("Running trial", "pair", i, "trial", "A", "advise", adviseA)
		pair.A, err = d.Runner.Run(ctx, trialA)
		if err != nil {
			return
		}

		trialB := cfg.Trial
		trialB.Advise = adviseB
		slog.Info("Running trial", "pair", i, "trial", "B", "advise", adviseB)
		pair.B, err = d.Runner.Run(ctx, trialB)
		if err != nil {
			return
		}

		ctx.SeriesA = pair.A.Series
		ctx.SeriesB = pair.B.Series
		pair.Comparison = Compare(ctx.SeriesA, ctx.SeriesB, pair.A.Interval)
		if pair.Comparison.Mismatch {
			slog.Warn("Series length mismatch, comparison truncated", "pair", i,
				"length_a", pair.Comparison.LengthA, "length_b", pair.Comparison.LengthB)
		}
		report.Pairs = append(report.Pairs, pair)
	}
	return
}
