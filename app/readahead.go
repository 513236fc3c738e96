package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/bonnefoa/mmap_readahead/experiment"
	"github.com/bonnefoa/mmap_readahead/mapping"
	"github.com/bonnefoa/mmap_readahead/memory"
	"github.com/bonnefoa/mmap_readahead/pagecache"
	"github.com/bonnefoa/mmap_readahead/relation"
	"github.com/bonnefoa/mmap_readahead/scan"
	"github.com/bonnefoa/mmap_readahead/utils"
)

// Readahead runs one experiment per target and outputs the comparisons
type Readahead struct {
	CliArgs
	conn relation.Querier

	pageSize int
	driver   experiment.Driver
}

// TargetReport is the experiment report of a target
type TargetReport struct {
	relation.Target
	experiment.Report
}

// NewReadahead creates the Readahead instance. conn is only needed to resolve relations.
func NewReadahead(cliArgs CliArgs, conn relation.Querier) (r Readahead, err error) {
	if len(cliArgs.Relations) > 0 && conn == nil {
		err = fmt.Errorf("%w: relations need a connection", ErrUsage)
		return
	}
	r.CliArgs = cliArgs
	r.conn = conn
	r.pageSize = mapping.GetPageSize()
	r.driver.Runner = &experiment.Runner{
		Cache: memory.CacheDropper{},
		Stats: memory.ProcStats{},
	}
	return
}

func (r *Readahead) getTargets(ctx context.Context) ([]relation.Target, error) {
	var targets []relation.Target
	for _, file := range r.Files {
		targets = append(targets, relation.Target{Name: file, Kind: 'f', Path: file})
	}
	if len(r.Relations) == 0 {
		return targets, nil
	}
	relTargets, err := relation.GetTargets(ctx, r.conn, r.PgData, r.Relations)
	if err != nil {
		return nil, err
	}
	slog.Info("Resolved relations", "relations", len(relTargets))
	return append(targets, relTargets...), nil
}

// checkTarget refuses files shorter than the block size, touching past EOF
// would fault. A missing file is reported by the mapping.
func (r *Readahead) checkTarget(target relation.Target) error {
	fi, err := os.Stat(target.Path)
	if err != nil {
		return nil
	}
	if fi.Size() < int64(r.Experiment.Trial.BlockSize) {
		return fmt.Errorf("%w: %s is %d bytes, shorter than block_size %d", ErrUsage, target.Path, fi.Size(), r.Experiment.Trial.BlockSize)
	}
	return nil
}

// Run runs the experiments and writes the output
func (r *Readahead) Run(ctx context.Context) (err error) {
	targets, err := r.getTargets(ctx)
	if err != nil {
		return
	}

	if r.PageFlags {
		flagReader := pagecache.NewFlagReader()
		defer flagReader.Close()
		r.driver.Runner.Flags = &flagReader
	}

	expCtx := experiment.NewContext(r.Seed)
	reports := make([]TargetReport, 0, len(targets))
	for _, target := range targets {
		err = r.checkTarget(target)
		if err != nil {
			return
		}
		// Each target is an independent experiment
		expCtx.Reset()
		cfg := r.Experiment
		cfg.Trial.Path = target.Path
		slog.Info("Starting experiment", "target", target.Name, "path", target.Path,
			"block_size", cfg.Trial.BlockSize, "strategy", cfg.Trial.Strategy, "composition", cfg.Composition)

		var report experiment.Report
		report, err = r.driver.Run(expCtx, cfg)
		if err != nil {
			return
		}
		reports = append(reports, TargetReport{target, report})
	}

	w, err := utils.OpenOutput(r.OutputOptions.Output)
	if err != nil {
		return
	}
	defer func() {
		err = errors.Join(err, w.Close())
	}()
	return r.outputResults(w, reports)
}

// ExitCode maps an error to the process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, mapping.ErrOpen):
		return 1
	case errors.Is(err, mapping.ErrMmap):
		return 2
	case errors.Is(err, mapping.ErrMadvise):
		return 3
	case errors.Is(err, scan.ErrRead):
		return 4
	case errors.Is(err, mapping.ErrUnmap):
		return 5
	case errors.Is(err, ErrUsage):
		// EX_USAGE
		return 64
	}
	// EX_SOFTWARE
	return 70
}
