package experiment

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bonnefoa/mmap_readahead/mapping"
	"github.com/bonnefoa/mmap_readahead/memory"
	"github.com/bonnefoa/mmap_readahead/pagecache"
	"github.com/bonnefoa/mmap_readahead/scan"
	"golang.org/x/time/rate"
)

const (
	// DefaultBlockSize is the number of bytes mapped per trial
	DefaultBlockSize = 640 << 10

	progressInterval = time.Second
)

// CacheController drops the page cache before a trial
type CacheController interface {
	DropAll() error
}

// ProcessStats reads the fault counters of a process
type ProcessStats interface {
	Read(pid int) (memory.Faults, error)
}

// TrialConfig describes a single trial
type TrialConfig struct {
	Path      string
	BlockSize int
	Advise    bool
	Advice    mapping.Advice
	// SampleInterval is the number of units between samples, 0 uses the strategy default
	SampleInterval int
	Strategy       scan.Kind
	Delimiter      byte
}

// TrialResult holds the residency measured during a trial
type TrialResult struct {
	Config TrialConfig
	// Interval is the effective sample interval
	Interval int

	Before int
	After  int
	Pages  int
	// NewlyResident is the number of pages resident after the scan but not before
	NewlyResident uint64
	Series        TimeSeries
	Scan          scan.Result
	AdviseCost    time.Duration

	// Faults is nil when the counters couldn't be read
	Faults      *memory.Faults
	FaultsDelta *memory.Faults
	// PageFlags is empty when kernel page flags aren't readable
	PageFlags map[string]int
}

// Runner runs trials. Cache and Stats are best-effort collaborators, Flags
// is optional.
type Runner struct {
	Cache CacheController
	Stats ProcessStats
	Flags *pagecache.FlagReader
}

// seriesSink samples the region residency on scan requests
type seriesSink struct {
	sampler  *pagecache.Sampler
	region   *mapping.Region
	series   TimeSeries
	progress rate.Sometimes
}

func (s *seriesSink) Sample(units int) error {
	resident, err := s.sampler.Sample(s.region)
	if err != nil {
		return err
	}
	s.series = append(s.series, Point{Units: units, Resident: resident})
	s.progress.Do(func() {
		slog.Info("Scan progress", "units", units, "resident", resident, "pages", s.region.Pages())
	})
	return nil
}

func (r *Runner) dropCache() {
	if r.Cache == nil {
		return
	}
	before, beforeErr := memory.GetCachedMemory()
	err := r.Cache.DropAll()
	if err != nil {
		slog.Warn("Couldn't drop page cache", "error", err)
		return
	}
	after, afterErr := memory.GetCachedMemory()
	if beforeErr == nil && afterErr == nil {
		slog.Debug("Dropped page cache", "cached_kb_before", before, "cached_kb_after", after)
	}
}

func (r *Runner) readFaults(ctx *Context, res *TrialResult) {
	if r.Stats == nil {
		return
	}
	faults, err := r.Stats.Read(ctx.Pid)
	if err != nil {
		slog.Warn("Couldn't read process faults", "pid", ctx.Pid, "error", err)
		return
	}
	res.Faults = &faults
	if ctx.lastFaults != nil {
		delta := faults.Sub(*ctx.lastFaults)
		res.FaultsDelta = &delta
	}
	ctx.lastFaults = &faults
}

// Run runs one trial: cache drop, map, sample, scan, sample, unmap then fault
// query. A scan failure is wrapped with scan.ErrRead.
func (r *Runner) Run(ctx *Context, cfg TrialConfig) (res TrialResult, err error) {
	res.Config = cfg
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultBlockSize
		res.Config.BlockSize = cfg.BlockSize
	}
	strategy, err := scan.New(cfg.Strategy, cfg.Delimiter, &ctx.Chunks, ctx.Seed)
	if err != nil {
		return
	}
	res.Interval = cfg.SampleInterval
	if res.Interval <= 0 {
		res.Interval = strategy.DefaultInterval()
	}

	r.dropCache()

	region, err := mapping.Map(cfg.Path, cfg.BlockSize, cfg.Advise, cfg.Advice)
	if err != nil {
		return
	}
	res.AdviseCost = region.AdviseCost
	res.Pages = region.Pages()
	if cfg.Advise {
		slog.Debug("madvise call cost", "advice", cfg.Advice, "cost", region.AdviseCost)
	}
	// The region must be released even if sampling or scanning fails
	defer func() {
		unmapErr := region.Unmap()
		if unmapErr != nil {
			err = errors.Join(err, unmapErr)
			return
		}
		if err == nil {
			r.readFaults(ctx, &res)
		}
	}()

	sampler := pagecache.NewSampler(region.Len(), region.PageSize())
	before, err := sampler.Snapshot(region)
	if err != nil {
		err = fmt.Errorf("%w: %v", scan.ErrRead, err)
		return
	}
	res.Before = int(before.GetCardinality())
	slog.Info("Resident pages before scan", "path", cfg.Path, "advise", cfg.Advise, "resident", res.Before, "pages", res.Pages)

	sink := &seriesSink{
		sampler:  sampler,
		region:   region,
		progress: rate.Sometimes{Interval: progressInterval},
	}
	res.Scan, err = strategy.Scan(region, res.Interval, sink)
	res.Series = sink.series
	if err != nil {
		err = fmt.Errorf("%w: %s scan of %s: %w", scan.ErrRead, cfg.Strategy, cfg.Path, err)
		return
	}
	slog.Info("Scan finished", "strategy", cfg.Strategy, "units", res.Scan.Units,
		"useful_time", res.Scan.UsefulTime(), "sample_overhead", res.Scan.Overhead(), "samples", res.Scan.Samples)

	after, err := sampler.Snapshot(region)
	if err != nil {
		err = fmt.Errorf("%w: %v", scan.ErrRead, err)
		return
	}
	res.After = int(after.GetCardinality())
	res.NewlyResident = roaring.AndNot(after, before).GetCardinality()
	slog.Info("Resident pages after scan", "path", cfg.Path, "advise", cfg.Advise, "resident", res.After, "newly_resident", res.NewlyResident)

	if r.Flags != nil && r.Flags.CanReadPageFlags {
		res.PageFlags, err = r.Flags.Census(region, after)
		if err != nil {
			slog.Warn("Couldn't read page flags", "error", err)
			err = nil
		}
	}
	return
}
