package scan

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind selects a scan strategy
type Kind int

const (
	// KindLine splits the region on a delimiter byte
	KindLine Kind = iota
	// KindBlock walks the region in randomized chunks replayed across trials
	KindBlock
)

var (
	// ErrRead is returned when a scan can't complete
	ErrRead = errors.New("read error")
	// ErrRecordTooLarge is returned when a record or chunk doesn't fit in the scratch buffer
	ErrRecordTooLarge = errors.New("record exceeds scratch buffer")
	// ErrChunkMismatch is returned when a cached chunk sequence doesn't cover the region
	ErrChunkMismatch = errors.New("cached chunk sequence doesn't cover region")

	kindMap = map[string]Kind{
		"line":  KindLine,
		"block": KindBlock,
	}
)

// ParseKind parses a strategy name
func ParseKind(s string) (Kind, error) {
	kind, ok := kindMap[strings.ToLower(s)]
	if !ok {
		return kind, fmt.Errorf("unknown strategy: %v", s)
	}
	return kind, nil
}

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindBlock:
		return "block"
	}
	return "unknown"
}

// Region is the memory walked by a scan
type Region interface {
	Bytes() []byte
}

// Sink receives a sample request every interval units
type Sink interface {
	Sample(units int) error
}

// Strategy walks a region, touches every byte and calls the sink every
// interval units
type Strategy interface {
	Scan(r Region, interval int, sink Sink) (Result, error)
	// DefaultInterval is the number of units between samples when none is configured
	DefaultInterval() int
}

// Result summarizes a scan
type Result struct {
	// Units is the number of records or chunks scanned
	Units int
	// Bytes is the number of bytes consumed
	Bytes int
	// Samples is the number of sink calls
	Samples int
	// Elapsed is the total wall time of the scan
	Elapsed time.Duration
	// SampleOverhead is the time spent inside sink calls
	SampleOverhead time.Duration
	// Granularity is the resolution used to report times
	Granularity time.Duration
}

// UsefulTime returns the scan time without the sampling overhead
func (r Result) UsefulTime() time.Duration {
	return (r.Elapsed - r.SampleOverhead).Truncate(r.Granularity)
}

// Overhead returns the sampling overhead at the strategy granularity
func (r Result) Overhead() time.Duration {
	return r.SampleOverhead.Truncate(r.Granularity)
}

// sampler counts units between samples and accounts for the time spent in
// the sink
type sampler struct {
	sink     Sink
	interval int
	pending  int
	result   *Result
}

func newSampler(sink Sink, interval int, result *Result) (*sampler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid sample interval: %d", interval)
	}
	return &sampler{sink: sink, interval: interval, result: result}, nil
}

func (s *sampler) sample() error {
	start := time.Now()
	err := s.sink.Sample(s.result.Units)
	s.result.SampleOverhead += time.Since(start)
	s.result.Samples++
	s.pending = 0
	return err
}

// unit records one scanned unit and samples when the interval is reached
func (s *sampler) unit(length int) error {
	s.result.Units++
	s.result.Bytes += length
	s.pending++
	if s.pending < s.interval {
		return nil
	}
	return s.sample()
}

// flush samples the trailing partial interval
func (s *sampler) flush() error {
	if s.pending == 0 {
		return nil
	}
	return s.sample()
}
