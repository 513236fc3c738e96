package experiment

import (
	"os"

	"github.com/bonnefoa/mmap_readahead/memory"
	"github.com/bonnefoa/mmap_readahead/scan"
)

// Context holds the state shared by the trials of one experiment
type Context struct {
	// Chunks is generated by the first block scan and replayed by the others
	Chunks scan.ChunkSequence
	// SeriesA and SeriesB are the series of the last compared pair
	SeriesA TimeSeries
	SeriesB TimeSeries

	Seed uint64
	Pid  int

	lastFaults *memory.Faults
}

// NewContext creates a context for the running process
func NewContext(seed uint64) *Context {
	return &Context{Seed: seed, Pid: os.Getpid()}
}

// Reset clears the state of a previous experiment. The seed and pid are kept.
func (c *Context) Reset() {
	c.Chunks.Reset()
	c.SeriesA = nil
	c.SeriesB = nil
	c.lastFaults = nil
}
