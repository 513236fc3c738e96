package scan

import (
	"math/rand/v2"
)

const (
	// chunkComponentMax bounds each of the three random components of a chunk length
	chunkComponentMax = 128
	chunkComponents   = 3
)

// ChunkSequence is the list of chunk lengths used by block scans. It is
// generated on first use and replayed verbatim afterwards.
type ChunkSequence struct {
	lengths []int
}

// Populated returns true if the sequence was generated
func (c *ChunkSequence) Populated() bool {
	return len(c.lengths) > 0
}

// Lengths returns a copy of the chunk lengths
func (c *ChunkSequence) Lengths() []int {
	return append([]int(nil), c.lengths...)
}

// Total returns the number of bytes covered by the sequence
func (c *ChunkSequence) Total() int {
	total := 0
	for _, l := range c.lengths {
		total += l
	}
	return total
}

// Reset drops the sequence, the next block scan generates a new one
func (c *ChunkSequence) Reset() {
	c.lengths = nil
}

// generate fills the sequence with chunks covering exactly size bytes. Each
// chunk is the sum of three components in [1, chunkComponentMax], the last
// one is clamped to the remaining bytes.
func (c *ChunkSequence) generate(size int, rng *rand.Rand) {
	c.lengths = c.lengths[:0]
	remaining := size
	for remaining > 0 {
		length := 0
		for range chunkComponents {
			length += rng.IntN(chunkComponentMax) + 1
		}
		length = min(length, remaining)
		c.lengths = append(c.lengths, length)
		remaining -= length
	}
}
