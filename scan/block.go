package scan

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

const (
	// DefaultBlockInterval is the number of chunks between samples
	DefaultBlockInterval = 500
	blockScratchSize     = 16 << 10
)

// BlockScan scans the region in randomized chunks. Chunk boundaries are
// generated on the first scan and replayed by the following ones so that
// trials are comparable.
type BlockScan struct {
	chunks  *ChunkSequence
	seed    uint64
	scratch []byte
}

// NewBlockScan creates a block scan storing its boundaries in chunks
func NewBlockScan(chunks *ChunkSequence, seed uint64) *BlockScan {
	return &BlockScan{
		chunks:  chunks,
		seed:    seed,
		scratch: make([]byte, blockScratchSize),
	}
}

// DefaultInterval returns the default number of chunks between samples
func (b *BlockScan) DefaultInterval() int {
	return DefaultBlockInterval
}

// Scan copies every chunk of the region into the scratch buffer
func (b *BlockScan) Scan(r Region, interval int, sink Sink) (result Result, err error) {
	result.Granularity = time.Millisecond
	s, err := newSampler(sink, interval, &result)
	if err != nil {
		return
	}

	data := r.Bytes()
	if !b.chunks.Populated() {
		b.chunks.generate(len(data), rand.New(rand.NewPCG(b.seed, b.seed)))
		slog.Debug("Generated chunk sequence", "chunks", len(b.chunks.lengths), "seed", b.seed)
	} else if total := b.chunks.Total(); total != len(data) {
		err = fmt.Errorf("%w: sequence covers %d bytes, region is %d", ErrChunkMismatch, total, len(data))
		return
	}

	start := time.Now()
	defer func() { result.Elapsed = time.Since(start) }()

	cursor := 0
	for _, length := range b.chunks.lengths {
		if length > len(b.scratch) {
			err = fmt.Errorf("%w: chunk at offset %d is %d bytes, scratch is %d", ErrRecordTooLarge, cursor, length, len(b.scratch))
			return
		}
		copy(b.scratch, data[cursor:cursor+length])
		cursor += length
		err = s.unit(length)
		if err != nil {
			return
		}
	}
	err = s.flush()
	return
}

// New builds the strategy of the given kind. Block scans share chunks.
func New(kind Kind, delimiter byte, chunks *ChunkSequence, seed uint64) (Strategy, error) {
	switch kind {
	case KindLine:
		return NewLineScan(delimiter), nil
	case KindBlock:
		return NewBlockScan(chunks, seed), nil
	}
	return nil, fmt.Errorf("unknown strategy kind: %d", kind)
}
