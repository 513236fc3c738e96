package scan

import (
	"bytes"
	"fmt"
	"time"
)

const (
	// DefaultLineInterval is the number of records between samples
	DefaultLineInterval = 100
	lineScratchSize     = 8 << 10
)

// LineScan scans delimiter separated records
type LineScan struct {
	Delimiter byte
	scratch   []byte
}

// NewLineScan creates a line scan splitting on delimiter
func NewLineScan(delimiter byte) *LineScan {
	return &LineScan{
		Delimiter: delimiter,
		scratch:   make([]byte, lineScratchSize),
	}
}

// DefaultInterval returns the default number of records between samples
func (l *LineScan) DefaultInterval() int {
	return DefaultLineInterval
}

// Scan copies every record of the region into the scratch buffer. A trailing
// record without delimiter still counts.
func (l *LineScan) Scan(r Region, interval int, sink Sink) (result Result, err error) {
	result.Granularity = time.Microsecond
	s, err := newSampler(sink, interval, &result)
	if err != nil {
		return
	}

	data := r.Bytes()
	start := time.Now()
	defer func() { result.Elapsed = time.Since(start) }()

	cursor := 0
	for cursor < len(data) {
		end := bytes.IndexByte(data[cursor:], l.Delimiter)
		if end < 0 {
			end = len(data) - cursor
		}
		if end > len(l.scratch) {
			err = fmt.Errorf("%w: record at offset %d is %d bytes, scratch is %d", ErrRecordTooLarge, cursor, end, len(l.scratch))
			return
		}
		copy(l.scratch, data[cursor:cursor+end])

		// Include the delimiter in the consumed bytes
		consumed := min(end+1, len(data)-cursor)
		cursor += consumed
		err = s.unit(consumed)
		if err != nil {
			return
		}
	}
	err = s.flush()
	return
}
