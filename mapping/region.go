package mapping

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// Advice is the kernel hint issued on a freshly mapped region
type Advice int

const (
	// AdviceWillNeed asks the kernel to read the range ahead (MADV_WILLNEED)
	AdviceWillNeed Advice = iota
	// AdviceSequential expects sequential access, doubling the read-ahead window (MADV_SEQUENTIAL)
	AdviceSequential
	// AdviceRandom disables read-ahead on faults (MADV_RANDOM)
	AdviceRandom
)

var (
	// ErrOpen is returned when the file can't be opened read-only
	ErrOpen = errors.New("open error")
	// ErrMmap is returned when the mapping can't be established
	ErrMmap = errors.New("mmap error")
	// ErrMadvise is returned when the advisory is rejected
	ErrMadvise = errors.New("madvise error")
	// ErrUnmap is returned when the mapping can't be released
	ErrUnmap = errors.New("unmap error")

	adviceMap = map[string]Advice{
		"willneed":   AdviceWillNeed,
		"sequential": AdviceSequential,
		"random":     AdviceRandom,
	}
)

// ParseAdvice parses an advice name
func ParseAdvice(s string) (Advice, error) {
	advice, ok := adviceMap[strings.ToLower(s)]
	if !ok {
		return advice, fmt.Errorf("unknown advice: %v", s)
	}
	return advice, nil
}

func (a Advice) String() string {
	switch a {
	case AdviceWillNeed:
		return "willneed"
	case AdviceSequential:
		return "sequential"
	case AdviceRandom:
		return "random"
	}
	return "unknown"
}

// invalidAdvice is rejected by madvise with EINVAL
const invalidAdvice = -1

func (a Advice) flag() int {
	switch a {
	case AdviceWillNeed:
		return unix.MADV_WILLNEED
	case AdviceSequential:
		return unix.MADV_SEQUENTIAL
	case AdviceRandom:
		return unix.MADV_RANDOM
	}
	return invalidAdvice
}

// Region is a read-only shared mapping of the first length bytes of a file
type Region struct {
	data     []byte
	length   int
	pageSize int

	// AdviseCost is the time spent inside madvise, zero when no advice was given
	AdviseCost time.Duration
	unmapped   bool
}

// Map maps exactly length bytes of path at offset 0. The file may be shorter
// than length: the mapping still succeeds but touching bytes past the end of
// file raises SIGBUS, so callers must pick length <= file size.
func Map(path string, length int, advise bool, advice Advice) (*Region, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
	}
	// The mapping keeps the file's pages reachable once the descriptor is closed
	defer file.Close()

	if length <= 0 {
		return nil, fmt.Errorf("%w: %s: invalid length %d", ErrMmap, path, length)
	}

	// void *mmap(void addr[.length], size_t length, int prot, int flags, int fd, off_t offset);
	data, err := unix.Mmap(int(file.Fd()), 0, length, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMmap, path, err)
	}

	r := &Region{
		data:     data,
		length:   length,
		pageSize: GetPageSize(),
	}

	if advise {
		start := time.Now()
		err = unix.Madvise(data, advice.flag())
		r.AdviseCost = time.Since(start)
		if err != nil {
			err = fmt.Errorf("%w: %s: %v", ErrMadvise, path, err)
			if unmapErr := unix.Munmap(data); unmapErr != nil {
				err = errors.Join(err, fmt.Errorf("%w: %v", ErrUnmap, unmapErr))
			}
			return nil, err
		}
	}
	return r, nil
}

// GetPageSize returns the os page size
func GetPageSize() int {
	return os.Getpagesize()
}

// Bytes returns the mapped memory. It must not be used after Unmap.
func (r *Region) Bytes() []byte {
	return r.data
}

// Len returns the mapped length in bytes
func (r *Region) Len() int {
	return r.length
}

// PageSize returns the page size used to compute page counts
func (r *Region) PageSize() int {
	return r.pageSize
}

// Pages returns the number of pages covering the region, rounded up
func (r *Region) Pages() int {
	return (r.length + r.pageSize - 1) / r.pageSize
}

// Unmap releases the mapping. The region is invalid afterward and a second
// call fails.
func (r *Region) Unmap() error {
	if r.unmapped {
		return fmt.Errorf("%w: region already unmapped", ErrUnmap)
	}
	err := unix.Munmap(r.data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnmap, err)
	}
	r.unmapped = true
	r.data = nil
	return nil
}
