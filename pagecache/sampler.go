package pagecache

import (
	"fmt"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bonnefoa/mmap_readahead/mapping"
	"golang.org/x/sys/unix"
)

// vecSlack pads the residency vector so an unaligned length never under-allocates
const vecSlack = 2

// Sampler counts resident pages of a mapped region. It owns the residency
// vector and reuses it across samples.
type Sampler struct {
	vec []byte
}

// NewSampler creates a sampler sized for regions of length bytes
func NewSampler(length int, pageSize int) *Sampler {
	s := &Sampler{}
	s.grow(length, pageSize)
	return s
}

func (s *Sampler) grow(length int, pageSize int) {
	// From mincore doc: The vec argument must point to an array containing at
	// least (length+PAGE_SIZE-1) / PAGE_SIZE bytes
	needed := length/pageSize + vecSlack
	if cap(s.vec) < needed {
		s.vec = make([]byte, needed)
	}
	s.vec = s.vec[:needed]
}

// residency fills the vector and returns the part covering the region
func (s *Sampler) residency(r *mapping.Region) ([]byte, error) {
	s.grow(r.Len(), r.PageSize())
	clear(s.vec)

	// int mincore(void addr[.length], size_t length, unsigned char *vec);
	mmapPtr := uintptr(unsafe.Pointer(unsafe.SliceData(r.Bytes())))
	lengthPtr := uintptr(r.Len())
	vecPtr := uintptr(unsafe.Pointer(unsafe.SliceData(s.vec)))
	_, _, errno := unix.Syscall(unix.SYS_MINCORE, mmapPtr, lengthPtr, vecPtr)
	if errno != 0 {
		return nil, fmt.Errorf("syscall SYS_MINCORE failed: %v", errno)
	}
	return s.vec[:r.Pages()], nil
}

// Sample returns the number of pages of the region currently resident in
// memory. Successive samples may decrease if the kernel evicts pages.
func (s *Sampler) Sample(r *mapping.Region) (int, error) {
	vec, err := s.residency(r)
	if err != nil {
		return 0, err
	}
	resident := 0
	for _, v := range vec {
		// On return, the least significant bit of each byte will be set if the corresponding page is currently resident in memory, and be clear otherwise
		if v&0x1 > 0 {
			resident++
		}
	}
	return resident, nil
}

// Snapshot returns the indexes of resident pages
func (s *Sampler) Snapshot(r *mapping.Region) (*roaring.Bitmap, error) {
	vec, err := s.residency(r)
	if err != nil {
		return nil, err
	}
	bm := roaring.New()
	for i, v := range vec {
		if v&0x1 > 0 {
			bm.Add(uint32(i))
		}
	}
	return bm, nil
}
