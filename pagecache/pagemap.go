package pagecache

import (
	"fmt"
	"log/slog"
	"os"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bonnefoa/mmap_readahead/mapping"
)

// FlagReader reads kernel page flags of mapped pages through
// /proc/self/pagemap and /proc/kpageflags
type FlagReader struct {
	pagemapFile      *os.File
	kpageFlagsFile   *os.File
	CanReadPageFlags bool
}

// NewFlagReader opens the proc files. Page flags are disabled if they can't
// be opened.
func NewFlagReader() (reader FlagReader) {
	var err error
	mode := os.FileMode(0600)
	reader.pagemapFile, err = os.OpenFile("/proc/self/pagemap", os.O_RDONLY, mode)
	if err != nil {
		slog.Info("Error opening /proc/self/pagemap, page flags won't be available", "err", err)
		return
	}
	reader.kpageFlagsFile, err = os.OpenFile("/proc/kpageflags", os.O_RDONLY, mode)
	if err != nil {
		reader.pagemapFile.Close()
		reader.pagemapFile = nil
		slog.Info("Error opening /proc/kpageflags, page flags won't be available", "err", err)
		return
	}

	// Assume true at this point. This is switched to false if pfn are all 0
	// which means we don't have CAP_SYS_ADMIN.
	reader.CanReadPageFlags = true
	return
}

// Close closes the proc files
func (f *FlagReader) Close() {
	if f.pagemapFile != nil {
		f.pagemapFile.Close()
	}
	if f.kpageFlagsFile != nil {
		f.kpageFlagsFile.Close()
	}
	f.CanReadPageFlags = false
}

// readUint64SliceFromFile reads uint64 elements from a file. Size and index are in uint64 elements, not in bytes
func readUint64SliceFromFile(f *os.File, size int, index int64) ([]uint64, error) {
	buf := make([]byte, 8*size)
	n, err := f.ReadAt(buf, index*8)
	if n != len(buf) || err != nil {
		return nil, fmt.Errorf("error reading %s: %v", f.Name(), err)
	}

	// Convert []byte to []uint64
	const ui64Size = int(unsafe.Sizeof(uint64(0)))
	ui64Ptr := (*uint64)(unsafe.Pointer(unsafe.SliceData(buf)))
	ui64Len := len(buf) / ui64Size
	return unsafe.Slice(ui64Ptr, ui64Len), nil
}

// Census counts page flags of the resident pages of the region. Only pages
// present in this process page table have a pfn, which is the case for pages
// touched by a scan.
func (f *FlagReader) Census(r *mapping.Region, resident *roaring.Bitmap) (map[string]int, error) {
	counts := make(map[string]int)
	if !f.CanReadPageFlags || resident.IsEmpty() {
		return counts, nil
	}

	mmapPtr := uintptr(unsafe.Pointer(unsafe.SliceData(r.Bytes())))
	indexPages := int64(mmapPtr) / int64(r.PageSize())
	pagemapFlags, err := readUint64SliceFromFile(f.pagemapFile, r.Pages(), indexPages)
	if err != nil {
		return counts, fmt.Errorf("error reading pagemap flags: %v", err)
	}

	seenPfn := false
	it := resident.Iterator()
	for it.HasNext() {
		pme := pagemapFlags[it.Next()]
		if pme&pmPresent == 0 {
			continue
		}
		pfn := pme & pfnMask
		if pfn == 0 {
			continue
		}
		seenPfn = true

		flagSlice, err := readUint64SliceFromFile(f.kpageFlagsFile, 1, int64(pfn))
		if err != nil {
			return counts, err
		}
		countFlags(counts, expandOverloadedFlags(flagSlice[0], pme))
	}

	if !seenPfn {
		slog.Info("Can't read Page Frame Numbers, CAP_SYS_ADMIN may be missing. Page Flags won't be displayed.")
		f.CanReadPageFlags = false
	}
	return counts, nil
}
