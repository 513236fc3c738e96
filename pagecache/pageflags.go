package pagecache

import (
	"sort"
)

// Kernel page flags, see include/uapi/linux/kernel-page-flags.h
const (
	kpfLocked     = 0
	kpfReferenced = 2
	kpfUptodate   = 3
	kpfDirty      = 4
	kpfLru        = 5
	kpfActive     = 6
	kpfWriteback  = 8
	kpfReclaim    = 9
	kpfMmap       = 11
	kpfHuge       = 17
	kpfIdle       = 25
	kpfMlocked    = 33
	kpfReadahead  = 48
	kpfFile       = 61

	pmFile    = 1 << 61
	pmPresent = 1 << 63

	pfnMask = 0x7FFFFFFFFFFFFF
)

// flagNames lists the flags reported by the census. Other bits are ignored.
var flagNames = map[int]string{
	kpfLocked:     "locked",
	kpfReferenced: "referenced",
	kpfUptodate:   "uptodate",
	kpfDirty:      "dirty",
	kpfLru:        "lru",
	kpfActive:     "active",
	kpfWriteback:  "writeback",
	kpfMmap:       "mmap",
	kpfHuge:       "huge",
	kpfIdle:       "idle_page",
	kpfMlocked:    "mlocked",
	kpfReadahead:  "readahead",
	kpfFile:       "file",
}

func expandOverloadedFlags(flags uint64, pme uint64) uint64 {
	/* PG_reclaim is overloaded as PG_readahead in the read path */
	if (flags & ((1 << kpfReclaim) | (1 << kpfWriteback))) == (1 << kpfReclaim) {
		flags ^= (1 << kpfReclaim) | (1 << kpfReadahead)
	}
	if (pme & pmFile) > 0 {
		flags |= (1 << kpfFile)
	}
	return flags
}

// FlagCount is the number of resident pages carrying a flag
type FlagCount struct {
	Name  string
	Count int
}

// countFlags adds one to every known flag set in flags
func countFlags(counts map[string]int, flags uint64) {
	for bit, name := range flagNames {
		if (flags>>bit)&1 > 0 {
			counts[name]++
		}
	}
}

// SortedFlagCounts returns flag counts sorted by decreasing count, then name
func SortedFlagCounts(counts map[string]int) []FlagCount {
	res := make([]FlagCount, 0, len(counts))
	for name, count := range counts {
		res = append(res, FlagCount{name, count})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Count != res[j].Count {
			return res[i].Count > res[j].Count
		}
		return res[i].Name < res[j].Name
	})
	return res
}
