//go:build linux

package memory

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const dropCachesPath = "/proc/sys/vm/drop_caches"

// CacheDropper drops the kernel page cache. It requires root.
type CacheDropper struct {
	// Path is the drop_caches file, defaults to /proc/sys/vm/drop_caches
	Path string
}

// DropAll flushes dirty pages then drops page cache, dentries and inodes
func (c CacheDropper) DropAll() error {
	path := c.Path
	if path == "" {
		path = dropCachesPath
	}

	// Dirty pages can't be dropped, write them back first
	unix.Sync()

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("error opening %s: %v", path, err)
	}
	defer f.Close()
	_, err = f.WriteString("3")
	if err != nil {
		return fmt.Errorf("error writing %s: %v", path, err)
	}
	return nil
}
