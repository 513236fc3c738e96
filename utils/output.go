package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// compressedFile closes the compressor before the file
type compressedFile struct {
	io.WriteCloser
	file *os.File
}

func (c *compressedFile) Close() error {
	err := c.WriteCloser.Close()
	closeErr := c.file.Close()
	if err != nil {
		return err
	}
	return closeErr
}

// OpenOutput returns a writer on path, or stdout if path is empty. The
// extension selects the compression: .zst, .gz, .lz4 or none.
func OpenOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("error creating output %s: %v", path, err)
	}

	var w io.WriteCloser
	switch filepath.Ext(path) {
	case ".zst":
		w, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	case ".gz":
		w = gzip.NewWriter(f)
	case ".lz4":
		w = lz4.NewWriter(f)
	default:
		return f, nil
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating compressor for %s: %v", path, err)
	}
	return &compressedFile{WriteCloser: w, file: f}, nil
}
