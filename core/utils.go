package core

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/DmitriyVTitov/size"
	"github.com/dustin/go-humanize"
)

// NumCPU is the number of cores available to this process for parallel work.
var NumCPU = runtime.NumCPU()

// ConvertToAbsolute returns an absolute path given a path relative to some
// directory.  Paths that are already absolute are returned unchanged.
func ConvertToAbsolute(path, relativeTo string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	if relativeTo == "" {
		var err error
		if relativeTo, err = os.Getwd(); err != nil {
			return "", fmt.Errorf("could not get current directory: %v", err)
		}
	}
	return filepath.Abs(filepath.Join(relativeTo, path))
}

// Bytes returns a human readable string for a number of bytes, e.g., "83 MB".
func Bytes(n uint64) string {
	return humanize.Bytes(n)
}

// MemSize returns a human readable estimate of the in-memory footprint of v.
func MemSize(v interface{}) string {
	n := size.Of(v)
	if n < 0 {
		return "unknown"
	}
	return humanize.Bytes(uint64(n))
}

// Comma formats an integer with thousands separators.
func Comma(n int64) string {
	return humanize.Comma(n)
}
