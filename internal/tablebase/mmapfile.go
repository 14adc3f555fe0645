package tablebase

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"
)

// mmapFile is a read-only memory-mapped table file. Release is a pure
// unmap; acquisition is scoped so every exit path (including parse errors)
// unmaps on failure.
type mmapFile struct {
	f    *os.File
	data mmap.MMap
}

// wdlExt and dtzExt are the Syzygy file suffixes for WDL and DTZ payloads.
const (
	wdlExt = ".rtbw"
	dtzExt = ".rtbz"
)

// locateTable searches dirs in order for name+ext and returns the first hit.
// A missing file anywhere is not an error here; callers treat "no path
// found" as "table absent".
func locateTable(dirs []string, name, ext string) string {
	for _, dir := range dirs {
		path := filepath.Join(dir, name+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// openMMap opens path read-only and maps it into memory. Any I/O fault is
// reported as "table absent" to the caller, per spec: no partial state is
// retained on failure.
func openMMap(path string) (*mmapFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tablebase: open %s: %w", path, err)
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("tablebase: mmap %s: %w", path, err)
	}

	return &mmapFile{f: f, data: data}, nil
}

// bytes returns the mapped region.
func (m *mmapFile) bytes() []byte {
	return m.data
}

// close unmaps the region and closes the underlying file descriptor.
func (m *mmapFile) close() error {
	if m == nil {
		return nil
	}
	var err error
	if m.data != nil {
		err = m.data.Unmap()
	}
	if m.f != nil {
		if cerr := m.f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
