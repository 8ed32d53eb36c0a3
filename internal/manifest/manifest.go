// Package manifest records the halo IDs processed by a run in
// {rascas_dir}/{timestep:05d}/haloid_list.dat.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Header is the first line of every manifest file.
const Header = "Halo IDs "

// FileName is the manifest file name inside the timestep directory.
const FileName = "haloid_list.dat"

var (
	// ErrManifestWrite wraps any I/O failure while writing a manifest.
	ErrManifestWrite = errors.New("manifest write failed")
	// ErrBadHeader indicates a file that does not start with Header.
	ErrBadHeader = errors.New("manifest header missing")
)

// WriteError records the manifest path that could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrManifestWrite, e.Path, e.Err)
}

func (e *WriteError) Unwrap() []error { return []error{ErrManifestWrite, e.Err} }

// Path returns {base}/{timestep:05d}/haloid_list.dat.
func Path(base string, timestep int) string {
	return filepath.Join(base, fmt.Sprintf("%05d", timestep), FileName)
}

// Manifest accumulates processed halo IDs in order. It is owned by a single
// goroutine.
type Manifest struct {
	ids []int64
}

// Add appends id.
func (m *Manifest) Add(ids ...int64) {
	m.ids = append(m.ids, ids...)
}

// IDs returns a copy of the accumulated IDs.
func (m *Manifest) IDs() []int64 {
	out := make([]int64, len(m.ids))
	copy(out, m.ids)
	return out
}

// Len returns the number of IDs recorded.
func (m *Manifest) Len() int { return len(m.ids) }

// WriteFile writes the accumulated IDs to path.
func (m *Manifest) WriteFile(path string) error {
	return Write(path, m.ids)
}

// Write truncates path and writes the header followed by one ID per line.
// Parent directories are created as needed. A failure part way through can
// leave a partial file behind.
func Write(path string, ids []int64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.WriteString(Header + "\n")
	for _, id := range ids {
		w.WriteString(strconv.FormatInt(id, 10))
		w.WriteString(" \n")
	}
	if err := w.Flush(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// Read parses a manifest written by Write. Trailing spaces are ignored.
func Read(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() || strings.TrimSpace(sc.Text()) != strings.TrimSpace(Header) {
		return nil, fmt.Errorf("manifest: %s: %w", path, ErrBadHeader)
	}

	var ids []int64
	lineNo := 1
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("manifest: %s: line %d: %w", path, lineNo, err)
		}
		ids = append(ids, id)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	return ids, nil
}
