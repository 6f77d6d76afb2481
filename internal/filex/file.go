// Package filex contains filesystem helpers for downloads: directory
// creation, sanitising remote file names and splitting a multi-file archive
// stream back into files.
package filex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates dir (and parents) with owner-only permissions and
// returns its absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}
	return abs, nil
}

// SafeName reduces a name received from a remote party to a single path
// element.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == "" {
		return "download"
	}
	return base
}

// UniquePath returns dir/name, or dir/"name (n)" when that already exists.
func UniquePath(dir, name string) string {
	name = SafeName(name)
	path := filepath.Join(dir, name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
	}
}

// Part is one file of an archive stream.
type Part struct {
	Name string
	Size int64
}

// SplitWriter writes a concatenated archive stream into one file per part.
type SplitWriter struct {
	dir   string
	parts []Part
	idx   int
	cur   *os.File
	left  int64
	paths []string
}

func NewSplitWriter(dir string, parts []Part) *SplitWriter {
	return &SplitWriter{dir: dir, parts: parts}
}

func (w *SplitWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		if w.cur == nil {
			if err := w.openNext(); err != nil {
				return written, err
			}
		}

		n := int64(len(p))
		if n > w.left {
			n = w.left
		}
		k, err := w.cur.Write(p[:n])
		written += k
		w.left -= int64(k)
		p = p[k:]
		if err != nil {
			return written, err
		}

		if w.left == 0 {
			if err := w.closeCurrent(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (w *SplitWriter) openNext() error {
	if err := w.createEmpty(); err != nil {
		return err
	}
	if w.idx >= len(w.parts) {
		return errors.New("archive has more data than its manifest")
	}

	path := UniquePath(w.dir, w.parts[w.idx].Name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	w.cur = f
	w.left = w.parts[w.idx].Size
	w.paths = append(w.paths, path)
	return nil
}

func (w *SplitWriter) createEmpty() error {
	for w.idx < len(w.parts) && w.parts[w.idx].Size == 0 {
		path := UniquePath(w.dir, w.parts[w.idx].Name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		w.paths = append(w.paths, path)
		w.idx++
	}
	return nil
}

func (w *SplitWriter) closeCurrent() error {
	err := w.cur.Close()
	w.cur = nil
	w.idx++
	return err
}

// Close finishes the last file and fails when the stream ended early.
func (w *SplitWriter) Close() error {
	if w.cur != nil {
		if err := w.cur.Close(); err != nil {
			return err
		}
		w.cur = nil
		return fmt.Errorf("archive ended inside %q", w.parts[w.idx].Name)
	}
	if err := w.createEmpty(); err != nil {
		return err
	}
	if w.idx < len(w.parts) {
		return fmt.Errorf("archive ended before %q", w.parts[w.idx].Name)
	}
	return nil
}

// Paths lists the files created so far.
func (w *SplitWriter) Paths() []string {
	return w.paths
}
