package models

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"
)

// ArchiveName is the display name of a multi-file upload.
const ArchiveName = "Send-Archive"

// ArchiveType is the content type of a multi-file upload.
const ArchiveType = "send-archive"

// ManifestFile describes one file inside an uploaded archive.
type ManifestFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// Manifest lists archive contents in stream order.
type Manifest struct {
	Files []ManifestFile `json:"files"`
}

// ArchiveFile is a file selected for upload. Open is called once, when the
// upload reaches the file.
type ArchiveFile struct {
	Name string
	Size int64
	Type string
	Open func() (io.ReadCloser, error)
}

// Archive is the set of files sent as a single upload, with its sharing
// options.
type Archive struct {
	Files         []ArchiveFile
	Password      string
	TimeLimit     time.Duration
	DownloadLimit int
}

// NewArchiveFromPaths stats the given paths and returns an archive reading
// them lazily.
func NewArchiveFromPaths(paths ...string) (*Archive, error) {
	a := &Archive{}
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if fi.IsDir() {
			return nil, fmt.Errorf("%s is a directory", p)
		}
		path := p
		a.Files = append(a.Files, ArchiveFile{
			Name: filepath.Base(p),
			Size: fi.Size(),
			Type: typeByName(p),
			Open: func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}
	return a, nil
}

func typeByName(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Validate checks the archive can be uploaded.
func (a *Archive) Validate() error {
	if len(a.Files) == 0 {
		return errors.New("archive is empty")
	}
	if a.DownloadLimit < 1 {
		return errors.New("download limit must be positive")
	}
	if a.TimeLimit <= 0 {
		return errors.New("time limit must be positive")
	}
	return nil
}

func (a *Archive) Name() string {
	if len(a.Files) == 1 {
		return a.Files[0].Name
	}
	return ArchiveName
}

func (a *Archive) Type() string {
	if len(a.Files) == 1 {
		return a.Files[0].Type
	}
	return ArchiveType
}

func (a *Archive) Size() int64 {
	var total int64
	for _, f := range a.Files {
		total += f.Size
	}
	return total
}

func (a *Archive) Manifest() Manifest {
	m := Manifest{Files: make([]ManifestFile, 0, len(a.Files))}
	for _, f := range a.Files {
		m.Files = append(m.Files, ManifestFile{Name: f.Name, Size: f.Size, Type: f.Type})
	}
	return m
}

// Open returns a reader over all files concatenated in order. A file whose
// content length differs from its declared size fails the read, since the
// manifest would no longer describe the stream.
func (a *Archive) Open() io.ReadCloser {
	return &archiveReader{files: a.Files}
}

type archiveReader struct {
	files []ArchiveFile
	idx   int
	cur   io.ReadCloser
	read  int64
}

func (r *archiveReader) Read(p []byte) (int, error) {
	for {
		if r.cur == nil {
			if r.idx >= len(r.files) {
				return 0, io.EOF
			}
			rc, err := r.files[r.idx].Open()
			if err != nil {
				return 0, fmt.Errorf("open %s: %w", r.files[r.idx].Name, err)
			}
			r.cur, r.read = rc, 0
		}

		n, err := r.cur.Read(p)
		r.read += int64(n)
		if r.read > r.files[r.idx].Size {
			return n, fmt.Errorf("%s grew while reading", r.files[r.idx].Name)
		}
		if errors.Is(err, io.EOF) {
			if r.read != r.files[r.idx].Size {
				return n, fmt.Errorf("%s shrank while reading", r.files[r.idx].Name)
			}
			_ = r.cur.Close()
			r.cur = nil
			r.idx++
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (r *archiveReader) Close() error {
	if r.cur == nil {
		return nil
	}
	err := r.cur.Close()
	r.cur = nil
	r.idx = len(r.files)
	return err
}
