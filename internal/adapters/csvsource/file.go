package csvsource

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSource is a local CSV file. Its signature changes whenever the file is
// rewritten (path, size and modification time).
type FileSource struct {
	name string
	path string
}

func NewFileSource(name, path string) *FileSource {
	return &FileSource{name: name, path: path}
}

func (f *FileSource) Name() string { return f.name }

func (f *FileSource) Signature(ctx context.Context) (string, error) {
	fi, err := os.Stat(f.path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(f.path)
	if err != nil {
		abs = f.path
	}
	return fmt.Sprintf("%s:%d:%d", abs, fi.Size(), fi.ModTime().UnixNano()), nil
}

func (f *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return os.Open(f.path)
}
