package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxSuffix bounds the search for a free file name.
const maxSuffix = 1000

// DirSaver writes exports into Dir. Data goes to a temporary file that is
// renamed into place only after the whole body was written.
type DirSaver struct {
	Dir string
}

func (s DirSaver) Save(filename string, body io.Reader) (string, int64, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".costlens-export-*")
	if err != nil {
		return "", 0, fmt.Errorf("create export temp file: %w", err)
	}
	tmpName := tmp.Name()
	// The temp name is released on every path.
	defer func() { _ = os.Remove(tmpName) }()

	n, err := io.Copy(tmp, body)
	if err != nil {
		_ = tmp.Close()
		return "", 0, fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("close export temp file: %w", err)
	}

	target, err := freePath(dir, filename)
	if err != nil {
		return "", 0, err
	}
	// Link fails if target appeared since freePath; Rename would clobber it.
	if err := os.Link(tmpName, target); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", 0, fmt.Errorf("save export: %s already exists", target)
		}
		// Filesystems without hard links.
		if err := os.Rename(tmpName, target); err != nil {
			return "", 0, fmt.Errorf("save export: %w", err)
		}
	}
	return target, n, nil
}

// freePath returns dir/filename, or dir/name-N.ext when that already exists.
func freePath(dir, filename string) (string, error) {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for i := 0; i < maxSuffix; i++ {
		name := filename
		if i > 0 {
			name = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		path := filepath.Join(dir, name)
		if _, err := os.Lstat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
	}
	return "", fmt.Errorf("save export: no free file name for %s in %s", filename, dir)
}

// WriterSaver streams the export to W, typically stdout.
type WriterSaver struct {
	W io.Writer
}

func (s WriterSaver) Save(filename string, body io.Reader) (string, int64, error) {
	n, err := io.Copy(s.W, body)
	if err != nil {
		return "", n, fmt.Errorf("write export: %w", err)
	}
	return "", n, nil
}
