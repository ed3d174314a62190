package static

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrNotFound wraps fs.ErrNotExist for files the server was asked for.
	ErrNotFound = errors.New("static: not found")

	// ErrPermission wraps fs.ErrPermission.
	ErrPermission = errors.New("static: permission denied")

	// ErrIsDirectory is returned by ReadFileBytes for a directory.
	ErrIsDirectory = errors.New("static: is a directory")
)

// classify maps os errors onto the package sentinels.
func classify(op, path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s %q: %w", op, path, ErrNotFound)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%s %q: %w", op, path, ErrPermission)
	default:
		return fmt.Errorf("%s %q: %w", op, path, err)
	}
}

// ReadFileBytes returns the contents of the regular file at path.
func ReadFileBytes(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, classify("stat", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("read %q: %w", path, ErrIsDirectory)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, classify("read", path, err)
	}
	return data, nil
}

// Entry is one directory listing row.
type Entry struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// ListDirectory returns the entries of dir, directories first, then by name.
// Hidden entries are skipped.
func ListDirectory(dir string) ([]Entry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, classify("list", dir, err)
	}
	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		if strings.HasPrefix(de.Name(), ".") {
			continue
		}
		e := Entry{Name: de.Name(), IsDir: de.IsDir()}
		if info, err := de.Info(); err == nil {
			e.Size = info.Size()
			e.ModTime = info.ModTime()
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// SaveUploadedBytes writes data to a new file in dir and returns its name.
// Names are random; the extension is guessed from the content.
func SaveUploadedBytes(dir string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", classify("mkdir", dir, err)
	}
	name := "upload-" + uuid.NewString() + mimetype.Detect(data).Extension()
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", classify("create", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close %q: %w", path, err)
	}
	return name, nil
}

// DeleteFile removes the regular file at path. Directories are refused.
func DeleteFile(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return classify("stat", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("delete %q: %w", path, ErrIsDirectory)
	}
	if err := os.Remove(path); err != nil {
		return classify("delete", path, err)
	}
	return nil
}
