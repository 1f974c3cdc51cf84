package fileutil

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/harness/cpi-sync/util/common/errors"
)

// validatePath checks if a path is usable as a write target.
func validatePath(path string) error {
	if path == "" {
		return errors.NewValidationError("path", "path cannot be empty")
	}

	if strings.ContainsRune(path, 0) {
		return errors.NewValidationError("path", "path contains invalid characters")
	}

	return nil
}

// validateWritePermissions checks if a directory is writable.
// Returns an error if the directory is not writable or if testing
// write permissions fails.
func validateWritePermissions(dir string) error {
	// Create a temporary file to test write permissions
	testFile := filepath.Join(dir, ".write_test")
	f, err := os.OpenFile(testFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		return errors.NewFileError(dir, "write_permission", err)
	}
	f.Close()
	os.Remove(testFile)
	return nil
}

// ResetDir removes a directory if it exists and creates a fresh empty one.
// It validates the path and checks write permissions before proceeding.
func ResetDir(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}

	if err := os.RemoveAll(path); err != nil {
		return errors.NewFileError(path, "remove", err)
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.NewFileError(path, "create", err)
	}

	if err := validateWritePermissions(path); err != nil {
		return err
	}

	return nil
}

// EnsureDir creates path and all of its parents if they are missing.
func EnsureDir(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.NewFileError(path, "create_dir", err)
	}
	return nil
}

// WriteFile writes data to a file, replacing any previous content.
// Parent directories are created if needed.
func WriteFile(path string, data []byte) error {
	return WriteFileFunc(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteFileFunc streams the output of write into path. The content is staged
// in a temporary file next to path and renamed into place once write
// succeeds, so readers never observe a half written file.
func WriteFileFunc(path string, write func(w io.Writer) error) error {
	if err := validatePath(path); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewFileError(path, "create_dir", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.NewFileError(path, "create", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return errors.NewFileError(path, "write", err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return errors.NewFileError(path, "write", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewFileError(path, "close", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return errors.NewFileError(path, "chmod", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.NewFileError(path, "rename", err)
	}
	return nil
}

// ReadFile reads the entire file and returns its contents.
// It validates the path and checks if the file exists and is readable.
func ReadFile(path string) ([]byte, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewFileError(path, "stat", err)
	}
	if info.IsDir() {
		return nil, errors.NewValidationError("path", "path is a directory, expected a file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewFileError(path, "read", err)
	}
	return data, nil
}

// Exists checks if a file or directory exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
