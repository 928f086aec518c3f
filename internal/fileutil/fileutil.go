// Package fileutil holds small filesystem helpers shared by the store,
// transfer and project packages.
package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic writes data to a temp file next to path and renames it into
// place, so readers never observe a partial file.
func WriteAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp: %w", err)
	}
	tmpName = ""
	return nil
}

// Concat streams parts, in order, into a new file at dst and returns the
// number of bytes written. dst is removed if any part fails or the written
// size differs from the summed part sizes.
func Concat(dst string, parts []string) (int64, error) {
	var expected int64
	for _, part := range parts {
		info, err := os.Stat(part)
		if err != nil {
			return 0, fmt.Errorf("stat part: %w", err)
		}
		expected += info.Size()
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}
	written, err := appendParts(out, parts)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written != expected {
		err = fmt.Errorf("concat size mismatch: expected %d bytes, wrote %d", expected, written)
	}
	if err != nil {
		_ = os.Remove(dst)
		return 0, err
	}
	return written, nil
}

func appendParts(out io.Writer, parts []string) (int64, error) {
	var total int64
	for _, part := range parts {
		in, err := os.Open(part)
		if err != nil {
			return total, err
		}
		n, err := io.Copy(out, in)
		_ = in.Close()
		total += n
		if err != nil {
			return total, fmt.Errorf("copy %s: %w", filepath.Base(part), err)
		}
	}
	return total, nil
}

// CopyFile streams src to dst with mode 0o644.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// Exists reports whether path names a regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
