// Package fileutil places pipeline artifacts on disk without ever exposing
// a partially written file at its final path.
package fileutil

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temporary file in the target directory and
// renames it into place, so readers never observe a partial write. The
// temporary file is removed on failure.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	tmpName = ""
	return nil
}

// MoveFileVerified moves src to dst, preferring a plain rename. When the
// rename fails, typically because src and dst live on different filesystems,
// the file is copied with integrity verification and src removed afterward.
func MoveFileVerified(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := CopyFileVerified(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// CopyFileVerified copies src to dst and confirms the destination matches by
// size and SHA-256 digest, re-reading dst from disk after the copy. A copy
// that fails verification is removed.
func CopyFileVerified(src, dst string) error {
	srcSum, srcSize, err := digestFile(src)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	if err := copyContents(src, dst); err != nil {
		return err
	}
	dstSum, dstSize, err := digestFile(dst)
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("read copy back: %w", err)
	}
	if dstSize != srcSize {
		_ = os.Remove(dst)
		return fmt.Errorf("verify %s: copied %d bytes, want %d", filepath.Base(dst), dstSize, srcSize)
	}
	if dstSum != srcSum {
		_ = os.Remove(dst)
		return fmt.Errorf("verify %s: checksum mismatch after copy", filepath.Base(dst))
	}
	return nil
}

func copyContents(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func digestFile(path string) ([sha256.Size]byte, int64, error) {
	var sum [sha256.Size]byte
	f, err := os.Open(path)
	if err != nil {
		return sum, 0, err
	}
	defer f.Close()

	hasher := sha256.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return sum, 0, err
	}
	copy(sum[:], hasher.Sum(nil))
	return sum, size, nil
}
