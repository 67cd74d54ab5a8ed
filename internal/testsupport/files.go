package testsupport

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills path with size bytes of a repeating pattern, creating
// parent directories. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	mkParent(t, path)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	pattern := bytes.Repeat([]byte{0x42}, 32*1024)
	for written := int64(0); written < size; {
		chunk := size - written
		if chunk > int64(len(pattern)) {
			chunk = int64(len(pattern))
		}
		n, err := f.Write(pattern[:chunk])
		if err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		written += int64(n)
	}
}

// WriteJSON marshals payload with indentation and writes it to path,
// creating parent directories.
func WriteJSON(t testing.TB, path string, payload any) {
	t.Helper()

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	mkParent(t, path)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func mkParent(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
}
